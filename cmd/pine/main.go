// cmd/pine is the command-line front end: run evaluates a script over a
// CSV bar file, check type-checks a script and reports diagnostics, and
// repl checks scripts typed on stdin, one blank-line-terminated block at
// a time, for quick iteration.
//
// Grounded on the teacher's cmd/sentra/main.go (alias map, subcommand
// switch, help/version handling) narrowed to this spec's three
// commands. github.com/pkg/errors wraps errors at this boundary only —
// the core packages (check/eval/driver) return plain error values.
package main

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"

	"pine/internal/pine/driver"
	"pine/internal/pine/loader"
)

const version = "0.1.0"

var commandAliases = map[string]string{
	"r": "run",
	"c": "check",
	"i": "repl",
}

func main() {
	args := os.Args[1:]
	if len(args) == 0 {
		showUsage()
		os.Exit(1)
	}

	cmd := args[0]
	if alias, ok := commandAliases[cmd]; ok {
		cmd = alias
	}

	switch cmd {
	case "--help", "-h", "help":
		showUsage()
	case "--version", "-v", "version":
		fmt.Println("pine", version)
	case "run":
		if err := cmdRun(args[1:]); err != nil {
			log.Fatalf("run: %v", err)
		}
	case "check":
		if err := cmdCheck(args[1:]); err != nil {
			log.Fatalf("check: %v", err)
		}
	case "repl":
		cmdRepl()
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", cmd)
		showUsage()
		os.Exit(1)
	}
}

func showUsage() {
	fmt.Println(`pine - a tree-walking evaluator for bar-series scripts

Usage:
  pine run <script.pine> <bars.csv>   evaluate a script over a bar file
  pine check <script.pine>            type-check a script and print diagnostics
  pine repl                           check scripts typed one at a time
  pine version                        print the version
  pine help                           print this message`)
}

func readSource(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", errors.Wrapf(err, "reading %s", path)
	}
	return string(b), nil
}

func cmdCheck(args []string) error {
	if len(args) < 1 {
		return errors.New("usage: pine check <script.pine>")
	}
	src, err := readSource(args[0])
	if err != nil {
		return err
	}
	c := loader.New()
	prog, err := c.Load(src)
	if err != nil {
		if prog != nil && prog.Diags.HasErrors() {
			for _, e := range prog.Diags.Errors {
				fmt.Println(e.Error())
			}
			return errors.Errorf("%d error(s)", len(prog.Diags.Errors))
		}
		return errors.WithStack(err)
	}
	fmt.Println("ok")
	return nil
}

// cmdRun type-checks the script, loads bars from a CSV file
// (timestamp,open,high,low,close,volume), and evaluates every bar,
// printing the bar count, the elapsed time, and each output buffer's
// value count and start bar.
func cmdRun(args []string) error {
	if len(args) < 2 {
		return errors.New("usage: pine run <script.pine> <bars.csv>")
	}
	src, err := readSource(args[0])
	if err != nil {
		return err
	}
	bars, err := readBars(args[1])
	if err != nil {
		return errors.Wrapf(err, "reading bars from %s", args[1])
	}

	c := loader.New()
	prog, err := c.Load(src)
	if err != nil {
		return errors.WithStack(err)
	}

	start := time.Now()
	s, err := driver.Run(prog, bars, nil)
	if err != nil {
		return errors.WithStack(err)
	}
	elapsed := time.Since(start)

	fmt.Printf("evaluated %s bars in %s\n", humanize.Comma(int64(len(bars))), elapsed.Round(time.Microsecond))
	for name, data := range s.Outputs() {
		fmt.Printf("  %s: %d value(s) starting at bar %d\n", name, len(data.Values), data.Start)
	}
	return nil
}

func readBars(path string) ([]driver.Bar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	var bars []driver.Bar
	for {
		rec, err := r.Read()
		if err != nil {
			break
		}
		if len(rec) < 6 {
			continue
		}
		ts, _ := strconv.ParseInt(rec[0], 10, 64)
		open, _ := strconv.ParseFloat(rec[1], 64)
		high, _ := strconv.ParseFloat(rec[2], 64)
		low, _ := strconv.ParseFloat(rec[3], 64)
		closeV, _ := strconv.ParseFloat(rec[4], 64)
		vol, _ := strconv.ParseFloat(rec[5], 64)
		bars = append(bars, driver.Bar{Timestamp: ts, Open: open, High: high, Low: low, Close: closeV, Volume: vol})
	}
	return bars, nil
}

// cmdRepl reads one script per blank-line-terminated block from stdin
// and reports its diagnostics, coloring errors when stdout is a
// terminal.
func cmdRepl() {
	color := isatty.IsTerminal(os.Stdout.Fd())
	c := loader.New()
	scanner := bufio.NewScanner(os.Stdin)
	var buf string
	fmt.Println("pine repl - enter a script, blank line to check it, Ctrl-D to exit")
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			if buf == "" {
				continue
			}
			checkRepl(c, buf, color)
			buf = ""
			continue
		}
		buf += line + "\n"
	}
	if buf != "" {
		checkRepl(c, buf, color)
	}
}

func checkRepl(c *loader.Cache, src string, color bool) {
	prog, err := c.Load(src)
	if err != nil {
		if prog != nil {
			for _, e := range prog.Diags.Errors {
				printDiag(e.Error(), color)
			}
			return
		}
		printDiag(err.Error(), color)
		return
	}
	fmt.Println("ok")
}

func printDiag(msg string, color bool) {
	if color {
		fmt.Printf("\x1b[31m%s\x1b[0m\n", msg)
		return
	}
	fmt.Println(msg)
}
