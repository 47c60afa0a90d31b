package check

import (
	"testing"

	"pine/internal/pine/lang"
)

// parseSrc scans and parses src, failing the test on any parser error.
func parseSrc(t *testing.T, src string) *lang.Block {
	t.Helper()
	scanner := lang.NewScanner(src)
	toks := scanner.ScanTokens()
	p := lang.NewParser(toks, scanner.Version)
	block := p.Parse()
	if len(p.Errors) > 0 {
		t.Fatalf("parse errors for %q: %v", src, p.Errors)
	}
	return block
}

func TestCheckSimpleAssignHasNoDiagnostics(t *testing.T) {
	block := parseSrc(t, "x = close\ny = x + 1.0\n")
	prog := Check(block)
	if prog.Diags.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", prog.Diags.Errors)
	}
}

func TestCheckVarNotDeclaredReported(t *testing.T) {
	block := parseSrc(t, "y = undeclared_name + 1.0\n")
	prog := Check(block)
	if !prog.Diags.HasErrors() {
		t.Fatalf("expected a VarNotDeclared diagnostic, got none")
	}
}

func TestCheckRedeclarationReported(t *testing.T) {
	block := parseSrc(t, "x = 1\nx = 2\n")
	prog := Check(block)
	if !prog.Diags.HasErrors() {
		t.Fatalf("expected a VarHasDeclared diagnostic for redeclaring x, got none")
	}
}

func TestCheckBreakOutsideForReported(t *testing.T) {
	block := parseSrc(t, "break\n")
	prog := Check(block)
	if !prog.Diags.HasErrors() {
		t.Fatalf("expected a BreakNotInForStmt diagnostic, got none")
	}
}

func TestCheckForLoopDeclaresIntLoopVar(t *testing.T) {
	block := parseSrc(t, "for i = 0 to 9 {\n  x = i + 1\n}\n")
	prog := Check(block)
	if prog.Diags.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", prog.Diags.Errors)
	}
}

func TestCheckWellKnownSlotsAreStable(t *testing.T) {
	block := parseSrc(t, "x = close\n")
	prog := Check(block)
	for _, name := range []string{"open", "high", "low", "close", "volume", "bar_index"} {
		if _, ok := prog.WellKnown[name]; !ok {
			t.Errorf("WellKnown missing slot for %q", name)
		}
	}
}
