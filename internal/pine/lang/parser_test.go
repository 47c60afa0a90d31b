package lang

import "testing"

func parseOK(t *testing.T, src string) *Block {
	t.Helper()
	scanner := NewScanner(src)
	toks := scanner.ScanTokens()
	p := NewParser(toks, scanner.Version)
	block := p.Parse()
	if len(p.Errors) > 0 {
		t.Fatalf("unexpected parse errors for %q: %v", src, p.Errors)
	}
	return block
}

func TestParseAssignAndTrailingExpr(t *testing.T) {
	block := parseOK(t, "x = 1\ny = x + 2\ny\n")
	if len(block.Stmts) != 2 {
		t.Fatalf("expected 2 statements, got %d", len(block.Stmts))
	}
	if block.Ret == nil {
		t.Fatalf("expected a trailing return expression")
	}
	if _, ok := block.Ret.(*VarExpr); !ok {
		t.Errorf("expected trailing expr to be a VarExpr, got %T", block.Ret)
	}
}

func TestParseIfElseBlock(t *testing.T) {
	block := parseOK(t, "if close > open {\n  x = 1\n} else {\n  x = 2\n}\n")
	if len(block.Stmts) != 1 {
		t.Fatalf("expected 1 statement, got %d", len(block.Stmts))
	}
	ifStmt, ok := block.Stmts[0].(*IfStmt)
	if !ok {
		t.Fatalf("expected an IfStmt, got %T", block.Stmts[0])
	}
	if ifStmt.Else == nil {
		t.Errorf("expected an else branch")
	}
}

func TestParseForLoopWithStep(t *testing.T) {
	block := parseOK(t, "for i = 10 to 0 by -2 {\n  break\n}\n")
	forStmt, ok := block.Stmts[0].(*ForStmt)
	if !ok {
		t.Fatalf("expected a ForStmt, got %T", block.Stmts[0])
	}
	if forStmt.Step == nil {
		t.Errorf("expected an explicit step expression")
	}
}

func TestParseDottedCallWithNamedArg(t *testing.T) {
	block := parseOK(t, "x = input.float(1.0, title=\"Length\")\n")
	assign := block.Stmts[0].(*AssignStmt)
	call, ok := assign.Value.(*CallExpr)
	if !ok {
		t.Fatalf("expected a CallExpr, got %T", assign.Value)
	}
	if len(call.Args) != 2 {
		t.Fatalf("expected 2 arguments, got %d", len(call.Args))
	}
	if call.Args[1].Name != "title" {
		t.Errorf("expected second arg name %q, got %q", "title", call.Args[1].Name)
	}
}

func TestVersionPragmaOutOfRangeReportsError(t *testing.T) {
	scanner := NewScanner("//@version=99\nx = 1\n")
	toks := scanner.ScanTokens()
	p := NewParser(toks, scanner.Version)
	p.Parse()
	if len(p.Errors) == 0 {
		t.Errorf("expected an error for an out-of-range version pragma")
	}
}
