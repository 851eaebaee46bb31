package parser

import (
	"strings"
	"testing"

	"github.com/irisbuild/iris/pkg/irislang/ast"
)

func parseProgram(t *testing.T, input string) *ast.Program {
	t.Helper()
	program, err := Parse(input)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	return program
}

func TestMinimalProjectBlock(t *testing.T) {
	input := "project \"p\" do\n  version = \"0.1\"\nend"
	program := parseProgram(t, input)

	if len(program.Statements) != 1 {
		t.Fatalf("expected 1 statement, got %d", len(program.Statements))
	}

	project, ok := program.Statements[0].(*ast.ProjectBlock)
	if !ok {
		t.Fatalf("expected ProjectBlock, got %T", program.Statements[0])
	}
	if project.Name != "p" {
		t.Errorf("expected project name \"p\", got %q", project.Name)
	}
	if len(project.Body.Statements) != 1 {
		t.Fatalf("expected 1 body statement, got %d", len(project.Body.Statements))
	}

	assign, ok := project.Body.Statements[0].(*ast.AssignStatement)
	if !ok {
		t.Fatalf("expected AssignStatement, got %T", project.Body.Statements[0])
	}
	if assign.Name != "version" {
		t.Errorf("expected assignment to version, got %q", assign.Name)
	}
	str, ok := assign.Value.(*ast.StringLiteral)
	if !ok || str.Value != "0.1" {
		t.Errorf("expected string literal \"0.1\", got %v", assign.Value)
	}
}

func TestTargetBlocks(t *testing.T) {
	tests := []struct {
		input string
		kind  string
	}{
		{`executable "app" do` + "\n" + `end`, "executable"},
		{`library "core" do` + "\n" + `end`, "library"},
		{`static_library "base" do` + "\n" + `end`, "static_library"},
		{`shared_library "plugin" do` + "\n" + `end`, "shared_library"},
	}

	for _, tt := range tests {
		program := parseProgram(t, tt.input)
		target, ok := program.Statements[0].(*ast.TargetBlock)
		if !ok {
			t.Fatalf("%q: expected TargetBlock, got %T", tt.input, program.Statements[0])
		}
		if target.Kind != tt.kind {
			t.Errorf("%q: expected kind %q, got %q", tt.input, tt.kind, target.Kind)
		}
	}
}

func TestCompilerAndTaskAndDependencyBlocks(t *testing.T) {
	input := `compiler do
    cc = "clang"
end

task :lint do
    print("linting")
end

dependency "zlib" do
    version = "1.3"
    type = :system
end
`
	program := parseProgram(t, input)
	if len(program.Statements) != 3 {
		t.Fatalf("expected 3 statements, got %d", len(program.Statements))
	}

	if _, ok := program.Statements[0].(*ast.CompilerBlock); !ok {
		t.Errorf("expected CompilerBlock, got %T", program.Statements[0])
	}

	task, ok := program.Statements[1].(*ast.TaskBlock)
	if !ok {
		t.Fatalf("expected TaskBlock, got %T", program.Statements[1])
	}
	if task.Name != "lint" {
		t.Errorf("expected task name lint, got %q", task.Name)
	}

	dep, ok := program.Statements[2].(*ast.DependencyBlock)
	if !ok {
		t.Fatalf("expected DependencyBlock, got %T", program.Statements[2])
	}
	if dep.Name != "zlib" {
		t.Errorf("expected dependency name zlib, got %q", dep.Name)
	}
}

func TestIfElseChain(t *testing.T) {
	input := `if a do
    x = 1
else if b do
    x = 2
else
    x = 3
end
`
	program := parseProgram(t, input)
	outer, ok := program.Statements[0].(*ast.IfStatement)
	if !ok {
		t.Fatalf("expected IfStatement, got %T", program.Statements[0])
	}
	if outer.Else == nil || len(outer.Else.Statements) != 1 {
		t.Fatal("expected else block holding the chained if")
	}

	nested, ok := outer.Else.Statements[0].(*ast.IfStatement)
	if !ok {
		t.Fatalf("expected nested IfStatement, got %T", outer.Else.Statements[0])
	}
	if nested.Else == nil || len(nested.Else.Statements) != 1 {
		t.Fatal("expected final else block")
	}
}

func TestUnlessStatement(t *testing.T) {
	program := parseProgram(t, "unless quiet do\n  print(\"hi\")\nend")
	unless, ok := program.Statements[0].(*ast.UnlessStatement)
	if !ok {
		t.Fatalf("expected UnlessStatement, got %T", program.Statements[0])
	}
	if unless.Condition.String() != "quiet" {
		t.Errorf("unexpected condition: %s", unless.Condition.String())
	}
}

func TestForStatement(t *testing.T) {
	program := parseProgram(t, "for f in sources do\n  print(f)\nend")
	loop, ok := program.Statements[0].(*ast.ForStatement)
	if !ok {
		t.Fatalf("expected ForStatement, got %T", program.Statements[0])
	}
	if loop.Variable != "f" {
		t.Errorf("expected loop variable f, got %q", loop.Variable)
	}
}

func TestFunctionStatement(t *testing.T) {
	program := parseProgram(t, "fn add(a, b) do\n  return a + b\nend")
	fn, ok := program.Statements[0].(*ast.FunctionStatement)
	if !ok {
		t.Fatalf("expected FunctionStatement, got %T", program.Statements[0])
	}
	if fn.Name != "add" {
		t.Errorf("expected name add, got %q", fn.Name)
	}
	if len(fn.Parameters) != 2 || fn.Parameters[0] != "a" || fn.Parameters[1] != "b" {
		t.Errorf("unexpected parameters: %v", fn.Parameters)
	}

	ret, ok := fn.Body.Statements[0].(*ast.ReturnStatement)
	if !ok {
		t.Fatalf("expected ReturnStatement, got %T", fn.Body.Statements[0])
	}
	if ret.Value == nil {
		t.Error("expected return value expression")
	}
}

func TestCompoundAssignmentDesugars(t *testing.T) {
	program := parseProgram(t, "flags += [\"-g\"]")
	assign, ok := program.Statements[0].(*ast.AssignStatement)
	if !ok {
		t.Fatalf("expected AssignStatement, got %T", program.Statements[0])
	}

	infix, ok := assign.Value.(*ast.InfixExpression)
	if !ok {
		t.Fatalf("expected desugared InfixExpression, got %T", assign.Value)
	}
	if infix.Operator != "+" {
		t.Errorf("expected +, got %q", infix.Operator)
	}
	if ident, ok := infix.Left.(*ast.Identifier); !ok || ident.Name != "flags" {
		t.Errorf("expected left operand flags, got %v", infix.Left)
	}
}

func TestOperatorPrecedence(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"2 + 3 * 4", "(2 + (3 * 4))"},
		{"(2 + 3) * 4", "((2 + 3) * 4)"},
		{"-a * b", "((-a) * b)"},
		{"not a == b", "((not a) == b)"},
		{"a + b - c", "((a + b) - c)"},
		{"a * b / c % d", "(((a * b) / c) % d)"},
		{"a < b == c > d", "((a < b) == (c > d))"},
		{"a and b or c", "((a and b) or c)"},
		{"a or b and c", "(a or (b and c))"},
		{"a + b >= c", "((a + b) >= c)"},
		{"a <= b != c", "((a <= b) != c)"},
	}

	for _, tt := range tests {
		program := parseProgram(t, tt.input)
		stmt, ok := program.Statements[0].(*ast.ExpressionStatement)
		if !ok {
			t.Fatalf("%q: expected ExpressionStatement, got %T", tt.input, program.Statements[0])
		}
		if got := stmt.Expression.String(); got != tt.want {
			t.Errorf("%q: expected %s, got %s", tt.input, tt.want, got)
		}
	}
}

func TestCallMemberIndexChain(t *testing.T) {
	program := parseProgram(t, `glob("src/*.c").length`)
	stmt := program.Statements[0].(*ast.ExpressionStatement)

	member, ok := stmt.Expression.(*ast.MemberExpression)
	if !ok {
		t.Fatalf("expected MemberExpression, got %T", stmt.Expression)
	}
	if member.Member != "length" {
		t.Errorf("expected member length, got %q", member.Member)
	}
	call, ok := member.Object.(*ast.CallExpression)
	if !ok {
		t.Fatalf("expected CallExpression, got %T", member.Object)
	}
	if call.Name != "glob" {
		t.Errorf("expected call glob, got %q", call.Name)
	}

	program = parseProgram(t, `items[0][1]`)
	stmt = program.Statements[0].(*ast.ExpressionStatement)
	index, ok := stmt.Expression.(*ast.IndexExpression)
	if !ok {
		t.Fatalf("expected IndexExpression, got %T", stmt.Expression)
	}
	if _, ok := index.Left.(*ast.IndexExpression); !ok {
		t.Fatalf("expected nested IndexExpression, got %T", index.Left)
	}
}

func TestMultilineArrayLiteral(t *testing.T) {
	input := `sources = [
    "a.c",
    "b.c",
    "c.c"
]`
	program := parseProgram(t, input)
	assign := program.Statements[0].(*ast.AssignStatement)
	arr, ok := assign.Value.(*ast.ArrayLiteral)
	if !ok {
		t.Fatalf("expected ArrayLiteral, got %T", assign.Value)
	}
	if len(arr.Elements) != 3 {
		t.Errorf("expected 3 elements, got %d", len(arr.Elements))
	}
}

func TestHashLiteral(t *testing.T) {
	program := parseProgram(t, `h = {a: 1, "b": 2, c: "x"}`)
	assign := program.Statements[0].(*ast.AssignStatement)
	hash, ok := assign.Value.(*ast.HashLiteral)
	if !ok {
		t.Fatalf("expected HashLiteral, got %T", assign.Value)
	}
	if len(hash.Pairs) != 3 {
		t.Errorf("expected 3 pairs, got %d", len(hash.Pairs))
	}
}

func TestNumberLiterals(t *testing.T) {
	program := parseProgram(t, "a = 42\nb = 3.14")

	first := program.Statements[0].(*ast.AssignStatement).Value.(*ast.NumberLiteral)
	if !first.IsInteger || first.Value != 42 {
		t.Errorf("expected integer 42, got %v (integer=%v)", first.Value, first.IsInteger)
	}

	second := program.Statements[1].(*ast.AssignStatement).Value.(*ast.NumberLiteral)
	if second.IsInteger || second.Value != 3.14 {
		t.Errorf("expected float 3.14, got %v (integer=%v)", second.Value, second.IsInteger)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		input   string
		wantErr string
	}{
		{"project do\nend", "expected"},
		{"executable \"x\" do\n", "expected 'end'"},
		{"for in xs do\nend", "expected"},
		{"a = ", "no prefix parse rule"},
		{"a = (1 + 2", "expected"},
		{"a = [1, 2", "expected"},
		{"a = {x: 1", "expected"},
	}

	for _, tt := range tests {
		_, err := Parse(tt.input)
		if err == nil {
			t.Errorf("%q: expected a parse error", tt.input)
			continue
		}
		if !strings.Contains(err.Error(), tt.wantErr) {
			t.Errorf("%q: error %q does not mention %q", tt.input, err.Error(), tt.wantErr)
		}
	}
}

func TestErrorPosition(t *testing.T) {
	_, err := Parse("project \"p\"\nrun")
	if err == nil {
		t.Fatal("expected parse error for missing do")
	}
	if !strings.Contains(err.Error(), "line 1") {
		t.Errorf("expected error on line 1, got: %v", err)
	}
}

func TestNewlinesAreSoftSeparators(t *testing.T) {
	program := parseProgram(t, "\n\na = 1\n\n\nb = 2\n")
	if len(program.Statements) != 2 {
		t.Fatalf("expected 2 statements, got %d", len(program.Statements))
	}
}
