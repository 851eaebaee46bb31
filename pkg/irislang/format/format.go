// Package format renders an iris build AST back into canonical source
// form: four-space indentation, one statement per line, canonical
// spacing around operators. Formatting is idempotent: re-parsing the
// output yields a structurally identical AST.
package format

import (
	"strconv"
	"strings"

	"github.com/irisbuild/iris/pkg/irislang/ast"
	"github.com/irisbuild/iris/pkg/irislang/parser"
)

// Format renders a program in canonical form
func Format(program *ast.Program) string {
	p := NewPrinter()
	for _, stmt := range program.Statements {
		formatStatement(p, stmt)
	}
	return p.String()
}

// Source parses and reformats source text; parse errors return the
// input unchanged so a formatter never destroys a file it cannot read.
func Source(source string) string {
	program, err := parser.Parse(source)
	if err != nil {
		return source
	}
	return Format(program)
}

func formatStatement(p *Printer, stmt ast.Statement) {
	switch stmt := stmt.(type) {
	case *ast.ProjectBlock:
		p.writeIndent()
		p.write("project " + strconv.Quote(stmt.Name) + " do")
		p.newline()
		formatBlock(p, stmt.Body)
		p.writeIndent()
		p.write("end")
		p.newline()
	case *ast.TargetBlock:
		p.writeIndent()
		p.write(stmt.Kind + " " + strconv.Quote(stmt.Name) + " do")
		p.newline()
		formatBlock(p, stmt.Body)
		p.writeIndent()
		p.write("end")
		p.newline()
	case *ast.CompilerBlock:
		p.writeIndent()
		p.write("compiler do")
		p.newline()
		formatBlock(p, stmt.Body)
		p.writeIndent()
		p.write("end")
		p.newline()
	case *ast.DependencyBlock:
		p.writeIndent()
		p.write("dependency " + strconv.Quote(stmt.Name) + " do")
		p.newline()
		formatBlock(p, stmt.Body)
		p.writeIndent()
		p.write("end")
		p.newline()
	case *ast.TaskBlock:
		p.writeIndent()
		p.write("task :" + stmt.Name + " do")
		p.newline()
		formatBlock(p, stmt.Body)
		p.writeIndent()
		p.write("end")
		p.newline()
	case *ast.IfStatement:
		p.writeIndent()
		formatIf(p, stmt)
		p.newline()
	case *ast.UnlessStatement:
		p.writeIndent()
		p.write("unless " + formatExpression(stmt.Condition) + " do")
		p.newline()
		formatBlock(p, stmt.Body)
		p.writeIndent()
		p.write("end")
		p.newline()
	case *ast.ForStatement:
		p.writeIndent()
		p.write("for " + stmt.Variable + " in " + formatExpression(stmt.Iterable) + " do")
		p.newline()
		formatBlock(p, stmt.Body)
		p.writeIndent()
		p.write("end")
		p.newline()
	case *ast.FunctionStatement:
		p.writeIndent()
		p.write("fn " + stmt.Name + "(" + strings.Join(stmt.Parameters, ", ") + ") do")
		p.newline()
		formatBlock(p, stmt.Body)
		p.writeIndent()
		p.write("end")
		p.newline()
	case *ast.ReturnStatement:
		p.writeIndent()
		if stmt.Value == nil {
			p.write("return")
		} else {
			p.write("return " + formatExpression(stmt.Value))
		}
		p.newline()
	case *ast.AssignStatement:
		p.writeIndent()
		p.write(stmt.Name + " = " + formatExpression(stmt.Value))
		p.newline()
	case *ast.ExpressionStatement:
		p.writeIndent()
		p.write(formatExpression(stmt.Expression))
		p.newline()
	case *ast.BlockStatement:
		formatBlock(p, stmt)
	}
}

// formatIf chains 'else if' branches onto a single line each, the way
// they were written
func formatIf(p *Printer, stmt *ast.IfStatement) {
	p.write("if " + formatExpression(stmt.Condition) + " do")
	p.newline()
	formatBlock(p, stmt.Then)

	for stmt.Else != nil {
		// An else block holding exactly one if statement is a chained
		// 'else if'
		if len(stmt.Else.Statements) == 1 {
			if nested, ok := stmt.Else.Statements[0].(*ast.IfStatement); ok {
				p.writeIndent()
				p.write("else if " + formatExpression(nested.Condition) + " do")
				p.newline()
				formatBlock(p, nested.Then)
				stmt = nested
				continue
			}
		}
		p.writeIndent()
		p.write("else")
		p.newline()
		formatBlock(p, stmt.Else)
		break
	}

	p.writeIndent()
	p.write("end")
}

func formatBlock(p *Printer, block *ast.BlockStatement) {
	p.indentInc()
	for _, stmt := range block.Statements {
		formatStatement(p, stmt)
	}
	p.indentDec()
}

func formatExpression(expr ast.Expression) string {
	switch expr := expr.(type) {
	case *ast.StringLiteral:
		return strconv.Quote(expr.Value)
	case *ast.NumberLiteral:
		if expr.IsInteger {
			return strconv.FormatInt(int64(expr.Value), 10)
		}
		return strconv.FormatFloat(expr.Value, 'g', -1, 64)
	case *ast.BooleanLiteral:
		return strconv.FormatBool(expr.Value)
	case *ast.NilLiteral:
		return "nil"
	case *ast.SymbolLiteral:
		return ":" + expr.Name
	case *ast.Identifier:
		return expr.Name
	case *ast.ArrayLiteral:
		elems := make([]string, len(expr.Elements))
		for i, e := range expr.Elements {
			elems[i] = formatExpression(e)
		}
		return "[" + strings.Join(elems, ", ") + "]"
	case *ast.HashLiteral:
		pairs := make([]string, len(expr.Pairs))
		for i, pair := range expr.Pairs {
			pairs[i] = formatExpression(pair.Key) + ": " + formatExpression(pair.Value)
		}
		return "{" + strings.Join(pairs, ", ") + "}"
	case *ast.PrefixExpression:
		if expr.Operator == "not" {
			return "(not " + formatExpression(expr.Right) + ")"
		}
		return "(" + expr.Operator + formatExpression(expr.Right) + ")"
	case *ast.InfixExpression:
		return "(" + formatExpression(expr.Left) + " " + expr.Operator + " " +
			formatExpression(expr.Right) + ")"
	case *ast.CallExpression:
		args := make([]string, len(expr.Arguments))
		for i, a := range expr.Arguments {
			args[i] = formatExpression(a)
		}
		return expr.Name + "(" + strings.Join(args, ", ") + ")"
	case *ast.MemberExpression:
		return formatExpression(expr.Object) + "." + expr.Member
	case *ast.IndexExpression:
		return formatExpression(expr.Left) + "[" + formatExpression(expr.Index) + "]"
	default:
		return ""
	}
}
