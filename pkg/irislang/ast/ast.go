package ast

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/irisbuild/iris/pkg/irislang/lexer"
)

// Node represents any node in the AST
type Node interface {
	TokenLiteral() string
	String() string
}

// Statement represents statement nodes
type Statement interface {
	Node
	statementNode()
}

// Expression represents expression nodes
type Expression interface {
	Node
	expressionNode()
}

// Program represents the root node of every AST
type Program struct {
	Statements []Statement
}

func (p *Program) TokenLiteral() string {
	if len(p.Statements) > 0 {
		return p.Statements[0].TokenLiteral()
	}
	return ""
}

func (p *Program) String() string {
	var out bytes.Buffer
	for _, s := range p.Statements {
		out.WriteString(s.String())
		out.WriteString("\n")
	}
	return out.String()
}

// ---------------------------------------------------------------------------
// Statements

// AssignStatement represents assignments like 'sources = glob("src/*.c")'.
// Compound assignment '+=' is desugared by the parser, so Value already
// holds the rewritten expression.
type AssignStatement struct {
	Token lexer.Token // the identifier token
	Name  string
	Value Expression
}

func (as *AssignStatement) statementNode()       {}
func (as *AssignStatement) TokenLiteral() string { return as.Token.Literal }
func (as *AssignStatement) String() string {
	var out bytes.Buffer
	out.WriteString(as.Name)
	out.WriteString(" = ")
	if as.Value != nil {
		out.WriteString(as.Value.String())
	}
	return out.String()
}

// BlockStatement represents a sequence of statements between 'do' and 'end'
type BlockStatement struct {
	Token      lexer.Token // the 'do' token
	Statements []Statement
}

func (bs *BlockStatement) statementNode()       {}
func (bs *BlockStatement) TokenLiteral() string { return bs.Token.Literal }
func (bs *BlockStatement) String() string {
	var out bytes.Buffer
	for _, s := range bs.Statements {
		out.WriteString(s.String())
		out.WriteString("\n")
	}
	return out.String()
}

// ProjectBlock represents 'project "name" do ... end'
type ProjectBlock struct {
	Token lexer.Token // the 'project' token
	Name  string
	Body  *BlockStatement
}

func (pb *ProjectBlock) statementNode()       {}
func (pb *ProjectBlock) TokenLiteral() string { return pb.Token.Literal }
func (pb *ProjectBlock) String() string {
	return "project " + strconv.Quote(pb.Name) + " do\n" + pb.Body.String() + "end"
}

// TargetBlock represents target declarations: 'executable "name" do ... end'
// and the library forms. Kind is one of "executable", "library",
// "shared_library", "static_library".
type TargetBlock struct {
	Token lexer.Token // the target keyword token
	Name  string
	Kind  string
	Body  *BlockStatement
}

func (tb *TargetBlock) statementNode()       {}
func (tb *TargetBlock) TokenLiteral() string { return tb.Token.Literal }
func (tb *TargetBlock) String() string {
	return tb.Kind + " " + strconv.Quote(tb.Name) + " do\n" + tb.Body.String() + "end"
}

// CompilerBlock represents 'compiler do ... end'
type CompilerBlock struct {
	Token lexer.Token // the 'compiler' token
	Body  *BlockStatement
}

func (cb *CompilerBlock) statementNode()       {}
func (cb *CompilerBlock) TokenLiteral() string { return cb.Token.Literal }
func (cb *CompilerBlock) String() string {
	return "compiler do\n" + cb.Body.String() + "end"
}

// DependencyBlock represents 'dependency "name" do ... end'
type DependencyBlock struct {
	Token lexer.Token // the 'dependency' token
	Name  string
	Body  *BlockStatement
}

func (db *DependencyBlock) statementNode()       {}
func (db *DependencyBlock) TokenLiteral() string { return db.Token.Literal }
func (db *DependencyBlock) String() string {
	return "dependency " + strconv.Quote(db.Name) + " do\n" + db.Body.String() + "end"
}

// TaskBlock represents 'task :name do ... end'
type TaskBlock struct {
	Token lexer.Token // the 'task' token
	Name  string
	Body  *BlockStatement
}

func (tb *TaskBlock) statementNode()       {}
func (tb *TaskBlock) TokenLiteral() string { return tb.Token.Literal }
func (tb *TaskBlock) String() string {
	return "task :" + tb.Name + " do\n" + tb.Body.String() + "end"
}

// IfStatement represents 'if cond do ... else ... end'. An 'else if'
// chain is desugared into an Else block holding a single nested
// IfStatement.
type IfStatement struct {
	Token     lexer.Token // the 'if' token
	Condition Expression
	Then      *BlockStatement
	Else      *BlockStatement // nil when there is no else branch
}

func (is *IfStatement) statementNode()       {}
func (is *IfStatement) TokenLiteral() string { return is.Token.Literal }
func (is *IfStatement) String() string {
	var out bytes.Buffer
	out.WriteString("if ")
	out.WriteString(is.Condition.String())
	out.WriteString(" do\n")
	out.WriteString(is.Then.String())
	if is.Else != nil {
		out.WriteString("else\n")
		out.WriteString(is.Else.String())
	}
	out.WriteString("end")
	return out.String()
}

// UnlessStatement represents 'unless cond do ... end'
type UnlessStatement struct {
	Token     lexer.Token // the 'unless' token
	Condition Expression
	Body      *BlockStatement
}

func (us *UnlessStatement) statementNode()       {}
func (us *UnlessStatement) TokenLiteral() string { return us.Token.Literal }
func (us *UnlessStatement) String() string {
	return "unless " + us.Condition.String() + " do\n" + us.Body.String() + "end"
}

// ForStatement represents 'for x in expr do ... end'
type ForStatement struct {
	Token    lexer.Token // the 'for' token
	Variable string
	Iterable Expression
	Body     *BlockStatement
}

func (fs *ForStatement) statementNode()       {}
func (fs *ForStatement) TokenLiteral() string { return fs.Token.Literal }
func (fs *ForStatement) String() string {
	return "for " + fs.Variable + " in " + fs.Iterable.String() + " do\n" + fs.Body.String() + "end"
}

// FunctionStatement represents 'fn name(params) do ... end'
type FunctionStatement struct {
	Token      lexer.Token // the 'fn' token
	Name       string
	Parameters []string
	Body       *BlockStatement
}

func (fs *FunctionStatement) statementNode()       {}
func (fs *FunctionStatement) TokenLiteral() string { return fs.Token.Literal }
func (fs *FunctionStatement) String() string {
	return "fn " + fs.Name + "(" + strings.Join(fs.Parameters, ", ") + ") do\n" +
		fs.Body.String() + "end"
}

// ReturnStatement represents 'return' with an optional value
type ReturnStatement struct {
	Token lexer.Token // the 'return' token
	Value Expression  // nil for a bare return
}

func (rs *ReturnStatement) statementNode()       {}
func (rs *ReturnStatement) TokenLiteral() string { return rs.Token.Literal }
func (rs *ReturnStatement) String() string {
	if rs.Value == nil {
		return "return"
	}
	return "return " + rs.Value.String()
}

// ExpressionStatement represents a bare expression used as a statement
type ExpressionStatement struct {
	Token      lexer.Token // the first token of the expression
	Expression Expression
}

func (es *ExpressionStatement) statementNode()       {}
func (es *ExpressionStatement) TokenLiteral() string { return es.Token.Literal }
func (es *ExpressionStatement) String() string {
	if es.Expression != nil {
		return es.Expression.String()
	}
	return ""
}

// ---------------------------------------------------------------------------
// Expressions

// Identifier represents a name reference
type Identifier struct {
	Token lexer.Token
	Name  string
}

func (i *Identifier) expressionNode()      {}
func (i *Identifier) TokenLiteral() string { return i.Token.Literal }
func (i *Identifier) String() string       { return i.Name }

// StringLiteral represents a quoted string
type StringLiteral struct {
	Token lexer.Token
	Value string
}

func (sl *StringLiteral) expressionNode()      {}
func (sl *StringLiteral) TokenLiteral() string { return sl.Token.Literal }
func (sl *StringLiteral) String() string       { return strconv.Quote(sl.Value) }

// NumberLiteral represents a numeric literal. IsInteger records whether
// the source spelling had no fractional part, so printing can reproduce it.
type NumberLiteral struct {
	Token     lexer.Token
	Value     float64
	IsInteger bool
}

func (nl *NumberLiteral) expressionNode()      {}
func (nl *NumberLiteral) TokenLiteral() string { return nl.Token.Literal }
func (nl *NumberLiteral) String() string {
	if nl.IsInteger {
		return strconv.FormatInt(int64(nl.Value), 10)
	}
	return strconv.FormatFloat(nl.Value, 'g', -1, 64)
}

// BooleanLiteral represents 'true' or 'false'
type BooleanLiteral struct {
	Token lexer.Token
	Value bool
}

func (bl *BooleanLiteral) expressionNode()      {}
func (bl *BooleanLiteral) TokenLiteral() string { return bl.Token.Literal }
func (bl *BooleanLiteral) String() string       { return strconv.FormatBool(bl.Value) }

// NilLiteral represents 'nil'
type NilLiteral struct {
	Token lexer.Token
}

func (nl *NilLiteral) expressionNode()      {}
func (nl *NilLiteral) TokenLiteral() string { return nl.Token.Literal }
func (nl *NilLiteral) String() string       { return "nil" }

// SymbolLiteral represents ':name'; symbols evaluate to the string of
// the same name
type SymbolLiteral struct {
	Token lexer.Token
	Name  string
}

func (sl *SymbolLiteral) expressionNode()      {}
func (sl *SymbolLiteral) TokenLiteral() string { return sl.Token.Literal }
func (sl *SymbolLiteral) String() string       { return ":" + sl.Name }

// ArrayLiteral represents '[e1, e2, ...]'
type ArrayLiteral struct {
	Token    lexer.Token // the '[' token
	Elements []Expression
}

func (al *ArrayLiteral) expressionNode()      {}
func (al *ArrayLiteral) TokenLiteral() string { return al.Token.Literal }
func (al *ArrayLiteral) String() string {
	elems := make([]string, len(al.Elements))
	for i, e := range al.Elements {
		elems[i] = e.String()
	}
	return "[" + strings.Join(elems, ", ") + "]"
}

// HashPair is a single key/value pair in a hash literal
type HashPair struct {
	Key   Expression
	Value Expression
}

// HashLiteral represents '{k1: v1, k2: v2}'
type HashLiteral struct {
	Token lexer.Token // the '{' token
	Pairs []HashPair
}

func (hl *HashLiteral) expressionNode()      {}
func (hl *HashLiteral) TokenLiteral() string { return hl.Token.Literal }
func (hl *HashLiteral) String() string {
	pairs := make([]string, len(hl.Pairs))
	for i, p := range hl.Pairs {
		pairs[i] = p.Key.String() + ": " + p.Value.String()
	}
	return "{" + strings.Join(pairs, ", ") + "}"
}

// PrefixExpression represents unary '-' and 'not'
type PrefixExpression struct {
	Token    lexer.Token
	Operator string
	Right    Expression
}

func (pe *PrefixExpression) expressionNode()      {}
func (pe *PrefixExpression) TokenLiteral() string { return pe.Token.Literal }
func (pe *PrefixExpression) String() string {
	if pe.Operator == "not" {
		return "(not " + pe.Right.String() + ")"
	}
	return "(" + pe.Operator + pe.Right.String() + ")"
}

// InfixExpression represents binary operators, including 'and' and 'or'
type InfixExpression struct {
	Token    lexer.Token
	Left     Expression
	Operator string
	Right    Expression
}

func (ie *InfixExpression) expressionNode()      {}
func (ie *InfixExpression) TokenLiteral() string { return ie.Token.Literal }
func (ie *InfixExpression) String() string {
	return "(" + ie.Left.String() + " " + ie.Operator + " " + ie.Right.String() + ")"
}

// CallExpression represents 'name(args)'. Calls are by name only; the
// callee is resolved in the interpreter's native-function table.
type CallExpression struct {
	Token     lexer.Token // the '(' token
	Name      string
	Arguments []Expression
}

func (ce *CallExpression) expressionNode()      {}
func (ce *CallExpression) TokenLiteral() string { return ce.Token.Literal }
func (ce *CallExpression) String() string {
	args := make([]string, len(ce.Arguments))
	for i, a := range ce.Arguments {
		args[i] = a.String()
	}
	return ce.Name + "(" + strings.Join(args, ", ") + ")"
}

// MemberExpression represents 'expr.member'
type MemberExpression struct {
	Token  lexer.Token // the '.' token
	Object Expression
	Member string
}

func (me *MemberExpression) expressionNode()      {}
func (me *MemberExpression) TokenLiteral() string { return me.Token.Literal }
func (me *MemberExpression) String() string {
	return me.Object.String() + "." + me.Member
}

// IndexExpression represents 'expr[index]'
type IndexExpression struct {
	Token lexer.Token // the '[' token
	Left  Expression
	Index Expression
}

func (ie *IndexExpression) expressionNode()      {}
func (ie *IndexExpression) TokenLiteral() string { return ie.Token.Literal }
func (ie *IndexExpression) String() string {
	return ie.Left.String() + "[" + ie.Index.String() + "]"
}
