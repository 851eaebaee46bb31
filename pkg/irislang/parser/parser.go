package parser

import (
	"strconv"
	"strings"

	"github.com/irisbuild/iris/pkg/irislang/ast"
	perrors "github.com/irisbuild/iris/pkg/irislang/errors"
	"github.com/irisbuild/iris/pkg/irislang/lexer"
)

// Precedence levels for operators
const (
	_ int = iota
	LOWEST
	LOGIC_OR    // or
	LOGIC_AND   // and
	EQUALS      // == !=
	LESSGREATER // < > <= >=
	SUM         // + -
	PRODUCT     // * / %
	PREFIX      // -x, not x
	INDEX       // a[i], a.b, f(x)
)

// precedences maps tokens to their precedence
var precedences = map[lexer.TokenType]int{
	lexer.OR:       LOGIC_OR,
	lexer.AND:      LOGIC_AND,
	lexer.EQ:       EQUALS,
	lexer.NOT_EQ:   EQUALS,
	lexer.LT:       LESSGREATER,
	lexer.GT:       LESSGREATER,
	lexer.LTE:      LESSGREATER,
	lexer.GTE:      LESSGREATER,
	lexer.PLUS:     SUM,
	lexer.MINUS:    SUM,
	lexer.ASTERISK: PRODUCT,
	lexer.SLASH:    PRODUCT,
	lexer.PERCENT:  PRODUCT,
	lexer.LBRACKET: INDEX,
	lexer.DOT:      INDEX,
	lexer.LPAREN:   INDEX,
}

type (
	prefixParseFn func() ast.Expression
	infixParseFn  func(ast.Expression) ast.Expression
)

// Parser represents the parser
type Parser struct {
	l *lexer.Lexer

	errors []*perrors.IrisError

	curToken  lexer.Token
	peekToken lexer.Token

	prefixParseFns map[lexer.TokenType]prefixParseFn
	infixParseFns  map[lexer.TokenType]infixParseFn
}

// New creates a new parser instance
func New(l *lexer.Lexer) *Parser {
	p := &Parser{l: l}

	p.prefixParseFns = make(map[lexer.TokenType]prefixParseFn)
	p.registerPrefix(lexer.IDENT, p.parseIdentifier)
	p.registerPrefix(lexer.NUMBER, p.parseNumberLiteral)
	p.registerPrefix(lexer.STRING, p.parseStringLiteral)
	p.registerPrefix(lexer.SYMBOL, p.parseSymbolLiteral)
	p.registerPrefix(lexer.TRUE, p.parseBooleanLiteral)
	p.registerPrefix(lexer.FALSE, p.parseBooleanLiteral)
	p.registerPrefix(lexer.NIL, p.parseNilLiteral)
	p.registerPrefix(lexer.MINUS, p.parsePrefixExpression)
	p.registerPrefix(lexer.BANG, p.parsePrefixExpression)
	p.registerPrefix(lexer.NOT, p.parsePrefixExpression)
	p.registerPrefix(lexer.LPAREN, p.parseGroupedExpression)
	p.registerPrefix(lexer.LBRACKET, p.parseArrayLiteral)
	p.registerPrefix(lexer.LBRACE, p.parseHashLiteral)

	p.infixParseFns = make(map[lexer.TokenType]infixParseFn)
	p.registerInfix(lexer.PLUS, p.parseInfixExpression)
	p.registerInfix(lexer.MINUS, p.parseInfixExpression)
	p.registerInfix(lexer.ASTERISK, p.parseInfixExpression)
	p.registerInfix(lexer.SLASH, p.parseInfixExpression)
	p.registerInfix(lexer.PERCENT, p.parseInfixExpression)
	p.registerInfix(lexer.EQ, p.parseInfixExpression)
	p.registerInfix(lexer.NOT_EQ, p.parseInfixExpression)
	p.registerInfix(lexer.LT, p.parseInfixExpression)
	p.registerInfix(lexer.GT, p.parseInfixExpression)
	p.registerInfix(lexer.LTE, p.parseInfixExpression)
	p.registerInfix(lexer.GTE, p.parseInfixExpression)
	p.registerInfix(lexer.AND, p.parseInfixExpression)
	p.registerInfix(lexer.OR, p.parseInfixExpression)
	p.registerInfix(lexer.LPAREN, p.parseCallExpression)
	p.registerInfix(lexer.DOT, p.parseMemberExpression)
	p.registerInfix(lexer.LBRACKET, p.parseIndexExpression)

	// Read two tokens so curToken and peekToken are both set
	p.nextToken()
	p.nextToken()

	return p
}

// Parse tokenizes and parses a source string, returning the program and
// the first error encountered, if any.
func Parse(source string) (*ast.Program, error) {
	p := New(lexer.New(source))
	program := p.ParseProgram()
	if errs := p.Errors(); len(errs) > 0 {
		return program, errs[0]
	}
	return program, nil
}

// Errors returns all structured errors collected during parsing
func (p *Parser) Errors() []*perrors.IrisError {
	return p.errors
}

func (p *Parser) addError(code string, tok lexer.Token, data map[string]any) {
	p.errors = append(p.errors, perrors.NewAt(code, tok.Line, tok.Column, data))
}

func (p *Parser) registerPrefix(tokenType lexer.TokenType, fn prefixParseFn) {
	p.prefixParseFns[tokenType] = fn
}

func (p *Parser) registerInfix(tokenType lexer.TokenType, fn infixParseFn) {
	p.infixParseFns[tokenType] = fn
}

func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	for {
		tok := p.l.NextToken()
		if tok.Type != lexer.ILLEGAL {
			p.peekToken = tok
			return
		}
		if tok.Literal == "Unterminated string" {
			p.errors = append(p.errors, perrors.NewAt("LEX-0001", tok.Line, tok.Column, nil))
		} else {
			p.errors = append(p.errors, perrors.NewAt("LEX-0002", tok.Line, tok.Column,
				map[string]any{"Char": tok.Literal}))
		}
	}
}

func (p *Parser) curTokenIs(t lexer.TokenType) bool  { return p.curToken.Type == t }
func (p *Parser) peekTokenIs(t lexer.TokenType) bool { return p.peekToken.Type == t }

func (p *Parser) expectPeek(t lexer.TokenType) bool {
	if p.peekTokenIs(t) {
		p.nextToken()
		return true
	}
	p.addError("PARSE-0001", p.peekToken, map[string]any{
		"Expected": t.String(),
		"Got":      p.peekToken.Literal,
	})
	return false
}

func (p *Parser) peekPrecedence() int {
	if prec, ok := precedences[p.peekToken.Type]; ok {
		return prec
	}
	return LOWEST
}

func (p *Parser) curPrecedence() int {
	if prec, ok := precedences[p.curToken.Type]; ok {
		return prec
	}
	return LOWEST
}

// skipNewlines advances past newline tokens at the current position
func (p *Parser) skipNewlines() {
	for p.curTokenIs(lexer.NEWLINE) {
		p.nextToken()
	}
}

// skipPeekNewlines advances while the next token is a newline, so that
// multi-line array and hash literals parse as a single expression
func (p *Parser) skipPeekNewlines() {
	for p.peekTokenIs(lexer.NEWLINE) {
		p.nextToken()
	}
}

// ParseProgram parses the complete token stream into a Program
func (p *Parser) ParseProgram() *ast.Program {
	program := &ast.Program{}

	p.skipNewlines()
	for !p.curTokenIs(lexer.EOF) {
		if stmt := p.parseStatement(); stmt != nil {
			program.Statements = append(program.Statements, stmt)
		}
		p.nextToken()
		p.skipNewlines()
	}

	return program
}

// parseStatement dispatches on the current token. It leaves curToken on
// the last token of the statement.
func (p *Parser) parseStatement() ast.Statement {
	switch p.curToken.Type {
	case lexer.PROJECT:
		return p.parseProjectBlock()
	case lexer.EXECUTABLE:
		return p.parseTargetBlock("executable")
	case lexer.LIBRARY:
		return p.parseTargetBlock("library")
	case lexer.SHARED_LIBRARY:
		return p.parseTargetBlock("shared_library")
	case lexer.STATIC_LIBRARY:
		return p.parseTargetBlock("static_library")
	case lexer.COMPILER:
		return p.parseCompilerBlock()
	case lexer.DEPENDENCY:
		return p.parseDependencyBlock()
	case lexer.TASK:
		return p.parseTaskBlock()
	case lexer.IF:
		return p.parseIfStatement()
	case lexer.UNLESS:
		return p.parseUnlessStatement()
	case lexer.FOR:
		return p.parseForStatement()
	case lexer.FUNCTION:
		return p.parseFunctionStatement()
	case lexer.RETURN:
		return p.parseReturnStatement()
	case lexer.IDENT:
		if p.peekTokenIs(lexer.ASSIGN) || p.peekTokenIs(lexer.PLUS_ASSIGN) || p.peekTokenIs(lexer.MINUS_ASSIGN) {
			return p.parseAssignStatement()
		}
		return p.parseExpressionStatement()
	default:
		return p.parseExpressionStatement()
	}
}

// parseBlockBody parses statements up to the closing 'end' (or an 'else'
// inside an if). On entry curToken is the token before the body; on exit
// curToken is END, ELSE, or EOF.
func (p *Parser) parseBlockBody() *ast.BlockStatement {
	block := &ast.BlockStatement{Token: p.curToken}

	p.nextToken()
	p.skipNewlines()
	for !p.curTokenIs(lexer.END) && !p.curTokenIs(lexer.ELSE) && !p.curTokenIs(lexer.EOF) {
		if stmt := p.parseStatement(); stmt != nil {
			block.Statements = append(block.Statements, stmt)
		}
		p.nextToken()
		p.skipNewlines()
	}

	return block
}

// expectEnd reports an error unless the current token closes the block
func (p *Parser) expectEnd(blockName string) {
	if !p.curTokenIs(lexer.END) {
		p.addError("PARSE-0003", p.curToken, map[string]any{"Block": blockName})
	}
}

func (p *Parser) parseProjectBlock() ast.Statement {
	stmt := &ast.ProjectBlock{Token: p.curToken}

	if !p.expectPeek(lexer.STRING) {
		return nil
	}
	stmt.Name = p.curToken.Literal

	if !p.expectPeek(lexer.DO) {
		return nil
	}

	stmt.Body = p.parseBlockBody()
	p.expectEnd("project")
	return stmt
}

func (p *Parser) parseTargetBlock(kind string) ast.Statement {
	stmt := &ast.TargetBlock{Token: p.curToken, Kind: kind}

	if !p.expectPeek(lexer.STRING) {
		return nil
	}
	stmt.Name = p.curToken.Literal

	if !p.expectPeek(lexer.DO) {
		return nil
	}

	stmt.Body = p.parseBlockBody()
	p.expectEnd(kind)
	return stmt
}

func (p *Parser) parseCompilerBlock() ast.Statement {
	stmt := &ast.CompilerBlock{Token: p.curToken}

	if !p.expectPeek(lexer.DO) {
		return nil
	}

	stmt.Body = p.parseBlockBody()
	p.expectEnd("compiler")
	return stmt
}

func (p *Parser) parseDependencyBlock() ast.Statement {
	stmt := &ast.DependencyBlock{Token: p.curToken}

	if p.peekTokenIs(lexer.STRING) || p.peekTokenIs(lexer.IDENT) {
		p.nextToken()
		stmt.Name = p.curToken.Literal
	} else {
		p.addError("PARSE-0001", p.peekToken, map[string]any{
			"Expected": "dependency name",
			"Got":      p.peekToken.Literal,
		})
		return nil
	}

	if !p.expectPeek(lexer.DO) {
		return nil
	}

	stmt.Body = p.parseBlockBody()
	p.expectEnd("dependency")
	return stmt
}

func (p *Parser) parseTaskBlock() ast.Statement {
	stmt := &ast.TaskBlock{Token: p.curToken}

	if p.peekTokenIs(lexer.SYMBOL) || p.peekTokenIs(lexer.STRING) {
		p.nextToken()
		stmt.Name = p.curToken.Literal
	} else {
		p.addError("PARSE-0001", p.peekToken, map[string]any{
			"Expected": "task name",
			"Got":      p.peekToken.Literal,
		})
		return nil
	}

	if !p.expectPeek(lexer.DO) {
		return nil
	}

	stmt.Body = p.parseBlockBody()
	p.expectEnd("task")
	return stmt
}

func (p *Parser) parseIfStatement() ast.Statement {
	stmt := &ast.IfStatement{Token: p.curToken}

	p.nextToken()
	stmt.Condition = p.parseExpression(LOWEST)

	if !p.expectPeek(lexer.DO) {
		return nil
	}

	stmt.Then = p.parseBlockBody()

	if p.curTokenIs(lexer.ELSE) {
		if p.peekTokenIs(lexer.IF) {
			// 'else if' desugars to a nested if; the nested statement
			// consumes the single shared 'end'
			p.nextToken()
			nested := p.parseIfStatement()
			elseBlock := &ast.BlockStatement{Token: p.curToken}
			if nested != nil {
				elseBlock.Statements = append(elseBlock.Statements, nested)
			}
			stmt.Else = elseBlock
			return stmt
		}
		// 'else do' and bare 'else' are both accepted
		if p.peekTokenIs(lexer.DO) {
			p.nextToken()
		}
		stmt.Else = p.parseBlockBody()
	}

	p.expectEnd("if")
	return stmt
}

func (p *Parser) parseUnlessStatement() ast.Statement {
	stmt := &ast.UnlessStatement{Token: p.curToken}

	p.nextToken()
	stmt.Condition = p.parseExpression(LOWEST)

	if !p.expectPeek(lexer.DO) {
		return nil
	}

	stmt.Body = p.parseBlockBody()
	p.expectEnd("unless")
	return stmt
}

func (p *Parser) parseForStatement() ast.Statement {
	stmt := &ast.ForStatement{Token: p.curToken}

	if !p.expectPeek(lexer.IDENT) {
		return nil
	}
	stmt.Variable = p.curToken.Literal

	if !p.expectPeek(lexer.IN) {
		return nil
	}

	p.nextToken()
	stmt.Iterable = p.parseExpression(LOWEST)

	if !p.expectPeek(lexer.DO) {
		return nil
	}

	stmt.Body = p.parseBlockBody()
	p.expectEnd("for")
	return stmt
}

func (p *Parser) parseFunctionStatement() ast.Statement {
	stmt := &ast.FunctionStatement{Token: p.curToken}

	if !p.expectPeek(lexer.IDENT) {
		return nil
	}
	stmt.Name = p.curToken.Literal

	if !p.expectPeek(lexer.LPAREN) {
		return nil
	}

	if p.peekTokenIs(lexer.RPAREN) {
		p.nextToken()
	} else {
		if !p.expectPeek(lexer.IDENT) {
			return nil
		}
		stmt.Parameters = append(stmt.Parameters, p.curToken.Literal)
		for p.peekTokenIs(lexer.COMMA) {
			p.nextToken()
			if !p.expectPeek(lexer.IDENT) {
				return nil
			}
			stmt.Parameters = append(stmt.Parameters, p.curToken.Literal)
		}
		if !p.expectPeek(lexer.RPAREN) {
			return nil
		}
	}

	if !p.expectPeek(lexer.DO) {
		return nil
	}

	stmt.Body = p.parseBlockBody()
	p.expectEnd("fn")
	return stmt
}

func (p *Parser) parseReturnStatement() ast.Statement {
	stmt := &ast.ReturnStatement{Token: p.curToken}

	if p.peekTokenIs(lexer.NEWLINE) || p.peekTokenIs(lexer.END) || p.peekTokenIs(lexer.EOF) {
		return stmt
	}

	p.nextToken()
	stmt.Value = p.parseExpression(LOWEST)
	return stmt
}

func (p *Parser) parseAssignStatement() ast.Statement {
	stmt := &ast.AssignStatement{Token: p.curToken, Name: p.curToken.Literal}
	ident := &ast.Identifier{Token: p.curToken, Name: p.curToken.Literal}

	p.nextToken() // the assignment operator
	op := p.curToken

	p.nextToken()
	value := p.parseExpression(LOWEST)

	switch op.Type {
	case lexer.PLUS_ASSIGN:
		stmt.Value = &ast.InfixExpression{Token: op, Left: ident, Operator: "+", Right: value}
	case lexer.MINUS_ASSIGN:
		stmt.Value = &ast.InfixExpression{Token: op, Left: ident, Operator: "-", Right: value}
	default:
		stmt.Value = value
	}

	return stmt
}

func (p *Parser) parseExpressionStatement() ast.Statement {
	stmt := &ast.ExpressionStatement{Token: p.curToken}
	stmt.Expression = p.parseExpression(LOWEST)
	if stmt.Expression == nil {
		return nil
	}
	return stmt
}

func (p *Parser) parseExpression(precedence int) ast.Expression {
	prefix := p.prefixParseFns[p.curToken.Type]
	if prefix == nil {
		p.addError("PARSE-0004", p.curToken, map[string]any{"Token": p.curToken.Literal})
		return nil
	}
	left := prefix()

	for precedence < p.peekPrecedence() {
		infix := p.infixParseFns[p.peekToken.Type]
		if infix == nil {
			return left
		}
		p.nextToken()
		left = infix(left)
	}

	return left
}

func (p *Parser) parseIdentifier() ast.Expression {
	return &ast.Identifier{Token: p.curToken, Name: p.curToken.Literal}
}

func (p *Parser) parseNumberLiteral() ast.Expression {
	lit := &ast.NumberLiteral{Token: p.curToken}

	value, err := strconv.ParseFloat(p.curToken.Literal, 64)
	if err != nil {
		p.addError("PARSE-0002", p.curToken, map[string]any{"Token": p.curToken.Literal})
		return nil
	}

	lit.Value = value
	lit.IsInteger = !strings.Contains(p.curToken.Literal, ".")
	return lit
}

func (p *Parser) parseStringLiteral() ast.Expression {
	return &ast.StringLiteral{Token: p.curToken, Value: p.curToken.Literal}
}

func (p *Parser) parseSymbolLiteral() ast.Expression {
	return &ast.SymbolLiteral{Token: p.curToken, Name: p.curToken.Literal}
}

func (p *Parser) parseBooleanLiteral() ast.Expression {
	return &ast.BooleanLiteral{Token: p.curToken, Value: p.curTokenIs(lexer.TRUE)}
}

func (p *Parser) parseNilLiteral() ast.Expression {
	return &ast.NilLiteral{Token: p.curToken}
}

func (p *Parser) parsePrefixExpression() ast.Expression {
	expr := &ast.PrefixExpression{Token: p.curToken}

	switch p.curToken.Type {
	case lexer.NOT, lexer.BANG:
		expr.Operator = "not"
	default:
		expr.Operator = p.curToken.Literal
	}

	p.nextToken()
	expr.Right = p.parseExpression(PREFIX)
	return expr
}

func (p *Parser) parseInfixExpression(left ast.Expression) ast.Expression {
	expr := &ast.InfixExpression{
		Token:    p.curToken,
		Left:     left,
		Operator: p.curToken.Literal,
	}

	precedence := p.curPrecedence()
	p.nextToken()
	expr.Right = p.parseExpression(precedence)
	return expr
}

func (p *Parser) parseGroupedExpression() ast.Expression {
	p.nextToken()
	expr := p.parseExpression(LOWEST)
	if !p.expectPeek(lexer.RPAREN) {
		return nil
	}
	return expr
}

func (p *Parser) parseArrayLiteral() ast.Expression {
	arr := &ast.ArrayLiteral{Token: p.curToken}
	arr.Elements = p.parseExpressionList(lexer.RBRACKET)
	return arr
}

// parseExpressionList parses a comma-separated expression list up to the
// given closing token. Newlines are allowed around elements.
func (p *Parser) parseExpressionList(end lexer.TokenType) []ast.Expression {
	var list []ast.Expression

	p.skipPeekNewlines()
	if p.peekTokenIs(end) {
		p.nextToken()
		return list
	}

	p.nextToken()
	list = append(list, p.parseExpression(LOWEST))
	p.skipPeekNewlines()

	for p.peekTokenIs(lexer.COMMA) {
		p.nextToken()
		p.skipPeekNewlines()
		p.nextToken()
		list = append(list, p.parseExpression(LOWEST))
		p.skipPeekNewlines()
	}

	if !p.expectPeek(end) {
		return nil
	}
	return list
}

func (p *Parser) parseHashLiteral() ast.Expression {
	hash := &ast.HashLiteral{Token: p.curToken}

	p.skipPeekNewlines()
	if p.peekTokenIs(lexer.RBRACE) {
		p.nextToken()
		return hash
	}

	for {
		p.skipPeekNewlines()
		p.nextToken()
		key := p.parseExpression(LOWEST)

		if !p.expectPeek(lexer.COLON) {
			return nil
		}

		p.nextToken()
		value := p.parseExpression(LOWEST)
		hash.Pairs = append(hash.Pairs, ast.HashPair{Key: key, Value: value})

		p.skipPeekNewlines()
		if !p.peekTokenIs(lexer.COMMA) {
			break
		}
		p.nextToken()
	}

	if !p.expectPeek(lexer.RBRACE) {
		return nil
	}
	return hash
}

func (p *Parser) parseCallExpression(fn ast.Expression) ast.Expression {
	ident, ok := fn.(*ast.Identifier)
	if !ok {
		p.addError("PARSE-0002", p.curToken, map[string]any{"Token": p.curToken.Literal})
		return nil
	}

	call := &ast.CallExpression{Token: p.curToken, Name: ident.Name}
	call.Arguments = p.parseExpressionList(lexer.RPAREN)
	return call
}

func (p *Parser) parseMemberExpression(object ast.Expression) ast.Expression {
	expr := &ast.MemberExpression{Token: p.curToken, Object: object}

	if !p.expectPeek(lexer.IDENT) {
		return nil
	}
	expr.Member = p.curToken.Literal
	return expr
}

func (p *Parser) parseIndexExpression(left ast.Expression) ast.Expression {
	expr := &ast.IndexExpression{Token: p.curToken, Left: left}

	p.nextToken()
	expr.Index = p.parseExpression(LOWEST)

	if !p.expectPeek(lexer.RBRACKET) {
		return nil
	}
	return expr
}
