package parser

import (
	"github.com/funvibe/oscript/internal/ast"
	"github.com/funvibe/oscript/internal/diagnostics"
	"github.com/funvibe/oscript/internal/token"
)

// Precedence, loosest first:
//
//	ИЛИ
//	И
//	НЕ
//	= <> < <= > >=   (non-chaining)
//	+ -
//	* / %
//	unary + -
//	( ) and terminals
//
// Binary operators of equal precedence associate to the left.

// buildExpression parses an expression and attaches it to parent.
// Reports ExpressionExpected when the expression is empty, i.e. the
// current lexem is already the stop token.
func (p *Parser) buildExpression(parent ast.NodeID, stop token.Token) ast.NodeID {
	if p.cur.Token == stop || p.cur.Token == token.EndOfText {
		p.addError(diagnostics.ExpressionExpected)
		return ast.NoNode
	}
	node := p.buildOr()
	if p.aborted || node == ast.NoNode {
		return ast.NoNode
	}
	p.tree.Attach(parent, node)
	return node
}

func (p *Parser) binary(op token.Lexem, left, right ast.NodeID) ast.NodeID {
	node := p.tree.Add(ast.KindBinaryOperation, op)
	p.tree.Attach(node, left)
	p.tree.Attach(node, right)
	return node
}

func (p *Parser) buildOr() ast.NodeID {
	left := p.buildAnd()
	for !p.aborted && p.cur.Token == token.Or {
		op := p.cur
		p.next()
		right := p.buildAnd()
		left = p.binary(op, left, right)
	}
	return left
}

func (p *Parser) buildAnd() ast.NodeID {
	left := p.buildNot()
	for !p.aborted && p.cur.Token == token.And {
		op := p.cur
		p.next()
		right := p.buildNot()
		left = p.binary(op, left, right)
	}
	return left
}

func (p *Parser) buildNot() ast.NodeID {
	if p.cur.Token != token.Not {
		return p.buildComparison()
	}
	node := p.tree.Add(ast.KindUnaryOperation, p.cur)
	p.next()
	p.tree.Attach(node, p.buildNot())
	return node
}

func (p *Parser) buildComparison() ast.NodeID {
	left := p.buildAddition()
	if p.aborted || !token.IsComparison(p.cur.Token) {
		return left
	}
	op := p.cur
	p.next()
	right := p.buildAddition()
	return p.binary(op, left, right)
}

func (p *Parser) buildAddition() ast.NodeID {
	left := p.buildMultiplication()
	for !p.aborted && (p.cur.Token == token.Plus || p.cur.Token == token.Minus) {
		op := p.cur
		p.next()
		right := p.buildMultiplication()
		left = p.binary(op, left, right)
	}
	return left
}

func (p *Parser) buildMultiplication() ast.NodeID {
	left := p.buildUnary()
	for !p.aborted && (p.cur.Token == token.Multiply || p.cur.Token == token.Division || p.cur.Token == token.Modulo) {
		op := p.cur
		p.next()
		right := p.buildUnary()
		left = p.binary(op, left, right)
	}
	return left
}

func (p *Parser) buildUnary() ast.NodeID {
	if p.cur.Token != token.Minus && p.cur.Token != token.Plus {
		return p.buildParenthesis()
	}
	node := p.tree.Add(ast.KindUnaryOperation, p.cur)
	p.next()
	p.tree.Attach(node, p.buildParenthesis())
	return node
}

func (p *Parser) buildParenthesis() ast.NodeID {
	if p.cur.Token != token.OpenPar {
		return p.terminalNode()
	}
	p.next()
	expr := p.buildOr()
	if p.aborted {
		return ast.NoNode
	}
	if p.cur.Token != token.ClosePar {
		p.addError(diagnostics.TokenExpected, ")")
		return ast.NoNode
	}
	p.next()
	return expr
}

func (p *Parser) terminalNode() ast.NodeID {
	switch {
	case token.IsLiteral(p.cur):
		node := p.tree.Add(ast.KindConstant, p.cur)
		p.next()
		return node
	case token.IsUserSymbol(p.cur):
		return p.buildGlobalCall()
	case p.cur.Token == token.NewObject:
		return p.buildNewObject()
	case p.cur.Token == token.Question:
		return p.buildTernary()
	}
	p.addError(diagnostics.ExpressionSyntax)
	return ast.NoNode
}

// buildGlobalCall parses an identifier or a call of a global method and
// any dereference chain after it.
func (p *Parser) buildGlobalCall() ast.NodeID {
	name := p.cur
	p.next()
	var target ast.NodeID
	if p.cur.Token == token.OpenPar {
		target = p.tree.Add(ast.KindGlobalCall, name)
		if !p.buildCallArguments(target) {
			return ast.NoNode
		}
	} else {
		target = p.tree.Add(ast.KindIdentifier, name)
	}
	return p.buildDereference(target)
}

// buildCallArguments parses "(a, , b)" into a CallArgumentList under call.
// A skipped argument is a CallArgument without children.
func (p *Parser) buildCallArguments(call ast.NodeID) bool {
	list := p.child(call, ast.KindCallArgumentList)
	p.pushStop(token.ClosePar)
	defer p.popStop()

	p.next() // (
	for p.cur.Token != token.ClosePar {
		if p.cur.Token == token.EndOfText {
			p.addError(diagnostics.TokenExpected, ")")
			return false
		}
		if !p.buildCallArgument(list) {
			return false
		}
	}
	p.next() // )
	return true
}

func (p *Parser) buildCallArgument(list ast.NodeID) bool {
	if p.cur.Token == token.Comma {
		p.child(list, ast.KindCallArgument)
		p.buildLastDefaultArgument(list)
		return true
	}

	arg := p.child(list, ast.KindCallArgument)
	expr := p.buildOr()
	if p.aborted {
		return false
	}
	p.tree.Attach(arg, expr)

	switch p.cur.Token {
	case token.Comma:
		p.buildLastDefaultArgument(list)
	case token.ClosePar:
	default:
		p.addError(diagnostics.TokenExpected, ")")
		return false
	}
	return true
}

// buildLastDefaultArgument consumes a comma; a comma right before ")"
// means one more skipped argument.
func (p *Parser) buildLastDefaultArgument(list ast.NodeID) {
	p.next()
	if p.cur.Token == token.ClosePar {
		p.child(list, ast.KindCallArgument)
	}
}

func (p *Parser) buildDereference(target ast.NodeID) ast.NodeID {
	target = p.buildIndexAccess(target)
	if p.aborted || target == ast.NoNode || p.cur.Token != token.Dot {
		return target
	}

	dot := p.tree.Add(ast.KindDereference, p.cur)
	p.tree.Attach(dot, target)
	p.next()
	if p.cur.Type != token.Identifier {
		p.addError(diagnostics.IdentifierExpected)
		return ast.NoNode
	}
	name := p.cur
	p.next()
	if p.cur.Token == token.OpenPar {
		call := p.tree.Add(ast.KindMethodCall, name)
		p.tree.Attach(dot, call)
		if !p.buildCallArguments(call) {
			return ast.NoNode
		}
	} else {
		p.tree.AddChild(dot, ast.KindIdentifier, name)
	}
	return p.buildDereference(dot)
}

func (p *Parser) buildIndexAccess(target ast.NodeID) ast.NodeID {
	if p.cur.Token != token.OpenBracket {
		return target
	}
	node := p.tree.Add(ast.KindIndexAccess, p.cur)
	p.tree.Attach(node, target)
	p.next()
	if p.buildExpression(node, token.CloseBracket) == ast.NoNode {
		return ast.NoNode
	}
	if p.cur.Token != token.CloseBracket {
		p.addError(diagnostics.TokenExpected, "]")
		return ast.NoNode
	}
	p.next()
	return p.buildDereference(node)
}

// buildTernary parses "?(условие, значение1, значение2)".
func (p *Parser) buildTernary() ast.NodeID {
	node := p.tree.Add(ast.KindTernary, p.cur)
	p.next()
	if p.cur.Token != token.OpenPar {
		p.addError(diagnostics.TokenExpected, "(")
		return ast.NoNode
	}
	p.pushStop(token.ClosePar)
	defer p.popStop()

	stops := []token.Token{token.Comma, token.Comma, token.ClosePar}
	for _, stop := range stops {
		p.next() // ( or ,
		if p.buildExpression(node, stop) == ast.NoNode {
			return ast.NoNode
		}
		if p.cur.Token != stop {
			p.addError(diagnostics.TokenExpected, stop.String())
			return ast.NoNode
		}
	}
	p.next() // )
	return p.buildDereference(node)
}

// buildNewObject parses "Новый Тип[(аргументы)]" or "Новый(ИмяТипа, аргументы)".
func (p *Parser) buildNewObject() ast.NodeID {
	newLexem := p.cur
	p.next()

	if p.cur.Token == token.OpenPar {
		node := p.tree.Add(ast.KindNewObject, newLexem)
		p.tree.SetFlags(node, ast.FlagDynamic)
		if !p.buildCallArguments(node) {
			return ast.NoNode
		}
		args := p.tree.Child(node, 0)
		if len(p.tree.Children(args)) == 0 || len(p.tree.Children(p.tree.Child(args, 0))) == 0 {
			p.addError(diagnostics.ExpressionExpected)
			return ast.NoNode
		}
		return node
	}

	if p.cur.Type != token.Identifier || p.cur.Token != token.NotAToken {
		p.addError(diagnostics.IdentifierExpected)
		return ast.NoNode
	}
	node := p.tree.Add(ast.KindNewObject, p.cur)
	p.next()
	if p.cur.Token == token.OpenPar {
		if !p.buildCallArguments(node) {
			return ast.NoNode
		}
	} else {
		p.child(node, ast.KindCallArgumentList)
	}
	return node
}
