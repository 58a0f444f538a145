package parser

import (
	"slices"

	"github.com/funvibe/oscript/internal/ast"
	"github.com/funvibe/oscript/internal/diagnostics"
	"github.com/funvibe/oscript/internal/token"
)

// buildCodeBatch parses statements into batch until one of endTokens.
// The end token itself is left for the caller.
func (p *Parser) buildCodeBatch(batch ast.NodeID, endTokens ...token.Token) {
	p.pushStop(endTokens...)
	defer p.popStop()

	for {
		t := p.cur.Token
		if slices.Contains(endTokens, t) || t == token.EndOfText {
			return
		}
		if t == token.Semicolon {
			p.next()
			continue
		}
		if token.IsEndOfBlockToken(t) {
			// belongs to an enclosing block; the caller reports it
			return
		}

		if p.cur.Type == token.Label {
			// a label is followed by a statement, not by a semicolon
			if !p.buildLabel(batch) {
				p.skipToNextStatement()
			}
			continue
		}

		if !p.buildStatement(batch) {
			p.skipToNextStatement()
			if p.cur.Token == token.Semicolon {
				p.next()
			}
			continue
		}

		if p.cur.Token == token.Semicolon {
			p.next()
			continue
		}
		if slices.Contains(endTokens, p.cur.Token) || token.IsEndOfBlockToken(p.cur.Token) {
			return
		}
		p.sink.AddError(diagnostics.New(diagnostics.SemicolonExpected, p.cur.Location))
		p.skipToNextStatement()
		if p.cur.Token == token.Semicolon {
			p.next()
		}
	}
}

// buildStatement parses one statement. Returns false when it failed and
// the caller has to resynchronize.
func (p *Parser) buildStatement(batch ast.NodeID) bool {
	switch {
	case p.cur.Type != token.Identifier:
		p.sink.AddError(diagnostics.New(diagnostics.UnexpectedOperation, p.cur.Location))
		return false
	case p.cur.Token == token.NotAToken:
		p.isStatementsDefined = true
		return p.tryParse(func() { p.buildAssignmentOrCall(batch) })
	}
	return p.buildComplexStatement(batch)
}

func (p *Parser) buildComplexStatement(batch ast.NodeID) bool {
	switch p.cur.Token {
	case token.If:
		return p.buildIf(batch)
	case token.While:
		return p.buildWhile(batch)
	case token.For:
		return p.buildFor(batch)
	case token.Break:
		return p.buildLoopJump(batch, ast.KindBreak, diagnostics.BreakOutsideOfLoop)
	case token.Continue:
		return p.buildLoopJump(batch, ast.KindContinue, diagnostics.ContinueOutsideOfLoop)
	case token.Return:
		return p.buildReturn(batch)
	case token.Try:
		return p.buildTryExcept(batch)
	case token.RaiseException:
		return p.buildRaise(batch)
	case token.Execute:
		return p.buildExecute(batch)
	case token.AddHandler:
		return p.buildHandlerOperation(batch, ast.KindAddHandler)
	case token.RemoveHandler:
		return p.buildHandlerOperation(batch, ast.KindRemoveHandler)
	case token.Goto:
		return p.buildGoto(batch)
	case token.VarDef:
		p.sink.AddError(diagnostics.New(diagnostics.LateVarDefinition, p.cur.Location))
		p.next()
		return false
	case token.Procedure, token.Function:
		p.sink.AddError(diagnostics.New(diagnostics.UnexpectedOperation, p.cur.Location))
		end := token.EndProcedure
		if p.cur.Token == token.Function {
			end = token.EndFunction
		}
		p.skipMethodRest(end)
		return false
	}
	p.sink.AddError(diagnostics.New(diagnostics.UnexpectedOperation, p.cur.Location))
	return false
}

// buildAssignmentOrCall parses "target = expr" or a standalone call.
func (p *Parser) buildAssignmentOrCall(batch ast.NodeID) {
	start := p.cur
	target := p.buildGlobalCall()
	if p.aborted {
		return
	}

	if p.cur.Token == token.Equal {
		if !p.tree.IsWritable(target) {
			p.addError(diagnostics.ExpressionSyntax)
			return
		}
		assignment := p.tree.Add(ast.KindAssignment, p.cur)
		p.tree.Attach(assignment, target)
		p.next()
		if p.buildExpression(assignment, token.Semicolon) != ast.NoNode {
			p.tree.Attach(batch, assignment)
		}
		return
	}

	if !p.tree.IsCall(target) {
		p.addErrorAt(start.Location, diagnostics.WrongAssignment)
		return
	}
	p.tree.Attach(batch, target)
}

// buildBatch creates a CodeBatch under parent and parses it up to stops.
func (p *Parser) buildBatch(parent ast.NodeID, stops ...token.Token) ast.NodeID {
	batch := p.child(parent, ast.KindCodeBatch)
	p.buildCodeBatch(batch, stops...)
	return batch
}

// buildCondition parses an expression that must be followed by stop, which
// is consumed. On error the rest of the expression is skipped up to stop.
func (p *Parser) buildCondition(parent ast.NodeID, stop token.Token) {
	ok := p.tryParse(func() {
		p.buildExpression(parent, stop)
		if !p.aborted && p.cur.Token != stop {
			p.addError(diagnostics.TokenExpected, stop.String())
		}
	})
	if !ok {
		p.skipUntil(stop)
	}
	if p.cur.Token == stop {
		p.next()
	}
}

func (p *Parser) buildIf(batch ast.NodeID) bool {
	cond := p.child(batch, ast.KindCondition)
	p.next()
	p.buildCondition(cond, token.Then)
	p.buildBatch(cond, token.Else, token.ElseIf, token.EndIf)

	for p.cur.Token == token.ElseIf {
		elif := p.child(cond, ast.KindElseIf)
		p.next()
		p.buildCondition(elif, token.Then)
		p.buildBatch(elif, token.Else, token.ElseIf, token.EndIf)
	}

	if p.cur.Token == token.Else {
		elseNode := p.child(cond, ast.KindElse)
		p.next()
		p.buildBatch(elseNode, token.EndIf)
	}

	p.expectBlockEnd(token.EndIf)
	return true
}

func (p *Parser) buildLoopBody(loop ast.NodeID) {
	p.loopDepth++
	p.buildBatch(loop, token.EndLoop)
	p.loopDepth--
	p.expectBlockEnd(token.EndLoop)
}

func (p *Parser) buildWhile(batch ast.NodeID) bool {
	loop := p.child(batch, ast.KindWhileLoop)
	p.next()
	p.buildCondition(loop, token.Loop)
	p.buildLoopBody(loop)
	return true
}

func (p *Parser) buildFor(batch ast.NodeID) bool {
	forLexem := p.cur
	p.next()
	if p.cur.Token == token.Each {
		return p.buildForEach(batch, forLexem)
	}

	loop := p.tree.AddChild(batch, ast.KindForLoop, forLexem)
	if !token.IsUserSymbol(p.cur) {
		p.sink.AddError(diagnostics.New(diagnostics.IdentifierExpected, p.cur.Location))
		p.skipUntil(token.Loop)
		p.recoverLoopHeader(loop)
		return true
	}
	counter := p.cur
	p.next()
	if p.cur.Token != token.Equal {
		p.sink.AddError(diagnostics.New(diagnostics.TokenExpected, p.cur.Location, "="))
		p.skipUntil(token.Loop)
		p.recoverLoopHeader(loop)
		return true
	}

	init := p.child(loop, ast.KindAssignment)
	p.tree.AddChild(init, ast.KindIdentifier, counter)
	p.next()
	p.buildCondition(init, token.To)
	p.buildCondition(loop, token.Loop)
	p.buildLoopBody(loop)
	return true
}

// recoverLoopHeader parses the body of a loop whose header was broken so
// that its statements are still checked.
func (p *Parser) recoverLoopHeader(loop ast.NodeID) {
	if p.cur.Token == token.Loop {
		p.next()
	}
	p.buildLoopBody(loop)
}

func (p *Parser) buildForEach(batch ast.NodeID, forLexem token.Lexem) bool {
	loop := p.tree.AddChild(batch, ast.KindForEachLoop, forLexem)
	p.next() // Каждого
	if !token.IsUserSymbol(p.cur) {
		p.sink.AddError(diagnostics.New(diagnostics.IdentifierExpected, p.cur.Location))
		p.skipUntil(token.Loop)
		p.recoverLoopHeader(loop)
		return true
	}
	p.child(loop, ast.KindIdentifier)
	p.next()
	if p.cur.Token != token.In {
		p.sink.AddError(diagnostics.New(diagnostics.TokenExpected, p.cur.Location, token.In.String()))
		p.skipUntil(token.Loop)
		p.recoverLoopHeader(loop)
		return true
	}
	p.next()
	p.buildCondition(loop, token.Loop)
	p.buildLoopBody(loop)
	return true
}

func (p *Parser) buildLoopJump(batch ast.NodeID, kind ast.NodeKind, outside diagnostics.ErrorID) bool {
	if p.loopDepth == 0 {
		p.sink.AddError(diagnostics.New(outside, p.cur.Location))
	}
	p.child(batch, kind)
	p.next()
	return true
}

func (p *Parser) atStatementEnd() bool {
	t := p.cur.Token
	return t == token.Semicolon || token.IsEndOfBlockToken(t) || slices.Contains(p.currentStops(), t)
}

func (p *Parser) buildReturn(batch ast.NodeID) bool {
	ret := p.child(batch, ast.KindReturn)
	pos := p.cur.Location
	p.next()

	switch {
	case !p.inMethodScope:
		p.sink.AddError(diagnostics.New(diagnostics.ReturnOutsideOfMethod, pos))
		return false
	case p.inFunctionScope:
		if p.atStatementEnd() {
			p.sink.AddError(diagnostics.New(diagnostics.FuncEmptyReturnValue, pos))
			return true
		}
		return p.tryParse(func() { p.buildExpression(ret, token.Semicolon) })
	default:
		if !p.atStatementEnd() {
			p.sink.AddError(diagnostics.New(diagnostics.ProcReturnsAValue, pos))
			return false
		}
	}
	return true
}

// buildTryExcept parses "Попытка ... Исключение ... КонецПопытки".
func (p *Parser) buildTryExcept(batch ast.NodeID) bool {
	node := p.child(batch, ast.KindTryExcept)
	p.next()
	p.buildBatch(node, token.Exception)
	if p.cur.Token != token.Exception {
		p.sink.AddError(diagnostics.New(diagnostics.TokenExpected, p.cur.Location, token.Exception.String()))
		p.tree.AddChild(node, ast.KindCodeBatch, p.cur)
		if p.cur.Token == token.EndTry {
			p.next()
		}
		return true
	}
	p.next()
	p.buildBatch(node, token.EndTry)
	p.expectBlockEnd(token.EndTry)
	return true
}

// buildRaise parses "ВызватьИсключение [выражение]".
func (p *Parser) buildRaise(batch ast.NodeID) bool {
	node := p.child(batch, ast.KindRaiseException)
	p.next()
	if p.atStatementEnd() {
		return true
	}
	return p.tryParse(func() { p.buildExpression(node, token.Semicolon) })
}

// buildExecute parses "Выполнить выражение" (usually with parentheses).
func (p *Parser) buildExecute(batch ast.NodeID) bool {
	node := p.child(batch, ast.KindExecute)
	p.next()
	return p.tryParse(func() { p.buildExpression(node, token.Semicolon) })
}

// buildHandlerOperation parses "ДобавитьОбработчик Источник.Событие, Обработчик".
// The event must be a property dereference; the handler is either a
// dereference "Объект.Метод" or a plain method name.
func (p *Parser) buildHandlerOperation(batch ast.NodeID, kind ast.NodeKind) bool {
	node := p.child(batch, kind)
	p.next()
	return p.tryParse(func() {
		event := p.buildExpression(node, token.Comma)
		if p.aborted {
			return
		}
		if p.tree.Kind(event) != ast.KindDereference || p.tree.IsCall(event) {
			p.addError(diagnostics.WrongHandlerName)
			return
		}
		if p.cur.Token != token.Comma {
			p.addError(diagnostics.TokenExpected, ",")
			return
		}
		p.next()
		handler := p.buildExpression(node, token.Semicolon)
		if p.aborted {
			return
		}
		k := p.tree.Kind(handler)
		if k != ast.KindIdentifier && (k != ast.KindDereference || p.tree.IsCall(handler)) {
			p.addError(diagnostics.WrongHandlerName)
		}
	})
}

func (p *Parser) buildLabel(batch ast.NodeID) bool {
	p.child(batch, ast.KindLabel)
	p.next()
	if p.cur.Token != token.Colon {
		p.sink.AddError(diagnostics.New(diagnostics.TokenExpected, p.cur.Location, ":"))
		return false
	}
	p.next()
	return true
}

func (p *Parser) buildGoto(batch ast.NodeID) bool {
	p.next()
	if p.cur.Type != token.Label {
		p.sink.AddError(diagnostics.New(diagnostics.IdentifierExpected, p.cur.Location))
		return false
	}
	p.child(batch, ast.KindGoto)
	p.next()
	return true
}
