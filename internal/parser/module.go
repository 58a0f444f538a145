package parser

import (
	"github.com/funvibe/oscript/internal/ast"
	"github.com/funvibe/oscript/internal/diagnostics"
	"github.com/funvibe/oscript/internal/token"
)

func (p *Parser) buildVariablesSection(parent ast.NodeID) {
	section := p.tree.Add(ast.KindVariablesSection, p.cur)
	p.tree.Attach(parent, section)
	for {
		p.buildAnnotations()
		if p.cur.Token != token.VarDef {
			return
		}
		p.buildVariableDefinition(section)
	}
}

// buildVariableDefinition parses "Перем А [Экспорт], Б [Экспорт];".
func (p *Parser) buildVariableDefinition(section ast.NodeID) {
	for {
		p.next() // Перем or comma
		if !token.IsUserSymbol(p.cur) {
			p.annotations = p.annotations[:0]
			p.addError(diagnostics.IdentifierExpected)
			return
		}
		variable := p.child(section, ast.KindVariableDefinition)
		p.applyAnnotations(variable)
		name := p.cur.Content
		p.next()

		if p.cur.Token == token.Export {
			if p.inMethodScope {
				p.addError(diagnostics.ExportedLocalVar, name)
				return
			}
			p.tree.SetFlags(variable, ast.FlagExport)
			p.next()
		}

		switch p.cur.Token {
		case token.Comma:
			continue
		case token.Semicolon:
			p.next()
		default:
			p.addError(diagnostics.SemicolonExpected)
			if p.cur.Token == token.Semicolon {
				p.next()
			}
		}
		return
	}
}

func (p *Parser) buildMethodsSection(parent ast.NodeID) {
	section := p.tree.Add(ast.KindMethodsSection, p.cur)
	p.tree.Attach(parent, section)
	for {
		p.buildAnnotations()
		if p.cur.Token != token.Procedure && p.cur.Token != token.Function {
			return
		}
		p.buildMethod(section)
	}
}

func (p *Parser) buildMethod(section ast.NodeID) {
	method := p.child(section, ast.KindMethod)
	p.applyAnnotations(method)

	isFunction := p.cur.Token == token.Function
	endToken := token.EndProcedure
	if isFunction {
		endToken = token.EndFunction
	}

	p.inMethodScope = true
	p.inFunctionScope = isFunction
	defer func() {
		p.inMethodScope = false
		p.inFunctionScope = false
		p.isStatementsDefined = false
	}()

	if !p.buildMethodSignature(method, isFunction) {
		p.skipUntil(endToken)
		p.skipMethodRest(endToken)
		// keep the node shape stable for the compiler
		p.tree.AddChild(method, ast.KindVariablesSection, p.cur)
		p.tree.AddChild(method, ast.KindCodeBatch, p.cur)
		return
	}

	p.buildVariablesSection(method)
	p.isStatementsDefined = true

	body := p.child(method, ast.KindCodeBatch)
	p.buildCodeBatch(body, endToken)
	p.expectBlockEnd(endToken)
}

// skipMethodRest moves past the end of a method whose header failed to parse.
func (p *Parser) skipMethodRest(endToken token.Token) {
	for p.cur.Token != endToken && p.cur.Token != token.EndOfText {
		p.next()
	}
	if p.cur.Token == endToken {
		p.next()
	}
}

func (p *Parser) buildMethodSignature(method ast.NodeID, isFunction bool) bool {
	p.next()
	if !token.IsUserSymbol(p.cur) {
		p.sink.AddError(diagnostics.New(diagnostics.IdentifierExpected, p.cur.Location))
		return false
	}
	signature := p.child(method, ast.KindMethodSignature)
	if isFunction {
		p.tree.SetFlags(signature, ast.FlagFunction)
	}
	p.next()

	if p.cur.Token != token.OpenPar {
		p.sink.AddError(diagnostics.New(diagnostics.TokenExpected, p.cur.Location, "("))
		return false
	}
	if !p.buildMethodParameters(signature) {
		return false
	}

	if p.cur.Token == token.Export {
		p.tree.SetFlags(signature, ast.FlagExport)
		p.next()
	}
	return true
}

// buildMethodParameters parses "([&Аннотация] [Знач] Имя [= Литерал], ...)".
func (p *Parser) buildMethodParameters(signature ast.NodeID) bool {
	p.next() // (
	for p.cur.Token != token.ClosePar {
		p.buildAnnotations()
		byValue := false
		if p.cur.Token == token.ByValParam {
			byValue = true
			p.next()
		}
		if !token.IsUserSymbol(p.cur) {
			p.annotations = p.annotations[:0]
			p.sink.AddError(diagnostics.New(diagnostics.IdentifierExpected, p.cur.Location))
			return false
		}
		param := p.child(signature, ast.KindMethodParameter)
		p.applyAnnotations(param)
		if byValue {
			p.tree.SetFlags(param, ast.FlagByValue)
		}
		p.next()

		if p.cur.Token == token.Equal {
			p.next()
			if !p.buildDefaultParameterValue(param) {
				return false
			}
		}

		switch p.cur.Token {
		case token.Comma:
			p.next()
		case token.ClosePar:
		default:
			p.sink.AddError(diagnostics.New(diagnostics.TokenExpected, p.cur.Location, ")"))
			return false
		}
	}
	p.next() // )
	return true
}

// buildDefaultParameterValue accepts a literal with an optional sign;
// a sign is only valid in front of a number.
func (p *Parser) buildDefaultParameterValue(param ast.NodeID) bool {
	hasSign := p.cur.Token == token.Minus || p.cur.Token == token.Plus
	negative := p.cur.Token == token.Minus
	if hasSign {
		p.next()
	}
	if !token.IsLiteral(p.cur) {
		p.sink.AddError(diagnostics.New(diagnostics.LiteralExpected, p.cur.Location))
		return false
	}
	lex := p.cur
	if hasSign {
		if lex.Type != token.NumberLiteral {
			p.sink.AddError(diagnostics.New(diagnostics.NumberExpected, p.cur.Location))
			return false
		}
		if negative {
			lex.Content = "-" + lex.Content
		}
	}
	p.tree.AddChild(param, ast.KindConstant, lex)
	p.tree.SetFlags(param, ast.FlagHasDefault)
	p.next()
	return true
}

func (p *Parser) buildModuleBody(module ast.NodeID) {
	if len(p.annotations) > 0 {
		p.sink.AddError(diagnostics.New(diagnostics.MisplacedAnnotation, p.cur.Location))
		p.annotations = p.annotations[:0]
	}
	body := p.child(module, ast.KindCodeBatch)
	for {
		p.buildCodeBatch(body, token.EndOfText)
		if p.cur.Token == token.EndOfText {
			return
		}
		// a block end that closes nothing
		p.sink.AddError(diagnostics.New(diagnostics.UnexpectedOperation, p.cur.Location))
		p.next()
	}
}

// buildAnnotations collects "&Имя(Параметр = Значение, ...)" lexems.
func (p *Parser) buildAnnotations() {
	for p.cur.Type == token.Annotation {
		annotation := p.tree.Add(ast.KindAnnotation, p.cur)
		p.annotations = append(p.annotations, annotation)
		p.next()
		if p.cur.Token != token.OpenPar {
			continue
		}
		p.next()
		ok := p.tryParse(func() { p.buildAnnotationParameters(annotation) })
		if !ok {
			p.skipUntil(token.ClosePar)
			if p.cur.Token == token.ClosePar {
				p.next()
			}
		}
	}
}

func (p *Parser) buildAnnotationParameters(annotation ast.NodeID) {
	for p.cur.Token != token.EndOfText {
		if p.cur.Token == token.ClosePar {
			p.next()
			return
		}
		if !p.buildAnnotationParameter(annotation) {
			return
		}
		switch p.cur.Token {
		case token.Comma:
			p.next()
		case token.ClosePar:
			p.next()
			return
		default:
			p.addError(diagnostics.UnexpectedOperation)
			return
		}
	}
	p.addError(diagnostics.TokenExpected, ")")
}

// buildAnnotationParameter parses "Имя", "Имя = Литерал" or "Литерал".
func (p *Parser) buildAnnotationParameter(annotation ast.NodeID) bool {
	if p.cur.Type == token.Identifier {
		param := p.child(annotation, ast.KindAnnotationParameter)
		p.next()
		if p.cur.Token != token.Equal {
			return true
		}
		p.next()
		return p.buildAnnotationParamValue(param)
	}
	nameless := p.cur
	nameless.Content = ""
	param := p.tree.AddChild(annotation, ast.KindAnnotationParameter, nameless)
	return p.buildAnnotationParamValue(param)
}

func (p *Parser) buildAnnotationParamValue(param ast.NodeID) bool {
	if !token.IsLiteral(p.cur) {
		p.addError(diagnostics.LiteralExpected)
		return false
	}
	p.child(param, ast.KindConstant)
	p.next()
	return true
}

// expectBlockEnd consumes the closing keyword of a block or reports it missing.
func (p *Parser) expectBlockEnd(end token.Token) {
	if p.cur.Token == end {
		p.next()
		return
	}
	p.sink.AddError(diagnostics.New(diagnostics.TokenExpected, p.cur.Location, end.String()))
}
