// Package parser builds the syntax tree from a lexem stream.
//
// The parser is recursive descent with one lexem of lookahead. Errors are
// collected into an ErrorSink; after each error the parser skips to the
// next statement, so one fault yields one diagnostic.
package parser

import (
	"slices"

	"github.com/funvibe/oscript/internal/ast"
	"github.com/funvibe/oscript/internal/diagnostics"
	"github.com/funvibe/oscript/internal/lexer"
	"github.com/funvibe/oscript/internal/token"
)

type Parser struct {
	lexer lexer.LexemSource
	sink  diagnostics.ErrorSink
	tree  *ast.Tree

	cur token.Lexem

	// stop tokens of the enclosing blocks, innermost last
	tokenStack [][]token.Token
	// annotations waiting for the declaration they belong to
	annotations []ast.NodeID

	inMethodScope       bool
	inFunctionScope     bool
	isStatementsDefined bool
	loopDepth           int

	// scoped early return: while tryDepth > 0 the first error marks the
	// sub-parse as aborted and the owner of the sub-parse recovers
	tryDepth int
	aborted  bool
}

func New(src lexer.LexemSource, sink diagnostics.ErrorSink) *Parser {
	if sink == nil {
		sink = diagnostics.NewListErrorSink()
	}
	return &Parser{lexer: src, sink: sink, tree: ast.NewTree()}
}

// FromString is a shortcut for a plain (non-preprocessing) lexer over code.
func FromString(code string, sink diagnostics.ErrorSink) *Parser {
	if sink == nil {
		sink = diagnostics.NewListErrorSink()
	}
	return New(lexer.New(code, sink), sink)
}

func (p *Parser) Tree() *ast.Tree {
	return p.tree
}

func (p *Parser) Sink() diagnostics.ErrorSink {
	return p.sink
}

// ParseStatefulModule parses a full module: variables, methods and body.
func (p *Parser) ParseStatefulModule() ast.NodeID {
	p.next()
	module := p.tree.Add(ast.KindModule, p.cur)
	p.tree.Root = module

	p.buildVariablesSection(module)
	p.buildMethodsSection(module)
	p.buildModuleBody(module)
	return module
}

// ParseCodeBatch parses a sequence of statements without declarations.
func (p *Parser) ParseCodeBatch() ast.NodeID {
	p.next()
	module := p.tree.Add(ast.KindModule, p.cur)
	p.tree.Root = module
	p.buildModuleBody(module)
	return module
}

// ParseExpression parses a single expression. The returned module node
// has the expression as its only child.
func (p *Parser) ParseExpression() ast.NodeID {
	p.next()
	module := p.tree.Add(ast.KindModule, p.cur)
	p.tree.Root = module
	p.tokenStack = append(p.tokenStack, []token.Token{token.EndOfText})
	defer p.popStop()

	p.tryParse(func() {
		if p.buildExpression(module, token.EndOfText) != ast.NoNode && p.cur.Token != token.EndOfText {
			p.addError(diagnostics.ExpressionSyntax)
		}
	})
	return module
}

func (p *Parser) next() {
	p.cur = p.lexer.NextLexem()
}

func (p *Parser) pushStop(tokens ...token.Token) {
	p.tokenStack = append(p.tokenStack, tokens)
}

func (p *Parser) popStop() {
	p.tokenStack = p.tokenStack[:len(p.tokenStack)-1]
}

func (p *Parser) currentStops() []token.Token {
	if len(p.tokenStack) == 0 {
		return nil
	}
	return p.tokenStack[len(p.tokenStack)-1]
}

// addError records a diagnostic at the current lexem. Inside a scoped
// sub-parse only the first error is kept and the sub-parse is aborted;
// otherwise the parser skips to the next statement.
func (p *Parser) addError(id diagnostics.ErrorID, args ...any) {
	p.addErrorAt(p.cur.Location, id, args...)
}

func (p *Parser) addErrorAt(pos token.Position, id diagnostics.ErrorID, args ...any) {
	if p.tryDepth > 0 {
		if p.aborted {
			return
		}
		p.aborted = true
		p.sink.AddError(diagnostics.New(id, pos, args...))
		return
	}
	p.sink.AddError(diagnostics.New(id, pos, args...))
	p.skipToNextStatement()
}

// tryParse runs fn as a sub-parse that returns early on its first error.
// Reports whether fn finished without errors.
func (p *Parser) tryParse(fn func()) bool {
	saved := p.aborted
	p.aborted = false
	p.tryDepth++
	fn()
	p.tryDepth--
	ok := !p.aborted
	p.aborted = saved
	return ok
}

// isRecoveryPoint reports whether parsing can resume at the current lexem.
func (p *Parser) isRecoveryPoint() bool {
	t := p.cur.Token
	return t == token.EndOfText ||
		t == token.Semicolon ||
		token.IsBeginOfStatement(t) ||
		token.IsEndOfBlockToken(t) ||
		slices.Contains(p.currentStops(), t)
}

// skipToNextStatement always moves at least one lexem unless it already
// stands on a semicolon, a block end or a stop token.
func (p *Parser) skipToNextStatement() {
	t := p.cur.Token
	if t == token.EndOfText || t == token.Semicolon || token.IsEndOfBlockToken(t) ||
		slices.Contains(p.currentStops(), t) {
		return
	}
	p.next()
	for !p.isRecoveryPoint() {
		p.next()
	}
}

// skipUntil moves forward to one of the given tokens or a recovery point.
func (p *Parser) skipUntil(tokens ...token.Token) {
	for !slices.Contains(tokens, p.cur.Token) && !p.isRecoveryPoint() {
		p.next()
	}
}

func (p *Parser) child(parent ast.NodeID, kind ast.NodeKind) ast.NodeID {
	return p.tree.AddChild(parent, kind, p.cur)
}

func (p *Parser) applyAnnotations(target ast.NodeID) {
	for _, a := range p.annotations {
		p.tree.Attach(target, a)
	}
	p.annotations = p.annotations[:0]
}
