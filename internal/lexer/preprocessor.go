package lexer

import (
	"strings"

	"github.com/funvibe/oscript/internal/diagnostics"
	"github.com/funvibe/oscript/internal/token"
)

// DirectiveContext is what a directive handler sees while it handles a directive.
type DirectiveContext struct {
	// Lexer shares the iterator with the main lexer. Handlers read the
	// rest of the directive line through it.
	Lexer       *Lexer
	Sink        diagnostics.ErrorSink
	CodeStarted bool
}

func (c *DirectiveContext) addError(id diagnostics.ErrorID, pos token.Position, args ...any) {
	c.Sink.AddError(diagnostics.New(id, pos, args...))
}

// DirectiveHandler processes preprocessor directives. Handlers are chained;
// the first one that returns true from HandleDirective consumes the directive.
type DirectiveHandler interface {
	OnModuleEnter()
	OnModuleLeave(ctx *DirectiveContext)
	HandleDirective(ctx *DirectiveContext, directive token.Lexem) bool
}

// PreprocessingLexer filters directives out of the lexem stream.
type PreprocessingLexer struct {
	lexer    *Lexer
	handlers []DirectiveHandler
	ctx      DirectiveContext
	entered  bool
	left     bool
}

func NewPreprocessingLexer(l *Lexer, handlers ...DirectiveHandler) *PreprocessingLexer {
	return &PreprocessingLexer{
		lexer:    l,
		handlers: handlers,
		ctx:      DirectiveContext{Lexer: l, Sink: l.sink},
	}
}

func (p *PreprocessingLexer) Iterator() *SourceIterator {
	return p.lexer.Iterator()
}

func (p *PreprocessingLexer) Handlers() []DirectiveHandler {
	return p.handlers
}

func (p *PreprocessingLexer) NextLexem() token.Lexem {
	if !p.entered {
		p.entered = true
		for _, h := range p.handlers {
			h.OnModuleEnter()
		}
	}

	for {
		lex := p.lexer.NextLexem()
		switch lex.Type {
		case token.PreprocessorDirective:
			p.dispatch(lex)
			continue
		case token.EndOfTextType:
			if !p.left {
				p.left = true
				for _, h := range p.handlers {
					h.OnModuleLeave(&p.ctx)
				}
			}
			return lex
		}
		p.ctx.CodeStarted = true
		return lex
	}
}

func (p *PreprocessingLexer) dispatch(directive token.Lexem) {
	for _, h := range p.handlers {
		if h.HandleDirective(&p.ctx, directive) {
			return
		}
	}
	p.ctx.addError(diagnostics.DirectiveNotSupported, directive.Location, "#"+directive.Content)
	p.lexer.Iterator().ReadToLineEnd()
}

func directiveIs(d token.Lexem, names ...string) bool {
	for _, n := range names {
		if token.EqualFold(d.Content, n) {
			return true
		}
	}
	return false
}

// ConditionalCompilationHandler implements #Если / #ИначеЕсли / #Иначе / #КонецЕсли
// over a set of defined symbols. Inactive branches are skipped line by line
// without being lexed.
type ConditionalCompilationHandler struct {
	defines map[string]bool
	stack   []*conditionalBlock
}

type conditionalBlock struct {
	pos   token.Position
	taken bool
}

func NewConditionalCompilationHandler(defines []string) *ConditionalCompilationHandler {
	h := &ConditionalCompilationHandler{defines: make(map[string]bool, len(defines))}
	for _, d := range defines {
		h.defines[token.Fold(d)] = true
	}
	return h
}

func (h *ConditionalCompilationHandler) Define(name string) {
	h.defines[token.Fold(name)] = true
}

func (h *ConditionalCompilationHandler) OnModuleEnter() {
	h.stack = h.stack[:0]
}

func (h *ConditionalCompilationHandler) OnModuleLeave(ctx *DirectiveContext) {
	for _, b := range h.stack {
		ctx.addError(diagnostics.UnclosedDirective, b.pos, "#Если")
	}
	h.stack = h.stack[:0]
}

func (h *ConditionalCompilationHandler) HandleDirective(ctx *DirectiveContext, d token.Lexem) bool {
	switch {
	case directiveIs(d, "Если", "If"):
		cond := h.readCondition(ctx)
		h.stack = append(h.stack, &conditionalBlock{pos: d.Location, taken: cond})
		if !cond {
			h.skip(ctx)
		}
	case directiveIs(d, "ИначеЕсли", "ElsIf", "ElseIf"), directiveIs(d, "Иначе", "Else"):
		ctx.Lexer.Iterator().ReadToLineEnd()
		if len(h.stack) == 0 {
			ctx.addError(diagnostics.DirectiveExpected, d.Location, "#Если")
			return true
		}
		// the active branch is over
		h.skip(ctx)
	case directiveIs(d, "КонецЕсли", "EndIf"):
		ctx.Lexer.Iterator().ReadToLineEnd()
		if len(h.stack) == 0 {
			ctx.addError(diagnostics.DirectiveExpected, d.Location, "#Если")
			return true
		}
		h.stack = h.stack[:len(h.stack)-1]
	default:
		return false
	}
	return true
}

// skip moves over inactive source until a branch of the innermost block
// becomes active or the block ends.
func (h *ConditionalCompilationHandler) skip(ctx *DirectiveContext) {
	it := ctx.Lexer.Iterator()
	depth := 0
	for !it.AtEnd() {
		it.SkipSpaces()
		if it.Current() != '#' {
			it.ReadToLineEnd()
			continue
		}
		d := ctx.Lexer.NextLexem()
		top := h.stack[len(h.stack)-1]
		switch {
		case directiveIs(d, "Если", "If"):
			depth++
			it.ReadToLineEnd()
		case directiveIs(d, "КонецЕсли", "EndIf"):
			it.ReadToLineEnd()
			if depth == 0 {
				h.stack = h.stack[:len(h.stack)-1]
				return
			}
			depth--
		case depth == 0 && directiveIs(d, "ИначеЕсли", "ElsIf", "ElseIf"):
			if top.taken {
				it.ReadToLineEnd()
				continue
			}
			if h.readCondition(ctx) {
				top.taken = true
				return
			}
		case depth == 0 && directiveIs(d, "Иначе", "Else"):
			it.ReadToLineEnd()
			if !top.taken {
				top.taken = true
				return
			}
		default:
			it.ReadToLineEnd()
		}
	}
}

// readCondition parses "<expr> Тогда" on the directive line.
func (h *ConditionalCompilationHandler) readCondition(ctx *DirectiveContext) bool {
	p := &conditionParser{ctx: ctx, defines: h.defines}
	p.next()
	result := p.parseOr()
	if p.cur.Token != token.Then {
		ctx.addError(diagnostics.TokenExpected, p.cur.Location, token.Then.String())
		p.failed = true
	}
	ctx.Lexer.Iterator().ReadToLineEnd()
	return result && !p.failed
}

type conditionParser struct {
	ctx     *DirectiveContext
	defines map[string]bool
	cur     token.Lexem
	failed  bool
}

func (p *conditionParser) next() {
	p.cur = p.ctx.Lexer.NextLexemOnSameLine()
}

func (p *conditionParser) parseOr() bool {
	v := p.parseAnd()
	for p.cur.Token == token.Or {
		p.next()
		r := p.parseAnd()
		v = v || r
	}
	return v
}

func (p *conditionParser) parseAnd() bool {
	v := p.parseNot()
	for p.cur.Token == token.And {
		p.next()
		r := p.parseNot()
		v = v && r
	}
	return v
}

func (p *conditionParser) parseNot() bool {
	if p.cur.Token == token.Not {
		p.next()
		return !p.parseNot()
	}
	return p.parsePrimary()
}

func (p *conditionParser) parsePrimary() bool {
	switch {
	case p.cur.Token == token.OpenPar:
		p.next()
		v := p.parseOr()
		if p.cur.Token != token.ClosePar {
			p.ctx.addError(diagnostics.TokenExpected, p.cur.Location, ")")
			p.failed = true
			return false
		}
		p.next()
		return v
	case token.IsUserSymbol(p.cur):
		v := p.defines[token.Fold(p.cur.Content)]
		p.next()
		return v
	}
	if !p.failed {
		p.ctx.addError(diagnostics.IdentifierExpected, p.cur.Location)
	}
	p.failed = true
	return false
}

// RegionHandler checks that #Область / #КонецОбласти are balanced.
type RegionHandler struct {
	open []token.Position
}

func NewRegionHandler() *RegionHandler {
	return &RegionHandler{}
}

func (h *RegionHandler) OnModuleEnter() {
	h.open = h.open[:0]
}

func (h *RegionHandler) OnModuleLeave(ctx *DirectiveContext) {
	for _, pos := range h.open {
		ctx.addError(diagnostics.UnclosedDirective, pos, "#Область")
	}
	h.open = h.open[:0]
}

func (h *RegionHandler) HandleDirective(ctx *DirectiveContext, d token.Lexem) bool {
	switch {
	case directiveIs(d, "Область", "Region"):
		name := strings.TrimSpace(ctx.Lexer.Iterator().ReadToLineEnd())
		if name == "" {
			ctx.addError(diagnostics.IdentifierExpected, d.Location)
		}
		h.open = append(h.open, d.Location)
	case directiveIs(d, "КонецОбласти", "EndRegion"):
		ctx.Lexer.Iterator().ReadToLineEnd()
		if len(h.open) == 0 {
			ctx.addError(diagnostics.DirectiveExpected, d.Location, "#Область")
			return true
		}
		h.open = h.open[:len(h.open)-1]
	default:
		return false
	}
	return true
}

// Import is one library reference declared with #Использовать.
type Import struct {
	Name     string
	Position token.Position
}

// ImportHandler collects #Использовать directives. They are only allowed
// before the first line of code.
type ImportHandler struct {
	Imports []Import
}

func NewImportHandler() *ImportHandler {
	return &ImportHandler{}
}

func (h *ImportHandler) OnModuleEnter() {
	h.Imports = nil
}

func (h *ImportHandler) OnModuleLeave(*DirectiveContext) {}

func (h *ImportHandler) HandleDirective(ctx *DirectiveContext, d token.Lexem) bool {
	if !directiveIs(d, "Использовать", "Use") {
		return false
	}
	name := strings.TrimSpace(ctx.Lexer.Iterator().ReadToLineEnd())
	name = strings.Trim(name, `"`)
	if ctx.CodeStarted {
		ctx.addError(diagnostics.MisplacedImportDirective, d.Location)
		return true
	}
	if name == "" {
		ctx.addError(diagnostics.IdentifierExpected, d.Location)
		return true
	}
	h.Imports = append(h.Imports, Import{Name: name, Position: d.Location})
	return true
}

// DefaultHandlers returns the handler chain used for script modules.
func DefaultHandlers(defines []string) []DirectiveHandler {
	return []DirectiveHandler{
		NewConditionalCompilationHandler(defines),
		NewRegionHandler(),
		NewImportHandler(),
	}
}
