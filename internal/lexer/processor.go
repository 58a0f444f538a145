package lexer

import (
	"errors"

	"github.com/funvibe/oscript/internal/pipeline"
)

var errNoSource = errors.New("lexer: no source")

// LexerProcessor sets up the preprocessing lexer the parser reads from.
// It does nothing when an image was already found in the cache.
type LexerProcessor struct{}

func (lp *LexerProcessor) Name() string { return "lexer" }

func (lp *LexerProcessor) Process(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
	if ctx.Image != nil || ctx.HasErrors() {
		return ctx
	}
	if ctx.Source == nil {
		ctx.AddError(errNoSource)
		return ctx
	}
	lx := New(ctx.Source.Text, ctx.Diagnostics)
	ctx.TokenStream = NewPreprocessingLexer(lx, DefaultHandlers(ctx.Defines)...)
	return ctx
}

// Imports returns the libraries a preprocessing lexer has seen in
// #Использовать directives so far.
func (p *PreprocessingLexer) Imports() []Import {
	for _, h := range p.handlers {
		if ih, ok := h.(*ImportHandler); ok {
			return ih.Imports
		}
	}
	return nil
}
