package parser

import (
	"errors"

	"github.com/funvibe/oscript/internal/lexer"
	"github.com/funvibe/oscript/internal/pipeline"
)

var errNoTokenStream = errors.New("parser: token stream is nil")

// ParserProcessor parses the token stream of the context into a module
// tree and records the imports the preprocessor has seen.
type ParserProcessor struct{}

func (pp *ParserProcessor) Name() string { return "parser" }

func (pp *ParserProcessor) Process(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
	if ctx.Image != nil || ctx.HasErrors() {
		return ctx
	}
	src, ok := ctx.TokenStream.(lexer.LexemSource)
	if !ok {
		ctx.AddError(errNoTokenStream)
		return ctx
	}

	p := New(src, ctx.Diagnostics)
	ctx.Root = p.ParseStatefulModule()
	ctx.Tree = p.Tree()

	if pre, ok := src.(*lexer.PreprocessingLexer); ok {
		for _, imp := range pre.Imports() {
			ctx.Imports = append(ctx.Imports, imp.Name)
		}
	}
	return ctx
}
