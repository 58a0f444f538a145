// Package pipeline chains the stages that turn a source module into a
// running script: lexing, parsing, compiling and execution.
package pipeline

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/funvibe/oscript/internal/ast"
	"github.com/funvibe/oscript/internal/diagnostics"
	"github.com/funvibe/oscript/internal/sources"
	"github.com/funvibe/oscript/internal/token"
	"github.com/funvibe/oscript/internal/values"
)

// TokenStream is what the lexing stage hands to the parser.
type TokenStream interface {
	NextLexem() token.Lexem
}

// PipelineContext carries one module through the stages.
type PipelineContext struct {
	Source  *sources.SourceCode
	Defines []string
	Context context.Context
	Logger  zerolog.Logger

	TokenStream TokenStream
	Tree        *ast.Tree
	Root        ast.NodeID
	Imports     []string

	// CacheKey is set when the image cache is in use.
	CacheKey string
	// Image is the compiled *vm.ModuleImage.
	Image any
	// Result is what the backend returned.
	Result values.Value

	// Diagnostics collects compile-time errors of every stage.
	Diagnostics *diagnostics.ListErrorSink
	// Errors holds failures that are not code errors: I/O, runtime.
	Errors []error
}

func NewPipelineContext(src *sources.SourceCode) *PipelineContext {
	return &PipelineContext{
		Source:      src,
		Context:     context.Background(),
		Logger:      zerolog.Nop(),
		Root:        ast.NoNode,
		Diagnostics: diagnostics.NewListErrorSink(),
	}
}

func (c *PipelineContext) HasErrors() bool {
	return c.Diagnostics.HasErrors() || len(c.Errors) > 0
}

// AddError records a failure that stops the following stages.
func (c *PipelineContext) AddError(err error) {
	if err != nil {
		c.Errors = append(c.Errors, err)
	}
}

// Err combines everything that went wrong into one error: the code errors
// as a *diagnostics.CompilationError, followed by the other failures.
func (c *PipelineContext) Err() error {
	var errs []error
	if c.Diagnostics.HasErrors() {
		name := ""
		if c.Source != nil {
			name = c.Source.Name
			for _, e := range c.Diagnostics.Errors() {
				if e.SourceLine == "" && e.Position.IsValid() {
					e.SourceLine = c.Source.Line(e.Position.Line)
				}
			}
		}
		errs = append(errs, diagnostics.AsError(c.Diagnostics, name))
	}
	errs = append(errs, c.Errors...)
	switch len(errs) {
	case 0:
		return nil
	case 1:
		return errs[0]
	}
	return errors.Join(errs...)
}
