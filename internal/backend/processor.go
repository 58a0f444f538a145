package backend

import (
	"errors"
	"fmt"
	"strings"

	"github.com/funvibe/oscript/internal/pipeline"
	"github.com/funvibe/oscript/internal/values"
)

// ExecutionProcessor implements pipeline.Processor to run a Backend
type ExecutionProcessor struct {
	Backend Backend
}

// NewExecutionProcessor creates a new pipeline step for the given backend
func NewExecutionProcessor(b Backend) *ExecutionProcessor {
	return &ExecutionProcessor{Backend: b}
}

func (p *ExecutionProcessor) Name() string { return "execute:" + p.Backend.Name() }

func (p *ExecutionProcessor) Process(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
	// If previous steps failed, don't run execution
	if ctx.Image == nil || ctx.HasErrors() {
		return ctx
	}

	result, err := p.Backend.Run(ctx)
	if err != nil {
		ctx.AddError(err)
		return ctx
	}
	ctx.Result = result
	return ctx
}

// FormatError renders an error for the terminal. Runtime errors get the
// call stack the exception was raised with.
func FormatError(err error) string {
	var re *values.RuntimeError
	if !errors.As(err, &re) || len(re.CallStack) == 0 {
		return err.Error()
	}

	var b strings.Builder
	b.WriteString(err.Error())
	b.WriteString("\nStack trace:")
	for _, frame := range re.CallStack {
		fmt.Fprintf(&b, "\n  at %s:%d (%s)", frame.Module, frame.Line, frame.Method)
	}
	return b.String()
}
