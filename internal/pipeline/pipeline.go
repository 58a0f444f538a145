package pipeline

import (
	"time"
)

// Processor is one stage of the pipeline.
type Processor interface {
	Process(ctx *PipelineContext) *PipelineContext
}

// Pipeline represents a sequence of processing stages.
type Pipeline struct {
	processors []Processor
}

func New(processors ...Processor) *Pipeline {
	return &Pipeline{processors: processors}
}

// Run executes the pipeline.
func (p *Pipeline) Run(initialCtx *PipelineContext) *PipelineContext {
	ctx := initialCtx
	for _, processor := range p.processors {
		start := time.Now()
		ctx = processor.Process(ctx)
		ctx.Logger.Debug().
			Str("stage", stageName(processor)).
			Dur("elapsed", time.Since(start)).
			Bool("errors", ctx.HasErrors()).
			Msg("stage done")
		// Stages skip their work once an earlier one failed, so every
		// stage still runs and diagnostics are collected in one pass.
	}
	return ctx
}

// Named lets a processor report its stage name in the log.
type Named interface {
	Name() string
}

func stageName(p Processor) string {
	if n, ok := p.(Named); ok {
		return n.Name()
	}
	return "stage"
}
