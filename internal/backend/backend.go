// Package backend provides an interface for execution backends. The stack
// machine is the only one today; the pipeline does not depend on it.
package backend

import (
	"github.com/funvibe/oscript/internal/pipeline"
	"github.com/funvibe/oscript/internal/values"
)

// Backend is the interface for execution backends
type Backend interface {
	// Run executes the compiled module of the pipeline context and returns
	// the script object it produced
	Run(ctx *pipeline.PipelineContext) (values.Value, error)

	// Name returns the backend name for display
	Name() string
}
