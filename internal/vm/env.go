package vm

import (
	"github.com/funvibe/oscript/internal/config"
	"github.com/funvibe/oscript/internal/environment"
)

// Env is the state shared by every machine of one engine: the type
// registry, the global contexts, the event subscriptions and the compiler.
// It is built once and read concurrently afterwards.
type Env struct {
	Types    *environment.TypeManager
	Globals  *environment.GlobalsManager
	Events   *EventProcessor
	Compiler *Frontend

	ExpressionCacheSize int
	CodeStat            bool
}

// NewEnv creates an environment over the given registries and registers
// the types the machine itself provides.
func NewEnv(types *environment.TypeManager, globals *environment.GlobalsManager) (*Env, error) {
	if types == nil {
		types = environment.NewTypeManager()
	}
	if globals == nil {
		globals = environment.NewGlobalsManager()
	}
	env := &Env{
		Types:               types,
		Globals:             globals,
		Events:              NewEventProcessor(),
		Compiler:            NewFrontend(globals),
		ExpressionCacheSize: config.DefaultExpressionCacheSize,
	}
	if !types.IsKnown(config.ErrorInfoTypeName) {
		if err := types.Register(config.ErrorInfoTypeName, config.ErrorInfoTypeAlias, newErrorInfo); err != nil {
			return nil, err
		}
	}
	return env, nil
}

// Configure applies the compiler and cache settings.
func (e *Env) Configure(s *config.Settings) {
	e.Compiler.SetDebugCode(s.Compiler.DebugCode)
	for _, d := range s.Preprocessor.Defines {
		e.Compiler.Define(d)
	}
	if s.Cache.Expressions > 0 {
		e.ExpressionCacheSize = s.Cache.Expressions
	}
	e.CodeStat = s.Compiler.CodeStat
}
