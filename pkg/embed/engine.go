// Package oscript embeds the script engine into Go programs: bind Go
// values and functions by name, load modules and call their exported
// methods.
package oscript

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/funvibe/oscript/internal/backend"
	"github.com/funvibe/oscript/internal/config"
	"github.com/funvibe/oscript/internal/diagnostics"
	"github.com/funvibe/oscript/internal/imagecache"
	"github.com/funvibe/oscript/internal/sources"
	"github.com/funvibe/oscript/internal/stdlib"
	"github.com/funvibe/oscript/internal/values"
	"github.com/funvibe/oscript/internal/vm"
)

// ErrEngineStarted is returned by Bind after the first module was compiled.
var ErrEngineStarted = errHostFrozen

// Engine runs scripts on one machine. It is not safe for concurrent use.
type Engine struct {
	env     *vm.Env
	machine *vm.Machine
	m       *Marshaller
	host    *hostGlobals

	out      io.Writer
	settings *config.Settings
	logger   zerolog.Logger
	ctx      context.Context

	cachePath string
	cache     *imagecache.Store

	attached bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithOutput sets where Сообщить writes. Defaults to os.Stdout.
func WithOutput(w io.Writer) Option {
	return func(e *Engine) { e.out = w }
}

// WithSettings applies compiler, machine and cache settings.
func WithSettings(s *config.Settings) Option {
	return func(e *Engine) { e.settings = s }
}

func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithContext sets a context whose cancellation interrupts running scripts.
func WithContext(ctx context.Context) Option {
	return func(e *Engine) { e.ctx = ctx }
}

// WithImageCache keeps compiled modules in the SQLite file at path.
func WithImageCache(path string) Option {
	return func(e *Engine) { e.cachePath = path }
}

// New creates an engine with the standard library registered.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{
		m:        NewMarshaller(),
		out:      os.Stdout,
		settings: config.Default(),
		logger:   zerolog.Nop(),
		ctx:      context.Background(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.settings.Locale != "" {
		diagnostics.SetLocale(e.settings.Locale)
	}
	if e.cachePath == "" {
		e.cachePath = e.settings.Cache.ImageDB
	}

	env, err := vm.NewEnv(nil, nil)
	if err != nil {
		return nil, err
	}
	env.Configure(e.settings)
	env.Compiler.SetLogger(e.logger)
	if err := stdlib.Register(env.Types, env.Globals, e.out); err != nil {
		return nil, fmt.Errorf("registering library: %w", err)
	}
	e.env = env
	e.host = newHostGlobals(e.m)

	if e.cachePath != "" {
		store, err := imagecache.Open(e.cachePath)
		if err != nil {
			return nil, err
		}
		store.SetLogger(e.logger)
		e.cache = store
	}

	e.machine = vm.New(env)
	e.machine.Configure(e.settings.Machine)
	e.machine.SetLogger(e.logger)
	e.machine.SetContext(e.ctx)
	return e, nil
}

// Bind makes val visible to scripts under name. Go functions become
// global methods; anything else becomes a global variable. Bind must be
// called before the first module is loaded.
func (e *Engine) Bind(name string, val any) error {
	if val == nil {
		return fmt.Errorf("cannot bind nil to %q", name)
	}
	return e.host.bind(name, val)
}

// Set changes the value of a bound variable.
func (e *Engine) Set(name string, val any) error {
	n, ok := e.host.FindProperty(name)
	if !ok {
		return values.PropertyNotFound(name)
	}
	v, err := e.m.ToValue(val)
	if err != nil {
		return err
	}
	return e.host.SetProperty(n, v)
}

// Get reads a bound variable, including changes made by scripts.
func (e *Engine) Get(name string) (any, error) {
	n, ok := e.host.FindProperty(name)
	if !ok {
		return nil, values.PropertyNotFound(name)
	}
	v, err := e.host.GetProperty(n)
	if err != nil {
		return nil, err
	}
	return e.m.FromValue(v, nil)
}

// attach publishes the bindings to the compiler once.
func (e *Engine) attach() {
	if e.attached {
		return
	}
	e.host.freeze()
	if e.host.PropertyCount() > 0 || e.host.MethodCount() > 0 {
		e.env.Globals.Attach(e.host)
	}
	e.attached = true
}

// LoadModule compiles code, creates an object of it and runs its body.
func (e *Engine) LoadModule(name, code string) (*Object, error) {
	return e.load(sources.FromString(name, code))
}

// LoadFile is LoadModule for a file on disk.
func (e *Engine) LoadFile(path string) (*Object, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	src, err := sources.FromFile(abs)
	if err != nil {
		return nil, err
	}
	return e.load(src)
}

func (e *Engine) load(src *sources.SourceCode) (*Object, error) {
	e.attach()
	ctx := backend.NewContext(src, e.env.Compiler)
	ctx.Context = e.ctx
	ctx.Logger = e.logger
	img, err := backend.Compile(ctx, e.env.Compiler, e.cache)
	if err != nil {
		return nil, err
	}
	mod, err := vm.Load(img, src)
	if err != nil {
		return nil, err
	}
	obj, err := e.machine.Instantiate(mod)
	if err != nil {
		return nil, err
	}
	return &Object{engine: e, script: obj}, nil
}

// Eval computes an expression against the global context.
func (e *Engine) Eval(expr string) (any, error) {
	e.attach()
	v, err := e.machine.Evaluate(expr)
	if err != nil {
		return nil, err
	}
	return e.m.FromValue(v, nil)
}

// Execute runs statements against the global context.
func (e *Engine) Execute(code string) error {
	e.attach()
	return e.machine.Execute(code)
}

// HandleEvent calls the script handlers subscribed to event of source.
func (e *Engine) HandleEvent(source any, event string, args ...any) error {
	src, err := e.m.ToValue(source)
	if err != nil {
		return err
	}
	vals, err := e.toValues(args)
	if err != nil {
		return err
	}
	return e.env.Events.HandleEvent(src, event, vals)
}

// Debugger enables and returns the debugger of the engine's machine.
func (e *Engine) Debugger() *vm.Debugger {
	if d := e.machine.Debugger(); d != nil {
		return d
	}
	d := vm.NewDebugger()
	d.Enabled = true
	e.machine.SetDebugger(d)
	return d
}

// CodeStat enables and returns the line hit counters.
func (e *Engine) CodeStat() *vm.CodeStat {
	return e.machine.EnableCodeStat()
}

// Stop interrupts the running script at the next line.
func (e *Engine) Stop() {
	e.machine.Stop()
}

func (e *Engine) Close() error {
	if e.cache != nil {
		return e.cache.Close()
	}
	return nil
}

func (e *Engine) toValues(args []any) ([]values.Value, error) {
	out := make([]values.Value, len(args))
	for i, a := range args {
		v, err := e.m.ToValue(a)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i+1, err)
		}
		out[i] = v
	}
	return out, nil
}

// Object is an instance of a loaded module.
type Object struct {
	engine *Engine
	script *vm.ScriptObject
}

var errNotExported = errors.New("no exported variable")

// Call calls an exported method. Procedures return nil.
func (o *Object) Call(method string, args ...any) (any, error) {
	vals, err := o.engine.toValues(args)
	if err != nil {
		return nil, err
	}
	res, err := o.engine.machine.CallByName(o.script, method, vals...)
	if err != nil {
		return nil, err
	}
	return o.engine.m.FromValue(res, nil)
}

// Get reads an exported module variable.
func (o *Object) Get(name string) (any, error) {
	n, ok := o.script.FindProperty(name)
	if !ok {
		return nil, fmt.Errorf("%w %q", errNotExported, name)
	}
	v, err := o.script.GetProperty(n)
	if err != nil {
		return nil, err
	}
	return o.engine.m.FromValue(v, nil)
}

// Set assigns an exported module variable.
func (o *Object) Set(name string, val any) error {
	n, ok := o.script.FindProperty(name)
	if !ok {
		return fmt.Errorf("%w %q", errNotExported, name)
	}
	v, err := o.engine.m.ToValue(val)
	if err != nil {
		return err
	}
	return o.script.SetProperty(n, v)
}
