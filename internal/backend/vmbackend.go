package backend

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/funvibe/oscript/internal/config"
	"github.com/funvibe/oscript/internal/pipeline"
	"github.com/funvibe/oscript/internal/values"
	"github.com/funvibe/oscript/internal/vm"
)

// VMBackend executes module images on the stack machine.
type VMBackend struct {
	env       *vm.Env
	debugMode bool
	settings  config.MachineSettings
	logger    zerolog.Logger

	// debugger console streams, stdin and stdout by default
	DebugInput  io.Reader
	DebugOutput io.Writer

	machine *vm.Machine
}

// NewVM creates a new VM backend
func NewVM(env *vm.Env, debugMode ...bool) *VMBackend {
	debug := false
	if len(debugMode) > 0 {
		debug = debugMode[0]
	}
	return &VMBackend{
		env:         env,
		debugMode:   debug,
		logger:      zerolog.Nop(),
		DebugInput:  os.Stdin,
		DebugOutput: os.Stdout,
	}
}

func (b *VMBackend) Configure(s config.MachineSettings) { b.settings = s }
func (b *VMBackend) SetLogger(l zerolog.Logger)         { b.logger = l }

// Machine is the machine of the last Run, for statistics and inspection.
func (b *VMBackend) Machine() *vm.Machine { return b.machine }

// Run loads the image of the context and runs the module body.
func (b *VMBackend) Run(ctx *pipeline.PipelineContext) (values.Value, error) {
	img := ModuleImage(ctx)
	if img == nil {
		return nil, fmt.Errorf("no module image to run")
	}
	mod, err := vm.Load(img, ctx.Source)
	if err != nil {
		return nil, fmt.Errorf("loading module: %w", err)
	}

	machine := vm.New(b.env)
	machine.Configure(b.settings)
	machine.SetLogger(b.logger)
	machine.SetContext(ctx.Context)
	b.machine = machine

	// Enable debugger if debug mode is on
	if b.debugMode {
		debugger := vm.NewDebugger()
		debugger.Enabled = true
		cli := vm.NewDebuggerCLI(debugger)
		cli.SetInput(b.DebugInput)
		cli.SetOutput(b.DebugOutput)
		cli.Run() // sets up OnStop and prints the welcome message

		// Start in step mode to stop at first line
		// This allows user to set breakpoints before continuing
		debugger.Step()
		machine.SetDebugger(debugger)
	}

	obj, err := machine.Instantiate(mod)
	if err != nil {
		return nil, err
	}
	return obj, nil
}

// Name returns the backend name
func (b *VMBackend) Name() string {
	return "vm"
}

// Disassemble returns the listing of the compiled module for debugging
func (b *VMBackend) Disassemble(ctx *pipeline.PipelineContext) (string, error) {
	img := ModuleImage(ctx)
	if img == nil {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		return "", fmt.Errorf("no module image")
	}
	return vm.Disassemble(img), nil
}
