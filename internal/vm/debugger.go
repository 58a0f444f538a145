package vm

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/funvibe/oscript/internal/values"
)

// DebuggerMode represents the current debugging mode
type DebuggerMode int

const (
	// ModeRun - normal execution, stop on breakpoints only
	ModeRun DebuggerMode = iota
	// ModeStep - stop on every line, entering calls
	ModeStep
	// ModeStepOver - stop on the next line of the same method
	ModeStepOver
	// ModeStepOut - stop after the current method returns
	ModeStepOut
	// ModeContinue - continue until next breakpoint
	ModeContinue
)

// Breakpoint is a source line the machine stops at.
type Breakpoint struct {
	File string
	Line int
}

// Debugger decides where a machine stops and shows its state. It is
// driven from the goroutine that runs the machine: OnStop is called on
// that goroutine and execution resumes when it returns.
type Debugger struct {
	Enabled bool

	mode DebuggerMode

	// file -> line -> Breakpoint
	breakpoints map[string]map[int]*Breakpoint

	stepOverFrameDepth int
	stepOverFile       string
	stepOverLine       int

	stepOutFrameDepth int

	Input  io.Reader
	Output io.Writer

	// OnStop is called when the machine stops
	OnStop func(*Debugger, *Machine)

	// Last stopped location (for step commands)
	lastFile string
	lastLine int

	// Last breakpoint hit, so Continue does not stop on it again at once
	lastBreakpointFile string
	lastBreakpointLine int

	// frame selected by the "frame" command, 0 being the innermost
	selectedFrame int
}

func NewDebugger() *Debugger {
	return &Debugger{
		mode:        ModeRun,
		breakpoints: make(map[string]map[int]*Breakpoint),
		Output:      io.Discard,
	}
}

// SetDebugger attaches d to the machine; nil detaches it.
func (m *Machine) SetDebugger(d *Debugger) {
	m.debugger = d
}

func (m *Machine) Debugger() *Debugger {
	return m.debugger
}

// SetBreakpoint sets a breakpoint at the given file and line
func (d *Debugger) SetBreakpoint(file string, line int) *Breakpoint {
	file = normalizePath(file)
	if d.breakpoints[file] == nil {
		d.breakpoints[file] = make(map[int]*Breakpoint)
	}
	bp := &Breakpoint{File: file, Line: line}
	d.breakpoints[file][line] = bp
	return bp
}

func (d *Debugger) RemoveBreakpoint(file string, line int) {
	file = normalizePath(file)
	if d.breakpoints[file] != nil {
		delete(d.breakpoints[file], line)
		if len(d.breakpoints[file]) == 0 {
			delete(d.breakpoints, file)
		}
	}
}

func (d *Debugger) ClearBreakpoints() {
	d.breakpoints = make(map[string]map[int]*Breakpoint)
}

// GetBreakpoints returns all breakpoints ordered by file and line.
func (d *Debugger) GetBreakpoints() []*Breakpoint {
	var result []*Breakpoint
	for _, lineMap := range d.breakpoints {
		for _, bp := range lineMap {
			result = append(result, bp)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].File != result[j].File {
			return result[i].File < result[j].File
		}
		return result[i].Line < result[j].Line
	})
	return result
}

// normalizePath makes file paths comparable. In-memory module names such
// as <string> are left alone.
func normalizePath(path string) string {
	if path == "" || strings.HasPrefix(path, "<") {
		return path
	}
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}

// frameFile is the location breakpoints of f are matched against.
func frameFile(f *ExecutionFrame) string {
	if src := f.Module.Source; src != nil && src.Location != "" {
		return src.Location
	}
	return f.Module.Name
}

func (d *Debugger) hasBreakpoint(file string, line int) bool {
	lineMap := d.breakpoints[file]
	return lineMap != nil && lineMap[line] != nil
}

// ShouldBreak checks if execution should stop at the line the current
// frame has just entered.
func (d *Debugger) ShouldBreak(m *Machine) bool {
	if !d.Enabled || m.frame == nil {
		return false
	}
	file := normalizePath(frameFile(m.frame))
	line := m.frame.LineNumber
	if line <= 0 {
		return false
	}
	depth := len(m.frames)

	if d.lastFile != "" && (d.lastFile != file || d.lastLine != line) {
		d.lastFile = ""
		d.lastLine = 0
	}

	switch d.mode {
	case ModeStep:
		if d.lastFile == file && d.lastLine == line {
			return false
		}
		d.lastFile = file
		d.lastLine = line
		return true

	case ModeStepOver:
		if depth < d.stepOverFrameDepth {
			d.mode = ModeRun
			d.lastFile, d.lastLine = file, line
			return true
		}
		if depth == d.stepOverFrameDepth && (d.stepOverFile != file || d.stepOverLine != line) {
			d.mode = ModeRun
			d.lastFile, d.lastLine = file, line
			return true
		}
		return d.hitBreakpoint(file, line)

	case ModeStepOut:
		if depth < d.stepOutFrameDepth {
			d.mode = ModeRun
			d.lastFile, d.lastLine = file, line
			return true
		}
		return d.hitBreakpoint(file, line)

	case ModeContinue, ModeRun:
		return d.hitBreakpoint(file, line)
	}
	return false
}

func (d *Debugger) hitBreakpoint(file string, line int) bool {
	if d.hasBreakpoint(file, line) {
		if d.lastBreakpointFile == file && d.lastBreakpointLine == line {
			return false
		}
		if d.lastFile == file && d.lastLine == line {
			return false
		}
		d.lastBreakpointFile, d.lastBreakpointLine = file, line
		d.lastFile, d.lastLine = file, line
		return true
	}
	if d.lastBreakpointFile != "" && (d.lastBreakpointFile != file || d.lastBreakpointLine != line) {
		d.lastBreakpointFile = ""
		d.lastBreakpointLine = 0
	}
	return false
}

// suspend hands control to OnStop.
func (d *Debugger) suspend(m *Machine) {
	d.selectedFrame = 0
	m.logger.Debug().Str("file", frameFile(m.frame)).Int("line", m.frame.LineNumber).Msg("debugger stop")
	if d.OnStop != nil {
		d.OnStop(d, m)
	}
}

func (d *Debugger) Mode() DebuggerMode { return d.mode }

// Step sets debugger to step mode
func (d *Debugger) Step() {
	d.mode = ModeStep
	d.stepOverFrameDepth = 0
	d.stepOutFrameDepth = 0
}

// StepOver stops at the next line of the current method or of a caller.
func (d *Debugger) StepOver(m *Machine) {
	d.mode = ModeStepOver
	if m != nil && m.frame != nil {
		d.stepOverFrameDepth = len(m.frames)
		d.stepOverFile = normalizePath(frameFile(m.frame))
		d.stepOverLine = m.frame.LineNumber
	}
	d.stepOutFrameDepth = 0
}

// StepOut stops once the current method has returned.
func (d *Debugger) StepOut(m *Machine) {
	d.mode = ModeStepOut
	if m != nil {
		d.stepOutFrameDepth = len(m.frames)
	}
	d.stepOverFrameDepth = 0
}

// Continue sets debugger to continue mode (run until breakpoint)
func (d *Debugger) Continue() {
	d.mode = ModeContinue
	d.stepOverFrameDepth = 0
	d.stepOutFrameDepth = 0
}

// Run sets debugger to run mode
func (d *Debugger) Run() {
	d.mode = ModeRun
	d.stepOverFrameDepth = 0
	d.stepOutFrameDepth = 0
}

// GetCurrentLocation returns the current file and line
func (d *Debugger) GetCurrentLocation(m *Machine) (file string, line int) {
	if m.frame == nil {
		return "", 0
	}
	return frameFile(m.frame), m.frame.LineNumber
}

// GetCallStack returns the call stack, innermost first.
func (d *Debugger) GetCallStack(m *Machine) []FrameInfo {
	return m.ExecutionFrames()
}

// SelectFrame makes frame index the one print and locals work on.
func (d *Debugger) SelectFrame(m *Machine, index int) error {
	if index < 0 || index >= len(m.frames) {
		return fmt.Errorf("%w: %d", ErrWrongStackFrame, index)
	}
	d.selectedFrame = index
	return nil
}

// GetLocals returns the locals of the selected frame.
func (d *Debugger) GetLocals(m *Machine) []NamedValue {
	locals, _ := m.FrameLocals(d.selectedFrame)
	return locals
}

// GetModuleVariables returns the variables of the object the selected
// frame runs on.
func (d *Debugger) GetModuleVariables(m *Machine) []NamedValue {
	vars, _ := m.FrameModuleVariables(d.selectedFrame)
	return vars
}

// Evaluate computes an expression in the selected frame.
func (d *Debugger) Evaluate(m *Machine, expr string) (values.Value, error) {
	return m.EvaluateInFrame(expr, d.selectedFrame)
}

// GetStack returns the operand stack, bottom first.
func (d *Debugger) GetStack(m *Machine) []values.Value {
	return append([]values.Value(nil), m.stack...)
}

// FormatLocation formats a file:line location string
// Prefers relative paths for display (for readability)
func (d *Debugger) FormatLocation(file string, line int) string {
	displayFile := file
	if wd, err := os.Getwd(); err == nil && !strings.HasPrefix(file, "<") {
		if abs, err := filepath.Abs(file); err == nil {
			if rel, err := filepath.Rel(wd, abs); err == nil && !strings.HasPrefix(rel, "..") {
				displayFile = rel
			} else {
				displayFile = abs
			}
		}
	}
	if line > 0 {
		return fmt.Sprintf("%s:%d", displayFile, line)
	}
	return displayFile
}

// PrintLocation prints the current location with its source line.
func (d *Debugger) PrintLocation(m *Machine) {
	file, line := d.GetCurrentLocation(m)
	fmt.Fprintf(d.Output, "Stopped at %s\n", d.FormatLocation(file, line))
	if src := m.frame.Module.SourceLine(line); src != "" {
		fmt.Fprintf(d.Output, "%5d  %s\n", line, strings.TrimRight(src, "\r"))
	}
}

// PrintCallStack prints the call stack
func (d *Debugger) PrintCallStack(m *Machine) {
	stack := d.GetCallStack(m)
	fmt.Fprintf(d.Output, "Call stack:\n")
	for i, frame := range stack {
		marker := " "
		if i == d.selectedFrame {
			marker = "*"
		}
		file := frame.Source
		if file == "" {
			file = frame.ModuleName
		}
		fmt.Fprintf(d.Output, "%s %d. %s at %s\n", marker, i, frame.MethodName, d.FormatLocation(file, frame.LineNumber))
	}
}

func (d *Debugger) printVariables(title, empty string, vars []NamedValue) {
	if len(vars) == 0 {
		fmt.Fprintln(d.Output, empty)
		return
	}
	fmt.Fprintln(d.Output, title)
	for _, v := range vars {
		fmt.Fprintf(d.Output, "  %s = %s\n", v.Name, presentation(v.Value))
	}
}

// PrintLocals prints local variables
func (d *Debugger) PrintLocals(m *Machine) {
	d.printVariables("Local variables:", "No local variables in current scope.", d.GetLocals(m))
}

// PrintModuleVariables prints the variables of the current object.
func (d *Debugger) PrintModuleVariables(m *Machine) {
	d.printVariables("Module variables:", "No module variables.", d.GetModuleVariables(m))
}

// PrintStack prints the stack
func (d *Debugger) PrintStack(m *Machine) {
	stack := d.GetStack(m)
	fmt.Fprintf(d.Output, "Stack (top to bottom):\n")
	for i := len(stack) - 1; i >= 0; i-- {
		fmt.Fprintf(d.Output, "  [%d] %s\n", i, presentation(stack[i]))
	}
}

// presentation shows a value with its type, quoting strings.
func presentation(v values.Value) string {
	raw := values.Raw(v)
	switch raw.DataType() {
	case values.TypeString:
		return fmt.Sprintf("%q", raw.String())
	case values.TypeUndefined:
		return "Неопределено"
	case values.TypeNull:
		return "NULL"
	case values.TypeObject:
		return fmt.Sprintf("<%s>", raw.TypeName())
	}
	return fmt.Sprintf("%s (%s)", raw.String(), raw.TypeName())
}
