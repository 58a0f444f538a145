package vm

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// DebuggerCLI provides a command-line interface for the debugger
type DebuggerCLI struct {
	debugger *Debugger
	scanner  *bufio.Scanner
	input    io.Reader
	output   io.Writer
	prompt   string
}

func NewDebuggerCLI(debugger *Debugger) *DebuggerCLI {
	return &DebuggerCLI{
		debugger: debugger,
		input:    os.Stdin,
		output:   os.Stdout,
		prompt:   "(oscript) ",
	}
}

func (cli *DebuggerCLI) SetInput(r io.Reader) {
	cli.input = r
	cli.scanner = bufio.NewScanner(r)
}

func (cli *DebuggerCLI) SetOutput(w io.Writer) {
	cli.output = w
}

// Run attaches the CLI to the debugger. The command loop starts at the
// first stop.
func (cli *DebuggerCLI) Run() {
	if cli.scanner == nil {
		cli.scanner = bufio.NewScanner(cli.input)
	}
	cli.debugger.Input = cli.input
	cli.debugger.Output = cli.output
	cli.debugger.OnStop = cli.onStop

	fmt.Fprintf(cli.output, "Debugger started. Type 'help' for commands.\n")
}

// onStop reads commands until one of them resumes execution.
func (cli *DebuggerCLI) onStop(dbg *Debugger, m *Machine) {
	dbg.PrintLocation(m)

	for {
		fmt.Fprint(cli.output, cli.prompt)
		if !cli.scanner.Scan() {
			if err := cli.scanner.Err(); err != nil {
				fmt.Fprintf(cli.output, "\nDebugger error: %v\n", err)
			} else {
				fmt.Fprintf(cli.output, "\nExiting debugger (EOF).\n")
			}
			dbg.Enabled = false
			dbg.Run()
			return
		}

		line := strings.TrimSpace(cli.scanner.Text())
		if line == "" {
			continue
		}
		cmd, rest, _ := strings.Cut(line, " ")
		rest = strings.TrimSpace(rest)

		switch cmd {
		case "help", "h":
			printHelp(cli.output)
		case "continue", "c":
			dbg.Continue()
			return
		case "step", "s":
			dbg.Step()
			return
		case "stepover", "so", "next", "n":
			dbg.StepOver(m)
			return
		case "stepout", "out", "finish", "fin":
			dbg.StepOut(m)
			return
		case "break", "b":
			cli.handleBreakpoint(rest, m, true)
		case "delete", "d":
			cli.handleBreakpoint(rest, m, false)
		case "list", "l":
			cli.handleListBreakpoints()
		case "locals", "vars":
			dbg.PrintLocals(m)
		case "module", "globals":
			dbg.PrintModuleVariables(m)
		case "stack":
			dbg.PrintStack(m)
		case "backtrace", "bt":
			dbg.PrintCallStack(m)
		case "frame", "f":
			cli.handleFrame(rest, m)
		case "print", "p":
			cli.handlePrint(rest, m)
		case "exec", "x":
			cli.handleExec(rest, m)
		case "quit", "q", "exit":
			dbg.Enabled = false
			dbg.Run()
			m.Stop()
			return
		default:
			fmt.Fprintf(cli.output, "Unknown command: %s. Type 'help' for help.\n", cmd)
		}
	}
}

// PrintHelp prints help information (exported for testing)
func (cli *DebuggerCLI) PrintHelp() {
	printHelp(cli.output)
}

func printHelp(output io.Writer) {
	help := `Debugger commands:
  help, h                  - Show this help
  continue, c              - Continue execution until next breakpoint
  step, s                  - Step to the next line, entering calls
  stepover, so, next, n    - Step over method calls
  stepout, out, finish     - Step out of current method
  break, b [file:]<line>   - Set breakpoint
  delete, d [file:]<line>  - Delete breakpoint
  list, l                  - List all breakpoints
  locals, vars             - Show local variables of the selected frame
  module, globals          - Show module variables of the selected frame
  stack                    - Show operand stack contents
  backtrace, bt            - Show call stack
  frame, f <n>             - Select frame n of the call stack
  print, p <expr>          - Evaluate an expression in the selected frame
  exec, x <statements>     - Execute statements in the current frame
  quit, q, exit            - Stop the script
`
	fmt.Fprint(output, help)
}

// parseLocation reads "file:line" or a bare line of the current module.
func parseLocation(arg string, m *Machine) (string, int, error) {
	file := ""
	lineText := arg
	if i := strings.LastIndex(arg, ":"); i >= 0 {
		file, lineText = arg[:i], arg[i+1:]
	} else if m != nil && m.frame != nil {
		file = frameFile(m.frame)
	}
	line, err := strconv.Atoi(lineText)
	if err != nil || line <= 0 {
		return "", 0, fmt.Errorf("invalid line number: %s", lineText)
	}
	if file == "" {
		return "", 0, fmt.Errorf("no file given")
	}
	return file, line, nil
}

func (cli *DebuggerCLI) handleBreakpoint(arg string, m *Machine, set bool) {
	if arg == "" {
		fmt.Fprintf(cli.output, "Usage: break [file:]<line>\n")
		return
	}
	file, line, err := parseLocation(arg, m)
	if err != nil {
		fmt.Fprintf(cli.output, "%v\n", err)
		return
	}
	if set {
		bp := cli.debugger.SetBreakpoint(file, line)
		fmt.Fprintf(cli.output, "Breakpoint set at %s\n", cli.debugger.FormatLocation(bp.File, bp.Line))
		return
	}
	cli.debugger.RemoveBreakpoint(file, line)
	fmt.Fprintf(cli.output, "Breakpoint removed at %s\n", cli.debugger.FormatLocation(file, line))
}

func (cli *DebuggerCLI) handleListBreakpoints() {
	bps := cli.debugger.GetBreakpoints()
	if len(bps) == 0 {
		fmt.Fprintf(cli.output, "No breakpoints set.\n")
		return
	}
	fmt.Fprintf(cli.output, "Breakpoints:\n")
	for i, bp := range bps {
		fmt.Fprintf(cli.output, "  %d. %s\n", i+1, cli.debugger.FormatLocation(bp.File, bp.Line))
	}
}

func (cli *DebuggerCLI) handleFrame(arg string, m *Machine) {
	n, err := strconv.Atoi(arg)
	if err != nil {
		fmt.Fprintf(cli.output, "Usage: frame <n>\n")
		return
	}
	if err := cli.debugger.SelectFrame(m, n); err != nil {
		fmt.Fprintf(cli.output, "%v\n", err)
		return
	}
	cli.debugger.PrintCallStack(m)
}

func (cli *DebuggerCLI) handlePrint(expr string, m *Machine) {
	if expr == "" {
		fmt.Fprintf(cli.output, "Usage: print <expression>\n")
		return
	}
	v, err := cli.debugger.Evaluate(m, expr)
	if err != nil {
		fmt.Fprintf(cli.output, "Evaluation error: %v\n", err)
		return
	}
	fmt.Fprintf(cli.output, "%s\n", presentation(v))
}

func (cli *DebuggerCLI) handleExec(code string, m *Machine) {
	if code == "" {
		fmt.Fprintf(cli.output, "Usage: exec <statements>\n")
		return
	}
	m.nested++
	err := m.Execute(code)
	m.nested--
	if err != nil {
		fmt.Fprintf(cli.output, "Execution error: %v\n", err)
	}
}
