package vm

import (
	"bytes"
	"strings"
	"testing"

	"github.com/funvibe/oscript/internal/sources"
)

const debugFile = "debug.os"

func newDebugMachine(t *testing.T) (*Machine, *Debugger) {
	t.Helper()
	m, _ := newTestMachine(t)
	dbg := NewDebugger()
	dbg.Enabled = true
	m.SetDebugger(dbg)
	return m, dbg
}

func runDebugged(t *testing.T, m *Machine, code string) {
	t.Helper()
	if _, err := m.Run(sources.FromString(debugFile, code)); err != nil {
		t.Fatalf("script failed: %v", err)
	}
}

func TestDebuggerBreakpoints(t *testing.T) {
	m, dbg := newDebugMachine(t)
	dbg.SetBreakpoint(debugFile, 3)

	var stops []int
	dbg.OnStop = func(d *Debugger, m *Machine) {
		_, line := d.GetCurrentLocation(m)
		stops = append(stops, line)
		d.Continue()
	}

	runDebugged(t, m, "Х = 10;\nУ = 20;\nИтог = Х + У;\n")

	if len(stops) != 1 || stops[0] != 3 {
		t.Errorf("stops = %v, want [3]", stops)
	}
}

func TestDebuggerBreakpointInLoop(t *testing.T) {
	m, dbg := newDebugMachine(t)
	dbg.SetBreakpoint(debugFile, 2)

	hits := 0
	dbg.OnStop = func(d *Debugger, m *Machine) {
		hits++
		d.Continue()
	}

	runDebugged(t, m, "Для Сч = 1 По 3 Цикл\nА = Сч;\nКонецЦикла;\n")

	if hits == 0 {
		t.Fatal("breakpoint in loop body was not hit")
	}
}

func TestDebuggerStep(t *testing.T) {
	m, dbg := newDebugMachine(t)
	dbg.SetBreakpoint(debugFile, 1)

	var stops []int
	dbg.OnStop = func(d *Debugger, m *Machine) {
		_, line := d.GetCurrentLocation(m)
		stops = append(stops, line)
		d.Step()
	}

	runDebugged(t, m, "А = 1;\nБ = 2;\nВ = 3;\n")

	want := []int{1, 2, 3}
	if len(stops) != len(want) {
		t.Fatalf("stops = %v, want %v", stops, want)
	}
	for i := range want {
		if stops[i] != want[i] {
			t.Errorf("stop %d at line %d, want %d", i, stops[i], want[i])
		}
	}
}

const callProgram = `Процедура П(Знач Параметр)
	Локальная = Параметр * 2;
КонецПроцедуры
П(21);
Б = 2;
`

func TestDebuggerStepOver(t *testing.T) {
	m, dbg := newDebugMachine(t)
	dbg.SetBreakpoint(debugFile, 4)

	var stops []int
	dbg.OnStop = func(d *Debugger, m *Machine) {
		_, line := d.GetCurrentLocation(m)
		stops = append(stops, line)
		if len(stops) == 1 {
			d.StepOver(m)
			return
		}
		d.Continue()
	}

	runDebugged(t, m, callProgram)

	if len(stops) != 2 || stops[1] != 5 {
		t.Errorf("stops = %v, want [4 5]", stops)
	}
}

func TestDebuggerStepIntoAndOut(t *testing.T) {
	m, dbg := newDebugMachine(t)
	dbg.SetBreakpoint(debugFile, 4)

	var methods []string
	var stops []int
	dbg.OnStop = func(d *Debugger, m *Machine) {
		_, line := d.GetCurrentLocation(m)
		stops = append(stops, line)
		methods = append(methods, d.GetCallStack(m)[0].MethodName)
		switch len(stops) {
		case 1:
			d.Step()
		case 2:
			d.StepOut(m)
		default:
			d.Continue()
		}
	}

	runDebugged(t, m, callProgram)

	if len(methods) < 3 {
		t.Fatalf("stops = %v (%v)", stops, methods)
	}
	if methods[1] != "П" {
		t.Errorf("step did not enter the procedure: %v", methods)
	}
	if methods[2] == "П" || stops[2] != 5 {
		t.Errorf("step out stopped at %d in %s", stops[2], methods[2])
	}
}

func TestDebuggerInspectFrame(t *testing.T) {
	m, dbg := newDebugMachine(t)
	dbg.SetBreakpoint(debugFile, 3)

	program := `Процедура П(Знач Параметр)
	Локальная = Параметр * 2;
	Сообщить(Локальная);
КонецПроцедуры
П(21);
`
	stopped := false
	dbg.OnStop = func(d *Debugger, m *Machine) {
		stopped = true
		defer d.Continue()

		locals := map[string]string{}
		for _, v := range d.GetLocals(m) {
			locals[v.Name] = v.Value.String()
		}
		if locals["Параметр"] != "21" || locals["Локальная"] != "42" {
			t.Errorf("locals = %v", locals)
		}

		stack := d.GetCallStack(m)
		if len(stack) != 2 {
			t.Fatalf("call stack depth = %d, want 2", len(stack))
		}
		if stack[0].MethodName != "П" || stack[0].LineNumber != 3 {
			t.Errorf("top frame = %s:%d", stack[0].MethodName, stack[0].LineNumber)
		}
		if stack[1].LineNumber != 5 {
			t.Errorf("caller line = %d, want 5", stack[1].LineNumber)
		}

		v, err := d.Evaluate(m, "Локальная + Параметр")
		if err != nil {
			t.Fatalf("evaluate: %v", err)
		}
		if v.String() != "63" {
			t.Errorf("evaluate = %s, want 63", v)
		}

		if err := d.SelectFrame(m, 1); err != nil {
			t.Fatal(err)
		}
		if _, err := d.Evaluate(m, "Локальная"); err == nil {
			t.Error("caller frame must not see the callee locals")
		}
		if err := d.SelectFrame(m, 5); !IsWrongStackFrame(err) {
			t.Errorf("SelectFrame(5) = %v", err)
		}
	}

	runDebugged(t, m, program)
	if !stopped {
		t.Fatal("breakpoint was not hit")
	}
}

func TestDebuggerBreakpointManagement(t *testing.T) {
	dbg := NewDebugger()
	dbg.SetBreakpoint("b.os", 5)
	dbg.SetBreakpoint("a.os", 10)
	dbg.SetBreakpoint("a.os", 2)
	dbg.SetBreakpoint("a.os", 2)

	bps := dbg.GetBreakpoints()
	if len(bps) != 3 {
		t.Fatalf("got %d breakpoints, want 3", len(bps))
	}
	if !strings.HasSuffix(bps[0].File, "a.os") || bps[0].Line != 2 || bps[1].Line != 10 {
		t.Errorf("breakpoints are not ordered: %+v %+v", bps[0], bps[1])
	}

	dbg.RemoveBreakpoint("a.os", 10)
	if n := len(dbg.GetBreakpoints()); n != 2 {
		t.Errorf("after remove: %d breakpoints", n)
	}
	dbg.ClearBreakpoints()
	if n := len(dbg.GetBreakpoints()); n != 0 {
		t.Errorf("after clear: %d breakpoints", n)
	}

	dbg.SetBreakpoint("<string>", 1)
	if bps := dbg.GetBreakpoints(); bps[0].File != "<string>" {
		t.Errorf("in-memory name was rewritten: %q", bps[0].File)
	}
}

func TestDebuggerDoesNotStopInEvaluate(t *testing.T) {
	m, dbg := newDebugMachine(t)
	dbg.Step()

	stops := 0
	dbg.OnStop = func(d *Debugger, m *Machine) {
		stops++
		d.Step()
	}

	if _, err := m.Evaluate("1 + 1"); err != nil {
		t.Fatal(err)
	}
	if stops != 0 {
		t.Errorf("debugger stopped %d times inside Evaluate", stops)
	}
}

func TestDebuggerCLI(t *testing.T) {
	m, dbg := newDebugMachine(t)
	dbg.SetBreakpoint(debugFile, 2)

	var out bytes.Buffer
	cli := NewDebuggerCLI(dbg)
	cli.SetInput(strings.NewReader(strings.Join([]string{
		"locals",
		"print Параметр * 2",
		"exec Параметр = 100",
		"print Параметр",
		"bt",
		"list",
		"bogus",
		"continue",
	}, "\n") + "\n"))
	cli.SetOutput(&out)
	cli.Run()

	runDebugged(t, m, callProgram)

	text := out.String()
	for _, want := range []string{
		"Stopped at",
		"Параметр = 21 (Число)",
		"42 (Число)",
		"100 (Число)",
		"Call stack:",
		"Breakpoints:",
		"Unknown command: bogus",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("output lacks %q:\n%s", want, text)
		}
	}
}

func TestDebuggerCLIQuit(t *testing.T) {
	m, dbg := newDebugMachine(t)
	dbg.SetBreakpoint(debugFile, 1)

	var out bytes.Buffer
	cli := NewDebuggerCLI(dbg)
	cli.SetInput(strings.NewReader("quit\n"))
	cli.SetOutput(&out)
	cli.Run()

	_, err := m.Run(sources.FromString(debugFile, "А = 1;\nПока Истина Цикл\nКонецЦикла;\n"))
	if err == nil {
		t.Fatal("quit must stop the script")
	}
	if dbg.Enabled {
		t.Error("debugger is still enabled after quit")
	}
}

func TestDebuggerHelp(t *testing.T) {
	var out bytes.Buffer
	cli := NewDebuggerCLI(NewDebugger())
	cli.SetOutput(&out)
	cli.PrintHelp()
	for _, cmd := range []string{"continue", "step", "break", "print", "exec"} {
		if !strings.Contains(out.String(), cmd) {
			t.Errorf("help lacks %q", cmd)
		}
	}
}
