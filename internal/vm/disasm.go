package vm

import (
	"fmt"
	"strings"
)

// Disassemble returns a human-readable listing of a module image: its
// constants, variables and methods, then the code with operands resolved.
func Disassemble(img *ModuleImage) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "== %s ==\n", img.ModuleInfo.ModuleName)
	if len(img.ModuleInfo.Imports) > 0 {
		fmt.Fprintf(&sb, "imports: %s\n", strings.Join(img.ModuleInfo.Imports, ", "))
	}

	if len(img.Constants) > 0 {
		sb.WriteString("constants:\n")
		for i, c := range img.Constants {
			fmt.Fprintf(&sb, "  %4d %-10s %q\n", i, c.Type, c.Presentation)
		}
	}
	if len(img.Variables) > 0 {
		sb.WriteString("variables:\n")
		for i, v := range img.Variables {
			fmt.Fprintf(&sb, "  %4d %s%s\n", i, v.Name, exportMark(v.IsExport))
		}
	}

	entries := make(map[int]int, len(img.Methods))
	sb.WriteString("methods:\n")
	for i, m := range img.Methods {
		entries[m.EntryPoint] = i
		sig := m.Signature
		kind := "Процедура"
		if sig.IsFunction {
			kind = "Функция"
		}
		params := make([]string, len(sig.Params))
		for j, p := range sig.Params {
			params[j] = p.Name
			if p.ByValue {
				params[j] = "Знач " + p.Name
			}
			if p.HasDefault {
				params[j] += " ="
			}
		}
		fmt.Fprintf(&sb, "  %4d %s %s(%s)%s @%04d locals=%d\n",
			i, kind, sig.Name, strings.Join(params, ", "), exportMark(sig.IsExport), m.EntryPoint, len(m.LocalVariables))
	}
	if img.HasEntry() {
		fmt.Fprintf(&sb, "entry: %d\n", img.EntryMethodIndex)
	}

	sb.WriteString("code:\n")
	for addr, cmd := range img.Code {
		if n, ok := entries[addr]; ok {
			fmt.Fprintf(&sb, "%s:\n", img.Methods[n].Signature.Name)
		}
		fmt.Fprintf(&sb, "%04d %-20s %s\n", addr, cmd.Op, operand(img, cmd))
	}
	return sb.String()
}

// DisassembleCommand renders one command, as the trace log shows it.
func DisassembleCommand(img *ModuleImage, addr int) string {
	cmd := img.Code[addr]
	return strings.TrimSpace(fmt.Sprintf("%04d %-20s %s", addr, cmd.Op, operand(img, cmd)))
}

func exportMark(export bool) string {
	if export {
		return " Экспорт"
	}
	return ""
}

// operand explains the argument of cmd.
func operand(img *ModuleImage, cmd Command) string {
	arg := cmd.Arg
	switch cmd.Op {
	case OP_PUSH_CONST, OP_RESOLVE_PROP, OP_RESOLVE_METHOD_FUNC, OP_RESOLVE_METHOD_PROC:
		if arg >= 0 && arg < len(img.Constants) {
			return fmt.Sprintf("%d ; %q", arg, img.Constants[arg].Presentation)
		}
	case OP_PUSH_VAR, OP_PUSH_REF, OP_LOAD_VAR:
		if arg >= 0 && arg < len(img.VariableRefs) {
			b := img.VariableRefs[arg]
			return fmt.Sprintf("%d ; scope %d var %d", arg, b.ScopeNumber, b.MemberNumber)
		}
	case OP_CALL_FUNC, OP_CALL_PROC:
		if arg >= 0 && arg < len(img.MethodRefs) {
			b := img.MethodRefs[arg]
			return fmt.Sprintf("%d ; scope %d method %d", arg, b.ScopeNumber, b.MemberNumber)
		}
	case OP_JMP, OP_JMP_FALSE, OP_JMP_COUNTER, OP_AND, OP_OR, OP_BEGIN_TRY:
		return fmt.Sprintf("-> %04d", arg)
	case OP_END_TRY:
		if arg < 0 {
			return ""
		}
		return fmt.Sprintf("-> %04d", arg)
	case OP_LINE_NUM:
		return fmt.Sprintf("line %d", arg)
	case OP_PUSH_LOC, OP_LOAD_LOC:
		return fmt.Sprintf("%d", arg)
	}
	if cmd.Arg != 0 {
		return fmt.Sprintf("%d", arg)
	}
	return ""
}
