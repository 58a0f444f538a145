package ast

import (
	"fmt"
	"strings"

	"github.com/funvibe/oscript/internal/token"
)

// Sexp renders a subtree on one line, e.g. (+ 2 (* 2 3)).
// Operators print as their symbol, leaves as their content.
func Sexp(t *Tree, id NodeID) string {
	var sb strings.Builder
	writeSexp(&sb, t, id)
	return sb.String()
}

func writeSexp(sb *strings.Builder, t *Tree, id NodeID) {
	if id == NoNode {
		sb.WriteString("nil")
		return
	}
	n := t.Node(id)
	switch n.Kind {
	case KindConstant:
		if n.Lexem.Type == token.StringLiteral {
			fmt.Fprintf(sb, "%q", n.Lexem.Content)
		} else {
			sb.WriteString(n.Lexem.Content)
		}
		return
	case KindIdentifier:
		sb.WriteString(n.Lexem.Content)
		return
	}

	sb.WriteString("(")
	switch n.Kind {
	case KindBinaryOperation, KindUnaryOperation:
		sb.WriteString(n.Lexem.Token.String())
	case KindGlobalCall, KindMethodCall:
		sb.WriteString("call " + n.Lexem.Content)
	case KindNewObject:
		if n.Flags.Has(FlagDynamic) {
			sb.WriteString("new")
		} else {
			sb.WriteString("new " + n.Lexem.Content)
		}
	case KindDereference:
		sb.WriteString(".")
	case KindIndexAccess:
		sb.WriteString("[]")
	case KindTernary:
		sb.WriteString("?")
	default:
		sb.WriteString(n.Kind.String())
	}
	for _, c := range n.Children {
		if t.Kind(c) == KindCallArgumentList {
			for _, arg := range t.Children(c) {
				sb.WriteString(" ")
				writeSexp(sb, t, t.Child(arg, 0))
			}
			continue
		}
		sb.WriteString(" ")
		writeSexp(sb, t, c)
	}
	sb.WriteString(")")
}

// Dump renders a subtree as an indented outline.
func Dump(t *Tree, id NodeID) string {
	var sb strings.Builder
	dumpNode(&sb, t, id, 0)
	return sb.String()
}

func dumpNode(sb *strings.Builder, t *Tree, id NodeID, depth int) {
	if id == NoNode {
		return
	}
	n := t.Node(id)
	sb.WriteString(strings.Repeat("  ", depth))
	sb.WriteString(n.Kind.String())
	if n.Lexem.Content != "" {
		fmt.Fprintf(sb, " %q", n.Lexem.Content)
	}
	if n.Flags != 0 {
		fmt.Fprintf(sb, " %s", flagsString(n.Flags))
	}
	if n.Lexem.Location.IsValid() {
		fmt.Fprintf(sb, " @%s", n.Lexem.Location)
	}
	sb.WriteString("\n")
	for _, c := range n.Children {
		dumpNode(sb, t, c, depth+1)
	}
}

func flagsString(f Flags) string {
	var parts []string
	if f.Has(FlagExport) {
		parts = append(parts, "export")
	}
	if f.Has(FlagFunction) {
		parts = append(parts, "function")
	}
	if f.Has(FlagByValue) {
		parts = append(parts, "byval")
	}
	if f.Has(FlagHasDefault) {
		parts = append(parts, "default")
	}
	if f.Has(FlagDynamic) {
		parts = append(parts, "dynamic")
	}
	return "[" + strings.Join(parts, ",") + "]"
}
