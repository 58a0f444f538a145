// Package ast holds the syntax tree as an arena of nodes addressed by NodeID.
// Parent links are indices, so the tree has no reference cycles.
package ast

import (
	"github.com/funvibe/oscript/internal/token"
)

// NodeKind tags the variant of a node.
type NodeKind int

const (
	KindUnknown NodeKind = iota

	// Module structure
	KindModule
	KindVariablesSection
	KindVariableDefinition
	KindMethodsSection
	KindMethod
	KindMethodSignature
	KindMethodParameter
	KindAnnotation
	KindAnnotationParameter
	KindCodeBatch

	// Statements
	KindAssignment
	KindCondition
	KindElseIf
	KindElse
	KindWhileLoop
	KindForLoop
	KindForEachLoop
	KindBreak
	KindContinue
	KindReturn
	KindTryExcept
	KindRaiseException
	KindExecute
	KindAddHandler
	KindRemoveHandler
	KindLabel
	KindGoto

	// Expressions
	KindBinaryOperation
	KindUnaryOperation
	KindConstant
	KindIdentifier
	KindGlobalCall
	KindCallArgumentList
	KindCallArgument
	KindDereference
	KindMethodCall
	KindIndexAccess
	KindTernary
	KindNewObject

	kindCount
)

var kindNames = [...]string{
	KindUnknown:             "Unknown",
	KindModule:              "Module",
	KindVariablesSection:    "VariablesSection",
	KindVariableDefinition:  "VariableDefinition",
	KindMethodsSection:      "MethodsSection",
	KindMethod:              "Method",
	KindMethodSignature:     "MethodSignature",
	KindMethodParameter:     "MethodParameter",
	KindAnnotation:          "Annotation",
	KindAnnotationParameter: "AnnotationParameter",
	KindCodeBatch:           "CodeBatch",
	KindAssignment:          "Assignment",
	KindCondition:           "Condition",
	KindElseIf:              "ElseIf",
	KindElse:                "Else",
	KindWhileLoop:           "WhileLoop",
	KindForLoop:             "ForLoop",
	KindForEachLoop:         "ForEachLoop",
	KindBreak:               "Break",
	KindContinue:            "Continue",
	KindReturn:              "Return",
	KindTryExcept:           "TryExcept",
	KindRaiseException:      "RaiseException",
	KindExecute:             "Execute",
	KindAddHandler:          "AddHandler",
	KindRemoveHandler:       "RemoveHandler",
	KindLabel:               "Label",
	KindGoto:                "Goto",
	KindBinaryOperation:     "BinaryOperation",
	KindUnaryOperation:      "UnaryOperation",
	KindConstant:            "Constant",
	KindIdentifier:          "Identifier",
	KindGlobalCall:          "GlobalCall",
	KindCallArgumentList:    "CallArgumentList",
	KindCallArgument:        "CallArgument",
	KindDereference:         "Dereference",
	KindMethodCall:          "MethodCall",
	KindIndexAccess:         "IndexAccess",
	KindTernary:             "Ternary",
	KindNewObject:           "NewObject",
}

func (k NodeKind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Unknown"
}

// Flags carry boolean attributes of declarations.
type Flags uint8

const (
	FlagExport Flags = 1 << iota
	FlagFunction
	FlagByValue
	FlagHasDefault
	FlagDynamic
)

func (f Flags) Has(flag Flags) bool { return f&flag != 0 }

// NodeID addresses a node in a Tree. The zero value means "no node".
type NodeID int32

const NoNode NodeID = 0

// Node is one element of the arena.
//
// Shapes by kind:
//
//	Module              Annotation*, VariablesSection, MethodsSection, CodeBatch
//	VariableDefinition  Annotation*                          (Lexem: name)
//	Method              Annotation*, MethodSignature, VariablesSection, CodeBatch
//	MethodSignature     MethodParameter*                     (Lexem: name)
//	MethodParameter     Annotation*, Constant?               (Lexem: name)
//	Annotation          AnnotationParameter*                 (Lexem: name)
//	AnnotationParameter Constant?                            (Lexem: name, may be empty)
//	Assignment          target, value
//	Condition           expr, CodeBatch, ElseIf*, Else?
//	ElseIf              expr, CodeBatch
//	Else                CodeBatch
//	WhileLoop           expr, CodeBatch
//	ForLoop             Assignment, limit, CodeBatch
//	ForEachLoop         Identifier, collection, CodeBatch
//	Return              expr?
//	TryExcept           CodeBatch, CodeBatch
//	RaiseException      expr?
//	Execute             expr
//	AddHandler          event, handler
//	Label, Goto         -                                    (Lexem: label)
//	BinaryOperation     left, right                          (Lexem: operator)
//	UnaryOperation      operand                              (Lexem: operator)
//	GlobalCall          CallArgumentList                     (Lexem: name)
//	CallArgument        expr?                                (no child when skipped)
//	Dereference         target, Identifier | MethodCall
//	MethodCall          CallArgumentList                     (Lexem: name)
//	IndexAccess         target, index
//	Ternary             condition, then, else
//	NewObject           CallArgumentList                     (static; Lexem: type name)
//	NewObject           CallArgumentList                     (FlagDynamic; first argument is the type name)
type Node struct {
	Kind     NodeKind
	Lexem    token.Lexem
	Flags    Flags
	Parent   NodeID
	Children []NodeID
}

func (n *Node) Position() token.Position {
	return n.Lexem.Location
}

// Tree is the node arena.
type Tree struct {
	nodes []Node
	Root  NodeID
}

func NewTree() *Tree {
	// slot 0 stays empty so the zero NodeID is never a real node
	return &Tree{nodes: make([]Node, 1, 64)}
}

// Add creates a detached node.
func (t *Tree) Add(kind NodeKind, lex token.Lexem) NodeID {
	t.nodes = append(t.nodes, Node{Kind: kind, Lexem: lex})
	return NodeID(len(t.nodes) - 1)
}

// AddChild creates a node and appends it to parent.
func (t *Tree) AddChild(parent NodeID, kind NodeKind, lex token.Lexem) NodeID {
	id := t.Add(kind, lex)
	t.Attach(parent, id)
	return id
}

// Attach appends an existing node to parent's children.
func (t *Tree) Attach(parent, child NodeID) {
	if parent == NoNode || child == NoNode {
		return
	}
	t.nodes[child].Parent = parent
	t.nodes[parent].Children = append(t.nodes[parent].Children, child)
}

// Node returns the node for id. The pointer is invalidated by Add.
func (t *Tree) Node(id NodeID) *Node {
	return &t.nodes[id]
}

func (t *Tree) Kind(id NodeID) NodeKind {
	if id <= NoNode || int(id) >= len(t.nodes) {
		return KindUnknown
	}
	return t.nodes[id].Kind
}

func (t *Tree) Lexem(id NodeID) token.Lexem {
	return t.nodes[id].Lexem
}

func (t *Tree) Flags(id NodeID) Flags {
	return t.nodes[id].Flags
}

func (t *Tree) SetFlags(id NodeID, f Flags) {
	t.nodes[id].Flags |= f
}

func (t *Tree) Parent(id NodeID) NodeID {
	return t.nodes[id].Parent
}

func (t *Tree) Children(id NodeID) []NodeID {
	return t.nodes[id].Children
}

// Child returns the i-th child or NoNode.
func (t *Tree) Child(id NodeID, i int) NodeID {
	ch := t.nodes[id].Children
	if i < 0 || i >= len(ch) {
		return NoNode
	}
	return ch[i]
}

// ChildOfKind returns the first child of the given kind or NoNode.
func (t *Tree) ChildOfKind(id NodeID, kind NodeKind) NodeID {
	for _, c := range t.nodes[id].Children {
		if t.nodes[c].Kind == kind {
			return c
		}
	}
	return NoNode
}

// ChildrenOfKind returns all children of the given kind.
func (t *Tree) ChildrenOfKind(id NodeID, kind NodeKind) []NodeID {
	var out []NodeID
	for _, c := range t.nodes[id].Children {
		if t.nodes[c].Kind == kind {
			out = append(out, c)
		}
	}
	return out
}

// Len is the number of nodes in the arena.
func (t *Tree) Len() int {
	return len(t.nodes) - 1
}

// EnclosingOfKind walks parent links up to the nearest node of the given kind.
func (t *Tree) EnclosingOfKind(id NodeID, kind NodeKind) NodeID {
	for id != NoNode {
		if t.nodes[id].Kind == kind {
			return id
		}
		id = t.nodes[id].Parent
	}
	return NoNode
}

// IsCall reports whether the node is a call that may stand alone as a
// statement: a global call or a dereference chain ending in a method call.
func (t *Tree) IsCall(id NodeID) bool {
	switch t.Kind(id) {
	case KindGlobalCall:
		return true
	case KindDereference:
		return t.Kind(t.Child(id, 1)) == KindMethodCall
	}
	return false
}

// IsWritable reports whether the node may be the target of an assignment.
func (t *Tree) IsWritable(id NodeID) bool {
	switch t.Kind(id) {
	case KindIdentifier, KindIndexAccess:
		return true
	case KindDereference:
		return t.Kind(t.Child(id, 1)) == KindIdentifier
	}
	return false
}
