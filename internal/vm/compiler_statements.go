package vm

import (
	"github.com/funvibe/oscript/internal/ast"
	"github.com/funvibe/oscript/internal/diagnostics"
	"github.com/funvibe/oscript/internal/token"
)

func (c *Compiler) compileCodeBatch(batch ast.NodeID) {
	for _, stmt := range c.tree.Children(batch) {
		c.compileStatement(stmt)
	}
}

func (c *Compiler) compileStatement(stmt ast.NodeID) {
	switch c.tree.Kind(stmt) {
	case ast.KindLabel:
		c.compileLabel(stmt)
		return
	case ast.KindVariableDefinition, ast.KindVariablesSection:
		return
	}

	c.emitLine(stmt)
	switch c.tree.Kind(stmt) {
	case ast.KindAssignment:
		c.compileAssignment(stmt)
	case ast.KindGlobalCall:
		c.compileGlobalCall(stmt, false)
	case ast.KindDereference:
		c.compileDereference(stmt, false)
	case ast.KindCondition:
		c.compileCondition(stmt)
	case ast.KindWhileLoop:
		c.compileWhileLoop(stmt)
	case ast.KindForLoop:
		c.compileForLoop(stmt)
	case ast.KindForEachLoop:
		c.compileForEachLoop(stmt)
	case ast.KindBreak:
		c.compileBreak(stmt)
	case ast.KindContinue:
		c.compileContinue(stmt)
	case ast.KindReturn:
		c.compileReturn(stmt)
	case ast.KindTryExcept:
		c.compileTryExcept(stmt)
	case ast.KindRaiseException:
		c.compileRaise(stmt)
	case ast.KindExecute:
		c.compileExpression(c.tree.Child(stmt, 0))
		c.emit(OP_EXECUTE, 0)
	case ast.KindAddHandler:
		c.compileHandlerStatement(stmt, OP_ADD_HANDLER)
	case ast.KindRemoveHandler:
		c.compileHandlerStatement(stmt, OP_REMOVE_HANDLER)
	case ast.KindGoto:
		c.compileGoto(stmt)
	default:
		c.addError(diagnostics.UnexpectedOperation, stmt)
	}
}

// compileAssignment handles the three kinds of targets: a variable, an
// object property and an indexed element.
func (c *Compiler) compileAssignment(stmt ast.NodeID) {
	target := c.tree.Child(stmt, 0)
	value := c.tree.Child(stmt, 1)
	switch c.tree.Kind(target) {
	case ast.KindIdentifier:
		c.compileExpression(value)
		c.emitVariableWrite(c.tree.Lexem(target).Content)
	case ast.KindDereference:
		c.compileExpression(c.tree.Child(target, 0))
		member := c.tree.Child(target, 1)
		c.emit(OP_RESOLVE_PROP, c.stringConstant(c.tree.Lexem(member).Content))
		c.compileExpression(value)
		c.emit(OP_ASSIGN_REF, 0)
	case ast.KindIndexAccess:
		c.compileExpression(c.tree.Child(target, 0))
		c.compileExpression(c.tree.Child(target, 1))
		c.emit(OP_PUSH_INDEXED, 0)
		c.compileExpression(value)
		c.emit(OP_ASSIGN_REF, 0)
	default:
		c.addError(diagnostics.WrongAssignment, target)
	}
}

// compileCondition lowers Если/ИначеЕсли/Иначе into a chain of JMP_FALSE
// tests, each branch ending with a jump past the whole statement.
func (c *Compiler) compileCondition(stmt ast.NodeID) {
	var exits []int

	c.compileExpression(c.tree.Child(stmt, 0))
	next := c.emitJump(OP_JMP_FALSE)
	c.compileCodeBatch(c.tree.Child(stmt, 1))

	for _, branch := range c.tree.Children(stmt)[2:] {
		exits = append(exits, c.emitJump(OP_JMP))
		c.patchJump(next)
		next = -1
		switch c.tree.Kind(branch) {
		case ast.KindElseIf:
			c.emitLine(branch)
			c.compileExpression(c.tree.Child(branch, 0))
			next = c.emitJump(OP_JMP_FALSE)
			c.compileCodeBatch(c.tree.Child(branch, 1))
		case ast.KindElse:
			c.compileCodeBatch(c.tree.Child(branch, 0))
		}
	}
	if next >= 0 {
		c.patchJump(next)
	}
	for _, at := range exits {
		c.patchJump(at)
	}
}

func (c *Compiler) compileReturn(stmt ast.NodeID) {
	if expr := c.tree.Child(stmt, 0); expr != ast.NoNode {
		c.compileExpression(expr)
		c.emit(OP_MAKE_RAW_VALUE, 0)
	}
	c.emit(OP_RETURN, 0)
}

// compileTryExcept registers the handler, runs the protected block and
// drops the handler again; the except block is entered only by unwinding.
func (c *Compiler) compileTryExcept(stmt ast.NodeID) {
	begin := c.emitJump(OP_BEGIN_TRY)
	c.method.nextTry++
	c.method.tries = append(c.method.tries, c.method.nextTry)
	c.method.tryDepth++
	c.compileCodeBatch(c.tree.Child(stmt, 0))
	c.method.tryDepth--
	c.method.tries = c.method.tries[:len(c.method.tries)-1]
	endTry := c.emitJump(OP_END_TRY)
	skip := c.emitJump(OP_JMP)

	handler := len(c.img.Code)
	c.img.Code[begin].Arg = handler
	c.img.Code[endTry].Arg = handler
	c.compileCodeBatch(c.tree.Child(stmt, 1))

	c.patchJump(skip)
	c.emit(OP_END_TRY, NoIndex)
}

func (c *Compiler) compileRaise(stmt ast.NodeID) {
	expr := c.tree.Child(stmt, 0)
	if expr == ast.NoNode {
		c.emit(OP_RAISE_EXCEPTION, -1)
		return
	}
	c.compileExpression(expr)
	c.emit(OP_RAISE_EXCEPTION, 0)
}

// compileHandlerStatement pushes the event source, the event name and the
// handler. A handler given as obj.Method is addressed on obj (argument 0);
// a bare name is a method of the current module (argument 1).
func (c *Compiler) compileHandlerStatement(stmt ast.NodeID, op Opcode) {
	event := c.tree.Child(stmt, 0)
	handler := c.tree.Child(stmt, 1)

	if c.tree.Kind(event) != ast.KindDereference || c.tree.Kind(c.tree.Child(event, 1)) != ast.KindIdentifier {
		c.addError(diagnostics.WrongEventName, event)
		return
	}
	c.compileExpression(c.tree.Child(event, 0))
	c.emit(OP_PUSH_CONST, c.stringConstant(c.tree.Lexem(c.tree.Child(event, 1)).Content))

	switch c.tree.Kind(handler) {
	case ast.KindIdentifier:
		c.emit(OP_PUSH_CONST, c.stringConstant(c.tree.Lexem(handler).Content))
		c.emit(op, 1)
	case ast.KindDereference:
		c.compileExpression(c.tree.Child(handler, 0))
		c.emit(OP_PUSH_CONST, c.stringConstant(c.tree.Lexem(c.tree.Child(handler, 1)).Content))
		c.emit(op, 0)
	default:
		c.addError(diagnostics.WrongHandlerName, handler)
	}
}

func (c *Compiler) compileLabel(stmt ast.NodeID) {
	name := c.tree.Lexem(stmt).Content
	key := token.Fold(name)
	if _, dup := c.method.labels[key]; dup {
		c.addError(diagnostics.DuplicateLabelDefinition, stmt, name)
		return
	}
	c.method.labels[key] = labelDef{
		addr:  len(c.img.Code),
		tries: append([]int(nil), c.method.tries...),
	}
}

// compileGoto emits a jump resolved once all labels of the method are known.
// Inside try blocks the jump is preceded by OP_EXIT_TRY dropping the
// handlers of the blocks the label lies outside of.
func (c *Compiler) compileGoto(stmt ast.NodeID) {
	lex := c.tree.Lexem(stmt)
	exit := -1
	if len(c.method.tries) > 0 {
		exit = c.emit(OP_EXIT_TRY, 0)
	}
	c.method.gotos = append(c.method.gotos, pendingGoto{
		exit:  exit,
		tries: append([]int(nil), c.method.tries...),
		at:    c.emitJump(OP_JMP),
		label: lex.Content,
		pos:   lex.Location,
	})
}
