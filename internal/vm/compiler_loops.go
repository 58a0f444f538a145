package vm

import (
	"github.com/funvibe/oscript/internal/ast"
)

func (c *Compiler) pushLoop(continueAddr int) *LoopContext {
	loop := &LoopContext{continueAddr: continueAddr, tryDepth: c.method.tryDepth}
	c.method.loops = append(c.method.loops, loop)
	return loop
}

// popLoop patches the break jumps of the innermost loop to the next command.
func (c *Compiler) popLoop() {
	loops := c.method.loops
	loop := loops[len(loops)-1]
	for _, at := range loop.breakJumps {
		c.patchJump(at)
	}
	c.method.loops = loops[:len(loops)-1]
}

// compileWhileLoop compiles:
//
//	cond: <expr>; JMP_FALSE exit; <body>; JMP cond; exit:
func (c *Compiler) compileWhileLoop(stmt ast.NodeID) {
	start := c.lineMark(stmt)
	c.compileExpression(c.tree.Child(stmt, 0))
	exit := c.emitJump(OP_JMP_FALSE)

	c.pushLoop(start)
	c.compileCodeBatch(c.tree.Child(stmt, 1))
	c.emit(OP_JMP, start)
	c.patchJump(exit)
	c.popLoop()
}

// compileForLoop compiles a counted loop. The limit is evaluated once and
// kept on the frame stack; the counter is incremented after the body and
// compared with the limit before every iteration.
func (c *Compiler) compileForLoop(stmt ast.NodeID) {
	init := c.tree.Child(stmt, 0)
	counter := c.tree.Child(init, 0)
	name := c.tree.Lexem(counter).Content

	c.compileExpression(c.tree.Child(init, 1))
	c.emitVariableWrite(name)
	c.compileExpression(c.tree.Child(stmt, 1))
	c.emit(OP_PUSH_TMP, 0)

	check := len(c.img.Code)
	c.emitVariableRead(counter)
	exit := c.emitJump(OP_JMP_COUNTER)

	loop := c.pushLoop(-1)
	c.compileCodeBatch(c.tree.Child(stmt, 2))

	loop.continueAddr = len(c.img.Code)
	for _, at := range loop.continueJumps {
		c.img.Code[at].Arg = loop.continueAddr
	}
	c.emit(OP_LINE_NUM, c.tree.Lexem(stmt).Location.Line)
	c.emitVariableRead(counter)
	c.emit(OP_INC, 0)
	c.emitVariableWrite(name)
	c.emit(OP_JMP, check)

	c.patchJump(exit)
	c.popLoop()
	c.emit(OP_POP_TMP, 1)
}

// compileForEachLoop keeps the iterator on the frame stack for the
// duration of the loop; ITERATOR_NEXT pushes the item and then a flag.
func (c *Compiler) compileForEachLoop(stmt ast.NodeID) {
	item := c.tree.Child(stmt, 0)
	c.compileExpression(c.tree.Child(stmt, 1))
	c.emit(OP_PUSH_ITERATOR, 0)

	next := len(c.img.Code)
	c.emit(OP_LINE_NUM, c.tree.Lexem(stmt).Location.Line)
	c.emit(OP_ITERATOR_NEXT, 0)
	exit := c.emitJump(OP_JMP_FALSE)
	c.emitVariableWrite(c.tree.Lexem(item).Content)

	c.pushLoop(next)
	c.compileCodeBatch(c.tree.Child(stmt, 2))
	c.emit(OP_JMP, next)

	c.patchJump(exit)
	c.popLoop()
	c.emit(OP_STOP_ITERATOR, 0)
}

// exitTryBlocks drops the handlers of try blocks opened inside the loop.
func (c *Compiler) exitTryBlocks(loop *LoopContext) {
	if n := c.method.tryDepth - loop.tryDepth; n > 0 {
		c.emit(OP_EXIT_TRY, n)
	}
}

// compileBreak compiles Прервать
func (c *Compiler) compileBreak(stmt ast.NodeID) {
	loop := c.innermostLoop()
	if loop == nil {
		return
	}
	c.exitTryBlocks(loop)
	loop.breakJumps = append(loop.breakJumps, c.emitJump(OP_JMP))
}

// compileContinue compiles Продолжить
func (c *Compiler) compileContinue(stmt ast.NodeID) {
	loop := c.innermostLoop()
	if loop == nil {
		return
	}
	c.exitTryBlocks(loop)
	if loop.continueAddr >= 0 {
		c.emit(OP_JMP, loop.continueAddr)
		return
	}
	loop.continueJumps = append(loop.continueJumps, c.emitJump(OP_JMP))
}

// innermostLoop is nil outside of loops; the parser has already reported
// such statements.
func (c *Compiler) innermostLoop() *LoopContext {
	if len(c.method.loops) == 0 {
		return nil
	}
	return c.method.loops[len(c.method.loops)-1]
}
