package vm

import (
	"github.com/funvibe/oscript/internal/ast"
	"github.com/funvibe/oscript/internal/config"
	"github.com/funvibe/oscript/internal/diagnostics"
	"github.com/funvibe/oscript/internal/symbols"
	"github.com/funvibe/oscript/internal/token"
	"github.com/funvibe/oscript/internal/values"
)

// LoopContext tracks loop information for break/continue
type LoopContext struct {
	continueAddr  int   // Address continue jumps to, -1 until known
	continueJumps []int // Continue jumps emitted before continueAddr was known
	breakJumps    []int // Jumps to patch with the loop exit address
	tryDepth      int   // Try blocks open when the loop started
}

type pendingGoto struct {
	at    int
	exit  int // OP_EXIT_TRY before the jump, -1 outside try blocks
	tries []int
	label string
	pos   token.Position
}

// labelDef is a label address and the try blocks enclosing it.
type labelDef struct {
	addr  int
	tries []int
}

// methodContext is the state of the method being compiled.
type methodContext struct {
	desc       *MethodDescriptor
	locals     *symbols.SymbolScope
	scope      int
	isFunction bool
	// implicit variables of the module body become module variables
	isBody bool

	loops    []*LoopContext
	tryDepth int
	tries    []int // ids of the open try blocks, outermost first
	nextTry  int
	labels   map[string]labelDef
	gotos    []pendingGoto
	lastLine int
}

// Compiler lowers a syntax tree into a ModuleImage.
type Compiler struct {
	tree  *ast.Tree
	sink  diagnostics.ErrorSink
	table *symbols.SymbolTable

	img *ModuleImage

	// Scope of the module's own variables and methods; nil for expressions
	// and code batches, which only see the scopes they are given.
	module    *symbols.SymbolScope
	thisScope int
	method    *methodContext
	// debugCode marks every statement, not only the first on a line
	debugCode bool

	constants  map[ConstantDefinition]int
	varRefs    map[symbols.Binding]int
	methodRefs map[symbols.Binding]int
}

// NewCompiler creates a code generator over a parsed tree. Names are
// resolved against table; scopes pushed while compiling are popped again.
func NewCompiler(tree *ast.Tree, table *symbols.SymbolTable, sink diagnostics.ErrorSink) *Compiler {
	if sink == nil {
		sink = diagnostics.NewListErrorSink()
	}
	return &Compiler{
		tree:  tree,
		sink:  sink,
		table: table,
		img: &ModuleImage{
			Version:          ImageFormatVersion,
			EntryMethodIndex: NoIndex,
		},
		thisScope:  table.Count() - 1,
		constants:  make(map[ConstantDefinition]int),
		varRefs:    make(map[symbols.Binding]int),
		methodRefs: make(map[symbols.Binding]int),
	}
}

// SetDebugCode makes every statement start with a line marker, so the
// debugger can stop on each of them.
func (c *Compiler) SetDebugCode(on bool) {
	c.debugCode = on
}

func (c *Compiler) Sink() diagnostics.ErrorSink {
	return c.sink
}

// CompileModule compiles a stateful module: its variables, its methods and
// its body. Method signatures are registered before any body is compiled,
// so a method may call one declared further down.
func (c *Compiler) CompileModule(root ast.NodeID, info ModuleInfo) *ModuleImage {
	c.img.ModuleInfo = info
	c.module = symbols.NewScope()
	c.thisScope = c.table.PushScope(c.module)
	defer c.table.PopScope()

	for _, a := range c.tree.ChildrenOfKind(root, ast.KindAnnotation) {
		c.img.Annotations = append(c.img.Annotations, c.annotation(a))
	}

	if vars := c.tree.ChildOfKind(root, ast.KindVariablesSection); vars != ast.NoNode {
		for _, v := range c.tree.ChildrenOfKind(vars, ast.KindVariableDefinition) {
			c.declareModuleVariable(v)
		}
	}

	var methods []ast.NodeID
	if section := c.tree.ChildOfKind(root, ast.KindMethodsSection); section != ast.NoNode {
		for _, m := range c.tree.ChildrenOfKind(section, ast.KindMethod) {
			if c.declareMethod(m) {
				methods = append(methods, m)
			}
		}
	}
	for i, m := range methods {
		c.compileMethod(m, i)
	}

	body := c.tree.ChildOfKind(root, ast.KindCodeBatch)
	if body != ast.NoNode && len(c.tree.Children(body)) > 0 {
		c.img.EntryMethodIndex = c.compileSyntheticMethod(config.EntryMethodName, body, false, true)
	}
	return c.img
}

// CompileBatch compiles a sequence of statements as one procedure. Unknown
// names written by the batch become its own locals.
func (c *Compiler) CompileBatch(root ast.NodeID, info ModuleInfo) *ModuleImage {
	c.img.ModuleInfo = info
	body := c.tree.ChildOfKind(root, ast.KindCodeBatch)
	if body == ast.NoNode {
		body = c.tree.Add(ast.KindCodeBatch, c.tree.Lexem(root))
	}
	c.img.EntryMethodIndex = c.compileSyntheticMethod(config.BatchMethodName, body, false, false)
	return c.img
}

// CompileExpression compiles a single expression as a function that
// returns its value.
func (c *Compiler) CompileExpression(root ast.NodeID, info ModuleInfo) *ModuleImage {
	c.img.ModuleInfo = info
	m := c.beginMethod(config.EvalMethodName, true, false)
	m.desc.EntryPoint = len(c.img.Code)
	if expr := c.tree.Child(root, 0); expr != ast.NoNode {
		c.emitLine(expr)
		c.compileExpression(expr)
	} else {
		c.emit(OP_PUSH_UNDEF, 0)
	}
	c.emit(OP_MAKE_RAW_VALUE, 0)
	c.emit(OP_RETURN, 0)
	c.img.EntryMethodIndex = c.endMethod()
	return c.img
}

func (c *Compiler) compileSyntheticMethod(name string, body ast.NodeID, isFunction, isBody bool) int {
	m := c.beginMethod(name, isFunction, isBody)
	m.desc.EntryPoint = len(c.img.Code)
	c.compileCodeBatch(body)
	c.emitMethodEnd()
	return c.endMethod()
}

func (c *Compiler) declareModuleVariable(node ast.NodeID) {
	lex := c.tree.Lexem(node)
	isExport := c.tree.Flags(node).Has(ast.FlagExport)
	annotations := c.annotations(node)
	sym := &symbols.VariableSymbol{
		Names:       symbols.Names{Name: lex.Content},
		Kind:        symbols.ModuleVariable,
		IsExport:    isExport,
		Annotations: c.annotationValues(annotations),
	}
	n, err := c.module.DefineVariable(sym)
	if err != nil {
		c.addError(diagnostics.DuplicateVarDefinition, node, lex.Content)
		return
	}
	c.img.Variables = append(c.img.Variables, VariableDescriptor{
		Name:        lex.Content,
		IsExport:    isExport,
		Annotations: annotations,
	})
	if isExport {
		c.img.ExportedProps = append(c.img.ExportedProps, ExportedSymbol{Name: lex.Content, Index: n})
	}
}

// declareMethod registers the signature of a method. The position of the
// method in the module scope equals its index in the image.
func (c *Compiler) declareMethod(node ast.NodeID) bool {
	sigNode := c.tree.ChildOfKind(node, ast.KindMethodSignature)
	if sigNode == ast.NoNode {
		return false
	}
	sig := c.signature(node, sigNode)
	info := c.methodInfo(sig)
	n, err := c.module.DefineMethod(&symbols.MethodSymbol{Names: symbols.Names{Name: sig.Name}, Method: info})
	if err != nil {
		c.addError(diagnostics.DuplicateMethodDefinition, sigNode, sig.Name)
		return false
	}
	c.img.Methods = append(c.img.Methods, MethodDescriptor{Signature: sig})
	if sig.IsExport {
		c.img.ExportedMethods = append(c.img.ExportedMethods, ExportedSymbol{Name: sig.Name, Index: n})
	}
	return true
}

func (c *Compiler) signature(method, sigNode ast.NodeID) MethodSignature {
	flags := c.tree.Flags(sigNode)
	sig := MethodSignature{
		Name:        c.tree.Lexem(sigNode).Content,
		IsFunction:  flags.Has(ast.FlagFunction),
		IsExport:    flags.Has(ast.FlagExport),
		Annotations: c.annotations(method),
	}
	for _, p := range c.tree.ChildrenOfKind(sigNode, ast.KindMethodParameter) {
		pf := c.tree.Flags(p)
		param := ParameterDef{
			Name:              c.tree.Lexem(p).Content,
			ByValue:           pf.Has(ast.FlagByValue),
			HasDefault:        pf.Has(ast.FlagHasDefault),
			DefaultValueIndex: NoIndex,
			Annotations:       c.annotations(p),
		}
		if param.HasDefault {
			if def := c.tree.ChildOfKind(p, ast.KindConstant); def != ast.NoNode {
				param.DefaultValueIndex = c.constantIndex(c.tree.Lexem(def))
			}
		}
		sig.Params = append(sig.Params, param)
	}
	return sig
}

// methodInfo is the compile-time view of a signature used for arity checks.
func (c *Compiler) methodInfo(sig MethodSignature) values.MethodInfo {
	info := values.MethodInfo{
		Name:       sig.Name,
		IsFunction: sig.IsFunction,
		IsExport:   sig.IsExport,
		Params:     make([]values.ParameterInfo, len(sig.Params)),
	}
	for i, p := range sig.Params {
		info.Params[i] = values.ParameterInfo{Name: p.Name, ByValue: p.ByValue, HasDefault: p.HasDefault}
	}
	return info
}

func (c *Compiler) compileMethod(node ast.NodeID, index int) {
	desc := &c.img.Methods[index]
	m := c.beginMethod(desc.Signature.Name, desc.Signature.IsFunction, false)
	m.desc.Signature = desc.Signature

	sigNode := c.tree.ChildOfKind(node, ast.KindMethodSignature)
	for _, p := range c.tree.ChildrenOfKind(sigNode, ast.KindMethodParameter) {
		c.declareLocal(p, c.tree.Lexem(p).Content)
	}
	if vars := c.tree.ChildOfKind(node, ast.KindVariablesSection); vars != ast.NoNode {
		for _, v := range c.tree.ChildrenOfKind(vars, ast.KindVariableDefinition) {
			c.declareLocal(v, c.tree.Lexem(v).Content)
		}
	}

	m.desc.EntryPoint = len(c.img.Code)
	if body := c.tree.ChildOfKind(node, ast.KindCodeBatch); body != ast.NoNode {
		c.compileCodeBatch(body)
	}
	c.emitMethodEnd()
	c.endMethodAt(index)
}

// emitMethodEnd emits the implicit return at the end of a body.
func (c *Compiler) emitMethodEnd() {
	if c.method.isFunction {
		c.emit(OP_PUSH_UNDEF, 0)
	}
	c.emit(OP_RETURN, 0)
}

func (c *Compiler) beginMethod(name string, isFunction, isBody bool) *methodContext {
	locals := symbols.NewScope()
	c.method = &methodContext{
		desc:       &MethodDescriptor{Signature: MethodSignature{Name: name, IsFunction: isFunction}},
		locals:     locals,
		scope:      c.table.PushScope(locals),
		isFunction: isFunction,
		isBody:     isBody,
		labels:     make(map[string]labelDef),
	}
	return c.method
}

// endMethod appends the finished method to the image and returns its index.
func (c *Compiler) endMethod() int {
	c.finishMethod()
	c.img.Methods = append(c.img.Methods, *c.method.desc)
	c.method = nil
	return len(c.img.Methods) - 1
}

// endMethodAt stores the finished method into a slot reserved by declareMethod.
func (c *Compiler) endMethodAt(index int) {
	c.finishMethod()
	c.img.Methods[index] = *c.method.desc
	c.method = nil
}

func (c *Compiler) finishMethod() {
	m := c.method
	for _, g := range m.gotos {
		lbl, ok := m.labels[token.Fold(g.label)]
		if !ok {
			c.sink.AddError(diagnostics.New(diagnostics.LabelNotFound, g.pos, g.label))
			continue
		}
		c.img.Code[g.at].Arg = lbl.addr
		if g.exit >= 0 {
			c.img.Code[g.exit].Arg = len(g.tries) - sharedTries(g.tries, lbl.tries)
		}
	}
	c.table.PopScope()
}

// sharedTries counts the outer try blocks enclosing both a and b.
func sharedTries(a, b []int) int {
	n := 0
	for n < len(a) && n < len(b) && a[n] == b[n] {
		n++
	}
	return n
}

func (c *Compiler) annotations(node ast.NodeID) []AnnotationDef {
	var out []AnnotationDef
	for _, a := range c.tree.ChildrenOfKind(node, ast.KindAnnotation) {
		out = append(out, c.annotation(a))
	}
	return out
}

func (c *Compiler) annotation(node ast.NodeID) AnnotationDef {
	def := AnnotationDef{Name: c.tree.Lexem(node).Content}
	for _, p := range c.tree.ChildrenOfKind(node, ast.KindAnnotationParameter) {
		param := AnnotationParamDef{Name: c.tree.Lexem(p).Content, ValueIndex: NoIndex}
		if v := c.tree.ChildOfKind(p, ast.KindConstant); v != ast.NoNode {
			param.ValueIndex = c.constantIndex(c.tree.Lexem(v))
		}
		def.Params = append(def.Params, param)
	}
	return def
}

// annotationValues resolves annotation definitions against the constant
// pool compiled so far.
func (c *Compiler) annotationValues(defs []AnnotationDef) []values.Annotation {
	if len(defs) == 0 {
		return nil
	}
	out := make([]values.Annotation, len(defs))
	for i, d := range defs {
		out[i] = values.Annotation{Name: d.Name}
		for _, p := range d.Params {
			var v values.Value
			if p.ValueIndex != NoIndex {
				v, _ = constantValue(c.img.Constants[p.ValueIndex])
			}
			out[i].Params = append(out[i].Params, values.AnnotationParameter{Name: p.Name, Value: v})
		}
	}
	return out
}

func (c *Compiler) addError(id diagnostics.ErrorID, node ast.NodeID, args ...any) {
	c.sink.AddError(diagnostics.New(id, c.tree.Lexem(node).Location, args...))
}
