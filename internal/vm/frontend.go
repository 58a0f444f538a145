package vm

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/funvibe/oscript/internal/ast"
	"github.com/funvibe/oscript/internal/config"
	"github.com/funvibe/oscript/internal/diagnostics"
	"github.com/funvibe/oscript/internal/environment"
	"github.com/funvibe/oscript/internal/lexer"
	"github.com/funvibe/oscript/internal/parser"
	"github.com/funvibe/oscript/internal/sources"
	"github.com/funvibe/oscript/internal/symbols"
)

// Frontend turns source code into module images: it runs the
// preprocessor, the parser and the code generator and rejects the result
// if any stage reported an error.
type Frontend struct {
	globals *environment.GlobalsManager

	mu        sync.RWMutex
	defines   []string
	debugCode bool
	logger    zerolog.Logger
}

func NewFrontend(globals *environment.GlobalsManager) *Frontend {
	return &Frontend{globals: globals, logger: zerolog.Nop()}
}

// Define adds a preprocessor symbol for #Если.
func (f *Frontend) Define(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.defines = append(f.defines, name)
}

// Defines lists the preprocessor symbols in the order they were added.
func (f *Frontend) Defines() []string {
	defines, _, _ := f.settings()
	return defines
}

func (f *Frontend) SetDebugCode(on bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.debugCode = on
}

func (f *Frontend) SetLogger(l zerolog.Logger) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logger = l
}

func (f *Frontend) settings() ([]string, bool, zerolog.Logger) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return append([]string(nil), f.defines...), f.debugCode, f.logger
}

// GlobalTable returns a symbol table holding one scope per attached
// global context, in attach order.
func (f *Frontend) GlobalTable() *symbols.SymbolTable {
	table := symbols.NewTable()
	for _, s := range f.globals.Scopes() {
		table.PushScope(s)
	}
	return table
}

// Fingerprint describes what a compiled image depends on besides its
// source text: the image format, the compiler switches and the layout of
// the global scopes it binds to.
func (f *Frontend) Fingerprint() string {
	defines, debugCode, _ := f.settings()
	var b strings.Builder
	fmt.Fprintf(&b, "v%d;debug=%t;defines=%s", ImageFormatVersion, debugCode, strings.Join(defines, ","))
	for _, s := range f.globals.Scopes() {
		fmt.Fprintf(&b, ";%d/%d", s.VariableCount(), s.MethodCount())
	}
	return b.String()
}

// ParseResult is a parsed module with the libraries it imports.
type ParseResult struct {
	Tree    *ast.Tree
	Root    ast.NodeID
	Imports []lexer.Import
}

type parseMode int

const (
	parseModule parseMode = iota
	parseBatch
	parseExpression
)

func (f *Frontend) parse(src *sources.SourceCode, mode parseMode, sink diagnostics.ErrorSink) *ParseResult {
	defines, _, _ := f.settings()
	lx := lexer.New(src.Text, sink)
	imports := lexer.NewImportHandler()
	pre := lexer.NewPreprocessingLexer(lx,
		lexer.NewConditionalCompilationHandler(defines),
		lexer.NewRegionHandler(),
		imports,
	)
	p := parser.New(pre, sink)

	var root ast.NodeID
	switch mode {
	case parseBatch:
		root = p.ParseCodeBatch()
	case parseExpression:
		root = p.ParseExpression()
	default:
		root = p.ParseStatefulModule()
	}
	return &ParseResult{Tree: p.Tree(), Root: root, Imports: imports.Imports}
}

// Parse runs the preprocessor and the parser over a module.
func (f *Frontend) Parse(src *sources.SourceCode) (*ParseResult, error) {
	sink := diagnostics.NewListErrorSink()
	res := f.parse(src, parseModule, sink)
	return res, f.reject(src, sink)
}

// Compile compiles a stateful module against the global contexts.
func (f *Frontend) Compile(src *sources.SourceCode) (*ModuleImage, error) {
	return f.compile(src, parseModule, f.GlobalTable())
}

// CompileExpression compiles one expression against table, which
// describes the scopes visible at the place of evaluation.
func (f *Frontend) CompileExpression(src *sources.SourceCode, table *symbols.SymbolTable) (*ModuleImage, error) {
	return f.compile(src, parseExpression, table)
}

// CompileBatch compiles a list of statements against table.
func (f *Frontend) CompileBatch(src *sources.SourceCode, table *symbols.SymbolTable) (*ModuleImage, error) {
	return f.compile(src, parseBatch, table)
}

func (f *Frontend) compile(src *sources.SourceCode, mode parseMode, table *symbols.SymbolTable) (*ModuleImage, error) {
	sink := diagnostics.NewListErrorSink()
	res := f.parse(src, mode, sink)
	if err := f.reject(src, sink); err != nil {
		return nil, err
	}
	return f.generate(src, res, mode, table)
}

// CompileParsed generates the image of a module parsed elsewhere, for
// instance by the processing pipeline.
func (f *Frontend) CompileParsed(src *sources.SourceCode, res *ParseResult) (*ModuleImage, error) {
	return f.generate(src, res, parseModule, f.GlobalTable())
}

func (f *Frontend) generate(src *sources.SourceCode, res *ParseResult, mode parseMode, table *symbols.SymbolTable) (*ModuleImage, error) {
	start := time.Now()
	_, debugCode, logger := f.settings()

	info := ModuleInfo{ModuleName: src.Name, Origin: src.Location}
	for _, imp := range res.Imports {
		info.Imports = append(info.Imports, imp.Name)
	}

	sink := diagnostics.NewListErrorSink()
	c := NewCompiler(res.Tree, table, sink)
	c.SetDebugCode(debugCode)
	var img *ModuleImage
	switch mode {
	case parseBatch:
		img = c.CompileBatch(res.Root, info)
	case parseExpression:
		img = c.CompileExpression(res.Root, info)
	default:
		img = c.CompileModule(res.Root, info)
	}
	if err := f.reject(src, sink); err != nil {
		return nil, err
	}

	logger.Debug().
		Str("module", src.Name).
		Int("commands", len(img.Code)).
		Dur("elapsed", time.Since(start)).
		Msg("compiled")
	return img, nil
}

// reject converts collected errors into a *diagnostics.CompilationError
// with the offending source lines attached.
func (f *Frontend) reject(src *sources.SourceCode, sink diagnostics.ErrorSink) error {
	if !sink.HasErrors() {
		return nil
	}
	for _, e := range sink.Errors() {
		if e.SourceLine == "" && e.Position.IsValid() {
			e.SourceLine = src.Line(e.Position.Line)
		}
	}
	return diagnostics.AsError(sink, src.Name)
}

// expressionSource wraps an in-memory expression.
func expressionSource(code string) *sources.SourceCode {
	return sources.FromString(config.ExpressionSourceName, code)
}

func batchSource(code string) *sources.SourceCode {
	return sources.FromString(config.BatchSourceName, code)
}
