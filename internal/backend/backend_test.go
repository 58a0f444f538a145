package backend

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/funvibe/oscript/internal/diagnostics"
	"github.com/funvibe/oscript/internal/imagecache"
	"github.com/funvibe/oscript/internal/lexer"
	"github.com/funvibe/oscript/internal/parser"
	"github.com/funvibe/oscript/internal/pipeline"
	"github.com/funvibe/oscript/internal/sources"
	"github.com/funvibe/oscript/internal/stdlib"
	"github.com/funvibe/oscript/internal/vm"
)

func newTestEnv(t *testing.T) (*vm.Env, *bytes.Buffer) {
	t.Helper()
	env, err := vm.NewEnv(nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	if err := stdlib.Register(env.Types, env.Globals, &out); err != nil {
		t.Fatal(err)
	}
	return env, &out
}

func runPipeline(env *vm.Env, cache *imagecache.Store, src *sources.SourceCode) *pipeline.PipelineContext {
	ctx := NewContext(src, env.Compiler)
	p := pipeline.New(
		&ImageCacheProcessor{Cache: cache, Frontend: env.Compiler},
		&lexer.LexerProcessor{},
		&parser.ParserProcessor{},
		&CompileProcessor{Frontend: env.Compiler, Cache: cache},
		NewExecutionProcessor(NewVM(env)),
	)
	return p.Run(ctx)
}

func TestPipelineRunsScript(t *testing.T) {
	env, out := newTestEnv(t)
	ctx := runPipeline(env, nil, sources.FromString("main", "#Использовать lib\nСообщить(\"привет\");"))
	if err := ctx.Err(); err != nil {
		t.Fatal(err)
	}
	if out.String() != "привет\n" {
		t.Errorf("output = %q", out.String())
	}
	if len(ctx.Imports) != 1 || ctx.Imports[0] != "lib" {
		t.Errorf("imports = %v", ctx.Imports)
	}
	if img := ModuleImage(ctx); img == nil || img.ModuleInfo.Imports[0] != "lib" {
		t.Error("image does not record the import")
	}
	if _, ok := ctx.Result.(*vm.ScriptObject); !ok {
		t.Errorf("result = %T", ctx.Result)
	}
}

func TestPipelineStopsOnSyntaxError(t *testing.T) {
	env, out := newTestEnv(t)
	ctx := runPipeline(env, nil, sources.FromString("main", "Сообщить(1);\nЕсли Тогда\n"))
	err := ctx.Err()
	var ce *diagnostics.CompilationError
	if !errors.As(err, &ce) {
		t.Fatalf("expected a compilation error, got %v", err)
	}
	if ctx.Image != nil {
		t.Error("image produced for broken code")
	}
	if out.Len() != 0 {
		t.Errorf("broken script ran: %q", out.String())
	}
}

func TestPipelineReportsBindingError(t *testing.T) {
	env, _ := newTestEnv(t)
	ctx := runPipeline(env, nil, sources.FromString("main", "Сообщить(Неизвестная);"))
	var ce *diagnostics.CompilationError
	if !errors.As(ctx.Err(), &ce) || !ce.Has(diagnostics.SymbolNotFound) {
		t.Fatalf("got %v", ctx.Err())
	}
}

func TestPipelineRuntimeError(t *testing.T) {
	env, _ := newTestEnv(t)
	ctx := runPipeline(env, nil, sources.FromString("main", `Процедура Упасть()
	ВызватьИсключение "сбой";
КонецПроцедуры
Упасть();`))
	err := ctx.Err()
	if err == nil {
		t.Fatal("expected a runtime error")
	}
	text := FormatError(err)
	if !strings.Contains(text, "сбой") || !strings.Contains(text, "Stack trace:") || !strings.Contains(text, "main:2 (Упасть)") {
		t.Errorf("formatted error:\n%s", text)
	}
}

func TestPipelineUsesImageCache(t *testing.T) {
	cache, err := imagecache.Open(filepath.Join(t.TempDir(), "images.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer cache.Close()

	env, out := newTestEnv(t)
	src := sources.FromString("main", `Сообщить("раз");`)

	first := runPipeline(env, cache, src)
	if err := first.Err(); err != nil {
		t.Fatal(err)
	}
	if first.Tree == nil {
		t.Error("first run should parse")
	}

	second := runPipeline(env, cache, src)
	if err := second.Err(); err != nil {
		t.Fatal(err)
	}
	if second.Tree != nil {
		t.Error("second run should come from the cache without parsing")
	}
	if out.String() != "раз\nраз\n" {
		t.Errorf("output = %q", out.String())
	}
}

func TestDisassemble(t *testing.T) {
	env, _ := newTestEnv(t)
	ctx := NewContext(sources.FromString("main", "А = 1;"), env.Compiler)
	if _, err := Compile(ctx, env.Compiler, nil); err != nil {
		t.Fatal(err)
	}
	text, err := NewVM(env).Disassemble(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(text, "LOAD_VAR") {
		t.Errorf("listing:\n%s", text)
	}
}
