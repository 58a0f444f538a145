package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/funvibe/oscript/internal/ast"
	"github.com/funvibe/oscript/internal/backend"
	"github.com/funvibe/oscript/internal/config"
	"github.com/funvibe/oscript/internal/diagnostics"
	"github.com/funvibe/oscript/internal/imagecache"
	"github.com/funvibe/oscript/internal/lexer"
	"github.com/funvibe/oscript/internal/logging"
	"github.com/funvibe/oscript/internal/parser"
	"github.com/funvibe/oscript/internal/pipeline"
	"github.com/funvibe/oscript/internal/sources"
	"github.com/funvibe/oscript/internal/stdlib"
	"github.com/funvibe/oscript/internal/vm"
)

// defineList collects repeated -D flags.
type defineList []string

func (d *defineList) String() string     { return strings.Join(*d, ",") }
func (d *defineList) Set(s string) error { *d = append(*d, s); return nil }

type options struct {
	check   bool
	disasm  bool
	dumpAST bool
	debug   bool
	config  string
	defines defineList
}

func main() {
	// Catch panics and show user-friendly error
	defer func() {
		if r := recover(); r != nil {
			if os.Getenv("DEBUG") == "1" {
				panic(r)
			}
			fmt.Fprintf(os.Stderr, "Internal error: %v\n", r)
			fmt.Fprintln(os.Stderr, "This is a bug. Please report it.")
			os.Exit(1)
		}
	}()

	var opts options
	flag.BoolVar(&opts.check, "check", false, "compile the script and report errors without running it")
	flag.BoolVar(&opts.disasm, "disasm", false, "print the compiled module listing")
	flag.BoolVar(&opts.dumpAST, "ast", false, "print the syntax tree")
	flag.BoolVar(&opts.debug, "debug", false, "run under the interactive debugger")
	flag.StringVar(&opts.config, "config", "", "settings file (oscript.yaml or oscript.toml)")
	flag.Var(&opts.defines, "D", "preprocessor symbol, may be repeated")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] <script.os>\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}
	os.Exit(run(opts, flag.Arg(0)))
}

func run(opts options, path string) int {
	abs, err := filepath.Abs(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		return 1
	}

	settings, err := loadSettings(opts, filepath.Dir(abs))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		return 1
	}
	logger := logging.New(settings.Log, os.Stderr)
	diagnostics.SetLocale(settings.Locale)

	src, err := sources.FromFile(abs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading input: %s\n", err)
		return 1
	}

	env, err := vm.NewEnv(nil, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		return 1
	}
	env.Configure(settings)
	env.Compiler.SetLogger(logger)
	if err := stdlib.Register(env.Types, env.Globals, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		return 1
	}

	var cache *imagecache.Store
	if settings.Cache.ImageDB != "" && !opts.dumpAST {
		cache, err = imagecache.Open(settings.Cache.ImageDB)
		if err != nil {
			logger.Warn().Err(err).Str("path", settings.Cache.ImageDB).Msg("image cache disabled")
		} else {
			cache.SetLogger(logger)
			defer cache.Close()
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	pctx := backend.NewContext(src, env.Compiler)
	pctx.Context = ctx
	pctx.Logger = logger

	switch {
	case opts.dumpAST:
		return dumpAST(pctx, os.Stdout)
	case opts.check:
		return report(backend.FrontStages(env.Compiler, cache).Run(pctx).Err())
	case opts.disasm:
		if _, err := backend.Compile(pctx, env.Compiler, cache); err != nil {
			return report(err)
		}
		text, err := backend.NewVM(env).Disassemble(pctx)
		if err != nil {
			return report(err)
		}
		fmt.Print(text)
		return 0
	}

	vmb := backend.NewVM(env, opts.debug)
	vmb.Configure(settings.Machine)
	vmb.SetLogger(logger)
	p := pipeline.New(
		&backend.ImageCacheProcessor{Cache: cache, Frontend: env.Compiler},
		&lexer.LexerProcessor{},
		&parser.ParserProcessor{},
		&backend.CompileProcessor{Frontend: env.Compiler, Cache: cache},
		backend.NewExecutionProcessor(vmb),
	)
	final := p.Run(pctx)

	if m := vmb.Machine(); m != nil && m.CodeStat() != nil {
		m.CodeStat().WriteTo(os.Stderr)
	}
	return report(final.Err())
}

func loadSettings(opts options, dir string) (*config.Settings, error) {
	var (
		s   *config.Settings
		err error
	)
	if opts.config != "" {
		s, err = config.Load(opts.config)
	} else {
		s, err = config.Discover(dir)
	}
	if err != nil {
		return nil, err
	}
	s.Preprocessor.Defines = append(s.Preprocessor.Defines, opts.defines...)
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func dumpAST(ctx *pipeline.PipelineContext, w io.Writer) int {
	ctx = pipeline.New(&lexer.LexerProcessor{}, &parser.ParserProcessor{}).Run(ctx)
	if ctx.Tree != nil {
		fmt.Fprint(w, ast.Dump(ctx.Tree, ctx.Root))
	}
	return report(ctx.Err())
}

// report prints err and returns the process exit code.
func report(err error) int {
	if err == nil {
		return 0
	}
	text := backend.FormatError(err)
	if logging.IsTerminal(os.Stderr) {
		text = "\x1b[31m" + text + "\x1b[0m"
	}
	fmt.Fprintln(os.Stderr, text)
	if errors.Is(err, context.Canceled) {
		return 130
	}
	return 1
}
