package backend

import (
	"errors"

	"github.com/funvibe/oscript/internal/imagecache"
	"github.com/funvibe/oscript/internal/lexer"
	"github.com/funvibe/oscript/internal/parser"
	"github.com/funvibe/oscript/internal/pipeline"
	"github.com/funvibe/oscript/internal/sources"
	"github.com/funvibe/oscript/internal/vm"
)

// ImageCacheProcessor looks the module up in the image cache before it is
// parsed. On a hit the lexer, the parser and the compiler are skipped.
type ImageCacheProcessor struct {
	Cache    *imagecache.Store
	Frontend *vm.Frontend
}

func (p *ImageCacheProcessor) Name() string { return "imagecache" }

func (p *ImageCacheProcessor) Process(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
	if p.Cache == nil || ctx.Source == nil || ctx.HasErrors() {
		return ctx
	}
	ctx.CacheKey = imagecache.Key(ctx.Source, p.Frontend.Fingerprint())
	img, err := p.Cache.Get(ctx.Context, ctx.CacheKey)
	switch {
	case err == nil:
		ctx.Image = img
		ctx.Logger.Debug().Str("module", ctx.Source.Name).Msg("image cache hit")
	case errors.Is(err, imagecache.ErrNotFound):
		ctx.Logger.Debug().Str("module", ctx.Source.Name).Msg("image cache miss")
	default:
		ctx.Logger.Warn().Err(err).Str("module", ctx.Source.Name).Msg("image cache entry dropped")
	}
	return ctx
}

// CompileProcessor generates the module image from the parsed tree and
// stores it in the cache when one is configured.
type CompileProcessor struct {
	Frontend *vm.Frontend
	Cache    *imagecache.Store
}

func (p *CompileProcessor) Name() string { return "compiler" }

func (p *CompileProcessor) Process(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
	if ctx.Image != nil || ctx.HasErrors() || ctx.Tree == nil {
		return ctx
	}
	res := &vm.ParseResult{Tree: ctx.Tree, Root: ctx.Root}
	for _, name := range ctx.Imports {
		res.Imports = append(res.Imports, lexer.Import{Name: name})
	}
	img, err := p.Frontend.CompileParsed(ctx.Source, res)
	if err != nil {
		ctx.AddError(err)
		return ctx
	}
	ctx.Image = img

	if p.Cache != nil && ctx.CacheKey != "" {
		if err := p.Cache.Put(ctx.Context, ctx.CacheKey, img); err != nil {
			ctx.Logger.Warn().Err(err).Str("module", ctx.Source.Name).Msg("image not cached")
		}
	}
	return ctx
}

// ModuleImage returns the compiled image of ctx, or nil.
func ModuleImage(ctx *pipeline.PipelineContext) *vm.ModuleImage {
	img, _ := ctx.Image.(*vm.ModuleImage)
	return img
}

// Compile runs the front stages of the pipeline over src and returns the
// image. It is what -check and -disasm use.
func Compile(ctx *pipeline.PipelineContext, fe *vm.Frontend, cache *imagecache.Store) (*vm.ModuleImage, error) {
	ctx = FrontStages(fe, cache).Run(ctx)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return ModuleImage(ctx), nil
}

// FrontStages is the pipeline from source text to module image.
func FrontStages(fe *vm.Frontend, cache *imagecache.Store) *pipeline.Pipeline {
	return pipeline.New(
		&ImageCacheProcessor{Cache: cache, Frontend: fe},
		&lexer.LexerProcessor{},
		&parser.ParserProcessor{},
		&CompileProcessor{Frontend: fe, Cache: cache},
	)
}

// NewContext prepares a pipeline context for src with the defines of fe.
func NewContext(src *sources.SourceCode, fe *vm.Frontend) *pipeline.PipelineContext {
	ctx := pipeline.NewPipelineContext(src)
	ctx.Defines = fe.Defines()
	return ctx
}
