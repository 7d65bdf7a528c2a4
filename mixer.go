// Package mixer compiles composable shader mixins into a single SPIR-V
// module.
//
// A mixin is a shader fragment that may inherit from other mixins, take
// generic arguments and expose composition slots filled by other mixins.
// Compilation resolves the mixin graph into an ordered list of fragments,
// generates one module per fragment and links them:
//
//  1. Resolve the inheritance and composition graph (package mixin)
//  2. Generate a module per fragment (package lower)
//  3. Merge the modules and normalize the result (package passes)
//  4. Encode the binary
//
// Example usage:
//
//	loader := mixin.NewMemoryLoader(shaders...)
//	binary, err := mixer.Compile(ctx, loader, mixin.ClassReference{Name: "Material"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// The parser producing ast.Shader values and the consumer of the binary are
// outside this module.
package mixer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/oklog/ulid/v2"

	"github.com/gogpu/mixer/ast"
	"github.com/gogpu/mixer/lower"
	"github.com/gogpu/mixer/mixin"
	"github.com/gogpu/mixer/passes"
	"github.com/gogpu/mixer/spirv"
)

// Options configures compilation.
type Options struct {
	// Version is the target SPIR-V version (default: 1.3).
	Version spirv.Version

	// Generator is written to the module header.
	Generator uint32

	// DebugNames emits OpName for functions.
	DebugNames bool

	// Validate checks the finished module's invariants before encoding.
	Validate bool

	// Workers bounds the goroutines CompileBatch uses (default: NumCPU).
	Workers int
}

// DefaultOptions returns sensible default options.
func DefaultOptions() Options {
	return Options{
		Version:    spirv.Version1_3,
		Generator:  spirv.GeneratorID,
		DebugNames: true,
		Validate:   true,
		Workers:    runtime.NumCPU(),
	}
}

// Compile compiles src with default options. It runs on the calling
// goroutine and starts no workers.
func Compile(ctx context.Context, loader mixin.Loader, src mixin.ShaderSource) ([]byte, error) {
	c := NewCompiler(loader, DefaultOptions())
	defer c.Close()
	return c.Compile(ctx, src)
}

// ErrClosed is returned for batch sources submitted after Close.
var ErrClosed = errors.New("mixer: compiler closed")

// Compiler compiles shader sources against one mixin loader. A Compiler is
// safe for concurrent use as long as its loader is.
//
// The worker pool behind CompileBatch is started by the first batch. Callers
// that run batches must call Close to stop it.
type Compiler struct {
	loader mixin.Loader
	opts   Options

	mu     sync.Mutex
	pool   worker.DynamicWorkerPool
	closed bool
}

// queueSize is the number of batch tasks that may wait for a worker.
const queueSize = 256

// NewCompiler creates a compiler. A non-positive Workers falls back to one
// worker per CPU.
func NewCompiler(loader mixin.Loader, opts Options) *Compiler {
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	return &Compiler{loader: loader, opts: opts}
}

// Close stops the batch worker pool. It must not run concurrently with
// CompileBatch. Compile keeps working after Close; CompileBatch reports
// ErrClosed for every source. Close is idempotent.
func (c *Compiler) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	if c.pool != nil {
		c.pool.Stop()
		c.pool = nil
	}
}

// workers returns the batch pool, starting it on first use. It returns nil
// once the compiler is closed.
func (c *Compiler) workers() worker.DynamicWorkerPool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	if c.pool == nil {
		c.pool = worker.NewDynamicWorkerPool(c.opts.Workers, queueSize, 1*time.Second)
	}
	return c.pool
}

// Options returns the compiler's options.
func (c *Compiler) Options() Options {
	return c.opts
}

// Compile compiles src to a SPIR-V binary.
func (c *Compiler) Compile(ctx context.Context, src mixin.ShaderSource) ([]byte, error) {
	m, err := c.CompileModule(ctx, src)
	if err != nil {
		return nil, err
	}
	return m.Bytes(), nil
}

// CompileModule compiles src and returns the linked module.
//
// The pipeline is:
//  1. Resolve src into fragments
//  2. Generate a module per fragment
//  3. Merge and normalize (see passes.Run)
//
// The first failing stage ends the request. Errors wrap the typed errors of
// each stage: *mixin.ResolutionError, *ast.SourceError,
// *lower.InternalError, *passes.MergeConflictError and
// *passes.InvariantError.
func (c *Compiler) CompileModule(ctx context.Context, src mixin.ShaderSource) (*spirv.Module, error) {
	log := Logger().With("request", ulid.Make().String())
	start := time.Now()

	m, err := c.compile(ctx, src, log)
	if err != nil {
		log.Warn("compile aborted", "err", err)
		return nil, err
	}
	log.Debug("compiled", "bound", m.Header.Bound, "functions", m.FunctionCount(), "elapsed", time.Since(start))
	return m, nil
}

// inherited lists the members fragments[i] can reach through its bases.
// Bases are resolved before the mixins deriving from them and share their
// prefix, so each is found among the earlier fragments of the same instance.
func inherited(fragments []mixin.Fragment, i int) []lower.Import {
	frag := fragments[i]
	seen := make(map[string]bool)
	var imports []lower.Import
	var walk func(bases []*ast.MixinRef)
	walk = func(bases []*ast.MixinRef) {
		for _, ref := range bases {
			if seen[ref.Name] {
				continue
			}
			seen[ref.Name] = true
			for j := i - 1; j >= 0; j-- {
				base := fragments[j]
				if base.Prefix != frag.Prefix || base.Shader.Name != ref.Name {
					continue
				}
				for _, member := range base.Shader.Members {
					imports = append(imports, lower.Import{Member: member, LinkName: frag.Prefix + member.Name})
				}
				walk(base.Shader.Bases)
				break
			}
		}
	}
	walk(frag.Shader.Bases)
	return imports
}

func (c *Compiler) compile(ctx context.Context, src mixin.ShaderSource, log *slog.Logger) (*spirv.Module, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fragments, err := mixin.Resolve(c.loader, src)
	if err != nil {
		return nil, fmt.Errorf("resolve: %w", err)
	}
	log.Debug("resolved", "fragments", len(fragments))

	units := make([]passes.Unit, 0, len(fragments))
	for i, frag := range fragments {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		m, err := lower.Generate(frag.Shader, lower.Options{
			Version:    c.opts.Version,
			Prefix:     frag.Prefix,
			DebugNames: c.opts.DebugNames,
			Imports:    inherited(fragments, i),
		})
		if err != nil {
			return nil, fmt.Errorf("generate %s%s: %w", frag.Prefix, frag.Key, err)
		}
		units = append(units, passes.Unit{Name: frag.Prefix + frag.Key, Module: m})
	}

	m, report, err := passes.Run(ctx, units, passes.Options{Validate: c.opts.Validate, Logger: log})
	if err != nil {
		return nil, fmt.Errorf("link: %w", err)
	}
	log.Debug("linked",
		"replaced", report.Replaced,
		"types_removed", report.TypesRemoved,
		"reordered", report.Reordered,
		"renumbered", report.Renumbered,
		"dropped", report.Dropped,
	)
	m.Header.Generator = c.opts.Generator
	return m, nil
}

// BatchResult is the outcome of one source of a batch.
type BatchResult struct {
	Source mixin.ShaderSource
	Binary []byte
	Err    error
}

// CompileBatch compiles independent sources in parallel on the compiler's
// worker pool. Results are in the order of sources; a failing source does
// not stop the others.
func (c *Compiler) CompileBatch(ctx context.Context, sources []mixin.ShaderSource) []BatchResult {
	results := make([]BatchResult, len(sources))
	pool := c.workers()
	if pool == nil {
		for i, src := range sources {
			results[i] = BatchResult{Source: src, Err: ErrClosed}
		}
		return results
	}

	log := Logger()
	log.Info("batch started", "sources", len(sources), "workers", c.opts.Workers)
	start := time.Now()

	var wg sync.WaitGroup
	for i, src := range sources {
		wg.Add(1)
		pool.SubmitTask(worker.Task{
			ID: i,
			Do: func() (any, error) {
				defer wg.Done()
				binary, err := c.Compile(ctx, src)
				results[i] = BatchResult{Source: src, Binary: binary, Err: err}
				return nil, nil
			},
		})
	}
	wg.Wait()

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	log.Info("batch finished", "sources", len(sources), "failed", failed, "elapsed", time.Since(start))
	return results
}
