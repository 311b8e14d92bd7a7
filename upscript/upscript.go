// Package upscript is the top-level convenience API over parser, compiler,
// and vm: NewParser, Compile, Run, and Eval wire the three stages together the
// way a host that does not need to tune each stage separately would use
// them, following the teacher's risor.go/risor_options.go/program.go
// layering (Option/collectOptions, Program, Compile/Run/Eval).
package upscript

import (
	"github.com/rs/zerolog"

	"github.com/mrtrizer/Abuksigun.UpScript/compiler"
	"github.com/mrtrizer/Abuksigun.UpScript/env"
	"github.com/mrtrizer/Abuksigun.UpScript/parser"
	"github.com/mrtrizer/Abuksigun.UpScript/reflection"
	"github.com/mrtrizer/Abuksigun.UpScript/token"
	"github.com/mrtrizer/Abuksigun.UpScript/vm"
)

// Option configures parsing, compilation, and evaluation together.
type Option func(*options)

type options struct {
	filename string
	maxDepth int
	logger   zerolog.Logger
	adapter  reflection.Adapter
}

func collectOptions(opts ...Option) *options {
	o := &options{logger: zerolog.Nop()}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return o
}

func (o *options) parserOpts() []parser.Option {
	var out []parser.Option
	if o.filename != "" {
		out = append(out, parser.WithFilename(o.filename))
	}
	if o.maxDepth > 0 {
		out = append(out, parser.WithMaxDepth(o.maxDepth))
	}
	out = append(out, parser.WithLogger(o.logger))
	return out
}

func (o *options) compilerOpts() []compiler.Option {
	out := []compiler.Option{compiler.WithLogger(o.logger)}
	if o.adapter != nil {
		out = append(out, compiler.WithAdapter(o.adapter))
	}
	return out
}

func (o *options) vmOpts() []vm.Option {
	return []vm.Option{vm.WithLogger(o.logger)}
}

// WithFilename names the input in the parser's log output; it is not
// included in returned errors.
func WithFilename(filename string) Option {
	return func(o *options) { o.filename = filename }
}

// WithMaxDepth overrides the parser's recursion depth limit.
func WithMaxDepth(n int) Option {
	return func(o *options) { o.maxDepth = n }
}

// WithLogger supplies a logger shared by the parser, compiler, and VM.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithAdapter overrides the reflection.Adapter the compiler uses to
// resolve host members, constructors, conversions, and indexers.
func WithAdapter(adapter reflection.Adapter) Option {
	return func(o *options) { o.adapter = adapter }
}

// Parser bundles a parse and the compiler options that should apply to
// whatever it parses, so a host that wants to inspect the token tree
// before compiling (for tooling, linting, or caching the tree itself) can
// do so without juggling parser.Option and compiler.Option separately.
type Parser struct {
	inner *parser.Parser
	opts  *options
}

// NewParser returns a Parser configured by opts, per the External
// Interfaces table.
func NewParser(text string, opts ...Option) *Parser {
	o := collectOptions(opts...)
	return &Parser{inner: parser.New(text, o.parserOpts()...), opts: o}
}

// Parse runs the grammar over the Parser's text.
func (p *Parser) Parse() (*token.Token, error) {
	return p.inner.Parse()
}

// Compile lowers an already-parsed token tree against environment, using
// the same logger/adapter options this Parser was constructed with.
func (p *Parser) Compile(tok *token.Token, environment env.Environment) (compiler.Result, error) {
	return compiler.Compile(tok, environment, p.opts.compilerOpts()...)
}

// Compile parses and compiles text against environment, producing a
// Program ready to Run. The returned Program is immutable and may be
// cached and reused across many Run calls, per spec section 5.
func Compile(text string, environment env.Environment, opts ...Option) (*Program, error) {
	o := collectOptions(opts...)
	tok, err := parser.Parse(text, o.parserOpts()...)
	if err != nil {
		return nil, err
	}
	result, err := compiler.Compile(tok, environment, o.compilerOpts()...)
	if err != nil {
		return nil, err
	}
	return newProgram(text, result), nil
}

// Run executes a previously compiled Program against environment.
func Run(program *Program, environment env.Environment, opts ...Option) (any, error) {
	o := collectOptions(opts...)
	return vm.Run(program.Instructions, environment, o.vmOpts()...)
}

// Eval compiles and immediately runs text against environment, the
// one-shot case that needs neither a cached Program nor VM reuse.
func Eval(text string, environment env.Environment, opts ...Option) (any, error) {
	program, err := Compile(text, environment, opts...)
	if err != nil {
		return nil, err
	}
	return Run(program, environment, opts...)
}
