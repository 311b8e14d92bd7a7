// Package parser turns expression text into a token.Token tree using the
// combinator machine from spec section 4.1: match/and/or/zeroOrMore/block
// operating directly over the input string with a side-stack of
// in-progress Block tokens, rather than a token-stream Pratt parser.
package parser

import (
	"os"

	"github.com/rs/zerolog"

	"github.com/mrtrizer/Abuksigun.UpScript/errz"
	"github.com/mrtrizer/Abuksigun.UpScript/token"
)

// defaultMaxDepth bounds combinator recursion so a pathological input
// (deeply nested parens, a long chain of unary operators) fails with a
// normal parse error instead of exhausting the goroutine stack.
const defaultMaxDepth = 500

// Parser holds the combinator machine's mutable state for a single parse.
// It is not safe for concurrent use; create one Parser per call to Parse,
// the way the teacher's parser.Parser is scoped to one compilation unit.
type Parser struct {
	input    string
	filename string
	pos      int
	furthest int
	blocks   []*token.Token
	lastProduced *token.Token
	depth    int
	maxDepth int
	logger   zerolog.Logger
}

// Option configures a Parser. The functional-options shape follows the
// teacher's parser.Option/compiler.Option/vm.Option family.
type Option func(*Parser)

// WithFilename attaches a name used only for log context; it does not
// affect parsing and is not required.
func WithFilename(name string) Option {
	return func(p *Parser) { p.filename = name }
}

// WithMaxDepth overrides the recursion budget. The default is 500.
func WithMaxDepth(n int) Option {
	return func(p *Parser) { p.maxDepth = n }
}

// WithLogger overrides the parser's logger. The default writes only
// warn-level and higher events to os.Stderr.
func WithLogger(logger zerolog.Logger) Option {
	return func(p *Parser) { p.logger = logger }
}

// New creates a Parser over input, ready to Parse once.
func New(input string, opts ...Option) *Parser {
	p := &Parser{
		input:    input,
		maxDepth: defaultMaxDepth,
		logger:   zerolog.New(os.Stderr).Level(zerolog.WarnLevel).With().Timestamp().Logger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse runs the grammar's top production, Expression, over the whole
// input. It fails with errz.UnexpectedToken, carrying a dump of whatever
// was built before backtracking gave up, if the grammar does not accept
// the input or accepts only a strict prefix of it.
func (p *Parser) Parse() (*token.Token, error) {
	p.blocks = []*token.Token{{Kind: token.Block}} // synthetic root frame
	ok := p.and(p.space, p.expression, p.space)
	rootChildren := p.blocks[0].Children

	var root *token.Token
	if ok && len(rootChildren) == 1 {
		root = rootChildren[0]
	}

	if !ok || p.pos != len(p.input) || root == nil {
		offset := p.furthest
		var partial *token.Token
		switch {
		case len(rootChildren) > 0:
			partial = rootChildren[len(rootChildren)-1]
		default:
			partial = p.lastProduced
		}
		p.logger.Debug().Str("file", p.filename).Int("offset", offset).Msg("parse failed")
		return nil, &errz.UnexpectedToken{
			Location:    errz.Resolve(errz.AtOffset(offset), p.input),
			PartialTree: token.Dump(partial),
		}
	}

	p.logger.Debug().Str("file", p.filename).Msg("parse succeeded")
	return root, nil
}

// Parse is the package-level convenience wrapping New(text, opts...).Parse().
func Parse(text string, opts ...Option) (*token.Token, error) {
	return New(text, opts...).Parse()
}

func (p *Parser) space() bool {
	return p.zeroOrMore(func() bool {
		return p.matchRune(func(r rune) bool {
			return r == ' ' || r == '\t' || r == '\n' || r == '\r'
		}, token.Skip)
	})
}
