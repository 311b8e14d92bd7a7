package parser

import (
	"strings"
	"unicode/utf8"

	"github.com/mrtrizer/Abuksigun.UpScript/token"
)

// match implements the `match` combinator from spec section 4.1: if the
// input at the cursor equals s, the cursor advances past it and, unless
// kind is token.Skip, a leaf token spanning exactly s is appended to the
// current block. It never appends on failure and never moves the cursor
// on failure.
func (p *Parser) match(s string, kind token.Kind) bool {
	if !strings.HasPrefix(p.input[p.pos:], s) {
		return false
	}
	start := p.pos
	p.pos += len(s)
	p.trackFurthest(p.pos)
	if kind != token.Skip {
		// Binary/Unary/Increment/Setter tokens carry their own lexeme as
		// Value, since the compiler only ever sees the token tree, not
		// the original source text.
		p.appendChild(&token.Token{Kind: kind, Value: s, Span: token.Span{Start: start, Length: len(s)}})
	}
	return true
}

// keyword matches a reserved word (true, false, new) the way match would,
// except it additionally fails if the matched text is immediately
// followed by another identifier-continuation character -- otherwise
// "newValue" would be torn into the keyword "new" plus a dangling
// "Value". This is a necessary refinement spec section 4.1's grammar
// leaves implicit: Identifier's own character class (`[A-Za-z0-9]`)
// overlaps with every reserved word's trailing characters.
func (p *Parser) keyword(kw string) bool {
	if !strings.HasPrefix(p.input[p.pos:], kw) {
		return false
	}
	next := p.pos + len(kw)
	if next < len(p.input) {
		r, _ := utf8.DecodeRuneInString(p.input[next:])
		if isIdentContinue(r) {
			return false
		}
	}
	p.pos = next
	p.trackFurthest(p.pos)
	return true
}

// matchRune matches a single rune satisfying pred, the generalization of
// match needed to scan character classes (digits, identifier characters,
// arbitrary string-literal contents) that spec section 4.1 specifies by
// regex-like rule rather than by fixed lexeme.
func (p *Parser) matchRune(pred func(rune) bool, kind token.Kind) bool {
	if p.pos >= len(p.input) {
		return false
	}
	r, size := utf8.DecodeRuneInString(p.input[p.pos:])
	if !pred(r) {
		return false
	}
	start := p.pos
	p.pos += size
	p.trackFurthest(p.pos)
	if kind != token.Skip {
		p.appendChild(&token.Token{Kind: kind, Span: token.Span{Start: start, Length: size}})
	}
	return true
}

// and implements the `and` combinator: run each fn in sequence; on any
// failure, restore the cursor to where and started and discard any
// tokens appended to the current block during this attempt.
func (p *Parser) and(fns ...func() bool) bool {
	startPos := p.pos
	cur := p.currentBlock()
	startLen := len(cur.Children)
	for _, fn := range fns {
		if !fn() {
			p.pos = startPos
			cur.Children = cur.Children[:startLen]
			return false
		}
	}
	return true
}

// or implements the `or` combinator: try each fn in order from the saved
// cursor; the first success wins. A failed attempt's own partial effects
// are rolled back before the next is tried, even if that attempt was not
// itself wrapped in `and`.
func (p *Parser) or(fns ...func() bool) bool {
	startPos := p.pos
	cur := p.currentBlock()
	startLen := len(cur.Children)
	for _, fn := range fns {
		if fn() {
			return true
		}
		p.pos = startPos
		cur.Children = cur.Children[:startLen]
	}
	return false
}

// zeroOrMore implements the `zeroOrMore` combinator: repeatedly run
// and(fns...) until it fails. Always succeeds.
func (p *Parser) zeroOrMore(fns ...func() bool) bool {
	for p.and(fns...) {
	}
	return true
}

// block implements the `block` combinator: push a new Block token as the
// current parent, run body, pop it. On success the block is relabeled to
// kind and its Span.Length is set to the distance traveled. If kind is
// itself token.Block (an anonymous grouping production such as Additive's
// operator chain), the structural collapse invariant applies: a 0-child
// block contributes nothing to its parent, and a 1-child block is
// replaced by that single child. body may set p.currentBlock().Value
// directly before returning true, which is how Literal/Reference/
// MemberRef/ExplicitConversion/Constructor productions populate Value
// from the text they scanned (see parser/grammar.go).
func (p *Parser) block(kind token.Kind, body func() bool) bool {
	if p.depth >= p.maxDepth {
		return false
	}
	p.depth++
	defer func() { p.depth-- }()

	start := p.pos
	blk := &token.Token{Kind: token.Block, Span: token.Span{Start: start}}
	p.blocks = append(p.blocks, blk)

	ok := body()

	p.blocks = p.blocks[:len(p.blocks)-1]

	if !ok {
		p.pos = start
		return false
	}

	blk.Kind = kind
	blk.Span.Length = p.pos - start
	p.lastProduced = blk

	result := blk
	if blk.Kind == token.Block {
		switch len(blk.Children) {
		case 0:
			result = nil
		case 1:
			result = blk.Children[0]
		}
	}
	if result != nil {
		p.attach(result)
	}
	return true
}

// attach appends t to the enclosing frame. Parse always runs with a
// synthetic root frame pushed (see parser.go), so there is always an
// enclosing frame to attach to.
func (p *Parser) attach(t *token.Token) {
	p.appendChild(t)
}

func (p *Parser) currentBlock() *token.Token {
	return p.blocks[len(p.blocks)-1]
}

func (p *Parser) appendChild(t *token.Token) {
	cur := p.currentBlock()
	cur.Children = append(cur.Children, t)
}

func (p *Parser) trackFurthest(pos int) {
	if pos > p.furthest {
		p.furthest = pos
	}
}

func isIdentStart(r rune) bool {
	return r == '_' || (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z')
}

func isIdentContinue(r rune) bool {
	return (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
}

// identifierText scans `[A-Za-z_][A-Za-z0-9]*` at the cursor, advancing
// past it on success and leaving the cursor untouched on failure. This is
// Identifier's lexical rule from spec section 4.1; it is more than a
// fixed-lexeme match, so it is implemented as its own scanner rather than
// through the match combinator.
func (p *Parser) identifierText() (string, bool) {
	if p.pos >= len(p.input) {
		return "", false
	}
	start := p.pos
	r, size := utf8.DecodeRuneInString(p.input[p.pos:])
	if !isIdentStart(r) {
		return "", false
	}
	pos := p.pos + size
	for pos < len(p.input) {
		r, size = utf8.DecodeRuneInString(p.input[pos:])
		if !isIdentContinue(r) {
			break
		}
		pos += size
	}
	p.pos = pos
	p.trackFurthest(p.pos)
	return p.input[start:p.pos], true
}
