package parser

import (
	"strconv"
	"strings"

	"github.com/mrtrizer/Abuksigun.UpScript/token"
)

// This file implements spec section 4.1's grammar directly over
// combinators. Productions that the Data Model names as a distinct token
// Kind call p.block with that kind; productions that are purely
// structural (Factor, BlockValue's postfix loop, argument lists) run
// and/or/zeroOrMore directly against whatever frame is already current,
// contributing their result(s) as siblings rather than wrapping them in
// a node of their own.

// Expression := LSExpression '=' Expression | RSExpression
func (p *Parser) expression() bool {
	return p.or(p.assignment, p.rsExpression)
}

func (p *Parser) assignment() bool {
	return p.block(token.Block, func() bool {
		return p.and(
			p.lsExpression,
			p.space,
			func() bool { return p.match("=", token.Setter) },
			p.space,
			p.expression,
		)
	})
}

// RSExpression := Comparison (('&&'|'||') Comparison)*
func (p *Parser) rsExpression() bool {
	return p.block(token.Block, func() bool {
		return p.and(p.comparison, func() bool {
			return p.zeroOrMore(func() bool {
				return p.and(p.space, p.logicalOp, p.space, p.comparison)
			})
		})
	})
}

func (p *Parser) logicalOp() bool {
	return p.match("&&", token.Binary) || p.match("||", token.Binary)
}

// Comparison := Additive (('<='|'>='|'<'|'>'|'=='|'!=') Additive)*
func (p *Parser) comparison() bool {
	return p.block(token.Block, func() bool {
		return p.and(p.additive, func() bool {
			return p.zeroOrMore(func() bool {
				return p.and(p.space, p.comparisonOp, p.space, p.additive)
			})
		})
	})
}

func (p *Parser) comparisonOp() bool {
	// Longer lexemes first, per spec's tie-break rule; backtracking in
	// `and` would also recover correctly if this were reversed, but the
	// explicit order avoids ever needing to.
	for _, lexeme := range []string{"<=", ">=", "==", "!=", "<", ">"} {
		if p.match(lexeme, token.Binary) {
			return true
		}
	}
	return false
}

// Additive := Term (('+'|'-') Term)*
func (p *Parser) additive() bool {
	return p.block(token.Block, func() bool {
		return p.and(p.term, func() bool {
			return p.zeroOrMore(func() bool {
				return p.and(p.space, p.additiveOp, p.space, p.term)
			})
		})
	})
}

func (p *Parser) additiveOp() bool {
	return p.match("+", token.Binary) || p.match("-", token.Binary)
}

// Term := Factor (('*'|'/'|'%') Factor)*
func (p *Parser) term() bool {
	return p.block(token.Block, func() bool {
		return p.and(p.factor, func() bool {
			return p.zeroOrMore(func() bool {
				return p.and(p.space, p.termOp, p.space, p.factor)
			})
		})
	})
}

func (p *Parser) termOp() bool {
	return p.match("*", token.Binary) || p.match("/", token.Binary) || p.match("%", token.Binary)
}

// Factor := space (BlockValue | Unary) space
//
// Factor has no Kind of its own; it only trims surrounding whitespace
// around whichever single token BlockValue or Unary produces.
func (p *Parser) factor() bool {
	return p.and(p.space, func() bool { return p.or(p.blockValue, p.unary) }, p.space)
}

// Unary := ('++'|'--'|'-'|'!') space (BlockValue|Unary)
//
// Unary produces a 2-child Block: [operator leaf, operand]. The operator
// leaf's own Span is exactly the operator's lexeme (token.Increment for
// ++/--, token.Unary for -/!), satisfying the Data Model's requirement
// that Unary/Increment tokens' lexemes be recoverable from their span.
func (p *Parser) unary() bool {
	return p.block(token.Block, func() bool {
		return p.and(p.unaryOrIncrementOp, p.space, func() bool { return p.or(p.blockValue, p.unary) })
	})
}

func (p *Parser) unaryOrIncrementOp() bool {
	if p.match("++", token.Increment) {
		return true
	}
	if p.match("--", token.Increment) {
		return true
	}
	if p.match("-", token.Unary) {
		return true
	}
	if p.match("!", token.Unary) {
		return true
	}
	return false
}

// BlockValue := Primary (MemberRef | FunctionArgs | Index)*
//
// Like Unary, BlockValue produces an anonymous Block (no Kind of its
// own): [Primary-result, postfix, postfix, ...]. A single Primary with no
// postfixes collapses to just that Primary's token via the 1-child rule.
func (p *Parser) blockValue() bool {
	return p.block(token.Block, func() bool {
		return p.and(p.primary, func() bool {
			return p.zeroOrMore(func() bool {
				return p.or(p.memberRef, p.functionArgs, p.index)
			})
		})
	})
}

// Primary := ExplicitConversion | Literal | Constructor | Reference | '(' Expression ')'
func (p *Parser) primary() bool {
	return p.or(p.explicitConversion, p.literal, p.constructor, p.reference, p.parenExpression)
}

func (p *Parser) parenExpression() bool {
	return p.and(
		func() bool { return p.match("(", token.Skip) },
		p.space,
		p.expression,
		p.space,
		func() bool { return p.match(")", token.Skip) },
	)
}

// ExplicitConversion := '(' Identifier ')' Factor
//
// Produces a 2-child Block: [ExplicitConversion leaf carrying the target
// type name as Value, operand]. Whether the identifier between the parens
// names a primitive or a registered host type is checked at compile time,
// not here; the grammar accepts any identifier.
func (p *Parser) explicitConversion() bool {
	return p.block(token.Block, func() bool {
		var name string
		return p.and(
			func() bool { return p.match("(", token.Skip) },
			p.space,
			func() bool {
				return p.block(token.ExplicitConversion, func() bool {
					text, ok := p.identifierText()
					if !ok {
						return false
					}
					name = text
					p.currentBlock().Value = name
					return true
				})
			},
			p.space,
			func() bool { return p.match(")", token.Skip) },
			p.factor,
		)
	})
}

// Constructor := 'new' Identifier FunctionArgs
func (p *Parser) constructor() bool {
	return p.block(token.Constructor, func() bool {
		return p.and(
			func() bool { return p.keyword("new") },
			p.space,
			func() bool {
				text, ok := p.identifierText()
				if !ok {
					return false
				}
				p.currentBlock().Value = text
				return true
			},
			p.space,
			p.argList,
		)
	})
}

// FunctionArgs := '(' (Expression (',' Expression)*)? ')'
//
// As a postfix of BlockValue, FunctionArgs produces a Function token
// whose children are the argument expressions.
func (p *Parser) functionArgs() bool {
	return p.block(token.Function, p.argList)
}

// argList parses '(' (Expression (',' Expression)*)? ')' and appends each
// argument Expression as a child of whatever block is currently open. It
// has no Kind of its own: Constructor and FunctionArgs both wrap it.
func (p *Parser) argList() bool {
	return p.and(
		func() bool { return p.match("(", token.Skip) },
		p.space,
		func() bool {
			return p.or(
				func() bool {
					return p.and(p.expression, func() bool {
						return p.zeroOrMore(func() bool {
							return p.and(p.space, func() bool { return p.match(",", token.Skip) }, p.space, p.expression)
						})
					})
				},
				func() bool { return true }, // zero arguments
			)
		},
		p.space,
		func() bool { return p.match(")", token.Skip) },
	)
}

// Index := '[' Expression (',' Expression)* ']'
func (p *Parser) index() bool {
	return p.block(token.Index, func() bool {
		return p.and(
			func() bool { return p.match("[", token.Skip) },
			p.space,
			p.expression,
			func() bool {
				return p.zeroOrMore(func() bool {
					return p.and(p.space, func() bool { return p.match(",", token.Skip) }, p.space, p.expression)
				})
			},
			p.space,
			func() bool { return p.match("]", token.Skip) },
		)
	})
}

// MemberRef := '.' Identifier
//
// Value is the identifier text, with the leading '.' stripped.
func (p *Parser) memberRef() bool {
	return p.block(token.MemberRef, func() bool {
		return p.and(
			func() bool { return p.match(".", token.Skip) },
			func() bool {
				text, ok := p.identifierText()
				if !ok {
					return false
				}
				p.currentBlock().Value = text
				return true
			},
		)
	})
}

// Reference := Identifier
func (p *Parser) reference() bool {
	return p.block(token.Reference, func() bool {
		text, ok := p.identifierText()
		if !ok {
			return false
		}
		p.currentBlock().Value = text
		return true
	})
}

// LSExpression := Reference (MemberRef | Index)*
//
// The assignment target chain: unlike BlockValue, it excludes
// FunctionArgs -- a function call's return value is not assignable.
func (p *Parser) lsExpression() bool {
	return p.block(token.Block, func() bool {
		return p.and(p.reference, func() bool {
			return p.zeroOrMore(func() bool {
				return p.or(p.memberRef, p.index)
			})
		})
	})
}

// Literal := Float | Integer | String | Bool
//
// Float is tried before Integer so "3.14" is not torn into an Integer
// "3" followed by a dangling ".14"; Bool is tried so the grammar reaches
// it (and recognizes "true"/"false" as literals) before Reference ever
// gets a chance to swallow them as identifiers.
func (p *Parser) literal() bool {
	return p.or(p.floatLiteral, p.integerLiteral, p.stringLiteral, p.boolLiteral)
}

func (p *Parser) floatLiteral() bool {
	return p.block(token.Literal, func() bool {
		ok := p.and(p.digits, func() bool { return p.match(".", token.Skip) }, p.digits)
		if !ok {
			return false
		}
		v, err := strconv.ParseFloat(p.spanText(), 64)
		if err != nil {
			return false
		}
		p.currentBlock().Value = v
		return true
	})
}

func (p *Parser) integerLiteral() bool {
	return p.block(token.Literal, func() bool {
		if !p.digits() {
			return false
		}
		v, err := strconv.ParseInt(p.spanText(), 10, 32)
		if err != nil {
			return false
		}
		p.currentBlock().Value = int32(v)
		return true
	})
}

func (p *Parser) stringLiteral() bool {
	return p.block(token.Literal, func() bool {
		ok := p.and(
			func() bool { return p.match("\"", token.Skip) },
			func() bool { return p.zeroOrMore(p.stringChar) },
			func() bool { return p.match("\"", token.Skip) },
		)
		if !ok {
			return false
		}
		text := p.spanText()
		inner := text[1 : len(text)-1]
		p.currentBlock().Value = strings.ReplaceAll(inner, `\"`, `"`)
		return true
	})
}

func (p *Parser) stringChar() bool {
	if p.match(`\"`, token.Skip) {
		return true
	}
	return p.matchRune(func(r rune) bool { return r != '"' }, token.Skip)
}

func (p *Parser) boolLiteral() bool {
	return p.block(token.Literal, func() bool {
		if p.keyword("true") {
			p.currentBlock().Value = true
			return true
		}
		if p.keyword("false") {
			p.currentBlock().Value = false
			return true
		}
		return false
	})
}

func (p *Parser) digit() bool {
	return p.matchRune(func(r rune) bool { return r >= '0' && r <= '9' }, token.Skip)
}

func (p *Parser) digits() bool {
	return p.and(p.digit, func() bool { return p.zeroOrMore(p.digit) })
}

// spanText returns the text captured so far by the currently open block,
// from its recorded start up to the cursor. Used by Literal productions
// to parse their own captured text into Value.
func (p *Parser) spanText() string {
	cur := p.currentBlock()
	return p.input[cur.Span.Start:p.pos]
}
