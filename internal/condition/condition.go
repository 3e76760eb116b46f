// SPDX-License-Identifier: MPL-2.0

// Package condition evaluates the boolean expressions packages attach to
// dependencies and toggle regions, such as "2701251094 && !ModB".
//
// An identifier is true when it names an active package. Operators are
// "!" / "not", "&&" / "and", "||" / "or" and parentheses, binding in that
// order. An empty expression is true; a malformed one is false.
package condition

import (
	"strings"
	"unicode"
)

type (
	// Func is the predicate signature consumed by the resolver and the toggler.
	Func func(expr string, active map[string]struct{}) bool

	tokenKind int

	token struct {
		kind tokenKind
		text string
	}

	parser struct {
		tokens []token
		pos    int
		active map[string]struct{}
		failed bool
	}
)

const (
	tokIdent tokenKind = iota
	tokNot
	tokAnd
	tokOr
	tokLParen
	tokRParen
)

// Evaluate reports whether expr holds for the given set of active package ids.
// It has no side effects.
func Evaluate(expr string, active map[string]struct{}) bool {
	tokens := tokenize(expr)
	if len(tokens) == 0 {
		return true
	}

	p := &parser{tokens: tokens, active: active}
	v := p.parseOr()
	if p.failed || p.pos != len(p.tokens) {
		return false
	}
	return v
}

func tokenize(expr string) []token {
	var tokens []token
	rs := []rune(expr)
	for i := 0; i < len(rs); {
		r := rs[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case r == '(':
			tokens = append(tokens, token{kind: tokLParen})
			i++
		case r == ')':
			tokens = append(tokens, token{kind: tokRParen})
			i++
		case r == '!':
			tokens = append(tokens, token{kind: tokNot})
			i++
		case r == '&' || r == '|':
			kind := tokAnd
			if r == '|' {
				kind = tokOr
			}
			tokens = append(tokens, token{kind: kind})
			i++
			if i < len(rs) && rs[i] == r {
				i++
			}
		default:
			start := i
			for i < len(rs) && !isDelim(rs[i]) {
				i++
			}
			word := string(rs[start:i])
			switch strings.ToLower(word) {
			case "not":
				tokens = append(tokens, token{kind: tokNot})
			case "and":
				tokens = append(tokens, token{kind: tokAnd})
			case "or":
				tokens = append(tokens, token{kind: tokOr})
			default:
				tokens = append(tokens, token{kind: tokIdent, text: word})
			}
		}
	}
	return tokens
}

func isDelim(r rune) bool {
	return unicode.IsSpace(r) || strings.ContainsRune("()!&|", r)
}

func (p *parser) peek() (token, bool) {
	if p.pos >= len(p.tokens) {
		return token{}, false
	}
	return p.tokens[p.pos], true
}

func (p *parser) parseOr() bool {
	v := p.parseAnd()
	for {
		t, ok := p.peek()
		if !ok || t.kind != tokOr {
			return v
		}
		p.pos++
		rhs := p.parseAnd()
		v = v || rhs
	}
}

func (p *parser) parseAnd() bool {
	v := p.parseUnary()
	for {
		t, ok := p.peek()
		if !ok || t.kind != tokAnd {
			return v
		}
		p.pos++
		rhs := p.parseUnary()
		v = v && rhs
	}
}

func (p *parser) parseUnary() bool {
	t, ok := p.peek()
	if !ok {
		p.failed = true
		return false
	}

	switch t.kind {
	case tokNot:
		p.pos++
		return !p.parseUnary()
	case tokLParen:
		p.pos++
		v := p.parseOr()
		if closing, ok := p.peek(); !ok || closing.kind != tokRParen {
			p.failed = true
			return false
		}
		p.pos++
		return v
	case tokIdent:
		p.pos++
		_, active := p.active[t.text]
		return active
	default:
		p.failed = true
		return false
	}
}
