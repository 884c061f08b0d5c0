// File: internal/profile/predicate.go
// Description: Small boolean expression language for behavior triggers.
// Expressions are parsed and compiled once at profile load; evaluation is a
// pure function over the belief snapshot.
//
// Grammar:
//
//	expr    = term { "or" term }
//	term    = factor { "and" factor }
//	factor  = "not" factor | "(" expr ")" | atom
//	atom    = ident cmp number | ident "(" string ")" | ident
//	cmp     = "<" | "<=" | ">" | ">=" | "==" | "!="
//
// Identifiers: health_pct, target_distance, overall_confidence, in_combat,
// has_buff('name'), has_debuff('name'), has_quest_marker('name').

package profile

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/xaelith/ghostpilot/api/schemas"
)

// Predicate is a compiled trigger expression.
type Predicate func(schemas.CharacterStatus) bool

// CompilePredicate parses src into an evaluable predicate. A parse error is
// a profile validation failure, surfaced at load time.
func CompilePredicate(src string) (Predicate, error) {
	toks, err := lex(src)
	if err != nil {
		return nil, fmt.Errorf("trigger %q: %w", src, err)
	}
	p := &parser{toks: toks}
	pred, err := p.parseExpr()
	if err != nil {
		return nil, fmt.Errorf("trigger %q: %w", src, err)
	}
	if !p.done() {
		return nil, fmt.Errorf("trigger %q: unexpected token %q", src, p.peek().text)
	}
	return pred, nil
}

// -- Lexer --

type tokenKind int

const (
	tokIdent tokenKind = iota
	tokNumber
	tokString
	tokOp    // comparison operators
	tokLParen
	tokRParen
	tokEOF
)

type token struct {
	kind tokenKind
	text string
}

func lex(src string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(src) {
		c := src[i]
		switch {
		case unicode.IsSpace(rune(c)):
			i++
		case c == '(':
			toks = append(toks, token{tokLParen, "("})
			i++
		case c == ')':
			toks = append(toks, token{tokRParen, ")"})
			i++
		case c == '\'' || c == '"':
			quote := c
			j := i + 1
			for j < len(src) && src[j] != quote {
				j++
			}
			if j >= len(src) {
				return nil, fmt.Errorf("unterminated string at offset %d", i)
			}
			toks = append(toks, token{tokString, src[i+1 : j]})
			i = j + 1
		case strings.ContainsRune("<>=!", rune(c)):
			j := i + 1
			if j < len(src) && src[j] == '=' {
				j++
			}
			op := src[i:j]
			if op == "=" || op == "!" {
				return nil, fmt.Errorf("invalid operator %q at offset %d", op, i)
			}
			toks = append(toks, token{tokOp, op})
			i = j
		case unicode.IsDigit(rune(c)) || c == '.' || c == '-':
			j := i
			if src[j] == '-' {
				j++
			}
			for j < len(src) && (unicode.IsDigit(rune(src[j])) || src[j] == '.') {
				j++
			}
			if _, err := strconv.ParseFloat(src[i:j], 64); err != nil {
				return nil, fmt.Errorf("invalid number %q at offset %d", src[i:j], i)
			}
			toks = append(toks, token{tokNumber, src[i:j]})
			i = j
		case unicode.IsLetter(rune(c)) || c == '_':
			j := i
			for j < len(src) && (unicode.IsLetter(rune(src[j])) || unicode.IsDigit(rune(src[j])) || src[j] == '_') {
				j++
			}
			toks = append(toks, token{tokIdent, src[i:j]})
			i = j
		default:
			return nil, fmt.Errorf("unexpected character %q at offset %d", c, i)
		}
	}
	return append(toks, token{tokEOF, ""}), nil
}

// -- Parser --

type parser struct {
	toks []token
	pos  int
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) done() bool { return p.peek().kind == tokEOF }

func (p *parser) parseExpr() (Predicate, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokIdent && p.peek().text == "or" {
		p.next()
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		l, r := left, right
		left = func(s schemas.CharacterStatus) bool { return l(s) || r(s) }
	}
	return left, nil
}

func (p *parser) parseTerm() (Predicate, error) {
	left, err := p.parseFactor()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokIdent && p.peek().text == "and" {
		p.next()
		right, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		l, r := left, right
		left = func(s schemas.CharacterStatus) bool { return l(s) && r(s) }
	}
	return left, nil
}

func (p *parser) parseFactor() (Predicate, error) {
	t := p.peek()
	switch {
	case t.kind == tokIdent && t.text == "not":
		p.next()
		inner, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		return func(s schemas.CharacterStatus) bool { return !inner(s) }, nil
	case t.kind == tokLParen:
		p.next()
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if p.next().kind != tokRParen {
			return nil, fmt.Errorf("missing closing parenthesis")
		}
		return inner, nil
	case t.kind == tokIdent:
		return p.parseAtom()
	default:
		return nil, fmt.Errorf("unexpected token %q", t.text)
	}
}

func (p *parser) parseAtom() (Predicate, error) {
	ident := p.next().text

	// Function-style atoms: has_buff('x') etc.
	if p.peek().kind == tokLParen {
		p.next()
		arg := p.next()
		if arg.kind != tokString {
			return nil, fmt.Errorf("%s expects a quoted name", ident)
		}
		if p.next().kind != tokRParen {
			return nil, fmt.Errorf("%s: missing closing parenthesis", ident)
		}
		name := arg.text
		switch ident {
		case "has_buff":
			return func(s schemas.CharacterStatus) bool { return s.HasBuff(name) }, nil
		case "has_debuff":
			return func(s schemas.CharacterStatus) bool { return s.HasDebuff(name) }, nil
		case "has_quest_marker":
			return func(s schemas.CharacterStatus) bool {
				for _, m := range s.QuestMarkers {
					if m == name {
						return true
					}
				}
				return false
			}, nil
		default:
			return nil, fmt.Errorf("unknown function %q", ident)
		}
	}

	// Comparison atoms: health_pct < 20 etc.
	if p.peek().kind == tokOp {
		op := p.next().text
		num := p.next()
		if num.kind != tokNumber {
			return nil, fmt.Errorf("%s %s expects a number", ident, op)
		}
		threshold, _ := strconv.ParseFloat(num.text, 64)
		field, err := numericField(ident)
		if err != nil {
			return nil, err
		}
		cmp, err := comparator(op)
		if err != nil {
			return nil, err
		}
		return func(s schemas.CharacterStatus) bool { return cmp(field(s), threshold) }, nil
	}

	// Bare boolean atoms.
	switch ident {
	case "in_combat":
		return func(s schemas.CharacterStatus) bool { return s.InCombat }, nil
	case "true":
		return func(schemas.CharacterStatus) bool { return true }, nil
	case "false":
		return func(schemas.CharacterStatus) bool { return false }, nil
	default:
		return nil, fmt.Errorf("unknown identifier %q", ident)
	}
}

func numericField(name string) (func(schemas.CharacterStatus) float64, error) {
	switch name {
	case "health_pct":
		return func(s schemas.CharacterStatus) float64 { return s.HealthPct }, nil
	case "target_distance":
		return func(s schemas.CharacterStatus) float64 { return s.TargetDistance }, nil
	case "overall_confidence":
		return func(s schemas.CharacterStatus) float64 { return s.OverallConfidence }, nil
	default:
		return nil, fmt.Errorf("unknown numeric field %q", name)
	}
}

func comparator(op string) (func(a, b float64) bool, error) {
	switch op {
	case "<":
		return func(a, b float64) bool { return a < b }, nil
	case "<=":
		return func(a, b float64) bool { return a <= b }, nil
	case ">":
		return func(a, b float64) bool { return a > b }, nil
	case ">=":
		return func(a, b float64) bool { return a >= b }, nil
	case "==":
		return func(a, b float64) bool { return a == b }, nil
	case "!=":
		return func(a, b float64) bool { return a != b }, nil
	default:
		return nil, fmt.Errorf("unknown operator %q", op)
	}
}
