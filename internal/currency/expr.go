package currency

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// divisionPrecision is the number of fractional digits kept by "/".
const divisionPrecision = 16

// maxDepth bounds parenthesis and unary-operator nesting.
const maxDepth = 64

var errDivisionByZero = errors.New("division by zero")

// Grammar:
//
//	expr   = term { ("+" | "-") term }
//	term   = unary { ("*" | "/") unary }
//	unary  = { "+" | "-" } factor
//	factor = number | "(" expr ")"
//	number = digits [ "." digits ] | "." digits
type parser struct {
	s     string
	pos   int
	depth int
}

func evaluate(s string) (decimal.Decimal, error) {
	p := &parser{s: s}
	v, err := p.expr()
	if err != nil {
		return decimal.Zero, err
	}
	if p.pos != len(p.s) {
		return decimal.Zero, fmt.Errorf("unexpected %q at offset %d", p.s[p.pos], p.pos)
	}
	return v, nil
}

func (p *parser) peek() byte {
	if p.pos < len(p.s) {
		return p.s[p.pos]
	}
	return 0
}

func (p *parser) expr() (decimal.Decimal, error) {
	v, err := p.term()
	if err != nil {
		return decimal.Zero, err
	}
	for {
		switch p.peek() {
		case '+':
			p.pos++
			r, err := p.term()
			if err != nil {
				return decimal.Zero, err
			}
			v = v.Add(r)
		case '-':
			p.pos++
			r, err := p.term()
			if err != nil {
				return decimal.Zero, err
			}
			v = v.Sub(r)
		default:
			return v, nil
		}
	}
}

func (p *parser) term() (decimal.Decimal, error) {
	v, err := p.unary()
	if err != nil {
		return decimal.Zero, err
	}
	for {
		switch p.peek() {
		case '*':
			p.pos++
			r, err := p.unary()
			if err != nil {
				return decimal.Zero, err
			}
			v = v.Mul(r)
		case '/':
			p.pos++
			r, err := p.unary()
			if err != nil {
				return decimal.Zero, err
			}
			if r.IsZero() {
				return decimal.Zero, errDivisionByZero
			}
			v = v.DivRound(r, divisionPrecision)
		default:
			return v, nil
		}
	}
}

func (p *parser) unary() (decimal.Decimal, error) {
	switch p.peek() {
	case '+', '-':
		op := p.s[p.pos]
		p.pos++
		if err := p.enter(); err != nil {
			return decimal.Zero, err
		}
		v, err := p.unary()
		p.depth--
		if err != nil {
			return decimal.Zero, err
		}
		if op == '-' {
			v = v.Neg()
		}
		return v, nil
	}
	return p.factor()
}

func (p *parser) factor() (decimal.Decimal, error) {
	if p.peek() == '(' {
		p.pos++
		if err := p.enter(); err != nil {
			return decimal.Zero, err
		}
		v, err := p.expr()
		p.depth--
		if err != nil {
			return decimal.Zero, err
		}
		if p.peek() != ')' {
			return decimal.Zero, fmt.Errorf("missing ')' at offset %d", p.pos)
		}
		p.pos++
		return v, nil
	}
	return p.number()
}

func (p *parser) number() (decimal.Decimal, error) {
	start := p.pos
	digits := 0
	for isDigit(p.peek()) {
		p.pos++
		digits++
	}
	if p.peek() == '.' {
		p.pos++
		for isDigit(p.peek()) {
			p.pos++
			digits++
		}
	}
	if digits == 0 {
		if p.pos >= len(p.s) {
			return decimal.Zero, errors.New("unexpected end of expression")
		}
		return decimal.Zero, fmt.Errorf("expected number at offset %d", start)
	}
	lit := p.s[start:p.pos]
	if lit[0] == '.' {
		lit = "0" + lit
	}
	if lit[len(lit)-1] == '.' {
		lit = lit[:len(lit)-1]
	}
	return decimal.NewFromString(lit)
}

func (p *parser) enter() error {
	p.depth++
	if p.depth > maxDepth {
		return errors.New("expression nested too deeply")
	}
	return nil
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}
