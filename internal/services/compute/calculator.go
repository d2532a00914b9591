// Package compute evaluates arithmetic exactly instead of leaving it to the model.
package compute

import (
	"context"
	"errors"
	"fmt"
	stdmath "math"
	"strings"
	"time"
	"unicode"

	"go.starlark.net/lib/math"
	"go.starlark.net/starlark"
)

var (
	ErrEmptyExpression = errors.New("compute: empty expression")
	ErrNotArithmetic   = errors.New("compute: expression is not arithmetic")
	ErrNotFinite       = errors.New("compute: result is not a finite number")
)

type Calculator interface {
	Evaluate(ctx context.Context, expression string) (float64, error)
}

var functions = []string{"pow", "sqrt", "floor", "ceil", "round", "fabs", "pi", "e"}

// Starlark evaluates + - * / // % and pow(a, b) with the starlark interpreter.
// "**" and "^" are read as power.
type Starlark struct {
	env     starlark.StringDict
	timeout time.Duration
}

func NewStarlark(timeout time.Duration) *Starlark {
	env := starlark.StringDict{}
	for _, name := range functions {
		env[name] = math.Module.Members[name]
	}
	return &Starlark{env: env, timeout: timeout}
}

func (s *Starlark) Evaluate(ctx context.Context, expression string) (float64, error) {
	expr := strings.TrimSpace(expression)
	if expr == "" {
		return 0, ErrEmptyExpression
	}
	if err := s.check(expr); err != nil {
		return 0, err
	}
	expr, err := rewritePower(expr)
	if err != nil {
		return 0, err
	}

	thread := &starlark.Thread{Name: "calculate"}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			thread.Cancel(ctx.Err().Error())
		case <-done:
		}
	}()

	v, err := starlark.Eval(thread, "expression", expr, s.env)
	if err != nil {
		return 0, fmt.Errorf("eval %q: %w", expression, err)
	}
	f, ok := starlark.AsFloat(v)
	if !ok {
		return 0, fmt.Errorf("%w: result %s", ErrNotArithmetic, v.Type())
	}
	if stdmath.IsInf(f, 0) || stdmath.IsNaN(f) {
		return 0, fmt.Errorf("%w: %q gives %v", ErrNotFinite, expression, f)
	}
	return f, nil
}

// check allows digits, operators, parentheses and the exposed function names only.
func (s *Starlark) check(expr string) error {
	var ident strings.Builder
	flush := func() error {
		if ident.Len() == 0 {
			return nil
		}
		name := ident.String()
		ident.Reset()
		if _, ok := s.env[name]; !ok {
			return fmt.Errorf("%w: unknown name %q", ErrNotArithmetic, name)
		}
		return nil
	}
	for i, r := range expr {
		switch {
		case unicode.IsLetter(r) || r == '_':
			// exponent markers such as 1e9 belong to the number
			if (r == 'e' || r == 'E') && ident.Len() == 0 && i > 0 && isDigit(rune(expr[i-1])) {
				continue
			}
			ident.WriteRune(r)
		case unicode.IsDigit(r) && ident.Len() > 0:
			ident.WriteRune(r)
		default:
			if err := flush(); err != nil {
				return err
			}
			if !unicode.IsDigit(r) && !strings.ContainsRune("+-*/%^(). ,\t", r) {
				return fmt.Errorf("%w: unexpected %q", ErrNotArithmetic, r)
			}
		}
	}
	return flush()
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

// rewritePower turns a ** b and a ^ b into pow(a, b), rightmost first so that power
// stays right associative. Operands are numbers, names, calls or parenthesised groups.
func rewritePower(expr string) (string, error) {
	for {
		op, width := lastPowerOp(expr)
		if op < 0 {
			return expr, nil
		}
		ls := leftOperand(expr[:op])
		re := rightOperand(expr, op+width)
		if ls < 0 || re < 0 {
			return "", fmt.Errorf("%w: dangling power operator", ErrNotArithmetic)
		}
		left := strings.TrimSpace(expr[ls:op])
		right := strings.TrimSpace(expr[op+width : re])
		expr = expr[:ls] + "pow(" + left + ", " + right + ")" + expr[re:]
	}
}

func lastPowerOp(expr string) (int, int) {
	for i := len(expr) - 1; i >= 0; i-- {
		switch {
		case expr[i] == '^':
			return i, 1
		case expr[i] == '*' && i > 0 && expr[i-1] == '*':
			return i - 1, 2
		}
	}
	return -1, 0
}

// leftOperand returns where the operand ending at the end of s starts.
func leftOperand(s string) int {
	i := len(s) - 1
	for i >= 0 && s[i] == ' ' {
		i--
	}
	if i < 0 {
		return -1
	}
	if s[i] == ')' {
		depth := 0
		for ; i >= 0; i-- {
			switch s[i] {
			case ')':
				depth++
			case '(':
				depth--
			}
			if depth == 0 {
				break
			}
		}
		if i < 0 {
			return -1
		}
		// include a function name in front of the group
		for i > 0 && isWord(s[i-1]) {
			i--
		}
		return i
	}
	end := i
	for i >= 0 && (isWord(s[i]) || s[i] == '.') {
		i--
	}
	if i == end {
		return -1
	}
	return i + 1
}

// rightOperand returns where the operand starting at from ends.
func rightOperand(s string, from int) int {
	i := from
	for i < len(s) && s[i] == ' ' {
		i++
	}
	if i < len(s) && (s[i] == '-' || s[i] == '+') {
		i++
	}
	start := i
	for i < len(s) && (isWord(s[i]) || s[i] == '.') {
		i++
	}
	if i < len(s) && s[i] == '(' {
		depth := 0
		for ; i < len(s); i++ {
			switch s[i] {
			case '(':
				depth++
			case ')':
				depth--
			}
			if depth == 0 {
				return i + 1
			}
		}
		return -1
	}
	if i == start {
		return -1
	}
	return i
}

func isWord(c byte) bool {
	return c == '_' || (c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
