// Package celfilter builds filter operators from CEL expressions.
package celfilter

import (
	"strings"

	"github.com/google/cel-go/cel"
	"github.com/pkg/errors"

	reactive "github.com/iamtaegu/reactiveProgramming"
	"github.com/iamtaegu/reactiveProgramming/rx"
)

// Var is the name each item is bound to inside an expression.
const Var = "it"

// Program is a compiled boolean expression over a single item.
type Program struct {
	expr string
	prog cel.Program
}

// Compile parses and type-checks expr. An empty expression accepts every
// item.
func Compile(expr string) (*Program, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return &Program{}, nil
	}
	env, err := cel.NewEnv(
		cel.Variable(Var, cel.DynType),
	)
	if err != nil {
		return nil, reactive.E(reactive.InvalidArgument, "celfilter", err)
	}
	ast, iss := env.Parse(expr)
	if iss != nil && iss.Err() != nil {
		return nil, reactive.E(reactive.InvalidArgument, "celfilter", iss.Err())
	}
	checked, iss2 := env.Check(ast)
	if iss2 != nil && iss2.Err() != nil {
		return nil, reactive.E(reactive.InvalidArgument, "celfilter", iss2.Err())
	}
	if t := checked.OutputType(); !t.IsExactType(cel.BoolType) && !t.IsExactType(cel.DynType) {
		return nil, reactive.Errorf(reactive.InvalidArgument, "celfilter", "%q yields %v, not bool", expr, t)
	}
	prog, err := env.Program(checked)
	if err != nil {
		return nil, reactive.E(reactive.InvalidArgument, "celfilter", err)
	}
	return &Program{expr: expr, prog: prog}, nil
}

// Eval reports whether v satisfies the expression.
func (p *Program) Eval(v any) (bool, error) {
	if p.prog == nil {
		return true, nil
	}
	out, _, err := p.prog.Eval(map[string]any{Var: v})
	if err != nil {
		return false, errors.Wrapf(err, "evaluating %q", p.expr)
	}
	b, ok := out.Value().(bool)
	if !ok {
		return false, errors.Errorf("%q yields %T, not bool", p.expr, out.Value())
	}
	return b, nil
}

func (p *Program) String() string {
	return p.expr
}

// Filter compiles expr and returns an operator keeping the items it accepts.
// An evaluation failure fails the stream with an UpstreamFailure.
func Filter[T any](expr string) (rx.Operator[T, T], error) {
	p, err := Compile(expr)
	if err != nil {
		return nil, err
	}
	return rx.FlowOperator("celfilter", func() rx.Flow[T, T] {
		return rx.Flow[T, T]{
			OnPush: func(io rx.IOlet[T], v T) {
				ok, err := p.Eval(v)
				if err != nil {
					io.Cancel()
					io.Error(reactive.E(reactive.UpstreamFailure, "celfilter", err))
					return
				}
				if ok {
					io.Push(v)
					return
				}
				io.Pull(1)
			},
		}
	}), nil
}

// MustFilter is like Filter but panics on a bad expression.
func MustFilter[T any](expr string) rx.Operator[T, T] {
	op, err := Filter[T](expr)
	if err != nil {
		panic(err)
	}
	return op
}
