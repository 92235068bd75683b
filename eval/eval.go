package eval

import (
	"fmt"
	"sync"

	"github.com/signadot/rbel/config"
	"github.com/signadot/rbel/element"
	"github.com/signadot/rbel/rpath"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/rs/zerolog"
)

type Setup struct {
	Display config.Display
	Log     zerolog.Logger
}

// Evaluator compiles and runs criteria.  Compiled programs are cached by
// source, so an Evaluator may be shared by concurrent conversions.
type Evaluator struct {
	cfg      config.Display
	log      zerolog.Logger
	programs sync.Map // string -> compiledProgram
	paths    sync.Map // string -> compiledPath
}

type compiledProgram struct {
	prg *vm.Program
	err error
}

func New(s Setup) *Evaluator {
	return &Evaluator{cfg: s.Display, log: s.Log}
}

func exprOpts() []expr.Option {
	return []expr.Option{
		expr.Env(Binding{}),
		expr.AsBool(),
		// the binding's path helpers replace these builtins
		expr.DisableBuiltin("get"),
		expr.DisableBuiltin("count"),
	}
}

// Compile compiles a criterion.  A criterion must evaluate to a boolean.
func (e *Evaluator) Compile(src string) (*vm.Program, error) {
	if v, ok := e.programs.Load(src); ok {
		c := v.(compiledProgram)
		return c.prg, c.err
	}
	prg, err := expr.Compile(src, exprOpts()...)
	if err != nil {
		err = fmt.Errorf("criterion %q: %w", src, err)
	}
	e.programs.Store(src, compiledProgram{prg: prg, err: err})
	return prg, err
}

// Matches reports whether criterion holds for el.  Criteria that do not
// compile or fail at run time do not match.
func (e *Evaluator) Matches(el *element.Element, criterion string) bool {
	return e.MatchesBinding(e.Bind(el), criterion)
}

// MatchesBinding is Matches for a binding built once and reused for several
// criteria.
func (e *Evaluator) MatchesBinding(b *Binding, criterion string) bool {
	prg, err := e.Compile(criterion)
	if err != nil {
		e.log.Debug().Err(err).Msg("criterion does not compile")
		return false
	}
	res, err := expr.Run(prg, *b)
	if err != nil {
		e.log.Debug().Err(err).Str("criterion", criterion).Str("path", b.Path).Msg("criterion failed")
		return false
	}
	ok, _ := res.(bool)
	if e.cfg.CriterionDebug {
		e.log.Debug().Str("criterion", criterion).Str("path", b.Path).Bool("match", ok).Msg("criterion evaluated")
	}
	return ok
}

// FilterCompiler returns an rpath filter compiler that evaluates criteria
// against candidate elements.
func (e *Evaluator) FilterCompiler() rpath.FilterCompiler {
	return func(src string) (rpath.Filter, error) {
		if _, err := e.Compile(src); err != nil {
			return nil, err
		}
		return rpath.FilterFunc(func(el *element.Element) bool {
			return e.Matches(el, src)
		}), nil
	}
}

// Find evaluates a path with criterion filters enabled.
func (e *Evaluator) Find(root *element.Element, path string) []*element.Element {
	return e.find(root, path)
}
