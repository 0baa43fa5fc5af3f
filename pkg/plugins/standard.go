package plugins

import (
	"math/rand"
	"time"

	"github.com/thomasrohde/toy/pkg/evaluator"
	"github.com/thomasrohde/toy/pkg/lexer"
)

// Standard provides Clock, Random and RandomSeed. Imported without an
// alias the three functions become globals; with one they sit in a
// single bundle.
type Standard struct {
	now func() time.Time
	rng *rand.Rand
}

// NewStandard seeds the generator from the current time.
func NewStandard() *Standard {
	return &Standard{
		now: time.Now,
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func standardDef() Def {
	return Def{
		Name:    "Standard",
		Summary: "clock and random numbers",
		Members: []string{"Clock()", "Random()", "RandomSeed(n)"},
		New:     func() evaluator.Plugin { return NewStandard() },
	}
}

func (s *Standard) members() map[string]evaluator.Value {
	return map[string]evaluator.Value{
		"Clock":      evaluator.NewNative("Clock", 0, s.clock),
		"Random":     evaluator.NewNative("Random", 0, s.random),
		"RandomSeed": evaluator.NewNative("RandomSeed", 1, s.randomSeed),
	}
}

func (s *Standard) Initialize(env *evaluator.Env, alias string) error {
	members := s.members()
	if alias != "" {
		return env.Define(alias, &table{name: "Standard", members: members}, true)
	}
	for _, name := range []string{"Clock", "Random", "RandomSeed"} {
		if err := env.Define(name, members[name], true); err != nil {
			return err
		}
	}
	return nil
}

// clock returns seconds since the Unix epoch with millisecond precision.
func (s *Standard) clock(in *evaluator.Interpreter, tok lexer.Token, args []evaluator.Value) (evaluator.Value, error) {
	return evaluator.Number(float64(s.now().UnixMilli()) / 1000), nil
}

func (s *Standard) random(in *evaluator.Interpreter, tok lexer.Token, args []evaluator.Value) (evaluator.Value, error) {
	return evaluator.Number(s.rng.Float64()), nil
}

func (s *Standard) randomSeed(in *evaluator.Interpreter, tok lexer.Token, args []evaluator.Value) (evaluator.Value, error) {
	seed, err := argNumber(tok, "RandomSeed", args[0])
	if err != nil {
		return nil, err
	}
	s.rng.Seed(int64(seed))
	return evaluator.Null{}, nil
}
