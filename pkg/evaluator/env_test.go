package evaluator_test

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thomasrohde/toy/pkg/evaluator"
)

func TestEnvDefineAndGet(t *testing.T) {
	env := evaluator.NewEnv(nil)
	require.NoError(t, env.Define("a", evaluator.Number(1), false))

	assert.Equal(t, evaluator.Number(1), env.Get("a"))
	assert.Equal(t, evaluator.Undefined, env.Get("missing"))

	err := env.Define("a", evaluator.Number(2), false)
	require.Error(t, err)
	assert.Equal(t, evaluator.ErrRedefined, errors.Cause(err))
	assert.Equal(t, "can't redefine variable 'a'", err.Error())
}

func TestEnvShadowingAndParentChain(t *testing.T) {
	outer := evaluator.NewEnv(nil)
	require.NoError(t, outer.Define("x", evaluator.String("outer"), false))
	inner := outer.Child()
	assert.Same(t, outer, inner.Parent())

	assert.Equal(t, evaluator.String("outer"), inner.Get("x"))
	require.NoError(t, inner.Define("x", evaluator.String("inner"), false))
	assert.Equal(t, evaluator.String("inner"), inner.Get("x"))
	assert.Equal(t, evaluator.String("outer"), outer.Get("x"))
}

func TestEnvSet(t *testing.T) {
	outer := evaluator.NewEnv(nil)
	require.NoError(t, outer.Define("v", evaluator.Number(1), false))
	require.NoError(t, outer.Define("c", evaluator.Number(1), true))
	inner := outer.Child()

	got, err := inner.Set("v", evaluator.Number(5))
	require.NoError(t, err)
	assert.Equal(t, evaluator.Number(5), got)
	assert.Equal(t, evaluator.Number(5), outer.Get("v"), "set writes the frame that owns the binding")

	_, err = inner.Set("c", evaluator.Number(2))
	assert.Equal(t, evaluator.ErrConstant, errors.Cause(err))
	assert.Equal(t, evaluator.Number(1), outer.Get("c"))

	_, err = inner.Set("nope", evaluator.Number(2))
	assert.Equal(t, evaluator.ErrUndefined, errors.Cause(err))
	assert.EqualError(t, err, "undefined variable 'nope'")
}

func TestEnvDistanceAccess(t *testing.T) {
	g := evaluator.NewEnv(nil)
	require.NoError(t, g.Define("n", evaluator.Number(0), false))
	mid := g.Child()
	require.NoError(t, mid.Define("n", evaluator.Number(1), false))
	leaf := mid.Child()

	assert.Equal(t, evaluator.Number(1), leaf.GetAt(1, "n"))
	assert.Equal(t, evaluator.Number(0), leaf.GetAt(2, "n"))
	assert.Equal(t, evaluator.Undefined, leaf.GetAt(0, "n"))

	_, err := leaf.SetAt(2, "n", evaluator.Number(9))
	require.NoError(t, err)
	assert.Equal(t, evaluator.Number(9), g.Get("n"))
	assert.Equal(t, evaluator.Number(1), mid.Get("n"))

	_, err = leaf.SetAt(0, "n", evaluator.Number(3))
	assert.Equal(t, evaluator.ErrUndefined, errors.Cause(err))
}

func TestEnvLookupAndNames(t *testing.T) {
	env := evaluator.NewEnv(nil)
	require.NoError(t, env.Define("b", evaluator.Null{}, false))
	require.NoError(t, env.Define("a", evaluator.Null{}, true))

	v, ok := env.Lookup("b")
	assert.True(t, ok)
	assert.Equal(t, evaluator.Null{}, v)
	_, ok = env.Lookup("z")
	assert.False(t, ok)
	assert.True(t, env.Child().Has("a"))
	assert.Equal(t, []string{"a", "b"}, env.Names())
}
