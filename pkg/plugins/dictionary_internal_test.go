package plugins

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/thomasrohde/toy/pkg/evaluator"
)

func TestHashable(t *testing.T) {
	for _, v := range []evaluator.Value{
		nil,
		evaluator.Null{},
		evaluator.Bool(true),
		evaluator.Number(1),
		evaluator.String("k"),
		NewArray(),
	} {
		assert.True(t, hashable(v), "%T", v)
	}
	assert.False(t, hashable([]int{1}))
	assert.False(t, hashable(map[string]int{}))
}
