package foundation

import (
	"errors"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResult(t *testing.T) {
	ok := Ok[int, error](42)
	require.True(t, ok.IsOk())
	v, isOk := ok.Value()
	assert.True(t, isOk)
	assert.Equal(t, 42, v)
	assert.Equal(t, 42, ok.Unwrap())

	failed := Err[int, error](errors.New("nope"))
	assert.True(t, failed.IsErr())
	assert.Equal(t, 7, failed.UnwrapOr(7))
	assert.EqualError(t, failed.Error(), "nope")
	assert.Panics(t, func() { failed.Unwrap() })

	mapped := Map(ok, strconv.Itoa)
	assert.Equal(t, "42", mapped.Unwrap())
	assert.True(t, Map(failed, strconv.Itoa).IsErr())
}

func TestNormalizer(t *testing.T) {
	n := NewNormalizer(map[string]int{"One": 1, "two": 2}, 0)

	assert.Equal(t, 1, n.Normalize("  ONE "))
	assert.Equal(t, 0, n.Normalize("three"))

	_, err := n.NormalizeWithError("three")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "one, two")
}
