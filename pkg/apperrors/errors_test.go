package apperrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindNotFound, KindOf(New(KindNotFound, "goal not found")))
	assert.Equal(t, KindConflict, KindOf(Newf(KindConflict, "score %s was modified concurrently", "abc")))

	// Plain errors carry no kind.
	assert.Equal(t, Kind(""), KindOf(errors.New("boom")))
	assert.Equal(t, Kind(""), KindOf(nil))
}

func TestKindSurvivesWrapping(t *testing.T) {
	inner := New(KindUnavailable, "score store timeout")
	outer := fmt.Errorf("aggregation failed: %w", inner)

	assert.True(t, IsKind(outer, KindUnavailable))
	assert.False(t, IsKind(outer, KindConflict))
}

func TestWrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := Wrap(KindUnavailable, "pickup collected but progress aggregation failed", cause)

	assert.Equal(t, "pickup collected but progress aggregation failed: connection reset", err.Error())
	assert.Equal(t, cause, errors.Unwrap(err))
	assert.True(t, IsKind(err, KindUnavailable))
}
