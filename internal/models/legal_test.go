package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMergeCaseLaws(t *testing.T) {
	t.Run("shared citation appears once", func(t *testing.T) {
		a := []CaseLaw{{Citation: "[1988] KLR 399", Title: "first"}}
		b := []CaseLaw{{Citation: "[1988] KLR 399", Title: "second"}, {Citation: "[1953] EACA 166"}}

		merged := MergeCaseLaws(a, b)

		assert.Len(t, merged, 2)
		assert.Equal(t, "first", merged[0].Title)
		assert.Equal(t, "[1953] EACA 166", merged[1].Citation)
	})

	t.Run("duplicates inside one batch collapse", func(t *testing.T) {
		merged := MergeCaseLaws(nil, []CaseLaw{{Citation: "x"}, {Citation: "x"}, {Citation: "y"}})
		assert.Len(t, merged, 2)
	})

	t.Run("empty inputs", func(t *testing.T) {
		assert.Empty(t, MergeCaseLaws(nil, nil))
	})
}

func TestStatusTransitions(t *testing.T) {
	assert.True(t, StatusReceived.CanTransition(StatusProcessing))
	assert.True(t, StatusPending.CanTransition(StatusProcessing))
	assert.True(t, StatusProcessing.CanTransition(StatusCompleted))
	assert.True(t, StatusProcessing.CanTransition(StatusFailed))

	assert.False(t, StatusReceived.CanTransition(StatusCompleted))
	assert.False(t, StatusCompleted.CanTransition(StatusProcessing))
	assert.False(t, StatusFailed.CanTransition(StatusCompleted))
	assert.False(t, StatusCompleted.CanTransition(StatusFailed))
	assert.True(t, StatusFailed.Terminal())
}
