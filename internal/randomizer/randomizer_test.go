package randomizer

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seededRng(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

func TestPresentationOrder_NoShuffleKeepsFrozenOrder(t *testing.T) {
	frozen := []uint{10, 20, 30, 40}

	order := PresentationOrder(frozen, Policy{ShuffleQuestions: false}, seededRng(1))

	assert.Equal(t, frozen, order)
}

func TestPresentationOrder_DoesNotModifyInput(t *testing.T) {
	frozen := []uint{1, 2, 3, 4, 5, 6, 7, 8}
	original := append([]uint(nil), frozen...)

	PresentationOrder(frozen, Policy{ShuffleQuestions: true}, seededRng(42))

	assert.Equal(t, original, frozen)
}

func TestPresentationOrder_WholeShuffleIsPermutation(t *testing.T) {
	frozen := []uint{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}

	for seed := int64(0); seed < 50; seed++ {
		order := PresentationOrder(frozen, Policy{ShuffleQuestions: true}, seededRng(seed))

		require.Len(t, order, len(frozen))
		assert.ElementsMatch(t, frozen, order, "seed %d", seed)
	}
}

func TestPresentationOrder_BlockShuffleKeepsQuestionsInTheirBlock(t *testing.T) {
	// 7 questions with block size 3: blocks are [0:3), [3:6), [6:7).
	frozen := []uint{1, 2, 3, 4, 5, 6, 7}
	policy := Policy{ShuffleQuestions: true, BlockSize: 3}

	for seed := int64(0); seed < 50; seed++ {
		order := PresentationOrder(frozen, policy, seededRng(seed))

		require.Len(t, order, len(frozen))
		assert.ElementsMatch(t, frozen[0:3], order[0:3], "seed %d first block", seed)
		assert.ElementsMatch(t, frozen[3:6], order[3:6], "seed %d second block", seed)
		assert.Equal(t, frozen[6:7], order[6:7], "seed %d short last block", seed)
	}
}

func TestPresentationOrder_BlockSizeLargerThanPoolShufflesWholeList(t *testing.T) {
	frozen := []uint{1, 2, 3}

	order := PresentationOrder(frozen, Policy{ShuffleQuestions: true, BlockSize: 10}, seededRng(7))

	assert.ElementsMatch(t, frozen, order)
}

func TestOptionOrder_NoShuffleKeepsAuthoredOrder(t *testing.T) {
	options := []uint{100, 200, 300}

	order := OptionOrder(1, 2, options, false)

	assert.Equal(t, options, order)
}

func TestOptionOrder_StableWithinAttempt(t *testing.T) {
	options := []uint{1, 2, 3, 4, 5}

	first := OptionOrder(42, 7, options, true)
	second := OptionOrder(42, 7, options, true)

	assert.Equal(t, first, second)
	assert.ElementsMatch(t, options, first)
}

func TestOptionOrder_VariesAcrossAttempts(t *testing.T) {
	options := []uint{1, 2, 3, 4, 5, 6, 7, 8}

	// With 8 options the chance of two attempts agreeing by accident is
	// 1/40320 per pair; requiring at least one difference over many
	// attempts makes the test deterministic in practice.
	base := OptionOrder(1, 7, options, true)
	differs := false
	for attemptID := uint(2); attemptID <= 20; attemptID++ {
		if !assert.ObjectsAreEqual(base, OptionOrder(attemptID, 7, options, true)) {
			differs = true
			break
		}
	}
	assert.True(t, differs, "option order should depend on attempt id")
}

func TestOptionOrder_VariesAcrossQuestions(t *testing.T) {
	options := []uint{1, 2, 3, 4, 5, 6, 7, 8}

	base := OptionOrder(9, 1, options, true)
	differs := false
	for questionID := uint(2); questionID <= 20; questionID++ {
		if !assert.ObjectsAreEqual(base, OptionOrder(9, questionID, options, true)) {
			differs = true
			break
		}
	}
	assert.True(t, differs, "option order should depend on question id")
}

func TestOptionOrder_EmptyOptions(t *testing.T) {
	order := OptionOrder(1, 1, nil, true)

	assert.Empty(t, order)
}
