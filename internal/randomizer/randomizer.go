// Package randomizer produces presentation orders for attempts and stable
// per-attempt option orders. All functions are pure given their random source.
package randomizer

import (
	"encoding/binary"
	"hash/fnv"
	"math/rand"
)

// Policy describes how a test wants its frozen question pool shuffled.
type Policy struct {
	ShuffleQuestions bool
	ShuffleOptions   bool
	// BlockSize 0 shuffles the whole list; >0 shuffles within contiguous
	// blocks of this size, preserving block positions.
	BlockSize int
}

// PresentationOrder returns the order questions are shown in for one attempt.
// The result is always a permutation of frozenIDs; the input is not modified.
// It is computed once per attempt and persisted by the caller; re-entries
// must return the stored permutation, never a fresh one.
func PresentationOrder(frozenIDs []uint, policy Policy, rng *rand.Rand) []uint {
	order := make([]uint, len(frozenIDs))
	copy(order, frozenIDs)

	if !policy.ShuffleQuestions {
		return order
	}

	if policy.BlockSize <= 0 {
		rng.Shuffle(len(order), func(i, j int) {
			order[i], order[j] = order[j], order[i]
		})
		return order
	}

	// Shuffle each contiguous block independently. The last block may be
	// shorter; questions never cross block boundaries.
	for start := 0; start < len(order); start += policy.BlockSize {
		end := start + policy.BlockSize
		if end > len(order) {
			end = len(order)
		}
		block := order[start:end]
		rng.Shuffle(len(block), func(i, j int) {
			block[i], block[j] = block[j], block[i]
		})
	}
	return order
}

// OptionOrder returns the order options are rendered in for one question
// within one attempt. The permutation is derived from (attemptID, questionID),
// so repeated fetches within an attempt are stable while different attempts
// see independent shuffles. Nothing is persisted.
func OptionOrder(attemptID, questionID uint, optionIDs []uint, shuffle bool) []uint {
	order := make([]uint, len(optionIDs))
	copy(order, optionIDs)

	if !shuffle {
		return order
	}

	rng := rand.New(rand.NewSource(optionSeed(attemptID, questionID)))
	rng.Shuffle(len(order), func(i, j int) {
		order[i], order[j] = order[j], order[i]
	})
	return order
}

func optionSeed(attemptID, questionID uint) int64 {
	h := fnv.New64a()
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(attemptID))
	h.Write(buf[:])
	binary.LittleEndian.PutUint64(buf[:], uint64(questionID))
	h.Write(buf[:])
	return int64(h.Sum64())
}
