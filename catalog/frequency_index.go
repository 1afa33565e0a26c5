package catalog

import (
	"math"

	"github.com/giygas/pharmdb/entities"
	"github.com/google/btree"
)

// btreeDegree is the B-tree node width used for the frequency index
const btreeDegree = 32

// frequencyBucket holds every (drug, effect) pair filed under one exact frequency
type frequencyBucket struct {
	frequency float64
	pairs     []entities.EffectPair
}

// FrequencyIndex maps side-effect frequencies to their pairs, ordered by
// frequency, so inclusive range queries cost O(log F + matched keys).
type FrequencyIndex struct {
	tree  *btree.BTreeG[*frequencyBucket]
	pairs int
}

// NewFrequencyIndex returns an empty index
func NewFrequencyIndex() *FrequencyIndex {
	return &FrequencyIndex{
		tree: btree.NewG(btreeDegree, func(a, b *frequencyBucket) bool {
			return a.frequency < b.frequency
		}),
	}
}

// Add files pair under pair.Frequency
func (f *FrequencyIndex) Add(pair entities.EffectPair) {
	key := &frequencyBucket{frequency: pair.Frequency}
	if bucket, ok := f.tree.Get(key); ok {
		bucket.pairs = append(bucket.pairs, pair)
	} else {
		key.pairs = []entities.EffectPair{pair}
		f.tree.ReplaceOrInsert(key)
	}
	f.pairs++
}

// Count sums bucket sizes for every key in [minFreq, maxFreq]
func (f *FrequencyIndex) Count(minFreq, maxFreq float64) int {
	count := 0
	f.ascendRange(minFreq, maxFreq, func(b *frequencyBucket) {
		count += len(b.pairs)
	})
	return count
}

// List returns the pairs of every key in [minFreq, maxFreq], by ascending key
func (f *FrequencyIndex) List(minFreq, maxFreq float64) []entities.EffectPair {
	result := make([]entities.EffectPair, 0)
	f.ascendRange(minFreq, maxFreq, func(b *frequencyBucket) {
		result = append(result, b.pairs...)
	})
	return result
}

// Len returns the number of indexed pairs
func (f *FrequencyIndex) Len() int {
	return f.pairs
}

// Keys returns the number of distinct frequencies
func (f *FrequencyIndex) Keys() int {
	return f.tree.Len()
}

// ascendRange visits buckets with minFreq <= key <= maxFreq. Empty or NaN
// bounds visit nothing.
func (f *FrequencyIndex) ascendRange(minFreq, maxFreq float64, visit func(*frequencyBucket)) {
	if math.IsNaN(minFreq) || math.IsNaN(maxFreq) || minFreq > maxFreq {
		return
	}

	f.tree.AscendGreaterOrEqual(&frequencyBucket{frequency: minFreq}, func(b *frequencyBucket) bool {
		if b.frequency > maxFreq {
			return false
		}
		visit(b)
		return true
	})
}
