// Package sampler draws samples from tabular data.
package sampler

import (
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/sahithikokkula/samplingapi/pkg/dataset"
	"github.com/sahithikokkula/samplingapi/pkg/estimator"
)

var ErrEmptyTable = errors.New("no rows to sample from")

// DefaultMaxSampleSize bounds the rows a single draw may return.
const DefaultMaxSampleSize = 1_000_000

// Sampler owns the pseudorandom generator shared by concurrent requests.
type Sampler struct {
	mu      sync.Mutex
	rng     *rand.Rand
	maxSize int
}

// New returns a Sampler seeded with seed, or with the current time when seed
// is zero.
func New(seed int64) *Sampler {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Sampler{rng: rand.New(rand.NewSource(seed)), maxSize: DefaultMaxSampleSize}
}

// WithMaxSampleSize sets the largest sample a draw may request. Values below
// 1 keep the default. Call it before the Sampler is shared.
func (s *Sampler) WithMaxSampleSize(n int) *Sampler {
	if n > 0 {
		s.maxSize = n
	}
	return s
}

func (s *Sampler) checkSize(field string, n int, ve *estimator.ValidationError) {
	switch {
	case n < 1:
		ve.Add(field, "%s must be at least 1", field)
	case n > s.maxSize:
		ve.Add(field, "%s must not exceed %d", field, s.maxSize)
	}
}

// SimpleRandom draws n rows. With replacement every draw is independent and n
// may exceed the number of rows; without replacement n is capped at the number
// of rows. removeMissing excludes rows that hold a null before drawing.
func (s *Sampler) SimpleRandom(t *dataset.Table, n int, withReplacement, removeMissing bool) (*dataset.Table, error) {
	var ve estimator.ValidationError
	s.checkSize("n", n, &ve)
	if err := ve.Err(); err != nil {
		return nil, err
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}

	candidates := make([]int, 0, t.Len())
	for i := 0; i < t.Len(); i++ {
		if removeMissing && t.HasMissing(i) {
			continue
		}
		candidates = append(candidates, i)
	}
	if len(candidates) == 0 {
		return nil, ErrEmptyTable
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !withReplacement {
		n = min(n, len(candidates))
	}
	rows := make([]int, 0, n)
	if withReplacement {
		for i := 0; i < n; i++ {
			rows = append(rows, candidates[s.rng.Intn(len(candidates))])
		}
	} else {
		for _, j := range s.rng.Perm(len(candidates))[:n] {
			rows = append(rows, candidates[j])
		}
	}
	return t.Select(rows), nil
}

// Systematic takes every interval-th row starting at firstIndex.
func (s *Sampler) Systematic(t *dataset.Table, interval, firstIndex int) (*dataset.Table, error) {
	var ve estimator.ValidationError
	if interval < 1 {
		ve.Add("interval", "interval must be at least 1")
	}
	if firstIndex < 0 || firstIndex >= interval {
		ve.Add("firstIndex", "firstIndex must be between 0 and interval-1")
	}
	if err := ve.Err(); err != nil {
		return nil, err
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	if t.Len() == 0 {
		return nil, ErrEmptyTable
	}

	var rows []int
	for i := firstIndex; i < t.Len(); i += interval {
		rows = append(rows, i)
	}
	return t.Select(rows), nil
}
