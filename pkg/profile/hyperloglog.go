package profile

import (
	"hash/fnv"
	"math"
	"math/bits"

	"github.com/sahithikokkula/samplingapi/pkg/estimator"
)

// hyperLogLog estimates the number of distinct values in a column without
// holding the values themselves.
type hyperLogLog struct {
	registers []uint8
	b         uint8
	m         uint32
	alpha     float64
}

// newHyperLogLog uses 2^b registers; b outside 4..16 falls back to 10.
func newHyperLogLog(b uint8) *hyperLogLog {
	if b < 4 || b > 16 {
		b = 10
	}
	m := uint32(1) << b

	var alpha float64
	switch {
	case m >= 128:
		alpha = 0.7213 / (1 + 1.079/float64(m))
	case m >= 64:
		alpha = 0.709
	case m >= 32:
		alpha = 0.697
	default:
		alpha = 0.673
	}
	return &hyperLogLog{registers: make([]uint8, m), b: b, m: m, alpha: alpha}
}

func hash64(data []byte) uint64 {
	h := fnv.New64a()
	h.Write(data)
	return h.Sum64()
}

func (h *hyperLogLog) add(value []byte) {
	x := hash64(value)
	j := x & uint64(h.m-1)
	w := x >> h.b
	rank := uint8(64-h.b) + 1
	if w != 0 {
		rank = uint8(bits.TrailingZeros64(w)) + 1
	}
	if rank > h.registers[j] {
		h.registers[j] = rank
	}
}

func (h *hyperLogLog) count() uint64 {
	var sum float64
	zeros := 0
	for _, r := range h.registers {
		sum += math.Ldexp(1, -int(r))
		if r == 0 {
			zeros++
		}
	}
	m := float64(h.m)
	raw := h.alpha * m * m / sum

	// Linear counting is more accurate while many registers are empty.
	if raw <= 2.5*m && zeros != 0 {
		return uint64(math.Round(m * math.Log(m/float64(zeros))))
	}
	return uint64(math.Round(raw))
}

func (h *hyperLogLog) standardError() float64 {
	return 1.04 / math.Sqrt(float64(h.m))
}

// interval returns normal-approximation bounds around the estimate at the
// given significance level in percent (1, 5 or 10).
func (h *hyperLogLog) interval(significanceLevel int) (uint64, uint64, error) {
	z, err := estimator.Quantile(significanceLevel)
	if err != nil {
		return 0, 0, err
	}
	est := float64(h.count())
	margin := z * h.standardError() * est
	return uint64(math.Max(0, math.Floor(est-margin))), uint64(math.Ceil(est + margin)), nil
}
