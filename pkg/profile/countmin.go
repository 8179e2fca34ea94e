package profile

import (
	"encoding/binary"
	"hash/fnv"
	"math"
)

// countMin estimates value frequencies with a fixed-size counter table.
// Estimates never undercount; they overcount by at most epsilon*total with
// probability 1-delta.
type countMin struct {
	table   [][]uint64
	d, w    uint32
	epsilon float64
	total   uint64
}

func newCountMin(epsilon, delta float64) *countMin {
	if epsilon <= 0 || epsilon >= 1 {
		epsilon = 0.001
	}
	if delta <= 0 || delta >= 1 {
		delta = 0.01
	}
	w := uint32(math.Ceil(math.E / epsilon))
	d := uint32(math.Ceil(math.Log(1 / delta)))
	table := make([][]uint64, d)
	for i := range table {
		table[i] = make([]uint64, w)
	}
	return &countMin{table: table, d: d, w: w, epsilon: epsilon}
}

func (c *countMin) cell(key []byte, row uint32) uint32 {
	h := fnv.New32a()
	h.Write(key)
	var salt [4]byte
	binary.LittleEndian.PutUint32(salt[:], row)
	h.Write(salt[:])
	return h.Sum32() % c.w
}

// add counts key once and returns its updated frequency estimate.
func (c *countMin) add(key []byte) uint64 {
	est := ^uint64(0)
	for i := uint32(0); i < c.d; i++ {
		j := c.cell(key, i)
		c.table[i][j]++
		est = min(est, c.table[i][j])
	}
	c.total++
	return est
}

func (c *countMin) errorBound() uint64 {
	return uint64(math.Ceil(c.epsilon * float64(c.total)))
}
