package loadcell

import (
	"math"
	"math/rand/v2"
	"sync"
)

// Simulated is a Reader for running without hardware. It reports
// offset + load*countsPerUnit, plus optional uniform noise.
type Simulated struct {
	mu            sync.Mutex
	offset        int32
	countsPerUnit float64
	load          float64
	noise         int32
	fail          error
	rng           *rand.Rand
}

// NewSimulated creates a simulated bridge with the given zero reading and
// sensitivity.
func NewSimulated(offset int32, countsPerUnit float64) *Simulated {
	return &Simulated{
		offset:        offset,
		countsPerUnit: countsPerUnit,
		rng:           rand.New(rand.NewPCG(1, 2)),
	}
}

// SetLoad places load units on the simulated cell.
func (s *Simulated) SetLoad(load float64) {
	s.mu.Lock()
	s.load = load
	s.mu.Unlock()
}

// SetNoise sets the peak amplitude of the noise added to each reading.
func (s *Simulated) SetNoise(counts int32) {
	s.mu.Lock()
	s.noise = counts
	s.mu.Unlock()
}

// SetFault makes every subsequent read fail with err; nil clears it.
func (s *Simulated) SetFault(err error) {
	s.mu.Lock()
	s.fail = err
	s.mu.Unlock()
}

func (s *Simulated) ReadRaw() (int32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return 0, s.fail
	}
	v := int64(s.offset) + int64(math.Round(s.load*s.countsPerUnit))
	if s.noise > 0 {
		v += int64(s.rng.Int32N(2*s.noise+1) - s.noise)
	}
	return int32(v), nil
}
