package util

import (
	"math/rand"
	"sync"
	"time"
)

// LockedRand is a math/rand source safe for concurrent use. A zero seed
// seeds from the clock.
type LockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

func NewLockedRand(seed int64) *LockedRand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &LockedRand{r: rand.New(rand.NewSource(seed))}
}

// Float64 returns a value in [0,1).
func (l *LockedRand) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Float64()
}

// Between returns a value in [min,max).
func (l *LockedRand) Between(min, max float64) float64 {
	return min + l.Float64()*(max-min)
}

// Symmetric returns a value in [-bound,bound).
func (l *LockedRand) Symmetric(bound float64) float64 {
	return (l.Float64()*2 - 1) * bound
}
