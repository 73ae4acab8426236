package gossip

import (
	"math/rand"
	"sync"
	"time"
)

// pseudoRandSource drives the loss-probability coin flip in Send. It's a
// single shared, mutex-guarded source rather than the package-level
// math/rand funcs so loss simulation doesn't contend with unrelated
// callers of the global source.
var pseudoRandSource = newLockedRand()

type lockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

func newLockedRand() *lockedRand {
	return &lockedRand{r: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

func (l *lockedRand) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Float64()
}
