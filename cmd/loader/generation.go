package main

import (
	"math/rand"
	"strconv"
	"sync/atomic"
)

// keyGenerator produces random keys from a fixed key space, until its budget is spent.
type keyGenerator struct {
	remaining   uint64 // atomic
	prefix      string
	cardinality int
	rnd         *rand.Rand
}

func newKeyGenerator(budget uint64, prefix string, cardinality uint, seed int64) *keyGenerator {
	return &keyGenerator{
		remaining:   budget,
		prefix:      prefix,
		cardinality: int(cardinality),
		rnd:         rand.New(rand.NewSource(seed)),
	}
}

// next returns the next key, or false when the budget is spent.  A keyGenerator is used by one worker, only
// remaining is shared.
func (kg *keyGenerator) next() (string, bool) {
	for {
		remaining := atomic.LoadUint64(&kg.remaining)
		if remaining == 0 {
			return "", false
		}
		if atomic.CompareAndSwapUint64(&kg.remaining, remaining, remaining-1) {
			break
		}
	}
	return kg.prefix + strconv.Itoa(kg.rnd.Intn(kg.cardinality)), true
}

func (kg *keyGenerator) left() uint64 {
	return atomic.LoadUint64(&kg.remaining)
}
