package service

import (
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"time"
)

const base36Alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// monotonicClock hands out millisecond timestamps that strictly increase,
// so two calls in the same millisecond never share a value.
type monotonicClock struct {
	mu   sync.Mutex
	now  func() time.Time
	last int64
}

func (c *monotonicClock) tick() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	ms := c.now().UnixMilli()
	if ms <= c.last {
		ms = c.last + 1
	}
	c.last = ms
	return ms
}

// IDGenerator produces creation-time-derived identifiers for products and orders.
type IDGenerator struct {
	clock monotonicClock
}

func NewIDGenerator(now func() time.Time) *IDGenerator {
	return &IDGenerator{clock: monotonicClock{now: now}}
}

// Next returns the decimal millisecond timestamp of this call.
func (g *IDGenerator) Next() string {
	return strconv.FormatInt(g.clock.tick(), 10)
}

// ReferenceGenerator builds order references of the form ORD-<TS>-<RAND>.
// The random part is not a secret; references are a lookup convenience.
type ReferenceGenerator struct {
	clock monotonicClock

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewReferenceGenerator(now func() time.Time, seed int64) *ReferenceGenerator {
	return &ReferenceGenerator{
		clock: monotonicClock{now: now},
		rnd:   rand.New(rand.NewSource(seed)),
	}
}

// Next returns a fresh reference
func (g *ReferenceGenerator) Next() string {
	ts := strings.ToUpper(strconv.FormatInt(g.clock.tick(), 36))

	g.mu.Lock()
	suffix := make([]byte, 4)
	for i := range suffix {
		suffix[i] = base36Alphabet[g.rnd.Intn(len(base36Alphabet))]
	}
	g.mu.Unlock()

	return "ORD-" + ts + "-" + string(suffix)
}
