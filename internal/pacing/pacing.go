// Package pacing produces the randomized delays, typing cadence and scroll
// jitter that keep the reply engine's page activity looking human.
package pacing

import (
	"context"
	"math"
	"math/rand/v2"
	"sort"
	"sync"
	"time"
)

// Pacer draws random timings. It is safe for concurrent use.
type Pacer struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// New returns a Pacer seeded from the runtime's random source.
func New() *Pacer {
	return &Pacer{rng: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))}
}

// NewSeeded returns a deterministic Pacer, used by tests.
func NewSeeded(seed uint64) *Pacer {
	return &Pacer{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Float64 returns a value in [0, 1).
func (p *Pacer) Float64() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rng.Float64()
}

// IntN returns a value in [0, n). n <= 0 yields 0.
func (p *Pacer) IntN(n int) int {
	if n <= 0 {
		return 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rng.IntN(n)
}

// Between returns a uniform duration in [min, max]. A max below min is
// treated as min.
func (p *Pacer) Between(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return min + time.Duration(p.rng.Int64N(int64(max-min)+1))
}

// BetweenMs is Between with millisecond bounds, matching the config units.
func (p *Pacer) BetweenMs(minMs, maxMs int) time.Duration {
	return p.Between(time.Duration(minMs)*time.Millisecond, time.Duration(maxMs)*time.Millisecond)
}

// Gaussian draws from a normal distribution clamped to mean ± 3σ and never
// below zero.
func (p *Pacer) Gaussian(mean, stddev time.Duration) time.Duration {
	p.mu.Lock()
	z := p.rng.NormFloat64()
	p.mu.Unlock()

	d := float64(mean) + z*float64(stddev)
	lo := float64(mean) - 3*float64(stddev)
	hi := float64(mean) + 3*float64(stddev)
	d = math.Max(lo, math.Min(hi, d))
	if d < 0 {
		return 0
	}
	return time.Duration(d)
}

// Jitter returns base scaled by a uniform factor in [1-frac, 1+frac].
func (p *Pacer) Jitter(base time.Duration, frac float64) time.Duration {
	if frac <= 0 {
		return base
	}
	f := 1 + (p.Float64()*2-1)*frac
	return time.Duration(float64(base) * f)
}

// Think is a short pause before acting on something just read.
func (p *Pacer) Think() time.Duration {
	return p.Gaussian(1400*time.Millisecond, 600*time.Millisecond)
}

// TypingDelay is the pause that stands in for composing a reply of the given
// length before it is typed: roughly 45ms per character, bounded to 1.5s-12s.
func (p *Pacer) TypingDelay(text string) time.Duration {
	n := len([]rune(text))
	d := p.Jitter(time.Duration(n)*45*time.Millisecond, 0.25)
	if d < 1500*time.Millisecond {
		d = 1500 * time.Millisecond
	}
	if d > 12*time.Second {
		d = 12 * time.Second
	}
	return d
}

// KeystrokeDelay returns the gap after typing runes[i]. The first few
// characters are slower, punctuation and spaces pause longer, and about one
// keystroke in twenty adds a re-reading pause.
func (p *Pacer) KeystrokeDelay(runes []rune, i int) time.Duration {
	base := 25
	switch {
	case i < 10:
		base = 40
	case runes[i] == ' ' || runes[i] == ',' || runes[i] == '.':
		base = 60
	case i > 0 && runes[i-1] == ' ':
		base = 35
	}
	d := p.Gaussian(time.Duration(base)*time.Millisecond, 20*time.Millisecond)
	if p.Float64() < 0.05 {
		d += p.Gaussian(300*time.Millisecond, 150*time.Millisecond)
	}
	return d
}

// ScrollOffsets returns the pixel deltas of one human-looking scroll pass:
// three to seven downward moves of 300-800px, sometimes followed by a short
// scroll back up.
func (p *Pacer) ScrollOffsets() []int {
	steps := 3 + p.IntN(5)
	out := make([]int, 0, steps+1)
	for i := 0; i < steps; i++ {
		out = append(out, 300+p.IntN(500))
	}
	if p.Float64() < 0.4 {
		out = append(out, -(100 + p.IntN(120)))
	}
	return out
}

// BiasedOrder returns a permutation of 0..n-1 that is roughly random but
// leans toward the original order. Each index is keyed by a uniform draw plus
// a small positional weight and the keys are sorted.
func (p *Pacer) BiasedOrder(n int) []int {
	type keyed struct {
		idx int
		key float64
	}
	ks := make([]keyed, n)
	for i := range ks {
		ks[i] = keyed{idx: i, key: p.Float64() + 0.25*float64(i)/float64(n)}
	}
	sort.SliceStable(ks, func(a, b int) bool { return ks[a].key < ks[b].key })
	out := make([]int, n)
	for i, k := range ks {
		out[i] = k.idx
	}
	return out
}

// Sleep blocks for d or until ctx is done, returning ctx.Err() in the latter
// case.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// InWindow reports whether hour falls in [start, end).
func InWindow(hour, start, end int) bool {
	return hour >= start && hour < end
}
