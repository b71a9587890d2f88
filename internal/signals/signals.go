package signals

import (
	"context"
	"math/rand"
	"sync"

	"github.com/ducminhle1904/fusion-trading-bot/pkg/types"
)

// Source produces the upstream signal vector for one symbol. External
// model processes implement this behind a transport; the in-process
// providers below cover tests and demo runs.
type Source interface {
	Name() string
	Next(ctx context.Context, symbol string) (types.Signal, error)
}

// StaticSource always returns the same signal.
type StaticSource struct {
	signal types.Signal
}

func NewStaticSource(sig types.Signal) *StaticSource {
	return &StaticSource{signal: sig}
}

func (s *StaticSource) Name() string { return "static" }

func (s *StaticSource) Next(_ context.Context, _ string) (types.Signal, error) {
	return s.signal, nil
}

// RandomSource emits pseudo-random signals for demo runs, so a decision
// loop can exercise the full pipeline without model processes attached.
// Deterministic for a fixed seed.
type RandomSource struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func NewRandomSource(seed int64) *RandomSource {
	return &RandomSource{rnd: rand.New(rand.NewSource(seed))}
}

func (s *RandomSource) Name() string { return "random" }

func (s *RandomSource) Next(_ context.Context, _ string) (types.Signal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return types.Signal{
		Predictive: s.rnd.Float64()*2 - 1,
		RL:         types.RLAction(s.rnd.Intn(3)),
		Sentiment:  s.rnd.Float64()*2 - 1,
	}, nil
}
