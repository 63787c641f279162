package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// ErrAllFailed is returned by [Try] when no backend in a [Chain] answered.
var ErrAllFailed = errors.New("resilience: all backends failed")

type link[T any] struct {
	name    string
	backend T
	breaker *Breaker
}

// Chain holds backends of one type in preference order, each behind its own
// [Breaker]. Register backends with Add before sharing the chain.
type Chain[T any] struct {
	cfg   BreakerConfig
	links []link[T]
}

// NewChain returns an empty chain whose breakers are built from cfg.
func NewChain[T any](cfg BreakerConfig) *Chain[T] {
	return &Chain[T]{cfg: cfg}
}

// Add appends backend under name and returns c.
func (c *Chain[T]) Add(name string, backend T) *Chain[T] {
	cfg := c.cfg
	cfg.Name = name
	c.links = append(c.links, link[T]{name: name, backend: backend, breaker: NewBreaker(cfg)})
	return c
}

// Names returns the backend names in preference order.
func (c *Chain[T]) Names() []string {
	names := make([]string, len(c.links))
	for i, l := range c.links {
		names[i] = l.name
	}
	return names
}

// States returns each backend's breaker state keyed by name.
func (c *Chain[T]) States() map[string]State {
	out := make(map[string]State, len(c.links))
	for _, l := range c.links {
		out[l.name] = l.breaker.State()
	}
	return out
}

// Try calls fn on each backend in order until one succeeds. An answer error
// (see [BreakerConfig.IsAnswer]) or the end of ctx stops the walk and is
// returned as is. Otherwise the result wraps [ErrAllFailed] and every
// backend's error.
func Try[T, R any](ctx context.Context, c *Chain[T], fn func(context.Context, T) (R, error)) (R, error) {
	var (
		zero R
		errs []error
	)
	for _, l := range c.links {
		var out R
		err := l.breaker.Do(ctx, func(ctx context.Context) error {
			var err error
			out, err = fn(ctx, l.backend)
			return err
		})
		switch {
		case err == nil:
			return out, nil
		case l.breaker.isAnswer(err):
			return zero, err
		case ctx.Err() != nil:
			return zero, ctx.Err()
		}
		if !errors.Is(err, ErrCircuitOpen) {
			slog.Warn("backend failed, trying next", "backend", l.name, "err", err)
		}
		errs = append(errs, fmt.Errorf("%s: %w", l.name, err))
	}
	return zero, fmt.Errorf("%w: %w", ErrAllFailed, errors.Join(errs...))
}
