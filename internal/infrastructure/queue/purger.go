package queue

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/zoonosys/zoonosys-api/internal/api/metrics"
)

const defaultPurgeInterval = 15 * time.Minute

// StalePurger is the part of the reset service the purger drives.
type StalePurger interface {
	PurgeStale(ctx context.Context) (int64, error)
}

// Purger periodically removes used and expired reset tokens.
type Purger struct {
	target   StalePurger
	interval time.Duration
	log      zerolog.Logger
}

func NewPurger(target StalePurger, interval time.Duration, log zerolog.Logger) *Purger {
	if interval <= 0 {
		interval = defaultPurgeInterval
	}
	return &Purger{target: target, interval: interval, log: log}
}

// Run purges once immediately and then on every tick until ctx is cancelled.
func (p *Purger) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		p.purge(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (p *Purger) purge(ctx context.Context) {
	n, err := p.target.PurgeStale(ctx)
	if err != nil {
		if ctx.Err() == nil {
			p.log.Error().Err(err).Msg("purge reset tokens")
		}
		return
	}
	metrics.ResetTokensPurgedTotal.Add(float64(n))
}
