package worker

// inactividad_cron.go
// Background goroutine that periodically reaps cart owners idle past the
// inactivity timeout. The tick is coarser than the timeout to bound wasted work.

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Reaper releases the carts of idle owners and signs identities out.
type Reaper interface {
	ProcesarInactivos(ctx context.Context) (int, error)
}

// StartInactividadCron ticks every interval until ctx is cancelled. The
// returned channel is closed once the goroutine has exited.
func StartInactividadCron(ctx context.Context, reaper Reaper, interval time.Duration) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		log.Info().Dur("interval", interval).Msg("inactividad_cron: started")

		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("inactividad_cron: shutting down")
				return
			case <-ticker.C:
				n, err := reaper.ProcesarInactivos(ctx)
				if err != nil {
					log.Error().Err(err).Msg("inactividad_cron: tick failed")
				}
				if n > 0 {
					log.Info().Int("reaped", n).Msg("inactividad_cron: sessions reaped")
				}
			}
		}
	}()
	return done
}
