package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"pclink-backend/internal/infra/metrics"
	"pclink-backend/internal/usecase"
)

// ExpiryWorker periodically deactivates pairing secrets whose TTL ran out.
// Claims already reject expired secrets on read; the sweep keeps the table
// from accumulating stale active rows.
type ExpiryWorker struct {
	interval  time.Duration
	pairingUC usecase.PairingUseCase
	log       *zerolog.Logger
}

func NewExpiryWorker(interval time.Duration, pairingUC usecase.PairingUseCase, logger *zerolog.Logger) *ExpiryWorker {
	exprLog := logger.With().Str("component", "ExpiryWorker").Logger()
	return &ExpiryWorker{
		interval:  interval,
		pairingUC: pairingUC,
		log:       &exprLog,
	}
}

func (w *ExpiryWorker) Run(ctx context.Context) error {
	w.log.Info().Msg("Starting expiry worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping expiry worker")
			return ctx.Err()
		case <-ticker.C:
			n, err := w.pairingUC.DeactivateExpiredSecrets(ctx)
			if err != nil {
				w.log.Error().Err(err).Msg("expiry worker error")
			}
			if n > 0 {
				metrics.AddPairingSecretsExpired(n)
				w.log.Info().Int("count", n).Msg("expired pairing secrets deactivated")
			}
		}
	}
}
