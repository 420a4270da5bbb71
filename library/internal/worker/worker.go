package worker

import (
	"context"
	"time"

	"go.uber.org/zap"
)

type overdueChecker interface {
	NotifyOverdue(ctx context.Context) error
}

// Overdue invokes the overdue scan once at startup and then on a fixed
// cadence (daily in production).
type Overdue struct {
	svc      overdueChecker
	interval time.Duration
	log      *zap.Logger
}

func NewOverdue(svc overdueChecker, interval time.Duration, log *zap.Logger) *Overdue {
	return &Overdue{
		svc:      svc,
		interval: interval,
		log:      log.Named("overdue-worker"),
	}
}

func (w *Overdue) Run(ctx context.Context) {
	w.check(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			w.check(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (w *Overdue) check(ctx context.Context) {
	w.log.Debug("checking for overdue borrowings")
	if err := w.svc.NotifyOverdue(ctx); err != nil {
		w.log.Error("overdue check", zap.Error(err))
	}
}
