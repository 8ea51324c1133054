package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/lumonlab/crecheauth/internal/auth/store"
)

// HousekeepingService periodically deletes refresh tokens and password reset
// tokens that are past their validity window. Sweeps only remove rows that
// can no longer be redeemed, so running alongside live traffic is safe.
type HousekeepingService struct {
	Store    store.Store
	Logger   *slog.Logger
	Interval time.Duration

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates the sweeper. An interval of 0 or less
// defaults to 1 hour.
func NewHousekeepingService(st store.Store, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = 1 * time.Hour
	}

	return &HousekeepingService{
		Store:    st,
		Logger:   logger,
		Interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start launches the background loop. Non-blocking; call Stop to shut down.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping started", "interval", s.Interval)
}

// Stop shuts the loop down and waits for any in-progress sweep.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	s.sweep()

	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.stopCh:
			return
		}
	}
}

// sweep runs each deletion independently; one failing does not stop the rest.
func (s *HousekeepingService) sweep() {
	ctx := context.Background()

	if err := s.Store.RefreshTokens().DeleteExpiredRefreshTokens(ctx); err != nil {
		s.Logger.Error("failed to delete expired refresh tokens", "error", err)
	}

	if err := s.Store.PasswordResetTokens().DeleteExpiredPasswordResetTokens(ctx); err != nil {
		s.Logger.Error("failed to delete expired password reset tokens", "error", err)
	}

	s.Logger.Debug("housekeeping sweep completed")
}
