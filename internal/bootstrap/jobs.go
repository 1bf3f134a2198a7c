package bootstrap

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Cleaner is one periodic maintenance step; it returns the number of rows it removed
type Cleaner struct {
	Name string
	Run  func(ctx context.Context) (int64, error)
}

// MaintenanceCleaners lists the periodic jobs for the wired dependencies
func (d *Dependencies) MaintenanceCleaners() []Cleaner {
	cleaners := []Cleaner{
		{Name: "refresh_tokens", Run: d.Repos.TokenRepository.DeleteStale},
		{Name: "password_reset_tokens", Run: d.Repos.PasswordResetTokenRepository.DeleteStale},
	}
	if d.AuthLimiter != nil {
		cleaners = append(cleaners, Cleaner{Name: "rate_limiters", Run: func(context.Context) (int64, error) {
			d.AuthLimiter.Sweep()
			return 0, nil
		}})
	}
	return cleaners
}

// RunMaintenance runs every cleaner once per interval until ctx is cancelled
func RunMaintenance(ctx context.Context, interval time.Duration, cleaners []Cleaner, lgr zerolog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runCleaners(ctx, cleaners, lgr)
		}
	}
}

func runCleaners(ctx context.Context, cleaners []Cleaner, lgr zerolog.Logger) {
	for _, c := range cleaners {
		removed, err := c.Run(ctx)
		if err != nil {
			lgr.Error().Err(err).Str("job", c.Name).Msg("Maintenance job failed")
			continue
		}
		if removed > 0 {
			lgr.Info().Str("job", c.Name).Int64("removed", removed).Msg("Maintenance job finished")
		}
	}
}
