// Command admin runs maintenance tasks against a Noteverse deployment.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/yigit/noteverse/internal/app/repositories"
	"github.com/yigit/noteverse/internal/bootstrap"
)

func main() {
	root := newRootCmd(connect)
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// connect loads configuration and opens the database for one command. The
// returned func releases the pool.
func connect(_ context.Context) (*cli, func(), error) {
	cfg, lgr, err := bootstrap.LoadConfigAndSetupLogger()
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	pool, err := bootstrap.ConnectDatabase(cfg, lgr)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to database: %w", err)
	}

	repos := repositories.NewRepositories(pool)
	c := &cli{
		users:     repos.UserRepository,
		resources: repos.ResourceRepository,
		tokens:    repos.TokenRepository,
		adminName: cfg.Admin.Name,
		logger:    lgr,
		migrate: func(ctx context.Context) error {
			return bootstrap.RunMigrations(ctx, cfg, pool, lgr)
		},
	}
	return c, pool.Close, nil
}
