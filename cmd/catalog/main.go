package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/ariefcatur/go-storefront/internal/catalog"
	"github.com/ariefcatur/go-storefront/internal/cli"
	"github.com/ariefcatur/go-storefront/internal/config"
	"github.com/ariefcatur/go-storefront/internal/logger"
	"github.com/ariefcatur/go-storefront/internal/postgres"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	log, err := logger.Init(cfg.Log.Level, cfg.Environment, cfg.ServiceName+"-catalog")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.ExitCommandError)
	}
	defer log.Sync()

	app := &cli.App{
		Open: func(ctx context.Context) (catalog.Store, func(), error) {
			pool, err := postgres.Connect(ctx, cfg.PostgresDSN)
			if err != nil {
				return nil, nil, err
			}
			if err := postgres.Migrate(ctx, pool); err != nil {
				pool.Close()
				return nil, nil, err
			}
			return postgres.NewStore(pool).Catalog(), pool.Close, nil
		},
		Import: cfg.Import,
		Log:    log,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = cli.NewRootCommand(app).ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		log.Sync()
		os.Exit(cli.GetExitCode(err))
	}
}
