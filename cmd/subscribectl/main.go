// Command subscribectl is the operator CLI for plans and subscriptions.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/angelmondragon/newsapi-backend/internal/app"
	"github.com/angelmondragon/newsapi-backend/pkg/config"
	"github.com/angelmondragon/newsapi-backend/pkg/db"
	"github.com/angelmondragon/newsapi-backend/pkg/logger"
)

// servicesFactory opens the service graph; the returned func releases it.
type servicesFactory func(ctx context.Context) (*app.Services, func(), error)

func main() {
	_ = godotenv.Load()
	if err := newRootCmd(openServices).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd(open servicesFactory) *cobra.Command {
	root := &cobra.Command{
		Use:           "subscribectl",
		Short:         "Administer subscription plans, subscriptions and expirations",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newPlansCmd(open),
		newSubscriptionsCmd(open),
		newSweepCmd(open),
	)
	return root
}

func openServices(ctx context.Context) (*app.Services, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	logg := logger.New(logger.Options{
		ServiceName: "subscribectl",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Output:      os.Stderr,
	})
	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return nil, nil, err
	}
	services, err := app.NewServices(app.ServicesParams{
		DB:     dbClient,
		Config: cfg.Subscriptions,
		Logger: logg,
	})
	if err != nil {
		_ = dbClient.Close()
		return nil, nil, err
	}
	return services, func() { _ = dbClient.Close() }, nil
}

// withServices runs fn against a freshly opened service graph.
func withServices(cmd *cobra.Command, open servicesFactory, fn func(context.Context, *app.Services) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	services, release, err := open(ctx)
	if err != nil {
		return err
	}
	defer release()
	return fn(ctx, services)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
