package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/angelmondragon/newsapi-backend/internal/app"
)

func newSweepCmd(open servicesFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Mark every lapsed active subscription as expired once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withServices(cmd, open, func(ctx context.Context, s *app.Services) error {
				expired, err := s.Subscriptions.SweepExpirations(ctx, s.Subscriptions.Now())
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), map[string]int{"expired": expired})
			})
		},
	}
}
