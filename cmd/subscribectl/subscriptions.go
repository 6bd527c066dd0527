package main

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/angelmondragon/newsapi-backend/internal/app"
	"github.com/angelmondragon/newsapi-backend/pkg/db/models"
	"github.com/angelmondragon/newsapi-backend/pkg/pagination"
)

type subscriptionRow struct {
	ID                string    `json:"id"`
	UserID            string    `json:"user_id"`
	PlanID            string    `json:"plan_id"`
	Status            string    `json:"status"`
	StartDate         time.Time `json:"start_date"`
	EndDate           time.Time `json:"end_date"`
	IsCurrentlyActive bool      `json:"is_currently_active"`
	DaysRemaining     int       `json:"days_remaining"`
}

func newSubscriptionRow(sub models.Subscription, now time.Time) subscriptionRow {
	return subscriptionRow{
		ID:                sub.ID.String(),
		UserID:            sub.UserID.String(),
		PlanID:            sub.PlanID.String(),
		Status:            sub.Status.String(),
		StartDate:         sub.StartDate.UTC(),
		EndDate:           sub.EndDate.UTC(),
		IsCurrentlyActive: sub.IsCurrentlyActive(now),
		DaysRemaining:     sub.DaysRemaining(now),
	}
}

type historyRow struct {
	SubscriptionID string    `json:"subscription_id"`
	Action         string    `json:"action"`
	Description    string    `json:"description"`
	CreatedAt      time.Time `json:"created_at"`
}

func newSubscriptionsCmd(open servicesFactory) *cobra.Command {
	cmd := &cobra.Command{Use: "subscriptions", Aliases: []string{"subs"}, Short: "Inspect and transition subscriptions"}
	cmd.AddCommand(
		newSubscriptionCreateCmd(open),
		newSubscriptionTransitionCmd(open, "activate", "Activate a pending subscription after payment"),
		newSubscriptionTransitionCmd(open, "cancel", "Cancel an active subscription"),
		newSubscriptionListCmd(open),
		newSubscriptionHistoryCmd(open),
	)
	return cmd
}

func parseUUIDArg(raw, label string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s: %w", label, err)
	}
	return id, nil
}

func newSubscriptionCreateCmd(open servicesFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "create <user-id> <plan-id>",
		Short: "Open a pending subscription for a user",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseUUIDArg(args[0], "user id")
			if err != nil {
				return err
			}
			planID, err := parseUUIDArg(args[1], "plan id")
			if err != nil {
				return err
			}
			return withServices(cmd, open, func(ctx context.Context, s *app.Services) error {
				sub, err := s.Subscriptions.Create(ctx, userID, planID)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), newSubscriptionRow(*sub, s.Subscriptions.Now()))
			})
		},
	}
}

func newSubscriptionTransitionCmd(open servicesFactory, action, short string) *cobra.Command {
	return &cobra.Command{
		Use:   action + " <subscription-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseUUIDArg(args[0], "subscription id")
			if err != nil {
				return err
			}
			return withServices(cmd, open, func(ctx context.Context, s *app.Services) error {
				transition := s.Subscriptions.Activate
				if action == "cancel" {
					transition = s.Subscriptions.Cancel
				}
				sub, err := transition(ctx, id)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), newSubscriptionRow(*sub, s.Subscriptions.Now()))
			})
		},
	}
}

func newSubscriptionListCmd(open servicesFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "list <user-id>",
		Short: "List every subscription a user has held, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseUUIDArg(args[0], "user id")
			if err != nil {
				return err
			}
			return withServices(cmd, open, func(ctx context.Context, s *app.Services) error {
				subs, err := s.Subscriptions.ListForUser(ctx, userID)
				if err != nil {
					return err
				}
				now := s.Subscriptions.Now()
				rows := make([]subscriptionRow, 0, len(subs))
				for _, sub := range subs {
					rows = append(rows, newSubscriptionRow(sub, now))
				}
				return printJSON(cmd.OutOrStdout(), rows)
			})
		},
	}
}

func newSubscriptionHistoryCmd(open servicesFactory) *cobra.Command {
	var (
		limit  int
		cursor string
	)
	cmd := &cobra.Command{
		Use:   "history <user-id>",
		Short: "Print a user's subscription audit trail, oldest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseUUIDArg(args[0], "user id")
			if err != nil {
				return err
			}
			return withServices(cmd, open, func(ctx context.Context, s *app.Services) error {
				page, err := s.History.ListForUser(ctx, userID, pagination.Params{Limit: limit, Cursor: cursor})
				if err != nil {
					return err
				}
				rows := make([]historyRow, 0, len(page.Entries))
				for _, entry := range page.Entries {
					rows = append(rows, historyRow{
						SubscriptionID: entry.SubscriptionID.String(),
						Action:         string(entry.Action),
						Description:    entry.Description,
						CreatedAt:      entry.CreatedAt.UTC(),
					})
				}
				return printJSON(cmd.OutOrStdout(), map[string]any{"entries": rows, "next_cursor": page.NextCursor})
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", pagination.DefaultLimit, "page size")
	cmd.Flags().StringVar(&cursor, "cursor", "", "cursor from a previous page")
	return cmd
}
