package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/angelmondragon/newsapi-backend/internal/app"
	"github.com/angelmondragon/newsapi-backend/internal/plans"
	"github.com/angelmondragon/newsapi-backend/pkg/db/models"
)

type planRow struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Price        string         `json:"price"`
	DurationDays int            `json:"duration_days"`
	Features     map[string]any `json:"features"`
	IsActive     bool           `json:"is_active"`
}

func newPlanRow(plan models.Plan) planRow {
	return planRow{
		ID:           plan.ID.String(),
		Name:         plan.Name,
		Price:        plan.Price.StringFixed(2),
		DurationDays: plan.DurationDays,
		Features:     map[string]any(plan.Features),
		IsActive:     plan.IsActive,
	}
}

func newPlansCmd(open servicesFactory) *cobra.Command {
	cmd := &cobra.Command{Use: "plans", Short: "Manage the plan catalog"}
	cmd.AddCommand(newPlansListCmd(open), newPlansCreateCmd(open), newPlansDeactivateCmd(open))
	return cmd
}

func newPlansListCmd(open servicesFactory) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List active plans (or every plan with --all)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withServices(cmd, open, func(ctx context.Context, s *app.Services) error {
				list := s.Plans.ListActivePlans
				if all {
					list = s.Plans.ListPlans
				}
				found, err := list(ctx)
				if err != nil {
					return err
				}
				rows := make([]planRow, 0, len(found))
				for _, plan := range found {
					rows = append(rows, newPlanRow(plan))
				}
				return printJSON(cmd.OutOrStdout(), rows)
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "include inactive plans")
	return cmd
}

func newPlansCreateCmd(open servicesFactory) *cobra.Command {
	var (
		name        string
		description string
		price       string
		days        int
		features    []string
		billingID   string
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an active plan",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			amount, err := decimal.NewFromString(price)
			if err != nil {
				return fmt.Errorf("invalid --price %q: %w", price, err)
			}
			input := plans.CreatePlanInput{
				Name:         name,
				Description:  description,
				Price:        amount,
				DurationDays: days,
				Features:     featureMap(features),
			}
			if billingID = strings.TrimSpace(billingID); billingID != "" {
				input.BillingPriceID = &billingID
			}
			return withServices(cmd, open, func(ctx context.Context, s *app.Services) error {
				plan, err := s.Plans.CreatePlan(ctx, input)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), newPlanRow(*plan))
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "plan name")
	cmd.Flags().StringVar(&description, "description", "", "plan description")
	cmd.Flags().StringVar(&price, "price", "0", "price, two decimal places")
	cmd.Flags().IntVar(&days, "days", 30, "subscription window length in days")
	cmd.Flags().StringSliceVar(&features, "feature", nil, "feature flag to enable, repeatable (e.g. pin_posts)")
	cmd.Flags().StringVar(&billingID, "billing-price-id", "", "external billing price reference")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func featureMap(features []string) map[string]any {
	out := make(map[string]any, len(features))
	for _, feature := range features {
		if key := strings.TrimSpace(feature); key != "" {
			out[key] = true
		}
	}
	return out
}

func newPlansDeactivateCmd(open servicesFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "deactivate <plan-id>",
		Short: "Hide a plan from the catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid plan id: %w", err)
			}
			return withServices(cmd, open, func(ctx context.Context, s *app.Services) error {
				plan, err := s.Plans.DeactivatePlan(ctx, id)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), newPlanRow(*plan))
			})
		},
	}
}
