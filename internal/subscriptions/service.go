package subscriptions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/newsapi-backend/internal/history"
	"github.com/angelmondragon/newsapi-backend/pkg/db/models"
	"github.com/angelmondragon/newsapi-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/newsapi-backend/pkg/errors"
	"github.com/angelmondragon/newsapi-backend/pkg/logger"
	"github.com/angelmondragon/newsapi-backend/pkg/metrics"
	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"
)

// errStaleStatus signals that the row changed between read and conditional write.
var errStaleStatus = errors.New("subscription status changed concurrently")

type planLookup interface {
	GetPlan(ctx context.Context, id uuid.UUID) (*models.Plan, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service is the subscription ledger: it owns every status change and mirrors
// each one into the history trail within the same transaction.
type Service interface {
	Create(ctx context.Context, userID, planID uuid.UUID) (*models.Subscription, error)
	Activate(ctx context.Context, subscriptionID uuid.UUID) (*models.Subscription, error)
	Cancel(ctx context.Context, subscriptionID uuid.UUID) (*models.Subscription, error)
	CancelCurrent(ctx context.Context, userID uuid.UUID) (*models.Subscription, error)
	Get(ctx context.Context, subscriptionID uuid.UUID) (*models.Subscription, error)
	Current(ctx context.Context, userID uuid.UUID) (*models.Subscription, error)
	Latest(ctx context.Context, userID uuid.UUID) (*models.Subscription, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Subscription, error)
	SweepExpirations(ctx context.Context, now time.Time) (int, error)
	Now() time.Time
}

// ServiceParams groups dependencies for the subscription ledger.
type ServiceParams struct {
	Repo              Repository
	Plans             planLookup
	History           history.Recorder
	TransactionRunner txRunner
	Metrics           *metrics.SubscriptionMetrics
	Logger            *logger.Logger
	Clock             func() time.Time
	TransitionRetries int
	SweepBatchSize    int
}

type service struct {
	repo      Repository
	plans     planLookup
	history   history.Recorder
	txRunner  txRunner
	metrics   *metrics.SubscriptionMetrics
	logg      *logger.Logger
	clock     func() time.Time
	retries   int
	batchSize int
}

// NewService builds the ledger with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("subscription repo required")
	}
	if params.Plans == nil {
		return nil, fmt.Errorf("plan catalog required")
	}
	if params.History == nil {
		return nil, fmt.Errorf("history recorder required")
	}
	if params.TransactionRunner == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.TransitionRetries < 0 {
		return nil, fmt.Errorf("transition retries must not be negative")
	}

	svc := &service{
		repo:      params.Repo,
		plans:     params.Plans,
		history:   params.History,
		txRunner:  params.TransactionRunner,
		metrics:   params.Metrics,
		logg:      params.Logger,
		clock:     params.Clock,
		retries:   params.TransitionRetries,
		batchSize: params.SweepBatchSize,
	}
	if svc.logg == nil {
		svc.logg = logger.Nop()
	}
	if svc.clock == nil {
		svc.clock = func() time.Time { return time.Now().UTC() }
	}
	if svc.batchSize <= 0 {
		svc.batchSize = 500
	}
	return svc, nil
}

func (s *service) Now() time.Time {
	return s.clock()
}

// Create opens a pending subscription whose window is the plan's duration
// starting now.
func (s *service) Create(ctx context.Context, userID, planID uuid.UUID) (*models.Subscription, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	plan, err := s.plans.GetPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	if !plan.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "plan is not active").
			WithDetails(map[string]string{"plan_id": planID.String()})
	}

	now := s.clock()
	sub := &models.Subscription{
		UserID:    userID,
		PlanID:    plan.ID,
		Status:    enums.SubscriptionStatusPending,
		StartDate: now,
		EndDate:   now.Add(plan.Duration()),
	}
	if !sub.EndDate.After(sub.StartDate) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "plan duration must be positive")
	}

	err = s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		active, err := repo.HasActive(ctx, userID, uuid.Nil, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check active subscription")
		}
		if active {
			return pkgerrors.New(pkgerrors.CodeConflict, "user already has an active subscription")
		}
		if err := repo.Create(ctx, sub); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create subscription")
		}
		_, err = s.history.WithTx(tx).Record(ctx, *sub, enums.HistoryActionCreated,
			fmt.Sprintf("Subscribed to %s plan", plan.Name))
		return err
	})
	if err != nil {
		return nil, err
	}

	sub.Plan = plan
	s.committed(ctx, *sub, enums.HistoryActionCreated)
	return sub, nil
}

// Activate confirms payment for a pending subscription. Activating an active
// subscription is a no-op and records nothing.
func (s *service) Activate(ctx context.Context, subscriptionID uuid.UUID) (*models.Subscription, error) {
	return s.transition(ctx, subscriptionID, enums.SubscriptionStatusActive, func(repo Repository, sub *models.Subscription, now time.Time) (bool, error) {
		if sub.Status == enums.SubscriptionStatusActive {
			return true, nil
		}
		if sub.Status.IsTerminal() {
			return false, nil
		}
		if sub.Status == enums.SubscriptionStatusPending && !now.Before(sub.EndDate) {
			return false, pkgerrors.New(pkgerrors.CodeStateConflict, "subscription window has already ended")
		}
		active, err := repo.HasActive(ctx, sub.UserID, sub.ID, now)
		if err != nil {
			return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check active subscription")
		}
		if active {
			return false, pkgerrors.New(pkgerrors.CodeConflict, "user already has an active subscription")
		}
		return false, nil
	}, func(*models.Subscription) string {
		return "Subscription activated"
	})
}

// Cancel ends the subscription immediately. end_date is left untouched; the
// status alone stops it from counting as active.
func (s *service) Cancel(ctx context.Context, subscriptionID uuid.UUID) (*models.Subscription, error) {
	return s.transition(ctx, subscriptionID, enums.SubscriptionStatusCancelled, nil, func(sub *models.Subscription) string {
		return "Subscription cancelled by user"
	})
}

func (s *service) CancelCurrent(ctx context.Context, userID uuid.UUID) (*models.Subscription, error) {
	current, err := s.Current(ctx, userID)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no active subscription")
	}
	return s.Cancel(ctx, current.ID)
}

func (s *service) Get(ctx context.Context, subscriptionID uuid.UUID) (*models.Subscription, error) {
	sub, err := s.repo.FindByID(ctx, subscriptionID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load subscription")
	}
	if sub == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "subscription not found")
	}
	return sub, nil
}

// Current returns the user's current subscription or nil. It never writes;
// rows past their window are filtered out here and persisted as expired by
// the sweep.
func (s *service) Current(ctx context.Context, userID uuid.UUID) (*models.Subscription, error) {
	sub, err := s.repo.FindCurrent(ctx, userID, s.clock())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load current subscription")
	}
	return sub, nil
}

// Latest returns the user's newest subscription in any status, or nil.
func (s *service) Latest(ctx context.Context, userID uuid.UUID) (*models.Subscription, error) {
	sub, err := s.repo.FindLatest(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load latest subscription")
	}
	return sub, nil
}

func (s *service) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Subscription, error) {
	subs, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list subscriptions")
	}
	return subs, nil
}

// SweepExpirations moves every live subscription whose window closed at or
// before now into expired. Rows that another writer moved first are skipped.
// Per-row failures are collected and returned together after the sweep.
func (s *service) SweepExpirations(ctx context.Context, now time.Time) (int, error) {
	var (
		expired int
		errs    error
		failed  = map[uuid.UUID]struct{}{}
	)

	for {
		if err := ctx.Err(); err != nil {
			return expired, multierr.Append(errs, err)
		}

		limit := s.batchSize + len(failed)
		batch, err := s.repo.ListExpirable(ctx, now, limit)
		if err != nil {
			return expired, multierr.Append(errs, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list expirable subscriptions"))
		}

		progressed := 0
		for _, candidate := range batch {
			if _, seen := failed[candidate.ID]; seen {
				continue
			}
			changed, err := s.expireOne(ctx, candidate.ID, now)
			if err != nil {
				failed[candidate.ID] = struct{}{}
				errs = multierr.Append(errs, fmt.Errorf("expire subscription %s: %w", candidate.ID, err))
				continue
			}
			progressed++
			if changed {
				expired++
			}
		}

		if progressed == 0 || len(batch) < limit {
			break
		}
	}

	if expired > 0 {
		s.logg.Info(s.logg.WithField(ctx, "expired", expired), "subscription sweep expired rows")
	}
	return expired, errs
}

func (s *service) expireOne(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	changed := false
	_, err := s.transition(ctx, id, enums.SubscriptionStatusExpired, func(_ Repository, sub *models.Subscription, _ time.Time) (bool, error) {
		if sub.Status.IsTerminal() || sub.EndDate.After(now) {
			return true, nil
		}
		changed = true
		return false, nil
	}, func(sub *models.Subscription) string {
		return fmt.Sprintf("Subscription expired on %s", sub.EndDate.UTC().Format(time.RFC3339))
	})
	return changed, err
}

// guardFunc runs inside the transition transaction after the row is loaded.
// Returning skip=true ends the transition successfully without writing.
type guardFunc func(repo Repository, sub *models.Subscription, now time.Time) (skip bool, err error)

func (s *service) transition(
	ctx context.Context,
	id uuid.UUID,
	to enums.SubscriptionStatus,
	guard guardFunc,
	describe func(*models.Subscription) string,
) (*models.Subscription, error) {
	action, err := enums.HistoryActionFor(to)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "map transition")
	}

	for attempt := 0; attempt <= s.retries; attempt++ {
		var (
			result  *models.Subscription
			written bool
		)
		err := s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)
			sub, err := repo.FindByID(ctx, id)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load subscription")
			}
			if sub == nil {
				return pkgerrors.New(pkgerrors.CodeNotFound, "subscription not found")
			}

			now := s.clock()
			if guard != nil {
				skip, err := guard(repo, sub, now)
				if err != nil {
					return err
				}
				if skip {
					result = sub
					return nil
				}
			}
			if !sub.Status.CanTransitionTo(to) {
				return pkgerrors.New(pkgerrors.CodeStateConflict,
					fmt.Sprintf("cannot move subscription from %s to %s", sub.Status, to)).
					WithDetails(map[string]string{"status": sub.Status.String()})
			}

			ok, err := repo.TransitionStatus(ctx, sub.ID, sub.Status, to)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update subscription status")
			}
			if !ok {
				return errStaleStatus
			}
			sub.Status = to
			if _, err := s.history.WithTx(tx).Record(ctx, *sub, action, describe(sub)); err != nil {
				return err
			}
			result = sub
			written = true
			return nil
		})
		if errors.Is(err, errStaleStatus) {
			s.logg.Warn(s.logg.WithSubscriptionID(ctx, id.String()), "subscription transition lost a race, retrying")
			continue
		}
		if err != nil {
			return nil, err
		}
		if written {
			s.committed(ctx, *result, action)
		}
		return result, nil
	}

	return nil, pkgerrors.New(pkgerrors.CodeConflict, "subscription was modified concurrently, try again")
}

func (s *service) committed(ctx context.Context, sub models.Subscription, action enums.HistoryAction) {
	s.metrics.IncTransition(action.String())
	ctx = s.logg.WithSubscriptionID(ctx, sub.ID.String())
	ctx = s.logg.WithFields(ctx, map[string]any{
		"user_id": sub.UserID.String(),
		"status":  sub.Status.String(),
	})
	s.logg.Info(ctx, "subscription "+action.String())
}
