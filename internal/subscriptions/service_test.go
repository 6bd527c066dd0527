package subscriptions

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/angelmondragon/newsapi-backend/internal/history"
	"github.com/angelmondragon/newsapi-backend/internal/plans"
	"github.com/angelmondragon/newsapi-backend/internal/repo/repotest"
	"github.com/angelmondragon/newsapi-backend/pkg/db"
	"github.com/angelmondragon/newsapi-backend/pkg/db/models"
	"github.com/angelmondragon/newsapi-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/newsapi-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type ledgerFixture struct {
	svc     Service
	db      *gorm.DB
	history history.Recorder
	now     time.Time
	repo    Repository
}

func (f *ledgerFixture) clock() time.Time { return f.now }

func newLedgerFixture(t *testing.T, wrap func(Repository) Repository, retries int) *ledgerFixture {
	t.Helper()
	conn := repotest.NewSQLite(t, &models.Plan{}, &models.Subscription{}, &models.SubscriptionHistory{})
	planSvc, err := plans.NewService(plans.ServiceParams{Repo: plans.NewRepository(conn)})
	require.NoError(t, err)
	recorder, err := history.NewRecorder(history.NewRepository(conn))
	require.NoError(t, err)

	f := &ledgerFixture{
		db:      conn,
		history: recorder,
		now:     time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC),
	}
	f.repo = NewRepository(conn)
	if wrap != nil {
		f.repo = wrap(f.repo)
	}
	svc, err := NewService(ServiceParams{
		Repo:              f.repo,
		Plans:             planSvc,
		History:           recorder,
		TransactionRunner: db.NewFromConn(conn),
		Clock:             f.clock,
		TransitionRetries: retries,
		SweepBatchSize:    2,
	})
	require.NoError(t, err)
	f.svc = svc
	return f
}

func (f *ledgerFixture) plan(t *testing.T, name string, pin bool) *models.Plan {
	t.Helper()
	return seedPlan(t, f.db, name, pin)
}

func (f *ledgerFixture) actions(t *testing.T, subID uuid.UUID) []enums.HistoryAction {
	t.Helper()
	entries, err := f.history.ListFor(context.Background(), subID)
	require.NoError(t, err)
	out := make([]enums.HistoryAction, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Action)
	}
	return out
}

// staleRepo reports a lost race for the first n conditional writes.
type staleRepo struct {
	Repository
	remaining *int
}

func (r staleRepo) WithTx(tx *gorm.DB) Repository {
	return staleRepo{Repository: r.Repository.WithTx(tx), remaining: r.remaining}
}

func (r staleRepo) TransitionStatus(ctx context.Context, id uuid.UUID, from, to enums.SubscriptionStatus) (bool, error) {
	if *r.remaining > 0 {
		*r.remaining--
		return false, nil
	}
	return r.Repository.TransitionStatus(ctx, id, from, to)
}

func TestNewServiceValidatesDeps(t *testing.T) {
	if _, err := NewService(ServiceParams{}); err == nil {
		t.Fatal("expected missing deps error")
	}
}

func TestCreateOpensPendingSubscriptionWithPlanWindow(t *testing.T) {
	f := newLedgerFixture(t, nil, 1)
	plan := f.plan(t, "Premium", true)
	userID := uuid.New()

	sub, err := f.svc.Create(context.Background(), userID, plan.ID)
	require.NoError(t, err)
	require.Equal(t, enums.SubscriptionStatusPending, sub.Status)
	require.True(t, sub.EndDate.After(sub.StartDate))
	require.Equal(t, 30*24*time.Hour, sub.EndDate.Sub(sub.StartDate))
	require.Equal(t, "Premium", sub.Plan.Name)
	require.False(t, sub.IsCurrentlyActive(f.now))
	require.Equal(t, []enums.HistoryAction{enums.HistoryActionCreated}, f.actions(t, sub.ID))

	current, err := f.svc.Current(context.Background(), userID)
	require.NoError(t, err)
	require.Equal(t, sub.ID, current.ID)
}

func TestCreateRejectsInactiveAndUnknownPlans(t *testing.T) {
	f := newLedgerFixture(t, nil, 1)
	plan := f.plan(t, "Legacy", false)
	require.NoError(t, f.db.Model(&models.Plan{}).Where("id = ?", plan.ID).Update("is_active", false).Error)

	_, err := f.svc.Create(context.Background(), uuid.New(), plan.ID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)

	_, err = f.svc.Create(context.Background(), uuid.New(), uuid.New())
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound), "got %v", err)
}

func TestCreateRejectsSecondActiveSubscription(t *testing.T) {
	f := newLedgerFixture(t, nil, 1)
	plan := f.plan(t, "Premium", true)
	userID := uuid.New()
	ctx := context.Background()

	sub, err := f.svc.Create(ctx, userID, plan.ID)
	require.NoError(t, err)
	_, err = f.svc.Activate(ctx, sub.ID)
	require.NoError(t, err)

	_, err = f.svc.Create(ctx, userID, plan.ID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict), "got %v", err)
}

func TestActivateIsIdempotentAndRecordsOnce(t *testing.T) {
	f := newLedgerFixture(t, nil, 1)
	plan := f.plan(t, "Premium", true)
	ctx := context.Background()

	sub, err := f.svc.Create(ctx, uuid.New(), plan.ID)
	require.NoError(t, err)

	activated, err := f.svc.Activate(ctx, sub.ID)
	require.NoError(t, err)
	require.Equal(t, enums.SubscriptionStatusActive, activated.Status)
	require.True(t, activated.IsCurrentlyActive(f.now))

	again, err := f.svc.Activate(ctx, sub.ID)
	require.NoError(t, err)
	require.Equal(t, enums.SubscriptionStatusActive, again.Status)

	require.Equal(t, []enums.HistoryAction{enums.HistoryActionCreated, enums.HistoryActionActivated}, f.actions(t, sub.ID))
}

func TestActivateRejectsTerminalAndLapsedSubscriptions(t *testing.T) {
	f := newLedgerFixture(t, nil, 1)
	plan := f.plan(t, "Premium", true)
	ctx := context.Background()

	sub, err := f.svc.Create(ctx, uuid.New(), plan.ID)
	require.NoError(t, err)
	_, err = f.svc.Activate(ctx, sub.ID)
	require.NoError(t, err)
	_, err = f.svc.Cancel(ctx, sub.ID)
	require.NoError(t, err)

	_, err = f.svc.Activate(ctx, sub.ID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict), "got %v", err)

	lapsed, err := f.svc.Create(ctx, uuid.New(), plan.ID)
	require.NoError(t, err)
	f.now = f.now.Add(31 * 24 * time.Hour)
	_, err = f.svc.Activate(ctx, lapsed.ID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict), "got %v", err)

	_, err = f.svc.Activate(ctx, uuid.New())
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound), "got %v", err)
}

func TestActivateRejectsWhenAnotherSubscriptionIsActive(t *testing.T) {
	f := newLedgerFixture(t, nil, 1)
	plan := f.plan(t, "Premium", true)
	userID := uuid.New()
	ctx := context.Background()

	pending, err := f.svc.Create(ctx, userID, plan.ID)
	require.NoError(t, err)
	other, err := f.svc.Create(ctx, userID, plan.ID)
	require.NoError(t, err)
	_, err = f.svc.Activate(ctx, other.ID)
	require.NoError(t, err)

	_, err = f.svc.Activate(ctx, pending.ID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict), "got %v", err)
}

func TestCancelIsAHardOverrideOfTheWindow(t *testing.T) {
	f := newLedgerFixture(t, nil, 1)
	plan := f.plan(t, "Premium", true)
	userID := uuid.New()
	ctx := context.Background()

	sub, err := f.svc.Create(ctx, userID, plan.ID)
	require.NoError(t, err)
	_, err = f.svc.Activate(ctx, sub.ID)
	require.NoError(t, err)

	cancelled, err := f.svc.CancelCurrent(ctx, userID)
	require.NoError(t, err)
	require.Equal(t, enums.SubscriptionStatusCancelled, cancelled.Status)
	require.True(t, cancelled.EndDate.Equal(sub.EndDate), "end date must be left as-is")
	require.True(t, cancelled.EndDate.After(f.now.Add(29*24*time.Hour)))
	require.False(t, cancelled.IsCurrentlyActive(f.now))

	current, err := f.svc.Current(ctx, userID)
	require.NoError(t, err)
	require.Nil(t, current)

	_, err = f.svc.Cancel(ctx, sub.ID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict), "got %v", err)

	_, err = f.svc.CancelCurrent(ctx, userID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound), "got %v", err)

	require.Equal(t, []enums.HistoryAction{
		enums.HistoryActionCreated,
		enums.HistoryActionActivated,
		enums.HistoryActionCancelled,
	}, f.actions(t, sub.ID))

	latest, err := f.svc.Latest(ctx, userID)
	require.NoError(t, err)
	require.Equal(t, enums.SubscriptionStatusCancelled, latest.Status)
}

func TestCancelCurrentPendingSubscription(t *testing.T) {
	f := newLedgerFixture(t, nil, 1)
	plan := f.plan(t, "Premium", true)
	ctx := context.Background()
	userID := uuid.New()

	sub, err := f.svc.Create(ctx, userID, plan.ID)
	require.NoError(t, err)
	require.Equal(t, enums.SubscriptionStatusPending, sub.Status)

	cancelled, err := f.svc.CancelCurrent(ctx, userID)
	require.NoError(t, err)
	require.Equal(t, sub.ID, cancelled.ID)
	require.Equal(t, enums.SubscriptionStatusCancelled, cancelled.Status)
	require.Equal(t, []enums.HistoryAction{
		enums.HistoryActionCreated,
		enums.HistoryActionCancelled,
	}, f.actions(t, sub.ID))

	current, err := f.svc.Current(ctx, userID)
	require.NoError(t, err)
	require.Nil(t, current)

	_, err = f.svc.Cancel(ctx, sub.ID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict), "got %v", err)
}

func TestSweepExpiresPastWindowsExactlyOnce(t *testing.T) {
	f := newLedgerFixture(t, nil, 1)
	plan := f.plan(t, "Premium", true)
	ctx := context.Background()

	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		sub, err := f.svc.Create(ctx, uuid.New(), plan.ID)
		require.NoError(t, err)
		_, err = f.svc.Activate(ctx, sub.ID)
		require.NoError(t, err)
		ids = append(ids, sub.ID)
	}
	pending, err := f.svc.Create(ctx, uuid.New(), plan.ID)
	require.NoError(t, err)

	f.now = f.now.Add(31 * 24 * time.Hour)
	fresh, err := f.svc.Create(ctx, uuid.New(), plan.ID)
	require.NoError(t, err)

	expired, err := f.svc.SweepExpirations(ctx, f.now)
	require.NoError(t, err)
	require.Equal(t, 4, expired)

	for _, id := range append(ids, pending.ID) {
		sub, err := f.svc.Get(ctx, id)
		require.NoError(t, err)
		require.Equal(t, enums.SubscriptionStatusExpired, sub.Status)
		actions := f.actions(t, id)
		require.Equal(t, enums.HistoryActionExpired, actions[len(actions)-1])
	}

	again, err := f.svc.SweepExpirations(ctx, f.now)
	require.NoError(t, err)
	require.Zero(t, again)

	count := 0
	for _, action := range f.actions(t, ids[0]) {
		if action == enums.HistoryActionExpired {
			count++
		}
	}
	require.Equal(t, 1, count)

	untouched, err := f.svc.Get(ctx, fresh.ID)
	require.NoError(t, err)
	require.Equal(t, enums.SubscriptionStatusPending, untouched.Status)
}

func TestCurrentIgnoresLapsedRowsBeforeSweep(t *testing.T) {
	f := newLedgerFixture(t, nil, 1)
	plan := f.plan(t, "Premium", true)
	userID := uuid.New()
	ctx := context.Background()

	sub, err := f.svc.Create(ctx, userID, plan.ID)
	require.NoError(t, err)
	_, err = f.svc.Activate(ctx, sub.ID)
	require.NoError(t, err)

	f.now = f.now.Add(30 * 24 * time.Hour)
	current, err := f.svc.Current(ctx, userID)
	require.NoError(t, err)
	require.Nil(t, current)

	stored, err := f.svc.Get(ctx, sub.ID)
	require.NoError(t, err)
	require.Equal(t, enums.SubscriptionStatusActive, stored.Status, "reads must not write")
}

func TestTransitionRetriesOnceAfterLostRace(t *testing.T) {
	stale := 1
	f := newLedgerFixture(t, func(r Repository) Repository {
		return staleRepo{Repository: r, remaining: &stale}
	}, 1)
	plan := f.plan(t, "Premium", true)

	sub, err := f.svc.Create(context.Background(), uuid.New(), plan.ID)
	require.NoError(t, err)

	activated, err := f.svc.Activate(context.Background(), sub.ID)
	require.NoError(t, err)
	require.Equal(t, enums.SubscriptionStatusActive, activated.Status)
	require.Equal(t, []enums.HistoryAction{enums.HistoryActionCreated, enums.HistoryActionActivated}, f.actions(t, sub.ID))
}

func TestTransitionSurfacesConflictAfterRetries(t *testing.T) {
	stale := 5
	f := newLedgerFixture(t, func(r Repository) Repository {
		return staleRepo{Repository: r, remaining: &stale}
	}, 1)
	plan := f.plan(t, "Premium", true)

	sub, err := f.svc.Create(context.Background(), uuid.New(), plan.ID)
	require.NoError(t, err)

	_, err = f.svc.Activate(context.Background(), sub.ID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict), "got %v", err)
	require.Equal(t, 3, stale, "one attempt plus one retry")
	require.Equal(t, []enums.HistoryAction{enums.HistoryActionCreated}, f.actions(t, sub.ID))
}

// failingRepo fails the conditional write for one subscription.
type failingRepo struct {
	Repository
	failID uuid.UUID
}

func (r failingRepo) WithTx(tx *gorm.DB) Repository {
	return failingRepo{Repository: r.Repository.WithTx(tx), failID: r.failID}
}

func (r failingRepo) TransitionStatus(ctx context.Context, id uuid.UUID, from, to enums.SubscriptionStatus) (bool, error) {
	if id == r.failID {
		return false, errors.New("row locked")
	}
	return r.Repository.TransitionStatus(ctx, id, from, to)
}

func TestSweepContinuesPastRowFailures(t *testing.T) {
	var target failingRepo
	f := newLedgerFixture(t, func(r Repository) Repository {
		target = failingRepo{Repository: r}
		return &target
	}, 0)
	plan := f.plan(t, "Premium", true)
	ctx := context.Background()

	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		sub, err := f.svc.Create(ctx, uuid.New(), plan.ID)
		require.NoError(t, err)
		ids = append(ids, sub.ID)
	}
	target.failID = ids[0]

	f.now = f.now.Add(31 * 24 * time.Hour)
	expired, err := f.svc.SweepExpirations(ctx, f.now)
	require.Error(t, err)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency), "got %v", err)
	require.Equal(t, 2, expired)

	stuck, err := f.svc.Get(ctx, ids[0])
	require.NoError(t, err)
	require.Equal(t, enums.SubscriptionStatusPending, stuck.Status)
}
