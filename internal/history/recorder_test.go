package history

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/angelmondragon/newsapi-backend/pkg/db/models"
	"github.com/angelmondragon/newsapi-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/newsapi-backend/pkg/errors"
	"github.com/angelmondragon/newsapi-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type stubRepo struct {
	created  []models.SubscriptionHistory
	boundTx  *gorm.DB
	createFn func(entry *models.SubscriptionHistory) error
	listArgs ListByUserQuery
	listOut  []models.SubscriptionHistory
	listNext *pagination.Cursor
}

func (s *stubRepo) WithTx(tx *gorm.DB) Repository {
	clone := *s
	clone.boundTx = tx
	return &clone
}

func (s *stubRepo) Create(ctx context.Context, entry *models.SubscriptionHistory) error {
	if s.createFn != nil {
		if err := s.createFn(entry); err != nil {
			return err
		}
	}
	s.created = append(s.created, *entry)
	return nil
}

func (s *stubRepo) ListBySubscription(ctx context.Context, subscriptionID uuid.UUID) ([]models.SubscriptionHistory, error) {
	var out []models.SubscriptionHistory
	for _, entry := range s.created {
		if entry.SubscriptionID == subscriptionID {
			out = append(out, entry)
		}
	}
	return out, nil
}

func (s *stubRepo) ListByUser(ctx context.Context, params ListByUserQuery) ([]models.SubscriptionHistory, *pagination.Cursor, error) {
	s.listArgs = params
	return s.listOut, s.listNext, nil
}

func TestRecordCopiesSubscriptionIdentity(t *testing.T) {
	repo := &stubRepo{}
	rec, err := NewRecorder(repo)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sub := models.Subscription{ID: uuid.New(), UserID: uuid.New()}
	entry, err := rec.Record(context.Background(), sub, enums.HistoryActionCreated, "Subscription created")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entry.SubscriptionID != sub.ID || entry.UserID != sub.UserID {
		t.Fatalf("entry not linked to subscription: %+v", entry)
	}

	entries, err := rec.ListFor(context.Background(), sub.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 1 || entries[0].Action != enums.HistoryActionCreated {
		t.Fatalf("unexpected entries %+v", entries)
	}
}

func TestRecordRejectsUnknownActionAndUnsavedSubscription(t *testing.T) {
	rec, _ := NewRecorder(&stubRepo{})

	_, err := rec.Record(context.Background(), models.Subscription{ID: uuid.New()}, enums.HistoryAction("renewed"), "")
	if !pkgerrors.IsCode(err, pkgerrors.CodeInternal) {
		t.Fatalf("expected internal error, got %v", err)
	}

	_, err = rec.Record(context.Background(), models.Subscription{}, enums.HistoryActionCreated, "")
	if !pkgerrors.IsCode(err, pkgerrors.CodeInternal) {
		t.Fatalf("expected internal error, got %v", err)
	}
}

func TestRecordSurfacesStorageFaults(t *testing.T) {
	repo := &stubRepo{createFn: func(*models.SubscriptionHistory) error { return errors.New("disk full") }}
	rec, _ := NewRecorder(repo)

	_, err := rec.Record(context.Background(), models.Subscription{ID: uuid.New()}, enums.HistoryActionExpired, "")
	if !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func TestWithTxBindsRepository(t *testing.T) {
	repo := &stubRepo{}
	rec, _ := NewRecorder(repo)
	tx := &gorm.DB{}

	bound := rec.WithTx(tx).(*recorder)
	if bound.repo.(*stubRepo).boundTx != tx {
		t.Fatal("expected recorder to forward the transaction")
	}
}

func TestListForUserEncodesCursor(t *testing.T) {
	last := models.SubscriptionHistory{ID: uuid.New(), CreatedAt: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	repo := &stubRepo{
		listOut:  []models.SubscriptionHistory{last},
		listNext: &pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID},
	}
	rec, _ := NewRecorder(repo)
	userID := uuid.New()

	page, err := rec.ListForUser(context.Background(), userID, pagination.Params{Limit: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page.NextCursor == "" {
		t.Fatal("expected next cursor")
	}
	if repo.listArgs.UserID != userID || repo.listArgs.Limit != 1 || repo.listArgs.Cursor != nil {
		t.Fatalf("unexpected repo args %+v", repo.listArgs)
	}

	decoded, err := pagination.ParseCursor(page.NextCursor)
	if err != nil || decoded.ID != last.ID {
		t.Fatalf("cursor did not round trip: %v %v", decoded, err)
	}

	_, err = rec.ListForUser(context.Background(), userID, pagination.Params{Cursor: "%%%"})
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for bad cursor, got %v", err)
	}
}
