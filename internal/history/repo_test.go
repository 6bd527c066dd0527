package history

import (
	"context"
	"testing"
	"time"

	"github.com/angelmondragon/newsapi-backend/internal/repo/repotest"
	"github.com/angelmondragon/newsapi-backend/pkg/db/models"
	"github.com/angelmondragon/newsapi-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func seedEntries(t *testing.T, repo Repository, userID, subID uuid.UUID, actions ...enums.HistoryAction) {
	t.Helper()
	base := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	for i, action := range actions {
		entry := &models.SubscriptionHistory{
			SubscriptionID: subID,
			UserID:         userID,
			Action:         action,
			Description:    string(action),
			CreatedAt:      base.Add(time.Duration(i) * time.Second),
		}
		require.NoError(t, repo.Create(context.Background(), entry))
	}
}

func TestRepositoryListBySubscriptionInCreationOrder(t *testing.T) {
	db := repotest.NewSQLite(t, &models.SubscriptionHistory{})
	repo := NewRepository(db)
	userID, subID := uuid.New(), uuid.New()

	seedEntries(t, repo, userID, subID,
		enums.HistoryActionCreated, enums.HistoryActionActivated, enums.HistoryActionCancelled)
	seedEntries(t, repo, userID, uuid.New(), enums.HistoryActionCreated)

	entries, err := repo.ListBySubscription(context.Background(), subID)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	require.Equal(t, enums.HistoryActionCreated, entries[0].Action)
	require.Equal(t, enums.HistoryActionActivated, entries[1].Action)
	require.Equal(t, enums.HistoryActionCancelled, entries[2].Action)
}

func TestRepositoryListByUserPaginates(t *testing.T) {
	db := repotest.NewSQLite(t, &models.SubscriptionHistory{})
	repo := NewRepository(db)
	userID := uuid.New()

	seedEntries(t, repo, userID, uuid.New(),
		enums.HistoryActionCreated, enums.HistoryActionActivated, enums.HistoryActionExpired)
	seedEntries(t, repo, uuid.New(), uuid.New(), enums.HistoryActionCreated)

	ctx := context.Background()
	first, cursor, err := repo.ListByUser(ctx, ListByUserQuery{UserID: userID, Limit: 2})
	require.NoError(t, err)
	require.Len(t, first, 2)
	require.NotNil(t, cursor)
	require.Equal(t, enums.HistoryActionCreated, first[0].Action)
	require.Equal(t, enums.HistoryActionActivated, first[1].Action)
	require.Equal(t, first[1].ID, cursor.ID)

	second, next, err := repo.ListByUser(ctx, ListByUserQuery{UserID: userID, Limit: 2, Cursor: cursor})
	require.NoError(t, err)
	require.Nil(t, next)
	require.Len(t, second, 1)
	require.Equal(t, enums.HistoryActionExpired, second[0].Action)
}
