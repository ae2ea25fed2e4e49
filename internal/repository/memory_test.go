package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/kenyawebs/Tana-Delta/internal/apperr"
	"github.com/kenyawebs/Tana-Delta/internal/models"
)

func TestMemoryQueries(t *testing.T) {
	ctx := context.Background()

	t.Run("status moves forward only from the expected state", func(t *testing.T) {
		s := NewMemoryStore()
		q := &models.Query{QueryText: "What is theft?", Status: models.StatusReceived}
		require.NoError(t, s.Queries.Create(ctx, q))
		require.False(t, q.ID.IsZero())

		assert.ErrorIs(t, s.Queries.Complete(ctx, q.ID, models.QueryResult{Answer: "x"}, 1), ErrStaleStatus)
		require.NoError(t, s.Queries.MarkProcessing(ctx, q.ID))
		assert.ErrorIs(t, s.Queries.MarkProcessing(ctx, q.ID), ErrStaleStatus)
		require.NoError(t, s.Queries.Complete(ctx, q.ID, models.QueryResult{Answer: "x"}, 1.5))
		assert.ErrorIs(t, s.Queries.Fail(ctx, q.ID, "late", 2), ErrStaleStatus)

		got, err := s.Queries.Get(ctx, q.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusCompleted, got.Status)
		assert.Equal(t, "x", got.Answer)
		assert.Equal(t, 1.5, got.ProcessingTime)
		assert.Empty(t, got.Error)
	})

	t.Run("unknown id is not found", func(t *testing.T) {
		_, err := NewMemoryStore().Queries.Get(ctx, primitive.NewObjectID())
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})

	t.Run("counts and active users", func(t *testing.T) {
		s := NewMemoryStore()
		alice, bob := primitive.NewObjectID(), primitive.NewObjectID()
		for _, u := range []primitive.ObjectID{alice, alice, bob} {
			require.NoError(t, s.Queries.Create(ctx, &models.Query{UserID: u, Status: models.StatusReceived}))
		}
		require.NoError(t, s.Queries.Create(ctx, &models.Query{Status: models.StatusCompleted}))

		n, err := s.Queries.Count(ctx)
		require.NoError(t, err)
		assert.EqualValues(t, 4, n)

		n, err = s.Queries.Count(ctx, models.StatusCompleted, models.StatusFailed)
		require.NoError(t, err)
		assert.EqualValues(t, 1, n)

		n, err = s.Queries.ActiveUsers(ctx)
		require.NoError(t, err)
		assert.EqualValues(t, 2, n)

		mine, err := s.Queries.ListByUser(ctx, alice, 10)
		require.NoError(t, err)
		assert.Len(t, mine, 2)

		recent, err := s.Queries.Recent(ctx, 3)
		require.NoError(t, err)
		assert.Len(t, recent, 3)
	})
}

func TestMemoryDocuments(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	d := &models.Document{Title: "Charge sheet", Status: models.StatusReceived}
	require.NoError(t, s.Documents.Create(ctx, d))
	require.NoError(t, s.Documents.MarkProcessing(ctx, d.ID))
	require.NoError(t, s.Documents.Fail(ctx, d.ID, "processing timed out after 5m0s", 300))
	assert.ErrorIs(t, s.Documents.Complete(ctx, d.ID, models.DocumentResult{}, nil, 1), ErrStaleStatus)

	got, err := s.Documents.Get(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, got.Status)
	assert.Empty(t, got.Analysis)
}

func TestMemoryUsersAndMessages(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	u := &models.User{Name: "WhatsApp User 5678", Phone: "254712345678"}
	require.NoError(t, s.Users.Create(ctx, u))
	assert.Error(t, s.Users.Create(ctx, &models.User{Phone: "254712345678"}))

	found, err := s.Users.FindByPhone(ctx, "254712345678")
	require.NoError(t, err)
	assert.Equal(t, u.ID, found.ID)

	_, err = s.Users.FindByPhone(ctx, "254700000000")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	users, total, err := s.Users.List(ctx, 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Empty(t, users)

	for _, body := range []string{"hi", "bail"} {
		require.NoError(t, s.Messages.Create(ctx, &models.WhatsAppMessage{PhoneNumber: "254712345678", Content: body}))
	}
	msgs, err := s.Messages.ListByPhone(ctx, "254712345678", 0)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "bail", msgs[0].Content)
}

func TestMemorySettings(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	got, err := s.Settings.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.DefaultSettings().MaxQueryLength, got.MaxQueryLength)

	got.MaintenanceMode = true
	require.NoError(t, s.Settings.Save(ctx, got))

	again, err := s.Settings.Get(ctx)
	require.NoError(t, err)
	assert.True(t, again.MaintenanceMode)
	assert.False(t, again.UpdatedAt.IsZero())
}
