package settings

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kenyawebs/Tana-Delta/internal/apperr"
	"github.com/kenyawebs/Tana-Delta/internal/models"
	"github.com/kenyawebs/Tana-Delta/internal/repository"
)

func TestService(t *testing.T) {
	ctx := context.Background()
	svc := NewService(repository.NewMemoryStore().Settings)

	t.Run("defaults before any update", func(t *testing.T) {
		s, err := svc.Get(ctx)
		require.NoError(t, err)
		assert.Equal(t, models.DefaultSettings().MaxQueryLength, s.MaxQueryLength)
		assert.True(t, s.WhatsAppEnabled)
	})

	t.Run("update is visible to the next get", func(t *testing.T) {
		s, err := svc.Get(ctx)
		require.NoError(t, err)
		s.MaintenanceMode = true
		s.MaxQueryLength = 500

		_, err = svc.Update(ctx, s)
		require.NoError(t, err)

		got, err := svc.Get(ctx)
		require.NoError(t, err)
		assert.True(t, got.MaintenanceMode)
		assert.Equal(t, 500, got.MaxQueryLength)
	})

	t.Run("out of range values are rejected", func(t *testing.T) {
		s := models.DefaultSettings()
		s.MaxQueryLength = 5000

		_, err := svc.Update(ctx, s)
		assert.ErrorIs(t, err, apperr.ErrValidation)

		var verr *apperr.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "MaxQueryLength", verr.Field)
	})
}
