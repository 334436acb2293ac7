package notifier

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FloodMonitorAPI/internal/logger"
	"FloodMonitorAPI/internal/models"
)

func TestLogOnlyReportsUndelivered(t *testing.T) {
	var n Notifier = NewLogOnly(logger.Discard())

	err := n.Send(context.Background(), "water rising")

	var deliveryErr *models.DeliveryError
	require.True(t, errors.As(err, &deliveryErr))
	assert.Equal(t, "log", deliveryErr.Channel)
	assert.ErrorIs(t, err, ErrNoChannel)
}
