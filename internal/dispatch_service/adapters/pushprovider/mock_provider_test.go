package pushprovider

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMockProvider(t *testing.T, failRate float64) Adapter {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewMockProvider(logger, "mock-push", failRate)
}

func TestMockProvider_Delivers(t *testing.T) {
	provider := newTestMockProvider(t, 0)

	result, err := provider.Send(context.Background(), PushRequest{Token: "tok", Title: "t", Body: "b"})
	require.NoError(t, err)

	assert.Equal(t, OutcomeDelivered, result.Outcome)
	assert.NotEmpty(t, result.TicketID)
	assert.Equal(t, "mock-push", result.ProviderName)
}

func TestMockProvider_SimulatedFailure(t *testing.T) {
	provider := newTestMockProvider(t, 1)

	result, err := provider.Send(context.Background(), PushRequest{Token: "tok", Title: "t", Body: "b"})
	require.NoError(t, err)

	assert.Equal(t, OutcomeFailed, result.Outcome)
	assert.NotEmpty(t, result.ErrorMessage)
}

func TestMockProvider_EmptyTokenSkips(t *testing.T) {
	provider := newTestMockProvider(t, 0)

	result, err := provider.Send(context.Background(), PushRequest{Title: "t", Body: "b"})
	require.NoError(t, err)

	assert.Equal(t, OutcomeSkipped, result.Outcome)
	assert.Equal(t, "no token", result.SkipReason)
}

func TestMockProvider_DefaultName(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	provider := NewMockProvider(logger, "", 0)
	assert.Equal(t, "mock-push", provider.GetName())
}
