package pushprovider

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestExpoProvider(t *testing.T, handler http.HandlerFunc) (*ExpoProvider, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	provider := NewExpoProvider(logger, server.URL, "test-access-token", 100, 10, server.Client())
	return provider, server
}

func TestExpoProvider_SendOK(t *testing.T) {
	var captured []expoSendRequest
	var authHeader string
	provider, _ := newTestExpoProvider(t, func(w http.ResponseWriter, r *http.Request) {
		authHeader = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[{"status":"ok","id":"ticket-123"}]}`))
	})

	badge := 3
	result, err := provider.Send(context.Background(), PushRequest{
		Token: "ExponentPushToken[abc]",
		Title: "Alex",
		Body:  "Hi there",
		Data:  map[string]string{"pairId": "p-1"},
		Badge: &badge,
	})
	require.NoError(t, err)

	assert.Equal(t, OutcomeDelivered, result.Outcome)
	assert.Equal(t, "ticket-123", result.TicketID)
	assert.Equal(t, "expo", result.ProviderName)

	assert.Equal(t, "Bearer test-access-token", authHeader)
	require.Len(t, captured, 1)
	assert.Equal(t, "ExponentPushToken[abc]", captured[0].To)
	assert.Equal(t, "default", captured[0].Sound)
	assert.Equal(t, "high", captured[0].Priority)
	require.NotNil(t, captured[0].Badge)
	assert.Equal(t, 3, *captured[0].Badge)
}

func TestExpoProvider_DeviceNotRegistered(t *testing.T) {
	provider, _ := newTestExpoProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[{"status":"error","message":"device gone","details":{"error":"DeviceNotRegistered"}}]}`))
	})

	result, err := provider.Send(context.Background(), PushRequest{Token: "dead-token", Title: "t", Body: "b"})
	require.NoError(t, err)

	assert.Equal(t, OutcomeFailed, result.Outcome)
	assert.True(t, result.TokenInvalid)
	assert.Equal(t, "device gone", result.ErrorMessage)
}

func TestExpoProvider_TicketErrorWithoutDeadToken(t *testing.T) {
	provider, _ := newTestExpoProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[{"status":"error","message":"message too big","details":{"error":"MessageTooBig"}}]}`))
	})

	result, err := provider.Send(context.Background(), PushRequest{Token: "tok", Title: "t", Body: "b"})
	require.NoError(t, err)

	assert.Equal(t, OutcomeFailed, result.Outcome)
	assert.False(t, result.TokenInvalid)
}

func TestExpoProvider_EmptyTokenSkipsWithoutNetworkCall(t *testing.T) {
	calls := 0
	provider, _ := newTestExpoProvider(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
	})

	result, err := provider.Send(context.Background(), PushRequest{Title: "t", Body: "b"})
	require.NoError(t, err)

	assert.Equal(t, OutcomeSkipped, result.Outcome)
	assert.Equal(t, "no token", result.SkipReason)
	assert.Equal(t, 0, calls)
}

func TestExpoProvider_Non2xxIsTypedFailure(t *testing.T) {
	provider, _ := newTestExpoProvider(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream unhappy", http.StatusBadGateway)
	})

	result, err := provider.Send(context.Background(), PushRequest{Token: "tok", Title: "t", Body: "b"})
	require.NoError(t, err)

	assert.Equal(t, OutcomeFailed, result.Outcome)
	assert.Contains(t, result.ErrorMessage, "502")
}

func TestExpoProvider_EmptyTicketListIsFailure(t *testing.T) {
	provider, _ := newTestExpoProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[]}`))
	})

	result, err := provider.Send(context.Background(), PushRequest{Token: "tok", Title: "t", Body: "b"})
	require.NoError(t, err)

	assert.Equal(t, OutcomeFailed, result.Outcome)
}
