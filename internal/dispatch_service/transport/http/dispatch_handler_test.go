package http

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pairlink/dispatch/internal/core_domain"
	"github.com/pairlink/dispatch/internal/dispatch_service/adapters/pushprovider"
	"github.com/pairlink/dispatch/internal/dispatch_service/app"
	"github.com/pairlink/dispatch/internal/dispatch_service/domain"
	scannerdomain "github.com/pairlink/dispatch/internal/scanner_service/domain"
)

// In-memory stubs backing a real router; testify mocks for the repositories
// live next to the router tests, this package only needs fixed data.

type stubPairRepo struct {
	pairs map[uuid.UUID]*core_domain.Pair
}

func (s *stubPairRepo) GetByID(_ context.Context, id uuid.UUID) (*core_domain.Pair, error) {
	pair, ok := s.pairs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return pair, nil
}

func (s *stubPairRepo) CompareAndSetLastPushAt(_ context.Context, id uuid.UUID, _ *time.Time, next time.Time) (bool, error) {
	pair, ok := s.pairs[id]
	if !ok {
		return false, domain.ErrNotFound
	}
	pair.LastMessagePushAt = &next
	return true, nil
}

type stubUserRepo struct {
	users map[uuid.UUID]*core_domain.User
}

func (s *stubUserRepo) GetByID(_ context.Context, id uuid.UUID) (*core_domain.User, error) {
	user, ok := s.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return user, nil
}

type stubMessageRepo struct{ unread int }

func (s *stubMessageRepo) CountUnread(context.Context, uuid.UUID, uuid.UUID, int) (int, error) {
	return s.unread, nil
}

type stubPingRepo struct{ created int }

func (s *stubPingRepo) Create(context.Context, *core_domain.ThinkingPing) error {
	s.created++
	return nil
}

type stubReminderReader struct{}

func (stubReminderReader) GetByID(_ context.Context, id uuid.UUID) (*scannerdomain.Reminder, error) {
	return nil, domain.ErrNotFound
}

type stubPush struct{ sent int }

func (s *stubPush) Send(context.Context, pushprovider.PushRequest) (*pushprovider.PushResult, error) {
	s.sent++
	return &pushprovider.PushResult{Outcome: pushprovider.OutcomeDelivered, TicketID: "t", ProviderName: "stub"}, nil
}

func (stubPush) GetName() string { return "stub" }

type handlerFixture struct {
	handler *DispatchHandler
	pairID  uuid.UUID
	sender  uuid.UUID
	push    *stubPush
	pings   *stubPingRepo
}

func newHandlerFixture(t *testing.T, recipientToken string) handlerFixture {
	t.Helper()
	pairID, senderID, recipientID := uuid.New(), uuid.New(), uuid.New()
	pairs := &stubPairRepo{pairs: map[uuid.UUID]*core_domain.Pair{
		pairID: {ID: pairID, UserA: senderID, UserB: recipientID},
	}}
	users := &stubUserRepo{users: map[uuid.UUID]*core_domain.User{
		senderID:    {ID: senderID, DisplayName: "Alex"},
		recipientID: {ID: recipientID, PushToken: recipientToken},
	}}
	push := &stubPush{}
	pings := &stubPingRepo{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	router := app.NewRouter(pairs, users, &stubMessageRepo{unread: 1}, pings, stubReminderReader{},
		push, validator.New(), logger, app.RouterConfig{ThrottleWindow: 30 * time.Second, UnreadCountCap: 100})

	return handlerFixture{
		handler: NewDispatchHandler(router, logger),
		pairID:  pairID,
		sender:  senderID,
		push:    push,
		pings:   pings,
	}
}

func doDispatch(t *testing.T, h *DispatchHandler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/dispatch", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Dispatch(rec, req)
	return rec
}

func decodeOK(t *testing.T, rec *httptest.ResponseRecorder) okResponse {
	t.Helper()
	var resp okResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestDispatchHandler_MessagePushed(t *testing.T) {
	f := newHandlerFixture(t, "ExponentPushToken[abc]")
	body := fmt.Sprintf(`{"type":"message","pairId":%q,"senderId":%q,"text":"Hi"}`, f.pairID, f.sender)

	rec := doDispatch(t, f.handler, body)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeOK(t, rec)
	assert.True(t, resp.OK)
	assert.Empty(t, resp.Skipped)
	assert.Equal(t, 1, f.push.sent)
}

func TestDispatchHandler_MessageSkippedNoToken(t *testing.T) {
	f := newHandlerFixture(t, "")
	body := fmt.Sprintf(`{"type":"message","pairId":%q,"senderId":%q,"text":"Hi"}`, f.pairID, f.sender)

	rec := doDispatch(t, f.handler, body)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeOK(t, rec)
	assert.True(t, resp.OK)
	assert.Equal(t, "no token", resp.Skipped)
	assert.Equal(t, 0, f.push.sent)
}

func TestDispatchHandler_ThinkingRecordsPing(t *testing.T) {
	f := newHandlerFixture(t, "tok")
	toID := uuid.New()
	body := fmt.Sprintf(`{"type":"thinking","pairId":%q,"fromUserId":%q,"toUserId":%q,"fromName":"Sam"}`,
		f.pairID, f.sender, toID)

	rec := doDispatch(t, f.handler, body)

	// The receiver is unknown to the user repo, so the push half fails with
	// 404; the ping must already be recorded by then.
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, 1, f.pings.created)
}

func TestDispatchHandler_EmptyBody(t *testing.T) {
	f := newHandlerFixture(t, "tok")
	rec := doDispatch(t, f.handler, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDispatchHandler_OversizedBody(t *testing.T) {
	f := newHandlerFixture(t, "tok")
	padding := strings.Repeat("a", maxDispatchBodyBytes+1)
	body := fmt.Sprintf(`{"type":"message","pairId":%q,"senderId":%q,"text":%q}`, f.pairID, f.sender, padding)

	rec := doDispatch(t, f.handler, body)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, f.push.sent)
}

func TestDispatchHandler_MalformedJSON(t *testing.T) {
	f := newHandlerFixture(t, "tok")
	rec := doDispatch(t, f.handler, `{"type":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDispatchHandler_UnknownEventKind(t *testing.T) {
	f := newHandlerFixture(t, "tok")
	rec := doDispatch(t, f.handler, `{"type":"carrier_pigeon"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.OK)
	assert.Contains(t, resp.Error, "carrier_pigeon")
}

func TestDispatchHandler_MissingRequiredFields(t *testing.T) {
	f := newHandlerFixture(t, "tok")
	rec := doDispatch(t, f.handler, `{"type":"message","text":"no ids"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDispatchHandler_UnknownPair(t *testing.T) {
	f := newHandlerFixture(t, "tok")
	body := fmt.Sprintf(`{"type":"message","pairId":%q,"senderId":%q,"text":"Hi"}`, uuid.New(), f.sender)

	rec := doDispatch(t, f.handler, body)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
