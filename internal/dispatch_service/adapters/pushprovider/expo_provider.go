package pushprovider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// deviceNotRegistered is Expo's error code for a token that will never
// receive a push again.
const deviceNotRegistered = "DeviceNotRegistered"

// ExpoProvider sends notifications through the Expo push HTTP API.
type ExpoProvider struct {
	logger      *slog.Logger
	httpClient  *http.Client
	apiURL      string
	accessToken string
	limiter     *rate.Limiter
}

// NewExpoProvider creates an ExpoProvider. ratePerSec/burst bound the
// client-side send rate; Expo throttles bursty senders on their end.
func NewExpoProvider(logger *slog.Logger, apiURL, accessToken string, ratePerSec float64, burst int, httpClient *http.Client) *ExpoProvider {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	if burst < 1 {
		burst = 1
	}
	return &ExpoProvider{
		logger:      logger.With("provider", "expo"),
		httpClient:  httpClient,
		apiURL:      apiURL,
		accessToken: accessToken,
		limiter:     rate.NewLimiter(rate.Limit(ratePerSec), burst),
	}
}

func (p *ExpoProvider) GetName() string { return "expo" }

// expoSendRequest is the Expo push message envelope. Expo accepts an array
// of messages per POST; we send one per call.
type expoSendRequest struct {
	To       string            `json:"to"`
	Title    string            `json:"title"`
	Body     string            `json:"body"`
	Data     map[string]string `json:"data,omitempty"`
	Sound    string            `json:"sound"`
	Priority string            `json:"priority"`
	Badge    *int              `json:"badge,omitempty"`
}

type expoTicket struct {
	Status  string `json:"status"` // "ok" or "error"
	ID      string `json:"id,omitempty"`
	Message string `json:"message,omitempty"`
	Details struct {
		Error string `json:"error,omitempty"`
	} `json:"details,omitempty"`
}

type expoSendResponse struct {
	Data []expoTicket `json:"data"`
}

func (p *ExpoProvider) Send(ctx context.Context, request PushRequest) (*PushResult, error) {
	if request.Token == "" {
		// Detected before any network call; an unregistered device is a
		// normal state, not an error.
		return &PushResult{Outcome: OutcomeSkipped, SkipReason: "no token", ProviderName: p.GetName()}, nil
	}

	if err := p.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("push rate limiter: %w", err)
	}

	reqBody := []expoSendRequest{{
		To:       request.Token,
		Title:    request.Title,
		Body:     request.Body,
		Data:     request.Data,
		Sound:    "default",
		Priority: "high",
		Badge:    request.Badge,
	}}
	reqBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal expo push request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiURL, bytes.NewBuffer(reqBytes))
	if err != nil {
		return nil, fmt.Errorf("create expo push request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if p.accessToken != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.accessToken)
	}

	httpResp, err := p.httpClient.Do(httpReq)
	if err != nil {
		p.logger.ErrorContext(ctx, "Expo push request failed", "error", err)
		return nil, fmt.Errorf("send expo push request: %w", err)
	}
	defer httpResp.Body.Close()

	respBytes, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("read expo push response: %w", err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		p.logger.ErrorContext(ctx, "Expo push returned non-2xx", "status_code", httpResp.StatusCode, "body", string(respBytes))
		return &PushResult{
			Outcome:      OutcomeFailed,
			ErrorMessage: fmt.Sprintf("expo returned HTTP %d", httpResp.StatusCode),
			ProviderName: p.GetName(),
		}, nil
	}

	var resp expoSendResponse
	if err := json.Unmarshal(respBytes, &resp); err != nil {
		return nil, fmt.Errorf("decode expo push response: %w", err)
	}
	if len(resp.Data) == 0 {
		return &PushResult{
			Outcome:      OutcomeFailed,
			ErrorMessage: "expo response contained no tickets",
			ProviderName: p.GetName(),
		}, nil
	}

	// One message per request, so the first ticket is the verdict.
	ticket := resp.Data[0]
	if ticket.Status != "ok" {
		tokenInvalid := ticket.Details.Error == deviceNotRegistered
		p.logger.WarnContext(ctx, "Expo push ticket reported error",
			"ticket_error", ticket.Details.Error, "message", ticket.Message, "token_invalid", tokenInvalid)
		return &PushResult{
			Outcome:      OutcomeFailed,
			ErrorMessage: ticket.Message,
			TokenInvalid: tokenInvalid,
			ProviderName: p.GetName(),
		}, nil
	}

	p.logger.DebugContext(ctx, "Expo push accepted", "ticket_id", ticket.ID)
	return &PushResult{
		Outcome:      OutcomeDelivered,
		TicketID:     ticket.ID,
		ProviderName: p.GetName(),
	}, nil
}
