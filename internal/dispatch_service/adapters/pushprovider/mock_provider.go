package pushprovider

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/google/uuid"
)

// MockProvider is a simulated push provider for development.
type MockProvider struct {
	logger   *slog.Logger
	name     string
	failRate float64 // chance to simulate a provider failure (0.0 to 1.0)
}

// NewMockProvider creates a new MockProvider.
func NewMockProvider(logger *slog.Logger, name string, failRate float64) Adapter {
	if name == "" {
		name = "mock-push"
	}
	return &MockProvider{
		logger:   logger.With("provider", name),
		name:     name,
		failRate: failRate,
	}
}

func (p *MockProvider) GetName() string { return p.name }

func (p *MockProvider) Send(ctx context.Context, request PushRequest) (*PushResult, error) {
	if request.Token == "" {
		return &PushResult{Outcome: OutcomeSkipped, SkipReason: "no token", ProviderName: p.name}, nil
	}

	p.logger.InfoContext(ctx, "MockProvider: Send called",
		"token", request.Token, "title", request.Title, "body_len", len(request.Body))

	if rand.Float64() < p.failRate {
		errMsg := fmt.Sprintf("mock provider simulated failure for token %s", request.Token)
		p.logger.WarnContext(ctx, errMsg)
		return &PushResult{
			Outcome:      OutcomeFailed,
			ErrorMessage: errMsg,
			ProviderName: p.name,
		}, nil
	}

	return &PushResult{
		Outcome:      OutcomeDelivered,
		TicketID:     uuid.NewString(),
		ProviderName: p.name,
	}, nil
}
