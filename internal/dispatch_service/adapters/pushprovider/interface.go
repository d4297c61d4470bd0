package pushprovider

import "context"

// PushRequest holds one notification to deliver to one device token.
type PushRequest struct {
	Token string            // opaque provider device token; empty means skip
	Title string
	Body  string
	Data  map[string]string // app payload passed through to the client
	Badge *int              // nil = leave the app badge alone
}

// Outcome classifies one send attempt.
type Outcome string

const (
	OutcomeDelivered Outcome = "delivered" // accepted by the provider
	OutcomeSkipped   Outcome = "skipped"   // nothing sent, by design (e.g. no token)
	OutcomeFailed    Outcome = "failed"    // provider or transport rejected the send
)

// PushResult is the typed outcome of a send attempt, so callers can branch
// on it instead of parsing log output.
type PushResult struct {
	Outcome      Outcome
	SkipReason   string // set when Outcome == OutcomeSkipped
	TicketID     string // provider receipt id when delivered
	ErrorMessage string // provider error detail when failed
	TokenInvalid bool   // the token is permanently dead and could be cleared
	ProviderName string
}

// Adapter is a push notification provider.
type Adapter interface {
	Send(ctx context.Context, request PushRequest) (*PushResult, error)
	GetName() string
}
