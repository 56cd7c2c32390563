// internal/domain/checkout/status.go
package checkout

// OperationKind names one independently tracked async concern of a session
type OperationKind string

const (
	OpCalculation     OperationKind = "calculation"
	OpPromoValidation OperationKind = "promo_validation"
	OpProductLoad     OperationKind = "product_load"
	OpOrderCreation   OperationKind = "order_creation"
)

// OperationKinds lists every tracked kind
var OperationKinds = []OperationKind{OpCalculation, OpPromoValidation, OpProductLoad, OpOrderCreation}

// State is the lifecycle position of one operation kind:
// idle -> in_flight -> succeeded|failed -> idle
type State string

const (
	StateIdle      State = "idle"
	StateInFlight  State = "in_flight"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
)

// Status is the state of one operation kind plus the failure reason
type Status struct {
	State  State  `json:"state"`
	Reason string `json:"reason,omitempty"`
}

// IsInFlight reports whether a request of this kind is outstanding
func (s Status) IsInFlight() bool { return s.State == StateInFlight }

// IsFailed reports whether the last request of this kind failed
func (s Status) IsFailed() bool { return s.State == StateFailed }

func idle() Status                { return Status{State: StateIdle} }
func inFlight() Status            { return Status{State: StateInFlight} }
func succeeded() Status           { return Status{State: StateSucceeded} }
func failed(reason string) Status { return Status{State: StateFailed, Reason: reason} }

// Outcome labels used for metrics
const (
	OutcomeSucceeded = "succeeded"
	OutcomeFailed    = "failed"
	OutcomeStale     = "stale"
	OutcomeRejected  = "rejected"
)

// requestTokens issues a monotonically increasing token per operation kind.
// A response is applied only if its token is still the latest issued.
type requestTokens struct {
	latest map[OperationKind]uint64
}

func newRequestTokens() requestTokens {
	return requestTokens{latest: make(map[OperationKind]uint64, len(OperationKinds))}
}

func (t requestTokens) issue(kind OperationKind) uint64 {
	t.latest[kind]++
	return t.latest[kind]
}

func (t requestTokens) isLatest(kind OperationKind, token uint64) bool {
	return t.latest[kind] == token
}

// invalidate makes every outstanding token of kind stale
func (t requestTokens) invalidate(kind OperationKind) {
	t.latest[kind]++
}
