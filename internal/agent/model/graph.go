package model

// AppState stores per-invocation state for the Eino Graph.
// Concurrency model:
//   - This struct is registered as Graph Local State via compose.WithGenLocalState.
//   - All reads/writes happen only inside Eino state handlers:
//     WithStatePreHandler, WithStatePostHandler, or compose.ProcessState.
//   - Eino serializes access to state within these handlers, so no additional
//     mutex/atomic is required as long as you never touch it outside handlers.
type AppState struct {
	UserID string
	// Visits counts node entries for this utterance; a node entered more
	// than once per turn is routed to fallback.
	Visits map[string]int
}

// QueryInput represents the input for processing one user utterance.
type QueryInput struct {
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
	Utterance string `json:"message"`
}

// Outcome is the explicit result a node leaves for the routing condition
// that follows it.
type Outcome string

const (
	OutcomeNone      Outcome = ""
	OutcomeContinue  Outcome = "continue"
	OutcomeComplete  Outcome = "complete"
	OutcomeResume    Outcome = "resume"
	OutcomeCancel    Outcome = "cancel"
	OutcomeInterrupt Outcome = "interrupt"
	OutcomePrompted  Outcome = "prompted"
	OutcomeConfirmed Outcome = "confirmed"
	OutcomeRejected  Outcome = "rejected"
	OutcomeError     Outcome = "error"
)

// Turn is the working object threaded through every node for one utterance.
// Nothing in it outlives the turn; persistence is the source of truth.
type Turn struct {
	UserID    string
	SessionID string
	Utterance string

	// Flow is the most recent pending flow, loaded fresh at the start of the turn.
	Flow *FlowInstance
	// Context is the recent conversation rendered for the intent oracle.
	Context string

	Intent    *IntentResult
	Interrupt *InterruptResult
	ReplyKind ReplyKind
	Outcome   Outcome

	// Notice is an acknowledgement already owed to the user (e.g. after a
	// rejected confirmation); replies are appended to it.
	Notice string
	// Nudge asks the reply node to append a resumption offer for a paused flow.
	Nudge *FlowInstance
	// FirstQuestion marks that the flow was created in this turn.
	FirstQuestion bool

	Response string
	Err      error
	Path     []string
}

// Result is what ProcessMessage returns to the caller.
type Result struct {
	Response   string    `json:"response"`
	Flow       *Snapshot `json:"flow,omitempty"`
	Intent     Intent    `json:"intent,omitempty"`
	Confidence float64   `json:"confidence,omitempty"`
	Path       []string  `json:"path"`
	CostUSD    float64   `json:"cost_usd"`
	Retryable  bool      `json:"retryable"`
	Err        error     `json:"-"`
}
