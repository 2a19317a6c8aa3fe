package types

import "time"

type FlowKind string

const (
	FlowNone     FlowKind = "none"
	FlowCreating FlowKind = "creating"
	FlowEditing  FlowKind = "editing"
	FlowDeleting FlowKind = "deleting"
	FlowViewing  FlowKind = "viewing"
)

type FlowStatus string

const (
	StatusGathering            FlowStatus = "gathering"
	StatusAwaitingClarify      FlowStatus = "awaiting_clarification"
	StatusAwaitingConfirmation FlowStatus = "awaiting_confirmation"
	StatusReadyToCommit        FlowStatus = "ready_to_commit"
	StatusDone                 FlowStatus = "done"
	StatusCancelled            FlowStatus = "cancelled"
)

// ClarifyField names the single field a clarification turn is asking about.
type ClarifyField string

const (
	ClarifyTask   ClarifyField = "task"
	ClarifyDate   ClarifyField = "date"
	ClarifyTime   ClarifyField = "time"
	ClarifyAmPm   ClarifyField = "am_pm"
	ClarifyTarget ClarifyField = "target"
	// ClarifyChange asks which field of an existing reminder to modify.
	ClarifyChange ClarifyField = "change"
)

// FlowParams holds everything collected so far for the in-progress sub-flow.
// Raw phrases are kept alongside the resolved instant so a correction can
// re-resolve from scratch instead of reusing a stale timestamp.
type FlowParams struct {
	Task            string     `json:"task,omitempty"`
	DatePhrase      string     `json:"date_phrase,omitempty"`
	TimePhrase      string     `json:"time_phrase,omitempty"`
	ResolvedUTC     *time.Time `json:"resolved_utc,omitempty"`
	AssumedTime     bool       `json:"assumed_time,omitempty"`

	// AmbAM/AmbPM hold the two candidate instants of an ambiguous hour while
	// an AM/PM clarification is pending.
	AmbAM *time.Time `json:"amb_am,omitempty"`
	AmbPM *time.Time `json:"amb_pm,omitempty"`
	Recurrence      Recurrence `json:"recurrence,omitempty"`
	TargetReference string     `json:"target_reference,omitempty"`
	TargetID        int64      `json:"target_id,omitempty"`
}

type Turn struct {
	Speaker string `json:"speaker"` // "user" or "bot"
	Text    string `json:"text"`
}

const MaxHistoryTurns = 6

// DialogueState is the per-user record threaded through every turn. It is
// checkpointed to Redis between turns and reset to FlowNone on terminal
// status, explicit cancel, or TTL expiry.
type DialogueState struct {
	UserID    int64      `json:"user_id"`
	ChatID    int64      `json:"chat_id"`
	Flow      FlowKind   `json:"flow"`
	Status    FlowStatus `json:"status,omitempty"`
	Params    FlowParams `json:"params"`
	History   []Turn     `json:"history,omitempty"`
	Page      int        `json:"page"`

	// Clarification bookkeeping: which field is being asked about and how
	// many consecutive attempts have failed to resolve it.
	PendingClarify   ClarifyField `json:"pending_clarify,omitempty"`
	ClarifyAttempts  int          `json:"clarify_attempts,omitempty"`

	// Candidate reminder ids offered for disambiguation, in display order.
	Candidates []int64 `json:"candidates,omitempty"`

	// IdempotencyKey is minted when a flow enters confirmation and reused
	// for every commit attempt of that flow.
	IdempotencyKey string `json:"idempotency_key,omitempty"`

	// PendingSwitch holds an intent waiting behind a confirm-abandon gate.
	PendingSwitch string `json:"pending_switch,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

// AppendTurn records an exchange, evicting the oldest entries beyond the
// bounded history length.
func (s *DialogueState) AppendTurn(speaker, text string) {
	s.History = append(s.History, Turn{Speaker: speaker, Text: text})
	if len(s.History) > MaxHistoryTurns {
		s.History = s.History[len(s.History)-MaxHistoryTurns:]
	}
}

// Reset clears the sub-flow back to idle, keeping identity and history.
func (s *DialogueState) Reset() {
	s.Flow = FlowNone
	s.Status = ""
	s.Params = FlowParams{}
	s.Page = 0
	s.PendingClarify = ""
	s.ClarifyAttempts = 0
	s.Candidates = nil
	s.IdempotencyKey = ""
	s.PendingSwitch = ""
}

// InFlow reports whether a sub-flow is currently in progress.
func (s *DialogueState) InFlow() bool {
	return s.Flow != FlowNone && s.Flow != ""
}

// HasDestructivePending reports whether abandoning the current flow would
// discard an uncommitted destructive action.
func (s *DialogueState) HasDestructivePending() bool {
	return s.Flow == FlowDeleting && s.Status == StatusAwaitingConfirmation
}
