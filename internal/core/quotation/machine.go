package quotation

import (
	"fmt"
	"time"
)

// ViolationCode classifies why an event was rejected.
type ViolationCode string

const (
	// CodeInvalidTransition means the state has no table entry for the event.
	CodeInvalidTransition ViolationCode = "INVALID_TRANSITION"
	// CodeGuardFailed means the table entry exists but its guard did not hold.
	CodeGuardFailed ViolationCode = "GUARD_FAILED"
)

// GuardViolation is the structured rejection returned by Send and CanTransition.
type GuardViolation struct {
	Code   ViolationCode
	State  State
	Event  EventType
	Reason string
}

func (e *GuardViolation) Error() string {
	return fmt.Sprintf("cannot apply %s in state %s: %s", e.Event, e.State, e.Reason)
}

// transition is one row of the fixed transition table.
// contextGuard depends only on the quotation and clock; payloadGuard only on the event.
type transition struct {
	event        EventType
	target       State
	contextGuard func(q Quotation, now time.Time) GuardResult
	payloadGuard func(ev Event) GuardResult
}

var transitions = map[State][]transition{
	StateDraft: {
		{event: EventSend, target: StateSent, contextGuard: func(q Quotation, _ time.Time) GuardResult { return CanSend(q) }},
		{event: EventCancel, target: StateCancelled},
	},
	StateSent: {
		{event: EventReceiveReply, target: StateReplied, payloadGuard: func(ev Event) GuardResult {
			e, _ := ev.(ReceiveReplyEvent)
			return CanReceiveReply(e)
		}},
		{event: EventExpire, target: StateExpired, contextGuard: CanExpire},
		{event: EventCancel, target: StateCancelled},
	},
	StateReplied: {
		{event: EventAnalyze, target: StateQuoted, payloadGuard: func(ev Event) GuardResult {
			e, _ := ev.(AnalyzeEvent)
			return CanAnalyze(e)
		}},
		{event: EventCancel, target: StateCancelled},
	},
	StateQuoted: {
		{event: EventConfirm, target: StateConfirmed, contextGuard: func(q Quotation, _ time.Time) GuardResult { return CanConfirm(q) }},
		{event: EventCancel, target: StateCancelled},
	},
	StateConfirmed: {
		{event: EventDeliver, target: StateDelivered},
		{event: EventCancel, target: StateCancelled, contextGuard: CanCancelConfirmed},
	},
	StateCancelled: {
		{event: EventReset, target: StateDraft},
	},
	StateExpired: {
		{event: EventReset, target: StateDraft},
	},
}

func lookup(state State, event EventType) (transition, bool) {
	for _, t := range transitions[state] {
		if t.event == event {
			return t, true
		}
	}
	return transition{}, false
}

// TransitionCheck is the result of a side-effect-free pre-check.
type TransitionCheck struct {
	Valid  bool
	Target State
	Err    *GuardViolation
}

// Snapshot is a read-only view for consumers deciding what to offer next.
type Snapshot struct {
	State           State
	Context         Quotation
	History         []HistoryEntry
	AvailableEvents []EventType
}

// SendResult is the outcome of Send. Err is set exactly when Success is false.
type SendResult struct {
	Success  bool
	Err      *GuardViolation
	Snapshot Snapshot
}

// Machine drives one quotation through its lifecycle.
// It never panics on bad input and never mutates state when a guard fails.
type Machine struct {
	q   Quotation
	now func() time.Time
}

// NewMachine wraps q. A nil clock defaults to time.Now.
func NewMachine(q Quotation, now func() time.Time) *Machine {
	if now == nil {
		now = time.Now
	}
	return &Machine{q: q.Clone(), now: now}
}

// State returns the current state.
func (m *Machine) State() State {
	return m.q.Status
}

// CanTransition reports whether ev would be accepted right now, without applying it.
func (m *Machine) CanTransition(ev Event) TransitionCheck {
	t, violation := m.check(ev, m.now())
	if violation != nil {
		return TransitionCheck{Valid: false, Err: violation}
	}
	return TransitionCheck{Valid: true, Target: t.target}
}

// Send applies ev if its guard holds. On success history gains exactly one entry.
func (m *Machine) Send(ev Event) SendResult {
	now := m.now()
	t, violation := m.check(ev, now)
	if violation != nil {
		return SendResult{Success: false, Err: violation, Snapshot: m.Snapshot()}
	}

	previous := m.q.Status
	next := applyAction(m.q.Clone(), ev, now)
	next.Status = t.target
	next.UpdatedAt = now
	next.History = append(next.History, HistoryEntry{
		PreviousState: previous,
		State:         t.target,
		Event:         ev.Type(),
		Timestamp:     now,
		Payload:       ev.payload(),
	})
	m.q = next

	return SendResult{Success: true, Snapshot: m.Snapshot()}
}

// Snapshot returns copies of the current state, context, history and available events.
func (m *Machine) Snapshot() Snapshot {
	ctx := m.q.Clone()
	return Snapshot{
		State:           ctx.Status,
		Context:         ctx,
		History:         ctx.History,
		AvailableEvents: m.availableEvents(m.now()),
	}
}

// availableEvents lists events defined for the current state whose context guard holds.
// Payload guards are not evaluated because the payload is supplied by the caller.
func (m *Machine) availableEvents(now time.Time) []EventType {
	var out []EventType
	for _, t := range transitions[m.q.Status] {
		if t.contextGuard != nil && !t.contextGuard(m.q, now).Allowed {
			continue
		}
		out = append(out, t.event)
	}
	return out
}

func (m *Machine) check(ev Event, now time.Time) (transition, *GuardViolation) {
	if ev == nil {
		return transition{}, &GuardViolation{Code: CodeInvalidTransition, State: m.q.Status, Reason: "no event given"}
	}

	t, ok := lookup(m.q.Status, ev.Type())
	if !ok {
		return transition{}, &GuardViolation{
			Code:   CodeInvalidTransition,
			State:  m.q.Status,
			Event:  ev.Type(),
			Reason: fmt.Sprintf("%s is not allowed from %s", ev.Type(), m.q.Status),
		}
	}

	if t.contextGuard != nil {
		if r := t.contextGuard(m.q, now); !r.Allowed {
			return transition{}, &GuardViolation{Code: CodeGuardFailed, State: m.q.Status, Event: ev.Type(), Reason: r.Reason}
		}
	}
	if t.payloadGuard != nil {
		if r := t.payloadGuard(ev); !r.Allowed {
			return transition{}, &GuardViolation{Code: CodeGuardFailed, State: m.q.Status, Event: ev.Type(), Reason: r.Reason}
		}
	}
	return t, nil
}
