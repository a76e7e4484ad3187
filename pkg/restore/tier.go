// Copyright 2026 Thawd Authors
// SPDX-License-Identifier: Apache-2.0

package restore

// Tier is a Glacier retrieval service level. Expedited is lower latency but
// capacity-limited; Standard always has capacity.
type Tier string

const (
	TierExpedited Tier = "Expedited"
	TierStandard  Tier = "Standard"
)

// State tracks one item's progress through the tiered retrieval protocol.
//
//	Pending -> ExpeditedRequested -> Accepted
//	                              -> Throttled -> StandardRequested -> Accepted
//	                                                                -> Failed
//	                              -> Failed
type State int

const (
	StatePending State = iota
	StateExpeditedRequested
	StateThrottled
	StateStandardRequested
	StateAccepted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateExpeditedRequested:
		return "expedited_requested"
	case StateThrottled:
		return "throttled"
	case StateStandardRequested:
		return "standard_requested"
	case StateAccepted:
		return "accepted"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool {
	return s == StateAccepted || s == StateFailed
}

// Event is the archive service's response to an initiation request.
type Event int

const (
	// EventAccepted means the service accepted the retrieval and returned a job id.
	EventAccepted Event = iota
	// EventCapacityExceeded means the tier had no capacity. Only meaningful
	// on the Expedited tier; on Standard it is terminal like any other error.
	EventCapacityExceeded
	// EventProviderError is any other service failure (auth, bad archive id).
	// Never retried on another tier: it would fail identically there.
	EventProviderError
)

func (e Event) String() string {
	switch e {
	case EventAccepted:
		return "accepted"
	case EventCapacityExceeded:
		return "capacity_exceeded"
	case EventProviderError:
		return "provider_error"
	}
	return "unknown"
}

// RequestTier returns the tier to request from s, or false when s does not
// call for a request (requested and terminal states).
func RequestTier(s State) (Tier, State, bool) {
	switch s {
	case StatePending:
		return TierExpedited, StateExpeditedRequested, true
	case StateThrottled:
		return TierStandard, StateStandardRequested, true
	}
	return "", s, false
}

// Next is the pure transition function of the retrieval state machine.
// Events observed in states with no outgoing edge leave the state unchanged.
func Next(s State, ev Event) State {
	switch s {
	case StateExpeditedRequested:
		switch ev {
		case EventAccepted:
			return StateAccepted
		case EventCapacityExceeded:
			return StateThrottled
		default:
			return StateFailed
		}
	case StateStandardRequested:
		if ev == EventAccepted {
			return StateAccepted
		}
		return StateFailed
	}
	return s
}

// RetrievalAttempt records one tier tried for one item during a single
// processing pass. Not persisted; it only drives the fallback decision and
// shows up in logs.
type RetrievalAttempt struct {
	Tier  Tier
	Event Event
	Err   error
}
