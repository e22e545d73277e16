package domain

import (
	"fmt"
	"sync"
)

// AccountState is the orchestrator's view of where the user is in the account lifecycle
type AccountState string

const (
	StateAnonymous                  AccountState = "anonymous"
	StatePendingProfileCreation     AccountState = "pending_profile_creation"
	StatePendingEmailVerification   AccountState = "pending_email_verification"
	StateAuthenticated              AccountState = "authenticated"
	StatePasswordRecoveryPending    AccountState = "password_recovery_pending"
	StatePasswordRecoveryAuthorized AccountState = "password_recovery_authorized"
)

// allowedTransitions lists the forward moves out of each state.
// Self transitions are always allowed and Reset always lands in StateAnonymous.
var allowedTransitions = map[AccountState][]AccountState{
	StateAnonymous: {
		StatePendingProfileCreation,
		StateAuthenticated,
		StatePasswordRecoveryPending,
		StatePasswordRecoveryAuthorized,
	},
	StatePendingProfileCreation: {
		StatePendingEmailVerification,
		StateAuthenticated,
		StatePasswordRecoveryPending,
		StatePasswordRecoveryAuthorized,
	},
	StatePendingEmailVerification: {
		StateAnonymous,
		StatePendingProfileCreation,
		StateAuthenticated,
		StatePasswordRecoveryPending,
		StatePasswordRecoveryAuthorized,
	},
	StateAuthenticated: {
		StatePasswordRecoveryAuthorized,
	},
	StatePasswordRecoveryPending: {
		StateAnonymous,
		StatePendingProfileCreation,
		StateAuthenticated,
		StatePasswordRecoveryAuthorized,
	},
	StatePasswordRecoveryAuthorized: {
		StateAuthenticated,
	},
}

// CanTransition reports whether from -> to is a legal move
func CanTransition(from, to AccountState) bool {
	if from == to {
		return true
	}
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// AccountStateMachine guards the orchestrator's account state
type AccountStateMachine struct {
	mu                sync.Mutex
	state             AccountState
	recoveryCompleted bool
}

// NewAccountStateMachine starts in StateAnonymous
func NewAccountStateMachine() *AccountStateMachine {
	return &AccountStateMachine{state: StateAnonymous}
}

// Current returns the current state
func (m *AccountStateMachine) Current() AccountState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// RecoveryCompleted reports whether the password was changed in the current recovery session
func (m *AccountStateMachine) RecoveryCompleted() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.recoveryCompleted
}

// Transition moves to the target state or returns ErrInvalidTransition
func (m *AccountStateMachine) Transition(to AccountState) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !CanTransition(m.state, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, m.state, to)
	}
	if m.state != to {
		m.recoveryCompleted = false
	}
	m.state = to
	return nil
}

// TransitionIf moves to the target state only when the current state is one of from.
// It reports whether the move happened.
func (m *AccountStateMachine) TransitionIf(to AccountState, from ...AccountState) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, s := range from {
		if m.state == s && CanTransition(m.state, to) {
			if m.state != to {
				m.recoveryCompleted = false
			}
			m.state = to
			return true
		}
	}
	return false
}

// Require returns ErrInvalidTransition unless the current state is one of states
func (m *AccountStateMachine) Require(states ...AccountState) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, s := range states {
		if m.state == s {
			return nil
		}
	}
	return fmt.Errorf("%w: operation not allowed in state %s", ErrInvalidTransition, m.state)
}

// MarkRecoveryCompleted records a successful password change under a recovery session
func (m *AccountStateMachine) MarkRecoveryCompleted() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recoveryCompleted = true
}

// Reset returns to StateAnonymous from any state
func (m *AccountStateMachine) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = StateAnonymous
	m.recoveryCompleted = false
}

// Restore seeds the state from an already resolved session, e.g. after a restart
func (m *AccountStateMachine) Restore(snapshot SessionSnapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch {
	case snapshot.Identity == nil:
		m.state = StateAnonymous
	case snapshot.Scope == ScopeRecovery:
		m.state = StatePasswordRecoveryAuthorized
	default:
		m.state = StateAuthenticated
	}
	m.recoveryCompleted = false
}
