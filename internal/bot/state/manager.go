// Package state tracks per-chat conversation state for the Telegram
// surface: which value the bot is currently waiting for.
package state

import "sync"

// Chat states.
const (
	None                    = "none"
	WaitingForGlucose       = "waiting_for_glucose"
	WaitingForWeight        = "waiting_for_weight"
	WaitingForBloodPressure = "waiting_for_blood_pressure"
	WaitingForMedication    = "waiting_for_medication"
	WaitingForCatalogEntry  = "waiting_for_catalog_entry"
)

// Store is the conversation state backend. The in-memory Manager is
// the default; RedisManager survives restarts.
type Store interface {
	SetUserState(userID int64, state string)
	GetUserState(userID int64) string
	ClearUserState(userID int64)
}

// Manager keeps conversation state in process memory.
type Manager struct {
	mu         sync.RWMutex
	userStates map[int64]string
}

// NewManager creates an in-memory state manager.
func NewManager() *Manager {
	return &Manager{
		userStates: make(map[int64]string),
	}
}

// SetUserState sets the state for a user.
func (m *Manager) SetUserState(userID int64, state string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.userStates[userID] = state
}

// GetUserState gets the state for a user.
func (m *Manager) GetUserState(userID int64) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	state, exists := m.userStates[userID]
	if !exists {
		return None
	}
	return state
}

// ClearUserState clears the state for a user.
func (m *Manager) ClearUserState(userID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.userStates, userID)
}
