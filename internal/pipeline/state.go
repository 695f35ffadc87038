package pipeline

import (
	"sync"
	"time"
)

// State is the per-submission lifecycle.
type State int

const (
	StateIdle State = iota
	StateCapturing
	StateUploading
	StateSuccess
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateCapturing:
		return "Capturing"
	case StateUploading:
		return "Uploading"
	case StateSuccess:
		return "Success"
	default:
		return "Failed"
	}
}

// stateMachine serializes submission state transitions. Success returns
// to Idle automatically after the display hold; Failed holds until
// dismissed.
type stateMachine struct {
	mu             sync.Mutex
	current        State
	timer          *time.Timer
	onNavigateBack func()
}

func (m *stateMachine) state() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

func (m *stateMachine) to(s State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = s
}

func (m *stateMachine) succeed(hold time.Duration) {
	m.mu.Lock()
	m.current = StateSuccess
	if m.timer != nil {
		m.timer.Stop()
	}
	fire := m.onNavigateBack
	m.timer = time.AfterFunc(hold, func() {
		m.mu.Lock()
		if m.current == StateSuccess {
			m.current = StateIdle
		}
		m.mu.Unlock()
		if fire != nil {
			fire()
		}
	})
	m.mu.Unlock()
}

func (m *stateMachine) dismiss() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == StateFailed {
		m.current = StateIdle
	}
}
