package intake

import (
	"errors"
	"sync"
)

// Step is the position of a session in the four-question sequence.
type Step int

const (
	StepGoal Step = iota
	StepWeight
	StepHeight
	StepFrequency
	StepCompleted
)

func (s Step) String() string {
	switch s {
	case StepGoal:
		return "AwaitingGoal"
	case StepWeight:
		return "AwaitingWeight"
	case StepHeight:
		return "AwaitingHeight"
	case StepFrequency:
		return "AwaitingFrequency"
	case StepCompleted:
		return "Completed"
	default:
		return "Unknown"
	}
}

// Session is the in-progress intake of one chat. Fields of steps that were
// not answered yet stay nil.
type Session struct {
	ID                string
	Step              Step
	Goal              *Goal
	Weight            *float64
	Height            *float64
	ExerciseFrequency *float64
}

var ErrIncompleteSession = errors.New("session is incomplete")

// Profile returns the collected answers. It fails unless all four are set.
func (s Session) Profile() (Profile, error) {
	if s.Goal == nil || s.Weight == nil || s.Height == nil || s.ExerciseFrequency == nil {
		return Profile{}, ErrIncompleteSession
	}
	return Profile{
		Goal:              *s.Goal,
		Weight:            *s.Weight,
		Height:            *s.Height,
		ExerciseFrequency: *s.ExerciseFrequency,
	}, nil
}

// SessionStore keeps in-progress sessions. Callers must serialize access per
// session id; implementations only guarantee the map itself is safe.
type SessionStore interface {
	Get(id string) (Session, bool)
	Create(id string) Session
	Save(s Session)
	Delete(id string)
}

// MemoryStore is a process-local SessionStore. Sessions live until deleted
// or the process exits.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]Session)}
}

func (m *MemoryStore) Get(id string) (Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return Session{}, false
	}
	return s.clone(), true
}

// Create starts a fresh session, dropping whatever was stored under id.
func (m *MemoryStore) Create(id string) Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := Session{ID: id, Step: StepGoal}
	m.sessions[id] = s
	return s
}

// Save writes s back. Sessions deleted in the meantime are not resurrected.
func (m *MemoryStore) Save(s Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[s.ID]; !ok {
		return
	}
	m.sessions[s.ID] = s.clone()
}

func (m *MemoryStore) Delete(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
}

// Len reports the number of live sessions.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func (s Session) clone() Session {
	out := Session{ID: s.ID, Step: s.Step}
	if s.Goal != nil {
		g := *s.Goal
		out.Goal = &g
	}
	if s.Weight != nil {
		w := *s.Weight
		out.Weight = &w
	}
	if s.Height != nil {
		h := *s.Height
		out.Height = &h
	}
	if s.ExerciseFrequency != nil {
		f := *s.ExerciseFrequency
		out.ExerciseFrequency = &f
	}
	return out
}
