// Package heartbeat tracks liveness of the long-running parts of the bot.
package heartbeat

import (
	"sort"
	"strings"
	"sync"
	"time"
)

type State string

const (
	StateStarting State = "starting"
	StateHealthy  State = "healthy"
	StateDegraded State = "degraded"
	StateDisabled State = "disabled"
	StateStopped  State = "stopped"
	StateStale    State = "stale"
	StateIdle     State = "idle"
	StateUnknown  State = "unknown"
)

type Reporter interface {
	Starting(component, message string)
	Beat(component, message string)
	Degrade(component, message string, err error)
	Disabled(component, message string)
	Stopped(component, message string)
}

type ComponentStatus struct {
	Name       string `json:"name"`
	State      State  `json:"state"`
	Message    string `json:"message,omitempty"`
	Error      string `json:"error,omitempty"`
	LastBeatAt int64  `json:"last_beat_at_unix,omitempty"`
	UpdatedAt  int64  `json:"updated_at_unix"`
}

type Snapshot struct {
	GeneratedAt int64             `json:"generated_at_unix"`
	Overall     State             `json:"overall"`
	Components  []ComponentStatus `json:"components"`
}

type record struct {
	state     State
	message   string
	lastError string
	beatAt    time.Time
	updatedAt time.Time
}

type Registry struct {
	mu         sync.RWMutex
	components map[string]record
	now        func() time.Time
}

func NewRegistry() *Registry {
	return &Registry{components: map[string]record{}, now: time.Now}
}

func (r *Registry) Starting(component, message string) {
	r.set(component, StateStarting, message, nil)
}

func (r *Registry) Beat(component, message string) {
	r.set(component, StateHealthy, message, nil)
}

func (r *Registry) Degrade(component, message string, err error) {
	r.set(component, StateDegraded, message, err)
}

func (r *Registry) Disabled(component, message string) {
	r.set(component, StateDisabled, message, nil)
}

func (r *Registry) Stopped(component, message string) {
	r.set(component, StateStopped, message, nil)
}

func (r *Registry) set(component string, state State, message string, err error) {
	name := strings.ToLower(strings.TrimSpace(component))
	if name == "" {
		return
	}
	now := r.now().UTC()
	r.mu.Lock()
	defer r.mu.Unlock()
	item := r.components[name]
	item.state = state
	item.message = strings.TrimSpace(message)
	item.lastError = ""
	if err != nil {
		item.lastError = strings.TrimSpace(err.Error())
	}
	item.updatedAt = now
	if state == StateHealthy || item.beatAt.IsZero() {
		item.beatAt = now
	}
	r.components[name] = item
}

// Snapshot reports healthy or starting components as stale once their last beat is older than staleAfter.
func (r *Registry) Snapshot(staleAfter time.Duration) Snapshot {
	now := r.now().UTC()
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]ComponentStatus, 0, len(r.components))
	for name, item := range r.components {
		status := ComponentStatus{
			Name:       name,
			State:      item.state,
			Message:    item.message,
			Error:      item.lastError,
			LastBeatAt: item.beatAt.Unix(),
			UpdatedAt:  item.updatedAt.Unix(),
		}
		live := item.state == StateHealthy || item.state == StateStarting
		if staleAfter > 0 && live && now.Sub(item.beatAt) > staleAfter {
			status.State = StateStale
		}
		out = append(out, status)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return Snapshot{GeneratedAt: now.Unix(), Overall: overall(out), Components: out}
}

func overall(items []ComponentStatus) State {
	if len(items) == 0 {
		return StateUnknown
	}
	starting, healthy := false, false
	for _, item := range items {
		switch item.State {
		case StateDegraded, StateStale:
			return StateDegraded
		case StateStarting:
			starting = true
		case StateHealthy:
			healthy = true
		}
	}
	switch {
	case starting:
		return StateStarting
	case healthy:
		return StateHealthy
	default:
		return StateIdle
	}
}
