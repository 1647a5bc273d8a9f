package heartbeat

import (
	"context"
	"log/slog"
	"time"
)

type Transition struct {
	Component string `json:"component"`
	From      State  `json:"from"`
	To        State  `json:"to"`
	Message   string `json:"message,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Monitor polls the registry and logs state changes.
type Monitor struct {
	registry   *Registry
	interval   time.Duration
	staleAfter time.Duration
	logger     *slog.Logger
	notify     func(Transition)
}

func NewMonitor(registry *Registry, interval, staleAfter time.Duration, logger *slog.Logger) *Monitor {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitor{
		registry:   registry,
		interval:   interval,
		staleAfter: staleAfter,
		logger:     logger.With("component", "heartbeat"),
	}
}

func (m *Monitor) OnTransition(fn func(Transition)) {
	m.notify = fn
}

func (m *Monitor) Start(ctx context.Context) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	previous := map[string]State{}
	for {
		for _, transition := range diff(previous, m.registry.Snapshot(m.staleAfter)) {
			level := slog.LevelInfo
			if transition.To == StateDegraded || transition.To == StateStale {
				level = slog.LevelWarn
			}
			m.logger.Log(ctx, level, "component state changed",
				"name", transition.Component,
				"from", transition.From,
				"to", transition.To,
				"error", transition.Error,
			)
			if m.notify != nil {
				m.notify(transition)
			}
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func diff(previous map[string]State, snapshot Snapshot) []Transition {
	var out []Transition
	for _, item := range snapshot.Components {
		before, seen := previous[item.Name]
		previous[item.Name] = item.State
		if !seen || before == item.State {
			continue
		}
		out = append(out, Transition{
			Component: item.Name,
			From:      before,
			To:        item.State,
			Message:   item.Message,
			Error:     item.Error,
		})
	}
	return out
}
