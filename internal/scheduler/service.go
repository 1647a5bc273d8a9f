package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dwizi/job-agent/internal/heartbeat"
	"github.com/robfig/cron/v3"
)

const componentName = "artifact-sweeper"

var cronParser = cron.NewParser(
	cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

type Sweeper interface {
	Sweep(ctx context.Context) (int, error)
}

// Service runs the artifact retention sweep on a cron schedule.
type Service struct {
	sweeper  Sweeper
	expr     string
	schedule cron.Schedule
	logger   *slog.Logger
	reporter heartbeat.Reporter
	now      func() time.Time
}

func New(sweeper Sweeper, expr string, logger *slog.Logger) (*Service, error) {
	expr = normalizeCronExpr(expr)
	if expr == "" {
		expr = "@hourly"
	}
	schedule, err := cronParser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("parse cron expression: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		sweeper:  sweeper,
		expr:     expr,
		schedule: schedule,
		logger:   logger.With("component", componentName),
		now:      time.Now,
	}, nil
}

// NextRun resolves the next sweep after from, in UTC.
func NextRun(expr string, from time.Time) (time.Time, error) {
	spec, err := cronParser.Parse(normalizeCronExpr(expr))
	if err != nil {
		return time.Time{}, fmt.Errorf("parse cron expression: %w", err)
	}
	return spec.Next(from.UTC()).UTC(), nil
}

func (s *Service) SetHeartbeatReporter(reporter heartbeat.Reporter) {
	s.reporter = reporter
}

func (s *Service) Start(ctx context.Context) error {
	if s.sweeper == nil {
		if s.reporter != nil {
			s.reporter.Disabled(componentName, "dependencies missing")
		}
		<-ctx.Done()
		return nil
	}
	if s.reporter != nil {
		s.reporter.Starting(componentName, "started")
	}
	s.logger.Info("artifact sweeper started", "schedule", s.expr)
	for {
		s.RunOnce(ctx)
		next := s.schedule.Next(s.now().UTC())
		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			if s.reporter != nil {
				s.reporter.Stopped(componentName, "stopped")
			}
			s.logger.Info("artifact sweeper stopped")
			return nil
		case <-timer.C:
		}
	}
}

func (s *Service) RunOnce(ctx context.Context) {
	removed, err := s.sweeper.Sweep(ctx)
	if err != nil {
		if s.reporter != nil {
			s.reporter.Degrade(componentName, "sweep failed", err)
		}
		s.logger.Error("artifact sweep failed", "removed", removed, "error", err)
		return
	}
	if s.reporter != nil {
		s.reporter.Beat(componentName, fmt.Sprintf("sweep removed %d artifacts", removed))
	}
}

func normalizeCronExpr(raw string) string {
	return strings.Join(strings.Fields(raw), " ")
}
