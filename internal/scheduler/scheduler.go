// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package scheduler runs the background maintenance jobs.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/olegiv/noticeboard/internal/model"
	"github.com/olegiv/noticeboard/internal/service"
)

// DefaultEventCleanupSchedule prunes the event log daily at 03:00.
const DefaultEventCleanupSchedule = "0 3 * * *"

// EventCleanupJob is the name of the event retention job.
const EventCleanupJob = "event-cleanup"

// jobTimeout bounds a single job run.
const jobTimeout = 5 * time.Minute

type registeredJob struct {
	name        string
	description string
	schedule    string
	entryID     cron.EntryID
	run         func(ctx context.Context) error
}

// JobInfo is the public view of a scheduled job.
type JobInfo struct {
	Name        string
	Description string
	Schedule    string
	LastRun     time.Time
	NextRun     time.Time
}

// Config configures the Scheduler.
type Config struct {
	// EventRetention is how long event rows are kept.
	EventRetention time.Duration
	// EventCleanupSchedule defaults to DefaultEventCleanupSchedule.
	EventCleanupSchedule string
}

// Scheduler handles scheduled tasks like pruning the event log.
type Scheduler struct {
	cron      *cron.Cron
	events    *service.EventService
	retention time.Duration
	schedule  string
	logger    *slog.Logger

	mu   sync.RWMutex
	jobs map[string]*registeredJob
}

// New creates a new scheduler instance.
func New(events *service.EventService, cfg Config, logger *slog.Logger) *Scheduler {
	if cfg.EventCleanupSchedule == "" {
		cfg.EventCleanupSchedule = DefaultEventCleanupSchedule
	}
	return &Scheduler{
		cron:      cron.New(cron.WithParser(parser)),
		events:    events,
		retention: cfg.EventRetention,
		schedule:  cfg.EventCleanupSchedule,
		logger:    logger,
		jobs:      make(map[string]*registeredJob),
	}
}

// Start registers the jobs and starts the cron loop.
func (s *Scheduler) Start() error {
	if err := s.register(EventCleanupJob, "Delete events older than the retention period",
		s.schedule, func(ctx context.Context) error {
			_, err := s.PruneEvents(ctx)
			return err
		}); err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("scheduler started", "jobs", len(s.cron.Entries()))
	return nil
}

// Stop gracefully stops the scheduler, waiting for running jobs.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) register(name, description, schedule string, run func(ctx context.Context) error) error {
	if err := ValidateSchedule(schedule); err != nil {
		return fmt.Errorf("scheduling %s: %w", name, err)
	}

	entryID, err := s.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()
		if err := run(ctx); err != nil {
			s.logger.Error("scheduled job failed", "job", name, "error", err,
				"category", model.EventCategorySystem)
		}
	})
	if err != nil {
		return fmt.Errorf("scheduling %s: %w", name, err)
	}

	s.mu.Lock()
	s.jobs[name] = &registeredJob{
		name:        name,
		description: description,
		schedule:    schedule,
		entryID:     entryID,
		run:         run,
	}
	s.mu.Unlock()

	s.logger.Debug("registered scheduled job", "name", name, "schedule", schedule)
	return nil
}

// Jobs returns the registered jobs sorted by name.
func (s *Scheduler) Jobs() []JobInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]JobInfo, 0, len(s.jobs))
	for _, job := range s.jobs {
		entry := s.cron.Entry(job.entryID)
		result = append(result, JobInfo{
			Name:        job.name,
			Description: job.description,
			Schedule:    job.schedule,
			LastRun:     entry.Prev,
			NextRun:     entry.Next,
		})
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})
	return result
}

// TriggerNow runs the named job immediately on the calling goroutine.
func (s *Scheduler) TriggerNow(ctx context.Context, name string) error {
	s.mu.RLock()
	job, ok := s.jobs[name]
	s.mu.RUnlock()

	if !ok {
		return fmt.Errorf("job not found: %s", name)
	}

	s.logger.Info("manually triggering job", "name", name)
	return job.run(ctx)
}

// PruneEvents deletes events older than the retention period.
func (s *Scheduler) PruneEvents(ctx context.Context) (int64, error) {
	if s.retention <= 0 {
		return 0, nil
	}

	n, err := s.events.DeleteOldEvents(ctx, s.retention)
	if err != nil {
		return 0, fmt.Errorf("pruning events: %w", err)
	}

	if n > 0 {
		s.logger.Info("pruned old events", "deleted", n, "retention", s.retention.String())
	}
	return n, nil
}
