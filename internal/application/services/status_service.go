package services

import (
	"context"
	"fmt"
	"time"

	"github.com/taskmaster/todolist/internal/infrastructure/logger"
	"github.com/taskmaster/todolist/internal/ports"
)

// Pinger is the part of the database handle the status report needs
type Pinger interface {
	Ping(ctx context.Context) error
	PoolStats() map[string]interface{}
}

// StatusService reports database connectivity and row counts
type StatusService struct {
	db       Pinger
	users    ports.UserRepository
	tasks    ports.TaskRepository
	taxonomy ports.TaxonomyRepository
	logger   *logger.Logger
}

func NewStatusService(db Pinger, users ports.UserRepository, tasks ports.TaskRepository, taxonomy ports.TaxonomyRepository, logger *logger.Logger) *StatusService {
	return &StatusService{
		db:       db,
		users:    users,
		tasks:    tasks,
		taxonomy: taxonomy,
		logger:   logger.WithComponent("status"),
	}
}

func (s *StatusService) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Status never fails on a lost connection; it reports Connected=false
// instead. Count failures are returned as errors.
func (s *StatusService) Status(ctx context.Context) (*ports.DBStatus, error) {
	status := &ports.DBStatus{
		Timestamp: time.Now().UTC(),
		Stats:     map[string]int64{},
	}

	if err := s.db.Ping(ctx); err != nil {
		s.logger.Warnw("Database unreachable", "error", err)
		return status, nil
	}
	status.Connected = true
	status.Pool = s.db.PoolStats()

	counters := []struct {
		name  string
		count func(context.Context) (int64, error)
	}{
		{"users", s.users.Count},
		{"tasks", s.tasks.Count},
		{"categories", s.taxonomy.CountCategories},
		{"tags", s.taxonomy.CountTags},
	}
	for _, c := range counters {
		n, err := c.count(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", c.name, err)
		}
		status.Stats[c.name] = n
	}

	return status, nil
}
