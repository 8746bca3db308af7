// Package scheduler runs the periodic archiving of exported documents.
package scheduler

import (
	"fmt"

	"github.com/labstack/gommon/log"
	"github.com/robfig/cron/v3"

	"github.com/xiaot623/pairtalk/internal/domain"
)

// ArchiveFunc moves exported documents out of the export directory.
type ArchiveFunc func() (*domain.BatchResult, error)

// Scheduler triggers ArchiveFunc on a cron schedule.
type Scheduler struct {
	cron     *cron.Cron
	schedule string
	archive  ArchiveFunc
}

// New parses schedule (standard five-field cron or a descriptor such as
// "@daily") and registers the archive job.
func New(schedule string, archive ArchiveFunc) (*Scheduler, error) {
	s := &Scheduler{
		cron:     cron.New(),
		schedule: schedule,
		archive:  archive,
	}
	if _, err := s.cron.AddFunc(schedule, s.run); err != nil {
		return nil, fmt.Errorf("invalid archive schedule %q: %w", schedule, err)
	}
	return s, nil
}

func (s *Scheduler) run() {
	result, err := s.archive()
	if err != nil {
		log.Errorf("scheduled archive failed: %v", err)
		return
	}
	log.Infof("scheduled archive: %d moved, %d failed", len(result.Processed), len(result.Failed))
	for _, f := range result.Failed {
		log.Warnf("archive %s: %s", f.Name, f.Error)
	}
}

// Start runs the scheduler in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	log.Infof("archive scheduler started (%s)", s.schedule)
}

// Stop stops the scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	log.Info("archive scheduler stopped")
}
