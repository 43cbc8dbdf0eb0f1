// Package audit persists a trail of session events and delivered
// commands. The trail is for operators and postmortems only: no session
// state is reconstructed from it on restart.
package audit

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/wemo-robotics/teleopd/internal/config"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Store is a gorm-backed audit trail. It satisfies the core's Recorder
// interface; write errors are logged, never surfaced into the command
// path.
type Store struct {
	db            *gorm.DB
	retention     time.Duration
	sweepSchedule string
}

// Open connects the audit database per config and migrates the schema.
// Driver "off" returns (nil, nil); callers pass the nil Store through as
// a nil Recorder.
func Open(cfg config.AuditConfig) (*Store, error) {
	var (
		db  *gorm.DB
		err error
	)
	gcfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)}
	switch cfg.Driver {
	case "off":
		return nil, nil
	case "sqlite":
		db, err = gorm.Open(sqlite.Open(cfg.Path), gcfg)
		if err != nil {
			return nil, fmt.Errorf("audit: open sqlite %s: %w", cfg.Path, err)
		}
	case "mysql":
		dsn := fmt.Sprintf("root@tcp(%s:%d)/%s?parseTime=true", cfg.Host, cfg.Port, cfg.Database)
		db, err = gorm.Open(mysql.Open(dsn), gcfg)
		if err != nil {
			return nil, fmt.Errorf("audit: connect to %s:%d/%s: %w", cfg.Host, cfg.Port, cfg.Database, err)
		}
	default:
		return nil, fmt.Errorf("audit: unknown driver %q", cfg.Driver)
	}
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return nil, fmt.Errorf("audit: auto-migrate: %w", err)
	}
	return &Store{
		db:            db,
		retention:     time.Duration(cfg.RetentionDays) * 24 * time.Hour,
		sweepSchedule: cfg.SweepSchedule,
	}, nil
}

// NewStoreWithDB wraps an existing gorm connection; used by tests.
func NewStoreWithDB(db *gorm.DB, retention time.Duration, schedule string) (*Store, error) {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return nil, fmt.Errorf("audit: auto-migrate: %w", err)
	}
	return &Store{db: db, retention: retention, sweepSchedule: schedule}, nil
}

// SessionEvent implements the core Recorder interface.
func (s *Store) SessionEvent(robotID int, event, reason string) {
	rec := SessionEvent{RobotID: robotID, Event: event, Reason: reason, CreatedAt: time.Now()}
	if err := s.db.Create(&rec).Error; err != nil {
		log.Printf("audit: record session event: %v", err)
	}
}

// Command implements the core Recorder interface.
func (s *Store) Command(robotID int, family, arg string) {
	rec := CommandRecord{RobotID: robotID, Family: family, Argument: arg, CreatedAt: time.Now()}
	if err := s.db.Create(&rec).Error; err != nil {
		log.Printf("audit: record command: %v", err)
	}
}

// Summary holds daily digest counts since a cutoff.
type Summary struct {
	Started  int64
	Ended    int64
	Failed   int64
	Commands int64
}

// Summarize counts audit rows created since the cutoff.
func (s *Store) Summarize(since time.Time) (Summary, error) {
	var sum Summary
	q := s.db.Model(&SessionEvent{}).Where("created_at >= ?", since)
	if err := q.Where("event = ?", "started").Count(&sum.Started).Error; err != nil {
		return sum, fmt.Errorf("audit: summarize: %w", err)
	}
	q = s.db.Model(&SessionEvent{}).Where("created_at >= ?", since)
	if err := q.Where("event = ?", "ended").Count(&sum.Ended).Error; err != nil {
		return sum, fmt.Errorf("audit: summarize: %w", err)
	}
	q = s.db.Model(&SessionEvent{}).Where("created_at >= ?", since)
	if err := q.Where("event = ?", "start_failed").Count(&sum.Failed).Error; err != nil {
		return sum, fmt.Errorf("audit: summarize: %w", err)
	}
	if err := s.db.Model(&CommandRecord{}).Where("created_at >= ?", since).
		Count(&sum.Commands).Error; err != nil {
		return sum, fmt.Errorf("audit: summarize: %w", err)
	}
	return sum, nil
}

// Sweep deletes audit rows older than the retention window and returns
// how many rows were removed.
func (s *Store) Sweep() (int64, error) {
	cutoff := time.Now().Add(-s.retention)
	var total int64

	res := s.db.Where("created_at < ?", cutoff).Delete(&SessionEvent{})
	if res.Error != nil {
		return total, fmt.Errorf("audit: sweep session events: %w", res.Error)
	}
	total += res.RowsAffected

	res = s.db.Where("created_at < ?", cutoff).Delete(&CommandRecord{})
	if res.Error != nil {
		return total, fmt.Errorf("audit: sweep commands: %w", res.Error)
	}
	total += res.RowsAffected
	return total, nil
}

// RunSweeper blocks, sweeping on the configured cron schedule until the
// context is cancelled. An unparsable schedule disables sweeping.
func (s *Store) RunSweeper(ctx context.Context) {
	for {
		d := nextCronDuration(s.sweepSchedule)
		if d == 0 {
			log.Printf("audit: sweep schedule %q not usable; sweeper disabled", s.sweepSchedule)
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(d):
			n, err := s.Sweep()
			if err != nil {
				log.Printf("audit: %v", err)
				continue
			}
			if n > 0 {
				log.Printf("audit: swept %d expired rows", n)
			}
		}
	}
}
