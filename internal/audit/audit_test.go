package audit

import (
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	s, err := NewStoreWithDB(db, 30*24*time.Hour, "0 3 * * *")
	if err != nil {
		t.Fatalf("NewStoreWithDB: %v", err)
	}
	return s
}

func TestRecordAndSummarize(t *testing.T) {
	s := testStore(t)

	s.SessionEvent(42, "started", "")
	s.SessionEvent(42, "ended", "")
	s.SessionEvent(7, "start_failed", "auth failed")
	s.Command(42, "move", "up")
	s.Command(42, "rotate", "left")

	sum, err := s.Summarize(time.Now().Add(-time.Minute))
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if sum.Started != 1 || sum.Ended != 1 || sum.Failed != 1 || sum.Commands != 2 {
		t.Errorf("Summarize = %+v, want 1/1/1/2", sum)
	}
}

func TestSummarizeHonorsCutoff(t *testing.T) {
	s := testStore(t)
	s.SessionEvent(42, "started", "")

	sum, err := s.Summarize(time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if sum.Started != 0 {
		t.Errorf("Started = %d, want 0 for a future cutoff", sum.Started)
	}
}

func TestSweepRemovesExpiredRows(t *testing.T) {
	s := testStore(t)

	old := SessionEvent{RobotID: 1, Event: "started", CreatedAt: time.Now().Add(-60 * 24 * time.Hour)}
	if err := s.db.Create(&old).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}
	oldCmd := CommandRecord{RobotID: 1, Family: "move", Argument: "up", CreatedAt: time.Now().Add(-60 * 24 * time.Hour)}
	if err := s.db.Create(&oldCmd).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}
	s.SessionEvent(2, "started", "")

	n, err := s.Sweep()
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if n != 2 {
		t.Errorf("Sweep removed %d rows, want 2", n)
	}

	var count int64
	s.db.Model(&SessionEvent{}).Count(&count)
	if count != 1 {
		t.Errorf("remaining session events = %d, want 1", count)
	}
}

func TestNextCronDuration(t *testing.T) {
	if d := NextCronDuration("* * * * *"); d <= 0 || d > time.Minute {
		t.Errorf("every-minute schedule = %v, want (0, 1m]", d)
	}
	if d := NextCronDuration("not a cron line"); d != 0 {
		t.Errorf("bad schedule = %v, want 0", d)
	}
}
