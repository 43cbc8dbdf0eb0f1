package audit

import "time"

// SessionEvent records one lifecycle transition of a robot session.
type SessionEvent struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	RobotID   int    `gorm:"not null;index"`
	Event     string `gorm:"size:32;not null;index"` // started, ended, start_failed, reaped
	Reason    string `gorm:"size:512"`
	CreatedAt time.Time `gorm:"index"`
}

// CommandRecord records one translated command delivered to a session.
type CommandRecord struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	RobotID   int    `gorm:"not null;index"`
	Family    string `gorm:"size:16;not null"`
	Argument  string `gorm:"size:16"`
	CreatedAt time.Time `gorm:"index"`
}

// AllModels returns the GORM models for migration.
func AllModels() []interface{} {
	return []interface{}{
		&SessionEvent{},
		&CommandRecord{},
	}
}
