package domain

import "time"

// Idempotency records the outcome of a create request carrying an
// Idempotency-Key, keyed by (student_id, scope, key). A retried request with
// the same key is reported as a replay instead of creating a second row.
//
// Scope names the operation ("suggestions.create"); ResourceID is the id of the
// row the first request produced.
type Idempotency struct {
	ID         string    `gorm:"type:TEXT NOT NULL;primaryKey"`
	StudentID  string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_idem_student_scope_key,priority:1"`
	Scope      string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_idem_student_scope_key,priority:2"`
	Key        string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_idem_student_scope_key,priority:3"`
	ResourceID string    `gorm:"type:TEXT NOT NULL"`
	Status     int       `gorm:"type:INTEGER NOT NULL"`
	CreatedAt  time.Time `gorm:"type:TIMESTAMP NOT NULL;autoCreateTime"`
	ExpiresAt  time.Time `gorm:"type:TIMESTAMP NOT NULL;index"`
}

// TableName implements the GORM tabler interface.
func (Idempotency) TableName() string { return "idempotency" }
