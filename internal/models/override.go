package models

import "time"

type OverrideChangeType string

const (
	ChangeOverride OverrideChangeType = "override"
	ChangeRevert   OverrideChangeType = "revert"
)

// OverrideRecord is one entry in the append-only audit trail of manual
// score/pass corrections. Records are never updated or deleted and are
// retained after the attempt is archived.
type OverrideRecord struct {
	ID        uint `json:"id" gorm:"primaryKey"`
	AttemptID uint `json:"attempt_id" gorm:"not null;index"`

	PreviousScore *float64 `json:"previous_score"`
	NewScore      *float64 `json:"new_score"`

	PreviousPassOverride bool `json:"previous_pass_override" gorm:"default:false"`
	NewPassOverride      bool `json:"new_pass_override" gorm:"default:false"`

	Reason     string             `json:"reason" gorm:"not null;type:text"`
	ChangeType OverrideChangeType `json:"change_type" gorm:"not null;size:20"`
	ChangedBy  string             `json:"changed_by" gorm:"not null;size:255"`

	CreatedAt time.Time `json:"created_at" gorm:"index"`
}

func (OverrideRecord) TableName() string {
	return "override_records"
}
