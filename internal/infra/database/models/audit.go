package models

import (
	"time"
)

// AuditEntry is one settled mutation. Id lists are stored comma separated.
type AuditEntry struct {
	ID        uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	Operation string    `json:"operation" gorm:"type:text;not null"`
	Kind      string    `json:"kind" gorm:"type:text"`
	EntityID  string    `json:"entityId" gorm:"type:text;index:idx_audit_entity"`
	Version   string    `json:"version" gorm:"type:text"`
	Created   string    `json:"created" gorm:"type:text"`
	Updated   string    `json:"updated" gorm:"type:text"`
	Deleted   string    `json:"deleted" gorm:"type:text"`
	Failed    string    `json:"failed" gorm:"type:text"`
	Error     string    `json:"error" gorm:"type:text"`
	CDate     time.Time `json:"cdate" gorm:"->;<-:create;type:timestamp with time zone;not null;default:clock_timestamp();index:idx_audit_entity"`
}
