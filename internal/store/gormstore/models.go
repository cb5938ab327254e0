package gormstore

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Visitor represents the visitors table.
type Visitor struct {
	VisitorID string    `gorm:"primaryKey;size:36"`
	CreatedAt time.Time `gorm:"not null"`
}

func (Visitor) TableName() string { return "visitors" }

func (visitor *Visitor) BeforeCreate(tx *gorm.DB) error {
	if visitor.VisitorID == "" {
		visitor.VisitorID = uuid.NewString()
	}
	return nil
}

// ClientState mirrors the client_state table; Value holds the JSON-encoded string.
type ClientState struct {
	VisitorID string         `gorm:"primaryKey;size:36;index:idx_client_state_visitor"`
	StateKey  string         `gorm:"primaryKey;size:32"`
	Value     datatypes.JSON `gorm:"not null"`
	UpdatedAt time.Time      `gorm:"not null"`
}

func (ClientState) TableName() string { return "client_state" }

// Models lists the tables AutoMigrate must create.
func Models() []any {
	return []any{&Visitor{}, &ClientState{}}
}
