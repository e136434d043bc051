package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SystemCreatorID marks messages generated by task and membership events
// rather than typed by a user. For system rows Content holds a translation
// key and MessageProps the substitution values, so the client renders the
// message in the viewer's locale rather than the locale active when the
// event occurred.
const SystemCreatorID = "system"

// Message is one entry in a team's message log, either user chat or a
// system-generated audit line. Immutable except for user edit/delete of
// their own chat messages.
type Message struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	// CreatorID is a user id or SystemCreatorID, so it is stored as plain
	// text rather than a uuid column.
	CreatorID string `gorm:"not null;index" json:"creator_id"`
	TeamID    string `gorm:"type:uuid;not null;index" json:"team_id"`

	Content      string `gorm:"not null" json:"content"`
	MessageProps string `json:"message_props,omitempty"`

	// Relations
	User *User `gorm:"foreignKey:CreatorID" json:"user,omitempty"`
}

func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

// IsSystem reports whether the message was emitted by a mutation rather
// than a user.
func (m *Message) IsSystem() bool {
	return m.CreatorID == SystemCreatorID
}
