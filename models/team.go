package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Membership invitation statuses. A membership is created as "invited"
// (the creator's bootstrap row is the only direct "accepted") and moves to
// "accepted" or "declined" by the invited member. A fresh invitation resets
// any existing row back to "invited".
const (
	MembershipInvited  = "invited"
	MembershipAccepted = "accepted"
	MembershipDeclined = "declined"
)

// Team represents a named group of users sharing tasks and a message log
type Team struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	Title       string `gorm:"not null" json:"title"`
	Description string `json:"description"`
	CreatorID   string `gorm:"type:uuid;not null;index" json:"creator_id"`

	// Relations
	Memberships []Membership `gorm:"foreignKey:TeamID" json:"memberships,omitempty"`
}

func (t *Team) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

// Membership links a user to a team with an invitation status. The
// composite unique index makes concurrent invites collapse onto one row.
type Membership struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	MemberID  string `gorm:"type:uuid;not null;uniqueIndex:idx_memberships_member_team" json:"member_id"`
	TeamID    string `gorm:"type:uuid;not null;uniqueIndex:idx_memberships_member_team" json:"team_id"`
	InviterID string `gorm:"type:uuid" json:"inviter_id,omitempty"`
	Status    string `gorm:"not null;default:'invited'" json:"status"`

	// Relations
	User User `gorm:"foreignKey:MemberID" json:"user,omitempty"`
	Team Team `gorm:"foreignKey:TeamID" json:"team,omitempty"`
}

func (m *Membership) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}
