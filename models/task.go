package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Weight bounds for the task priority slider
const (
	MinWeight = 0
	MaxWeight = 100
)

// Task is a weighted unit of work. Tasks form a tree through ParentID;
// sibling order is derived from Weight at display time, never stored.
type Task struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	UserID   string  `gorm:"type:uuid;not null;index" json:"user_id"`
	TeamID   *string `gorm:"type:uuid;index" json:"team_id,omitempty"`
	ParentID *string `gorm:"type:uuid;index" json:"parent_id,omitempty"`

	Title   string `gorm:"not null" json:"title"`
	Content string `json:"content"`
	Weight  int    `gorm:"not null;default:0" json:"weight"`

	// Relations
	User     User      `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Team     *Team     `gorm:"foreignKey:TeamID" json:"team,omitempty"`
	Comments []Comment `gorm:"foreignKey:TaskID" json:"comments,omitempty"`
}

func (t *Task) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}
