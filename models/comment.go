package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Comment is a remark attached to a task.
type Comment struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	CreatorID string `gorm:"type:uuid;not null;index" json:"creator_id"`
	TaskID    string `gorm:"type:uuid;not null;index" json:"task_id"`
	Content   string `gorm:"not null" json:"content"`
}

func (c *Comment) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}
