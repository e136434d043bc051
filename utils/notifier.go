package utils

import (
	"strings"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"libra/models"
)

// Translation keys for system messages. The client splits MessageProps on
// PropsSeparator and substitutes the values into the localized template at
// render time.
const (
	MsgTaskAdded     = "common:user_added_task"
	MsgTaskUpdated   = "common:user_updated_task"
	MsgTaskDeleted   = "common:user_deleted_task"
	MsgWeightChanged = "common:user_changed_weight"
)

const PropsSeparator = ","

// Notifier appends entries to a team's message log. System entries are
// written through the caller's transaction so a mutation and its audit
// line commit or roll back together.
type Notifier struct {
	logger *logrus.Logger
}

func NewNotifier(logger *logrus.Logger) *Notifier {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Notifier{logger: logger}
}

// System writes a template-keyed message as the "system" creator inside tx.
func (n *Notifier) System(tx *gorm.DB, teamID, key string, props ...string) error {
	return n.Append(tx, teamID, models.SystemCreatorID, key, props...)
}

// Append writes one message row inside tx.
func (n *Notifier) Append(tx *gorm.DB, teamID, creatorID, content string, props ...string) error {
	msg := models.Message{
		TeamID:       teamID,
		CreatorID:    creatorID,
		Content:      content,
		MessageProps: strings.Join(props, PropsSeparator),
	}
	if err := tx.Create(&msg).Error; err != nil {
		n.logger.WithFields(logrus.Fields{
			"team_id": teamID,
			"creator": creatorID,
		}).WithError(err).Error("failed to append team message")
		return err
	}
	return nil
}

// SplitProps breaks a stored MessageProps string back into its ordered
// substitution values. Empty input yields no values.
func SplitProps(props string) []string {
	if props == "" {
		return nil
	}
	return strings.Split(props, PropsSeparator)
}
