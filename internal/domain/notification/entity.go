package notification

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Notification is one in-app message addressed to a user.
type Notification struct {
	ID        uuid.UUID    `db:"id" json:"id"`
	UserID    uuid.UUID    `db:"user_id" json:"user_id"`
	Message   string       `db:"message" json:"message"`
	Link      string       `db:"link" json:"link"`
	IsRead    bool         `db:"is_read" json:"is_read"`
	ReadAt    sql.NullTime `db:"read_at" json:"read_at,omitempty"`
	CreatedAt time.Time    `db:"created_at" json:"created_at"`
}

// NewNotification builds an unread notification stamped with now.
func NewNotification(userID uuid.UUID, message, link string) *Notification {
	return &Notification{
		ID:        uuid.New(),
		UserID:    userID,
		Message:   message,
		Link:      link,
		CreatedAt: time.Now().UTC(),
	}
}
