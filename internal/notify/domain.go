package notify

import "time"

// Notification represents one in-app message for a user.
type Notification struct {
	ID        int64
	UserID    int64
	Category  string
	Title     string
	Body      string
	CreatedAt time.Time
}
