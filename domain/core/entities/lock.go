package entities

import "time"

// Lock is an advisory lease over one resource of a diagram.
// It is a hint for clients and is never enforced on mutations.
type Lock struct {
	ID         string    `json:"id" dynamodbav:"LockID"`
	DiagramID  string    `json:"diagramId" dynamodbav:"DiagramID"`
	ResourceID string    `json:"resourceId" dynamodbav:"ResourceID"`
	OwnerID    string    `json:"ownerId" dynamodbav:"OwnerID"`
	AcquiredAt time.Time `json:"acquiredAt" dynamodbav:"AcquiredAt"`
	ExpiresAt  time.Time `json:"expiresAt" dynamodbav:"ExpiresAt"`
}

// IsExpired reports whether the lease has run out at now
func (l Lock) IsExpired(now time.Time) bool {
	return !now.Before(l.ExpiresAt)
}
