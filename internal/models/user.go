package models

import "time"

// User is owned by the persistence collaborator; the engine only reads and
// creates it through the repository interface.
type User struct {
	ID          int64     `json:"id"`
	ExternalID  string    `json:"externalId"`
	DisplayName string    `json:"displayName"`
	LastSeenAt  time.Time `json:"lastSeenAt"`
}
