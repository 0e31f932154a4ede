package models

import "time"

// Principal is a registered caller identity: the boundary layer resolves
// credentials to the opaque PrincipalID the ledgers consume.
type Principal struct {
	ID          int       `json:"id" example:"1"`
	PrincipalID string    `json:"principalId" example:"pr_9f3c2a10d4"` // opaque, stable
	Email       string    `json:"email" example:"user@example.com"`
	DisplayName string    `json:"displayName" example:"John Doe"`
	CreatedAt   time.Time `json:"createdAt"`
}
