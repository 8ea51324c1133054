package domain

import "time"

// SocialAccount links an account to one federated identity. A
// (provider, subject) pair maps to at most one account; an account may hold
// one link per provider.
type SocialAccount struct {
	ID          string
	AccountID   string
	Provider    string // e.g. "google"
	SubjectID   string // provider's stable user identifier
	Email       string // email reported by the provider at link time
	DisplayName string
	LinkedAt    time.Time
}
