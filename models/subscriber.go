package models

import "time"

// Subscriber is a weekly-report recipient. Email is the key; a subscriber
// becomes eligible for the digest only after verifying the emailed code.
type Subscriber struct {
	Email            string     `json:"email"`
	IsActive         bool       `json:"is_active"`
	IsVerified       bool       `json:"is_verified"`
	VerificationCode *string    `json:"-"`
	CodeExpiresAt    *time.Time `json:"-"`
	UnsubscribeToken string     `json:"-"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}
