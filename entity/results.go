package entity

import "time"

type ValidateResult struct {
	Valid     bool       `json:"valid"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Message   string     `json:"message"`
}

type CheckResult struct {
	Valid          bool       `json:"valid"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
	RemainingDays  int        `json:"remaining_days,omitempty"`
	MaxDevices     int        `json:"max_devices,omitempty"`
	CurrentDevices int64      `json:"current_devices,omitempty"`
	CodeNote       *string    `json:"code_note,omitempty"`
	Message        string     `json:"message"`
}

type ExtendResult struct {
	Success         bool   `json:"success"`
	NewDurationDays int    `json:"new_duration_days,omitempty"`
	ExtendedDevices int    `json:"extended_devices"`
	Message         string `json:"message"`
}

type RevokeResult struct {
	Success bool   `json:"success"`
	Revoked int64  `json:"revoked"`
	Message string `json:"message"`
}

type CreateResult struct {
	Success bool            `json:"success"`
	Code    string          `json:"code,omitempty"`
	Created *ActivationCode `json:"activation_code,omitempty"`
	Message string          `json:"message"`
}

// ActionResult is the outcome of a plain admin mutation (toggle, delete).
type ActionResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type LoginResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// AdminSession is the verified content of an admin session token.
type AdminSession struct {
	Subject   string    `json:"subject"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}
