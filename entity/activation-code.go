// Package entity defines domain types shared across the application.
package entity

import "time"

// AppType is the product family a code unlocks.
type AppType string

const (
	AppHudzSender AppType = "HudzSender"
	AppHudzLink   AppType = "HudzLink"
	AppAll        AppType = "ALL"
)

const (
	DefaultAppType             = AppHudzSender
	DefaultMaxWhatsappProfiles = 3
)

// ActivationCode is an admin-issued credential that lets up to MaxDevices devices
// register a session. DurationDays == nil marks a lifetime code.
type ActivationCode struct {
	Id                  string     `json:"id" bson:"_id"`
	Code                string     `json:"code" bson:"code"`
	MaxDevices          int        `json:"max_devices" bson:"max_devices"`
	DurationDays        *int       `json:"duration_days" bson:"duration_days"`
	IsActive            bool       `json:"is_active" bson:"is_active"`
	FirstActivatedAt    *time.Time `json:"first_activated_at" bson:"first_activated_at"`
	Note                string     `json:"note,omitempty" bson:"note,omitempty"`
	AppType             AppType    `json:"app_type" bson:"app_type"`
	MaxWhatsappProfiles int        `json:"max_whatsapp_profiles" bson:"max_whatsapp_profiles"`
	CreatedAt           time.Time  `json:"created_at" bson:"created_at"`
}

func (c *ActivationCode) IsLifetime() bool {
	return c.DurationDays == nil
}

// Days returns the base duration, 0 for lifetime codes.
func (c *ActivationCode) Days() int {
	if c.DurationDays == nil {
		return 0
	}
	return *c.DurationDays
}

// CodeSummary is a list row: the code and its live device count.
type CodeSummary struct {
	*ActivationCode
	LiveDevices int64 `json:"live_devices"`
}

// CodeDetail is the code with every session registered under it, its WhatsApp
// profiles and usage history. LinkStats is only set for HudzLink codes.
type CodeDetail struct {
	Code         *ActivationCode  `json:"code"`
	Sessions     []*DeviceSession `json:"sessions"`
	Live         int              `json:"live_devices"`
	Profiles     []*UserProfile   `json:"profiles"`
	ProfileLimit int              `json:"profile_limit"`
	Usage        []*DailyUsage    `json:"usage"`
	LinkStats    *LinkStats       `json:"link_stats,omitempty"`
}

type Stats struct {
	TotalCodes      int64 `json:"total_codes"`
	ActiveCodes     int64 `json:"active_codes"`
	LiveSessions    int64 `json:"live_sessions"`
	ExpiredSessions int64 `json:"expired_sessions"`
}
