package entity

import (
	"encoding/json"
	"time"
)

// DeviceSession binds one client device to one activation code.
// (ActivationCodeId, DeviceId) is unique; DeviceId alone is not.
type DeviceSession struct {
	Id               string          `json:"id" bson:"_id"`
	ActivationCodeId string          `json:"activation_code_id" bson:"activation_code_id"`
	DeviceId         string          `json:"device_id" bson:"device_id"`
	ActivatedAt      time.Time       `json:"activated_at" bson:"activated_at"`
	ExpiresAt        time.Time       `json:"expires_at" bson:"expires_at"`
	LastCheck        time.Time       `json:"last_check" bson:"last_check"`
	DeviceInfo       json.RawMessage `json:"device_info,omitempty" bson:"device_info,omitempty"`
}

// IsExpired reports whether the session is no longer usable at now.
// A session expiring exactly at now is expired.
func (s *DeviceSession) IsExpired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}

// DeviceRow is a device list entry with the owning code resolved.
type DeviceRow struct {
	*DeviceSession
	Code     string `json:"code"`
	CodeNote string `json:"code_note,omitempty"`
	Expired  bool   `json:"expired"`
}
