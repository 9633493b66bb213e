package entity

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"codegate/lib/validate"
)

// MaxDeviceInfoSize is the limit for the compact JSON form of device_info.
const MaxDeviceInfoSize = 5120

var ErrDeviceInfoTooLarge = fmt.Errorf("device_info too large (max %d bytes)", MaxDeviceInfoSize)

// CompactDeviceInfo returns the compact serialization of raw device info, nil for
// an absent or null value. Oversized input yields ErrDeviceInfoTooLarge.
func CompactDeviceInfo(raw json.RawMessage) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, trimmed); err != nil {
		return nil, fmt.Errorf("device_info: %w", err)
	}
	if buf.Len() > MaxDeviceInfoSize {
		return nil, ErrDeviceInfoTooLarge
	}
	return buf.Bytes(), nil
}

type ValidateRequest struct {
	Code       string          `json:"code" validate:"required,max=64"`
	DeviceId   string          `json:"device_id" validate:"required,max=255"`
	DeviceInfo json.RawMessage `json:"device_info,omitempty"`
}

func (v *ValidateRequest) Bind(_ *http.Request) error {
	v.DeviceId = strings.TrimSpace(v.DeviceId)
	if err := validate.Struct(v); err != nil {
		return err
	}
	info, err := CompactDeviceInfo(v.DeviceInfo)
	if err != nil {
		return err
	}
	v.DeviceInfo = info
	return nil
}

// CheckRequest looks a device up by id; Code narrows the lookup when the same
// device id is registered under more than one code.
type CheckRequest struct {
	DeviceId string `json:"device_id" validate:"required,max=255"`
	Code     string `json:"code,omitempty" validate:"omitempty,max=64"`
}

func (c *CheckRequest) Bind(_ *http.Request) error {
	c.DeviceId = strings.TrimSpace(c.DeviceId)
	return validate.Struct(c)
}

type ExtendRequest struct {
	Code           string `json:"code" validate:"required,max=64"`
	AdditionalDays int    `json:"additional_days" validate:"required,min=1,max=36500"`
}

func (e *ExtendRequest) Bind(_ *http.Request) error {
	return validate.Struct(e)
}

type RevokeRequest struct {
	DeviceId string `json:"device_id" validate:"required,max=255"`
	Code     string `json:"code,omitempty" validate:"omitempty,max=64"`
}

func (r *RevokeRequest) Bind(_ *http.Request) error {
	r.DeviceId = strings.TrimSpace(r.DeviceId)
	return validate.Struct(r)
}

// CreateCodeRequest describes a new code. A missing or zero duration_days
// creates a lifetime code.
type CreateCodeRequest struct {
	MaxDevices          int     `json:"max_devices" validate:"required,min=1,max=10000"`
	DurationDays        *int    `json:"duration_days" validate:"omitempty,min=1,max=36500"`
	Note                string  `json:"note" validate:"max=500"`
	AppType             AppType `json:"app_type" validate:"omitempty,oneof=HudzSender HudzLink ALL"`
	MaxWhatsappProfiles int     `json:"max_whatsapp_profiles" validate:"omitempty,min=1,max=100"`
}

func (c *CreateCodeRequest) Bind(_ *http.Request) error {
	c.Normalize()
	return validate.Struct(c)
}

// Normalize applies defaults: zero duration means lifetime, empty app type and
// profile limit fall back to their defaults.
func (c *CreateCodeRequest) Normalize() {
	if c.DurationDays != nil && *c.DurationDays == 0 {
		c.DurationDays = nil
	}
	c.Note = strings.TrimSpace(c.Note)
	if c.AppType == "" {
		c.AppType = DefaultAppType
	}
	if c.MaxWhatsappProfiles == 0 {
		c.MaxWhatsappProfiles = DefaultMaxWhatsappProfiles
	}
}

type ToggleRequest struct {
	Code     string `json:"code" validate:"required,max=64"`
	IsActive *bool  `json:"is_active" validate:"required"`
}

func (t *ToggleRequest) Bind(_ *http.Request) error {
	return validate.Struct(t)
}

type DeleteCodeRequest struct {
	Code string `json:"code" validate:"required,max=64"`
}

func (d *DeleteCodeRequest) Bind(_ *http.Request) error {
	return validate.Struct(d)
}

type LoginRequest struct {
	Password string `json:"password" validate:"required,max=256"`
}

func (l *LoginRequest) Bind(_ *http.Request) error {
	if err := validate.Struct(l); err != nil {
		return errors.New("password required")
	}
	return nil
}
