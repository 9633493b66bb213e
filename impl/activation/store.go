package activation

import (
	"context"
	"time"

	"codegate/entity"
)

// Store is the persistence the engine needs. Lookups return (nil, nil) when the
// record does not exist; errors are reserved for store failures.
type Store interface {
	FindCode(ctx context.Context, code string) (*entity.ActivationCode, error)
	FindCodeById(ctx context.Context, id string) (*entity.ActivationCode, error)
	CodeExists(ctx context.Context, code string) (bool, error)
	CreateCode(ctx context.Context, code *entity.ActivationCode) error
	UpdateCodeDuration(ctx context.Context, id string, days int) error
	SetCodeActive(ctx context.Context, id string, active bool) error
	SetFirstActivated(ctx context.Context, id string, at time.Time) error
	// DeleteCode removes the code together with all of its sessions.
	DeleteCode(ctx context.Context, id string) error
	ListCodes(ctx context.Context, page entity.Page) ([]*entity.ActivationCode, int64, error)

	SessionsByCode(ctx context.Context, codeId string) ([]*entity.DeviceSession, error)
	SessionsByDevice(ctx context.Context, deviceId string) ([]*entity.DeviceSession, error)
	CreateSession(ctx context.Context, session *entity.DeviceSession) error
	TouchSession(ctx context.Context, id string, at time.Time) error
	SetSessionExpiry(ctx context.Context, id string, expiresAt time.Time) error
	DeleteSession(ctx context.Context, id string) error
	// DeleteDeviceSessions removes sessions of deviceId, limited to codeId unless it is empty.
	DeleteDeviceSessions(ctx context.Context, deviceId, codeId string) (int64, error)
	CountLiveSessions(ctx context.Context, codeId string, now time.Time) (int64, error)
	ListSessions(ctx context.Context, page entity.Page) ([]*entity.DeviceSession, int64, error)
	DeleteExpiredSessions(ctx context.Context, before time.Time) (int64, error)
	Stats(ctx context.Context, now time.Time) (*entity.Stats, error)

	// Client activity is written by the client apps; the engine only reads it.
	ProfilesByCode(ctx context.Context, codeId string) ([]*entity.UserProfile, error)
	FindProfile(ctx context.Context, id string) (*entity.UserProfile, error)
	CountContacts(ctx context.Context, codeId, profileName string) (int64, error)
	CountSentBroadcasts(ctx context.Context, codeId, profileName string) (int64, error)
	// UsageByCode returns the usage days of a code, newest first.
	UsageByCode(ctx context.Context, codeId string) ([]*entity.DailyUsage, error)
	// UsageSince returns usage days on or after the given date key, newest first.
	UsageSince(ctx context.Context, since string) ([]*entity.DailyUsage, error)
	FindLinkStats(ctx context.Context, codeId string) (*entity.LinkStats, error)
}
