package entity

import "time"

// DateLayout is the calendar day key of daily usage rows.
const DateLayout = "2006-01-02"

// DailyUsage is one day of client activity reported under a code.
type DailyUsage struct {
	Id               string `json:"id" bson:"_id"`
	ActivationCodeId string `json:"activation_code_id" bson:"activation_code_id"`
	Date             string `json:"date" bson:"date"`
	BroadcastsCount  int64  `json:"broadcasts_count" bson:"broadcasts_count"`
	MessagesSent     int64  `json:"messages_sent" bson:"messages_sent"`
	GroupsJoined     int64  `json:"groups_joined" bson:"groups_joined"`
}

// UsageRow is a usage day joined with its code.
type UsageRow struct {
	*DailyUsage
	Code    string  `json:"code"`
	AppType AppType `json:"app_type,omitempty"`
	Note    string  `json:"note,omitempty"`
}

type UsageOverview struct {
	Since             string      `json:"since"`
	TotalBroadcasts   int64       `json:"total_broadcasts"`
	TotalMessages     int64       `json:"total_messages"`
	TotalGroupsJoined int64       `json:"total_groups_joined"`
	ActiveDevices     int64       `json:"active_devices"`
	TopCodes          []*UsageRow `json:"top_codes"`
	Recent            []*UsageRow `json:"recent"`
}

type ProfileSettings struct {
	GreetingMessage   string `json:"greeting_message,omitempty" bson:"greeting_message,omitempty"`
	AutoReplyMessage  string `json:"auto_reply_message,omitempty" bson:"auto_reply_message,omitempty"`
	BroadcastTemplate string `json:"broadcast_template,omitempty" bson:"broadcast_template,omitempty"`
}

// UserProfile is a WhatsApp profile a client created under a code. The number of
// profiles per code is bounded by ActivationCode.MaxWhatsappProfiles.
type UserProfile struct {
	Id               string          `json:"id" bson:"_id"`
	ActivationCodeId string          `json:"activation_code_id" bson:"activation_code_id"`
	ProfileName      string          `json:"profile_name" bson:"profile_name"`
	Settings         ProfileSettings `json:"-" bson:"settings"`
	CreatedAt        time.Time       `json:"created_at" bson:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at" bson:"updated_at"`
}

// ProfileDetail is a profile with its message settings and activity counters.
type ProfileDetail struct {
	*UserProfile
	GreetingMessage   *string `json:"greeting_message"`
	AutoReplyMessage  *string `json:"auto_reply_message"`
	BroadcastTemplate *string `json:"broadcast_template"`
	TotalContacts     int64   `json:"total_contacts"`
	TotalGroups       int64   `json:"total_groups"`
	TotalBroadcasts   int64   `json:"total_broadcasts"`
}

// LinkStats are the lifetime counters of a HudzLink code.
type LinkStats struct {
	Id               string    `json:"id" bson:"_id"`
	ActivationCodeId string    `json:"activation_code_id" bson:"activation_code_id"`
	TotalScraped     int64     `json:"total_scraped" bson:"total_scraped"`
	TotalGenerated   int64     `json:"total_generated" bson:"total_generated"`
	TotalExported    int64     `json:"total_exported" bson:"total_exported"`
	LastActivity     time.Time `json:"last_activity" bson:"last_activity"`
}
