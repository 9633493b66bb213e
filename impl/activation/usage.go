package activation

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"codegate/entity"
)

const (
	usageWindowDays = 7
	usageRecentRows = 50
	usageTopCodes   = 10
)

// Usage summarizes client activity of the last seven days: totals over every
// reported day, the busiest code-days by broadcasts and the most recent days.
func (e *Engine) Usage(ctx context.Context) (*entity.UsageOverview, error) {
	now := e.now()
	since := now.AddDate(0, 0, -usageWindowDays).Format(entity.DateLayout)

	days, err := e.store.UsageSince(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("load usage: %w", err)
	}
	stats, err := e.store.Stats(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("load stats: %w", err)
	}

	overview := &entity.UsageOverview{
		Since:         since,
		ActiveDevices: stats.LiveSessions,
		TopCodes:      []*entity.UsageRow{},
		Recent:        []*entity.UsageRow{},
	}
	for _, d := range days {
		overview.TotalBroadcasts += d.BroadcastsCount
		overview.TotalMessages += d.MessagesSent
		overview.TotalGroupsJoined += d.GroupsJoined
	}

	codes := make(map[string]*entity.ActivationCode)
	join := func(d *entity.DailyUsage) (*entity.UsageRow, error) {
		ac, ok := codes[d.ActivationCodeId]
		if !ok {
			if ac, err = e.store.FindCodeById(ctx, d.ActivationCodeId); err != nil {
				return nil, fmt.Errorf("find code %s: %w", d.ActivationCodeId, err)
			}
			codes[d.ActivationCodeId] = ac
		}
		row := &entity.UsageRow{DailyUsage: d}
		if ac != nil {
			row.Code = ac.Code
			row.AppType = ac.AppType
			row.Note = ac.Note
		}
		return row, nil
	}

	for _, d := range days[:min(len(days), usageRecentRows)] {
		row, err := join(d)
		if err != nil {
			return nil, err
		}
		overview.Recent = append(overview.Recent, row)
	}

	top := slices.Clone(days)
	slices.SortStableFunc(top, func(a, b *entity.DailyUsage) int {
		return cmp.Compare(b.BroadcastsCount, a.BroadcastsCount)
	})
	for _, d := range top[:min(len(top), usageTopCodes)] {
		row, err := join(d)
		if err != nil {
			return nil, err
		}
		overview.TopCodes = append(overview.TopCodes, row)
	}
	return overview, nil
}

// Profile returns nil without error when the profile does not exist. Settings
// left empty by the client come back as null.
func (e *Engine) Profile(ctx context.Context, id string) (*entity.ProfileDetail, error) {
	profile, err := e.store.FindProfile(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find profile: %w", err)
	}
	if profile == nil {
		return nil, nil
	}

	detail := &entity.ProfileDetail{
		UserProfile:       profile,
		GreetingMessage:   optional(profile.Settings.GreetingMessage),
		AutoReplyMessage:  optional(profile.Settings.AutoReplyMessage),
		BroadcastTemplate: optional(profile.Settings.BroadcastTemplate),
	}
	if detail.TotalContacts, err = e.store.CountContacts(ctx, profile.ActivationCodeId, profile.ProfileName); err != nil {
		return nil, fmt.Errorf("count contacts: %w", err)
	}
	if detail.TotalBroadcasts, err = e.store.CountSentBroadcasts(ctx, profile.ActivationCodeId, profile.ProfileName); err != nil {
		return nil, fmt.Errorf("count broadcasts: %w", err)
	}
	return detail, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
