package activation

import (
	"context"
	"fmt"
	"time"

	"codegate/entity"
	"codegate/impl/codegen"
)

func (e *Engine) ListCodes(ctx context.Context, page entity.Page) (*entity.List[*entity.CodeSummary], error) {
	codes, total, err := e.store.ListCodes(ctx, page)
	if err != nil {
		return nil, fmt.Errorf("list codes: %w", err)
	}
	now := e.now()
	items := make([]*entity.CodeSummary, 0, len(codes))
	for _, c := range codes {
		live, err := e.store.CountLiveSessions(ctx, c.Id, now)
		if err != nil {
			return nil, fmt.Errorf("count sessions of %s: %w", c.Id, err)
		}
		items = append(items, &entity.CodeSummary{ActivationCode: c, LiveDevices: live})
	}
	return &entity.List[*entity.CodeSummary]{
		Items:   items,
		Total:   total,
		Page:    page.Number,
		PerPage: page.PerPage,
	}, nil
}

// CodeDetail returns nil without error when the code does not exist.
func (e *Engine) CodeDetail(ctx context.Context, code string) (*entity.CodeDetail, error) {
	ac, err := e.store.FindCode(ctx, codegen.Normalize(code))
	if err != nil {
		return nil, fmt.Errorf("find code: %w", err)
	}
	if ac == nil {
		return nil, nil
	}
	sessions, err := e.store.SessionsByCode(ctx, ac.Id)
	if err != nil {
		return nil, fmt.Errorf("load sessions: %w", err)
	}
	if sessions == nil {
		sessions = []*entity.DeviceSession{}
	}
	now := e.now()
	live := 0
	for _, s := range sessions {
		if !s.IsExpired(now) {
			live++
		}
	}
	detail := &entity.CodeDetail{
		Code:         ac,
		Sessions:     sessions,
		Live:         live,
		ProfileLimit: ac.MaxWhatsappProfiles,
		Profiles:     []*entity.UserProfile{},
		Usage:        []*entity.DailyUsage{},
	}

	profiles, err := e.store.ProfilesByCode(ctx, ac.Id)
	if err != nil {
		return nil, fmt.Errorf("load profiles: %w", err)
	}
	if profiles != nil {
		detail.Profiles = profiles
	}
	usage, err := e.store.UsageByCode(ctx, ac.Id)
	if err != nil {
		return nil, fmt.Errorf("load usage: %w", err)
	}
	if usage != nil {
		detail.Usage = usage
	}
	if ac.AppType == entity.AppHudzLink {
		if detail.LinkStats, err = e.store.FindLinkStats(ctx, ac.Id); err != nil {
			return nil, fmt.Errorf("load link stats: %w", err)
		}
	}
	return detail, nil
}

func (e *Engine) ListDevices(ctx context.Context, page entity.Page) (*entity.List[*entity.DeviceRow], error) {
	sessions, total, err := e.store.ListSessions(ctx, page)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	now := e.now()
	codes := make(map[string]*entity.ActivationCode)
	items := make([]*entity.DeviceRow, 0, len(sessions))
	for _, s := range sessions {
		ac, ok := codes[s.ActivationCodeId]
		if !ok {
			ac, err = e.store.FindCodeById(ctx, s.ActivationCodeId)
			if err != nil {
				return nil, fmt.Errorf("find code %s: %w", s.ActivationCodeId, err)
			}
			codes[s.ActivationCodeId] = ac
		}
		row := &entity.DeviceRow{DeviceSession: s, Expired: s.IsExpired(now)}
		if ac != nil {
			row.Code = ac.Code
			row.CodeNote = ac.Note
		}
		items = append(items, row)
	}
	return &entity.List[*entity.DeviceRow]{
		Items:   items,
		Total:   total,
		Page:    page.Number,
		PerPage: page.PerPage,
	}, nil
}

func (e *Engine) Stats(ctx context.Context) (*entity.Stats, error) {
	stats, err := e.store.Stats(ctx, e.now())
	if err != nil {
		return nil, fmt.Errorf("stats: %w", err)
	}
	return stats, nil
}

// PurgeExpired deletes sessions that expired more than grace ago. A purged
// session can no longer be revived by Extend.
func (e *Engine) PurgeExpired(ctx context.Context, grace time.Duration) (int64, error) {
	before := e.now().Add(-grace)
	n, err := e.store.DeleteExpiredSessions(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("purge sessions: %w", err)
	}
	return n, nil
}
