package activation

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"codegate/entity"
	"codegate/lib/clock"
)

var errDuplicateSession = errors.New("duplicate session")

// memStore keeps codes and sessions in maps; failOn injects store faults by method name.
type memStore struct {
	mu       sync.Mutex
	codes    map[string]*entity.ActivationCode
	sessions map[string]*entity.DeviceSession
	failOn   map[string]error
	// failExpiryFor makes SetSessionExpiry fail for the listed session ids
	failExpiryFor map[string]bool

	profiles   map[string]*entity.UserProfile
	usage      []*entity.DailyUsage
	linkStats  map[string]*entity.LinkStats
	contacts   map[string]int64
	broadcasts map[string]int64
}

func newMemStore() *memStore {
	return &memStore{
		codes:         make(map[string]*entity.ActivationCode),
		sessions:      make(map[string]*entity.DeviceSession),
		failOn:        make(map[string]error),
		failExpiryFor: make(map[string]bool),
		profiles:      make(map[string]*entity.UserProfile),
		linkStats:     make(map[string]*entity.LinkStats),
		contacts:      make(map[string]int64),
		broadcasts:    make(map[string]int64),
	}
}

func (m *memStore) fail(method string) error {
	return m.failOn[method]
}

func copyCode(c *entity.ActivationCode) *entity.ActivationCode {
	cp := *c
	if c.DurationDays != nil {
		d := *c.DurationDays
		cp.DurationDays = &d
	}
	if c.FirstActivatedAt != nil {
		t := *c.FirstActivatedAt
		cp.FirstActivatedAt = &t
	}
	return &cp
}

// copySession keeps timestamps at store precision, like the real adapters.
func copySession(s *entity.DeviceSession) *entity.DeviceSession {
	cp := *s
	cp.ActivatedAt = clock.Stored(s.ActivatedAt)
	cp.ExpiresAt = clock.Stored(s.ExpiresAt)
	cp.LastCheck = clock.Stored(s.LastCheck)
	return &cp
}

func (m *memStore) FindCode(_ context.Context, code string) (*entity.ActivationCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("FindCode"); err != nil {
		return nil, err
	}
	for _, c := range m.codes {
		if c.Code == code {
			return copyCode(c), nil
		}
	}
	return nil, nil
}

func (m *memStore) FindCodeById(_ context.Context, id string) (*entity.ActivationCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.codes[id]; ok {
		return copyCode(c), nil
	}
	return nil, nil
}

func (m *memStore) CodeExists(_ context.Context, code string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("CodeExists"); err != nil {
		return false, err
	}
	for _, c := range m.codes {
		if c.Code == code {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) CreateCode(_ context.Context, code *entity.ActivationCode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("CreateCode"); err != nil {
		return err
	}
	m.codes[code.Id] = copyCode(code)
	return nil
}

func (m *memStore) UpdateCodeDuration(_ context.Context, id string, days int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("UpdateCodeDuration"); err != nil {
		return err
	}
	if c, ok := m.codes[id]; ok {
		c.DurationDays = &days
	}
	return nil
}

func (m *memStore) SetCodeActive(_ context.Context, id string, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.codes[id]; ok {
		c.IsActive = active
	}
	return nil
}

func (m *memStore) SetFirstActivated(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("SetFirstActivated"); err != nil {
		return err
	}
	if c, ok := m.codes[id]; ok && c.FirstActivatedAt == nil {
		c.FirstActivatedAt = &at
	}
	return nil
}

func (m *memStore) DeleteCode(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.codes, id)
	for sid, s := range m.sessions {
		if s.ActivationCodeId == id {
			delete(m.sessions, sid)
		}
	}
	return nil
}

func (m *memStore) ListCodes(_ context.Context, page entity.Page) ([]*entity.ActivationCode, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := make([]*entity.ActivationCode, 0, len(m.codes))
	for _, c := range m.codes {
		all = append(all, copyCode(c))
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	return paginate(all, page), int64(len(all)), nil
}

func (m *memStore) SessionsByCode(_ context.Context, codeId string) ([]*entity.DeviceSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("SessionsByCode"); err != nil {
		return nil, err
	}
	var out []*entity.DeviceSession
	for _, s := range m.sessions {
		if s.ActivationCodeId == codeId {
			out = append(out, copySession(s))
		}
	}
	sortSessions(out)
	return out, nil
}

func (m *memStore) SessionsByDevice(_ context.Context, deviceId string) ([]*entity.DeviceSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.DeviceSession
	for _, s := range m.sessions {
		if s.DeviceId == deviceId {
			out = append(out, copySession(s))
		}
	}
	sortSessions(out)
	return out, nil
}

func (m *memStore) CreateSession(_ context.Context, session *entity.DeviceSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("CreateSession"); err != nil {
		return err
	}
	for _, s := range m.sessions {
		if s.ActivationCodeId == session.ActivationCodeId && s.DeviceId == session.DeviceId {
			return errDuplicateSession
		}
	}
	m.sessions[session.Id] = copySession(session)
	return nil
}

func (m *memStore) TouchSession(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[id]; ok {
		s.LastCheck = at
	}
	return nil
}

func (m *memStore) SetSessionExpiry(_ context.Context, id string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failExpiryFor[id] {
		return errors.New("write conflict")
	}
	if s, ok := m.sessions[id]; ok {
		s.ExpiresAt = clock.Stored(expiresAt)
	}
	return nil
}

func (m *memStore) DeleteSession(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

func (m *memStore) DeleteDeviceSessions(_ context.Context, deviceId, codeId string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, s := range m.sessions {
		if s.DeviceId != deviceId || (codeId != "" && s.ActivationCodeId != codeId) {
			continue
		}
		delete(m.sessions, id)
		n++
	}
	return n, nil
}

func (m *memStore) CountLiveSessions(_ context.Context, codeId string, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, s := range m.sessions {
		if s.ActivationCodeId == codeId && !s.IsExpired(now) {
			n++
		}
	}
	return n, nil
}

func (m *memStore) ListSessions(_ context.Context, page entity.Page) ([]*entity.DeviceSession, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := make([]*entity.DeviceSession, 0, len(m.sessions))
	for _, s := range m.sessions {
		all = append(all, copySession(s))
	}
	sortSessions(all)
	return paginate(all, page), int64(len(all)), nil
}

func (m *memStore) DeleteExpiredSessions(_ context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, s := range m.sessions {
		if s.ExpiresAt.Before(before) {
			delete(m.sessions, id)
			n++
		}
	}
	return n, nil
}

func (m *memStore) Stats(_ context.Context, now time.Time) (*entity.Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := &entity.Stats{TotalCodes: int64(len(m.codes))}
	for _, c := range m.codes {
		if c.IsActive {
			stats.ActiveCodes++
		}
	}
	for _, s := range m.sessions {
		if s.IsExpired(now) {
			stats.ExpiredSessions++
		} else {
			stats.LiveSessions++
		}
	}
	return stats, nil
}

// sessionsOf returns stored sessions of a code, for assertions.
func (m *memStore) sessionsOf(codeId string) []*entity.DeviceSession {
	out, _ := m.SessionsByCode(context.Background(), codeId)
	return out
}

func sortSessions(s []*entity.DeviceSession) {
	sort.Slice(s, func(i, j int) bool {
		if s[i].ActivatedAt.Equal(s[j].ActivatedAt) {
			return s[i].Id < s[j].Id
		}
		return s[i].ActivatedAt.After(s[j].ActivatedAt)
	})
}

func paginate[T any](all []T, page entity.Page) []T {
	from := page.Offset()
	if from >= len(all) {
		return []T{}
	}
	to := from + page.PerPage
	if to > len(all) {
		to = len(all)
	}
	return all[from:to]
}

var _ Store = (*memStore)(nil)

func profileKey(codeId, profileName string) string {
	return codeId + "/" + profileName
}

func (m *memStore) ProfilesByCode(_ context.Context, codeId string) ([]*entity.UserProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("ProfilesByCode"); err != nil {
		return nil, err
	}
	var out []*entity.UserProfile
	for _, p := range m.profiles {
		if p.ActivationCodeId == codeId {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *memStore) FindProfile(_ context.Context, id string) (*entity.UserProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("FindProfile"); err != nil {
		return nil, err
	}
	if p, ok := m.profiles[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, nil
}

func (m *memStore) CountContacts(_ context.Context, codeId, profileName string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.contacts[profileKey(codeId, profileName)], m.fail("CountContacts")
}

func (m *memStore) CountSentBroadcasts(_ context.Context, codeId, profileName string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.broadcasts[profileKey(codeId, profileName)], nil
}

// usageWhere mirrors the stores' ordering: date descending, then id.
func (m *memStore) usageWhere(keep func(d *entity.DailyUsage) bool) []*entity.DailyUsage {
	var out []*entity.DailyUsage
	for _, d := range m.usage {
		if keep(d) {
			cp := *d
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date > out[j].Date
		}
		return out[i].Id < out[j].Id
	})
	return out
}

func (m *memStore) UsageByCode(_ context.Context, codeId string) ([]*entity.DailyUsage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("UsageByCode"); err != nil {
		return nil, err
	}
	return m.usageWhere(func(d *entity.DailyUsage) bool { return d.ActivationCodeId == codeId }), nil
}

func (m *memStore) UsageSince(_ context.Context, since string) ([]*entity.DailyUsage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("UsageSince"); err != nil {
		return nil, err
	}
	return m.usageWhere(func(d *entity.DailyUsage) bool { return d.Date >= since }), nil
}

func (m *memStore) FindLinkStats(_ context.Context, codeId string) (*entity.LinkStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if st, ok := m.linkStats[codeId]; ok {
		cp := *st
		return &cp, nil
	}
	return nil, nil
}
