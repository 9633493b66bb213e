package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"codegate/entity"
)

func scanProfile(row rowScanner) (*entity.UserProfile, error) {
	var profile entity.UserProfile
	var settings []byte
	if err := row.Scan(
		&profile.Id,
		&profile.ActivationCodeId,
		&profile.ProfileName,
		&settings,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if len(settings) > 0 {
		if err := json.Unmarshal(settings, &profile.Settings); err != nil {
			return nil, fmt.Errorf("profile %s settings: %w", profile.Id, err)
		}
	}
	return &profile, nil
}

func scanUsage(row rowScanner) (*entity.DailyUsage, error) {
	var usage entity.DailyUsage
	if err := row.Scan(
		&usage.Id,
		&usage.ActivationCodeId,
		&usage.Date,
		&usage.BroadcastsCount,
		&usage.MessagesSent,
		&usage.GroupsJoined,
	); err != nil {
		return nil, err
	}
	return &usage, nil
}

// queryRows runs a prepared statement and scans every row with scan.
func queryRows[T any](ctx context.Context, s *MySql, scan func(rowScanner) (T, error), name string, args ...any) ([]T, error) {
	stmt, err := s.prepareStmt(name)
	if err != nil {
		return nil, err
	}
	rows, err := stmt.QueryContext(ctx, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	defer rows.Close()

	var items []T
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		items = append(items, item)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return items, nil
}

func (s *MySql) ProfilesByCode(ctx context.Context, codeId string) ([]*entity.UserProfile, error) {
	return queryRows(ctx, s, scanProfile, "selectProfilesByCode", codeId)
}

func (s *MySql) FindProfile(ctx context.Context, id string) (*entity.UserProfile, error) {
	stmt, err := s.prepareStmt("selectProfileById")
	if err != nil {
		return nil, err
	}
	profile, err := scanProfile(stmt.QueryRowContext(ctx, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("selectProfileById: %w", err)
	}
	return profile, nil
}

func (s *MySql) CountContacts(ctx context.Context, codeId, profileName string) (int64, error) {
	return s.count(ctx, "countContacts", codeId, profileName)
}

func (s *MySql) CountSentBroadcasts(ctx context.Context, codeId, profileName string) (int64, error) {
	return s.count(ctx, "countSentBroadcasts", codeId, profileName)
}

func (s *MySql) UsageByCode(ctx context.Context, codeId string) ([]*entity.DailyUsage, error) {
	return queryRows(ctx, s, scanUsage, "selectUsageByCode", codeId)
}

func (s *MySql) UsageSince(ctx context.Context, since string) ([]*entity.DailyUsage, error) {
	return queryRows(ctx, s, scanUsage, "selectUsageSince", since)
}

func (s *MySql) FindLinkStats(ctx context.Context, codeId string) (*entity.LinkStats, error) {
	stmt, err := s.prepareStmt("selectLinkStats")
	if err != nil {
		return nil, err
	}
	var st entity.LinkStats
	err = stmt.QueryRowContext(ctx, codeId).Scan(
		&st.Id,
		&st.ActivationCodeId,
		&st.TotalScraped,
		&st.TotalGenerated,
		&st.TotalExported,
		&st.LastActivity,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("selectLinkStats: %w", err)
	}
	return &st, nil
}
