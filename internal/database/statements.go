package database

import (
	"database/sql"
	"fmt"
)

const codeColumns = `id, code, max_devices, duration_days, is_active, first_activated_at,
       note, app_type, max_whatsapp_profiles, created_at`

const sessionColumns = `id, activation_code_id, device_id, activated_at, expires_at, last_check, device_info`

const profileColumns = `id, activation_code_id, profile_name, settings, created_at, updated_at`

const usageColumns = `id, activation_code_id, DATE_FORMAT(date, '%Y-%m-%d'), broadcasts_count, messages_sent, groups_joined`

const linkStatsColumns = `id, activation_code_id, total_scraped, total_generated, total_exported, last_activity`

// statements maps a cache name to its query; everything the adapter runs is listed here.
var statements = map[string]string{
	"selectCodeByCode": `SELECT ` + codeColumns + ` FROM activation_codes WHERE code = ?`,
	"selectCodeById":   `SELECT ` + codeColumns + ` FROM activation_codes WHERE id = ?`,
	"existsCode":       `SELECT EXISTS(SELECT 1 FROM activation_codes WHERE code = ?)`,
	"insertCode": `INSERT INTO activation_codes (` + codeColumns + `)
                   VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	"updateCodeDuration": `UPDATE activation_codes SET duration_days = ? WHERE id = ?`,
	"updateCodeActive":   `UPDATE activation_codes SET is_active = ? WHERE id = ?`,
	"updateCodeFirstActivated": `UPDATE activation_codes SET first_activated_at = ?
                                 WHERE id = ? AND first_activated_at IS NULL`,
	"deleteCode":  `DELETE FROM activation_codes WHERE id = ?`,
	"countCodes":  `SELECT COUNT(*) FROM activation_codes`,
	"countActive": `SELECT COUNT(*) FROM activation_codes WHERE is_active = 1`,
	"selectCodesPage": `SELECT ` + codeColumns + ` FROM activation_codes
                        ORDER BY created_at DESC, id LIMIT ? OFFSET ?`,

	"selectSessionsByCode": `SELECT ` + sessionColumns + ` FROM device_sessions
                             WHERE activation_code_id = ? ORDER BY activated_at DESC`,
	"selectSessionsByDevice": `SELECT ` + sessionColumns + ` FROM device_sessions WHERE device_id = ?`,
	"insertSession": `INSERT INTO device_sessions (` + sessionColumns + `)
                      VALUES (?, ?, ?, ?, ?, ?, ?)`,
	"updateSessionLastCheck": `UPDATE device_sessions SET last_check = ? WHERE id = ?`,
	"updateSessionExpiry":    `UPDATE device_sessions SET expires_at = ? WHERE id = ?`,
	"deleteSession":          `DELETE FROM device_sessions WHERE id = ?`,
	"deleteDeviceSessions":   `DELETE FROM device_sessions WHERE device_id = ?`,
	"deleteDeviceCodeSessions": `DELETE FROM device_sessions
                                 WHERE device_id = ? AND activation_code_id = ?`,
	"countLiveSessions": `SELECT COUNT(*) FROM device_sessions
                          WHERE activation_code_id = ? AND expires_at > ?`,
	"countSessions":        `SELECT COUNT(*) FROM device_sessions`,
	"countSessionsAfter":   `SELECT COUNT(*) FROM device_sessions WHERE expires_at > ?`,
	"deleteExpiredSession": `DELETE FROM device_sessions WHERE expires_at < ?`,
	"selectSessionsPage": `SELECT ` + sessionColumns + ` FROM device_sessions
                           ORDER BY activated_at DESC, id LIMIT ? OFFSET ?`,

	"selectProfilesByCode": `SELECT ` + profileColumns + ` FROM user_profiles
                             WHERE activation_code_id = ? ORDER BY created_at, id`,
	"selectProfileById": `SELECT ` + profileColumns + ` FROM user_profiles WHERE id = ?`,
	"countContacts": `SELECT COUNT(*) FROM subscribers
                      WHERE activation_code_id = ? AND profile_name = ?`,
	"countSentBroadcasts": `SELECT COUNT(*) FROM campaign_logs
                            WHERE activation_code_id = ? AND profile_name = ? AND status = 'sent'`,
	"selectUsageByCode": `SELECT ` + usageColumns + ` FROM daily_usage
                          WHERE activation_code_id = ? ORDER BY date DESC, id`,
	"selectUsageSince": `SELECT ` + usageColumns + ` FROM daily_usage
                         WHERE date >= ? ORDER BY date DESC, id`,
	"selectLinkStats": `SELECT ` + linkStatsColumns + ` FROM link_stats WHERE activation_code_id = ?`,
}

func (s *MySql) prepareStmt(name string) (*sql.Stmt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if stmt, ok := s.statements[name]; ok {
		return stmt, nil
	}

	query, ok := statements[name]
	if !ok {
		return nil, fmt.Errorf("unknown statement [%s]", name)
	}
	stmt, err := s.db.Prepare(query)
	if err != nil {
		return nil, fmt.Errorf("prepare statement [%s]: %w", name, err)
	}

	s.statements[name] = stmt
	return stmt, nil
}

func (s *MySql) closeStmt() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for name, stmt := range s.statements {
		_ = stmt.Close()
		delete(s.statements, name)
	}
}
