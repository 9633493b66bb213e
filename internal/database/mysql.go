package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/go-sql-driver/mysql"

	"codegate/entity"
	"codegate/impl/activation"
	"codegate/internal/config"
)

type MySql struct {
	db         *sql.DB
	statements map[string]*sql.Stmt
	mu         sync.Mutex
}

// MySQLDSN builds a driver DSN; timestamps are read and written in UTC.
func MySQLDSN(conf *config.Config) string {
	cfg := mysql.NewConfig()
	cfg.User = conf.MySQL.UserName
	cfg.Passwd = conf.MySQL.Password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(conf.MySQL.HostName, conf.MySQL.Port)
	cfg.DBName = conf.MySQL.Database
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	cfg.MultiStatements = true
	return cfg.FormatDSN()
}

func NewSQLClient(conf *config.Config) (*MySql, error) {
	dsn := MySQLDSN(conf)
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql connect: %w", err)
	}

	// try to ping three times with a 30-second interval; wait for a database to start
	for i := 0; i < 3; i++ {
		if err = db.Ping(); err == nil {
			break
		}
		if i == 2 {
			_ = db.Close()
			return nil, fmt.Errorf("ping database: %w", err)
		}
		time.Sleep(30 * time.Second)
	}

	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(time.Hour)

	if conf.MySQL.Migrate {
		if err = Migrate(dsn, MigrateUp); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	return &MySql{
		db:         db,
		statements: make(map[string]*sql.Stmt),
	}, nil
}

func (s *MySql) Close() {
	s.closeStmt()
	_ = s.db.Close()
}

func (s *MySql) exec(ctx context.Context, name string, args ...any) (sql.Result, error) {
	stmt, err := s.prepareStmt(name)
	if err != nil {
		return nil, err
	}
	res, err := stmt.ExecContext(ctx, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return res, nil
}

func (s *MySql) count(ctx context.Context, name string, args ...any) (int64, error) {
	stmt, err := s.prepareStmt(name)
	if err != nil {
		return 0, err
	}
	var n int64
	if err = stmt.QueryRowContext(ctx, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCode(row rowScanner) (*entity.ActivationCode, error) {
	var code entity.ActivationCode
	var duration sql.NullInt64
	var firstActivated sql.NullTime
	var appType string
	if err := row.Scan(
		&code.Id,
		&code.Code,
		&code.MaxDevices,
		&duration,
		&code.IsActive,
		&firstActivated,
		&code.Note,
		&appType,
		&code.MaxWhatsappProfiles,
		&code.CreatedAt,
	); err != nil {
		return nil, err
	}
	if duration.Valid {
		days := int(duration.Int64)
		code.DurationDays = &days
	}
	if firstActivated.Valid {
		at := firstActivated.Time
		code.FirstActivatedAt = &at
	}
	code.AppType = entity.AppType(appType)
	return &code, nil
}

func scanSession(row rowScanner) (*entity.DeviceSession, error) {
	var session entity.DeviceSession
	var info []byte
	if err := row.Scan(
		&session.Id,
		&session.ActivationCodeId,
		&session.DeviceId,
		&session.ActivatedAt,
		&session.ExpiresAt,
		&session.LastCheck,
		&info,
	); err != nil {
		return nil, err
	}
	if len(info) > 0 {
		session.DeviceInfo = info
	}
	return &session, nil
}

func (s *MySql) findCode(ctx context.Context, name, arg string) (*entity.ActivationCode, error) {
	stmt, err := s.prepareStmt(name)
	if err != nil {
		return nil, err
	}
	code, err := scanCode(stmt.QueryRowContext(ctx, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return code, nil
}

func (s *MySql) FindCode(ctx context.Context, code string) (*entity.ActivationCode, error) {
	return s.findCode(ctx, "selectCodeByCode", code)
}

func (s *MySql) FindCodeById(ctx context.Context, id string) (*entity.ActivationCode, error) {
	return s.findCode(ctx, "selectCodeById", id)
}

func (s *MySql) CodeExists(ctx context.Context, code string) (bool, error) {
	n, err := s.count(ctx, "existsCode", code)
	return n > 0, err
}

func (s *MySql) CreateCode(ctx context.Context, code *entity.ActivationCode) error {
	var duration any
	if code.DurationDays != nil {
		duration = *code.DurationDays
	}
	var firstActivated any
	if code.FirstActivatedAt != nil {
		firstActivated = code.FirstActivatedAt.UTC()
	}
	_, err := s.exec(ctx, "insertCode",
		code.Id,
		code.Code,
		code.MaxDevices,
		duration,
		code.IsActive,
		firstActivated,
		code.Note,
		string(code.AppType),
		code.MaxWhatsappProfiles,
		code.CreatedAt.UTC(),
	)
	return err
}

func (s *MySql) UpdateCodeDuration(ctx context.Context, id string, days int) error {
	_, err := s.exec(ctx, "updateCodeDuration", days, id)
	return err
}

func (s *MySql) SetCodeActive(ctx context.Context, id string, active bool) error {
	_, err := s.exec(ctx, "updateCodeActive", active, id)
	return err
}

func (s *MySql) SetFirstActivated(ctx context.Context, id string, at time.Time) error {
	_, err := s.exec(ctx, "updateCodeFirstActivated", at.UTC(), id)
	return err
}

// DeleteCode relies on ON DELETE CASCADE for the sessions.
func (s *MySql) DeleteCode(ctx context.Context, id string) error {
	_, err := s.exec(ctx, "deleteCode", id)
	return err
}

func (s *MySql) ListCodes(ctx context.Context, page entity.Page) ([]*entity.ActivationCode, int64, error) {
	total, err := s.count(ctx, "countCodes")
	if err != nil {
		return nil, 0, err
	}
	stmt, err := s.prepareStmt("selectCodesPage")
	if err != nil {
		return nil, 0, err
	}
	rows, err := stmt.QueryContext(ctx, page.PerPage, page.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var codes []*entity.ActivationCode
	for rows.Next() {
		code, err := scanCode(rows)
		if err != nil {
			return nil, 0, err
		}
		codes = append(codes, code)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, err
	}
	return codes, total, nil
}

func (s *MySql) querySessions(ctx context.Context, name string, args ...any) ([]*entity.DeviceSession, error) {
	stmt, err := s.prepareStmt(name)
	if err != nil {
		return nil, err
	}
	rows, err := stmt.QueryContext(ctx, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	defer rows.Close()

	var sessions []*entity.DeviceSession
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return sessions, nil
}

func (s *MySql) SessionsByCode(ctx context.Context, codeId string) ([]*entity.DeviceSession, error) {
	return s.querySessions(ctx, "selectSessionsByCode", codeId)
}

func (s *MySql) SessionsByDevice(ctx context.Context, deviceId string) ([]*entity.DeviceSession, error) {
	return s.querySessions(ctx, "selectSessionsByDevice", deviceId)
}

func (s *MySql) CreateSession(ctx context.Context, session *entity.DeviceSession) error {
	var info any
	if len(session.DeviceInfo) > 0 {
		info = string(session.DeviceInfo)
	}
	_, err := s.exec(ctx, "insertSession",
		session.Id,
		session.ActivationCodeId,
		session.DeviceId,
		session.ActivatedAt.UTC(),
		session.ExpiresAt.UTC(),
		session.LastCheck.UTC(),
		info,
	)
	return err
}

func (s *MySql) TouchSession(ctx context.Context, id string, at time.Time) error {
	_, err := s.exec(ctx, "updateSessionLastCheck", at.UTC(), id)
	return err
}

func (s *MySql) SetSessionExpiry(ctx context.Context, id string, expiresAt time.Time) error {
	_, err := s.exec(ctx, "updateSessionExpiry", expiresAt.UTC(), id)
	return err
}

func (s *MySql) DeleteSession(ctx context.Context, id string) error {
	_, err := s.exec(ctx, "deleteSession", id)
	return err
}

func (s *MySql) DeleteDeviceSessions(ctx context.Context, deviceId, codeId string) (int64, error) {
	var res sql.Result
	var err error
	if codeId == "" {
		res, err = s.exec(ctx, "deleteDeviceSessions", deviceId)
	} else {
		res, err = s.exec(ctx, "deleteDeviceCodeSessions", deviceId, codeId)
	}
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *MySql) CountLiveSessions(ctx context.Context, codeId string, now time.Time) (int64, error) {
	return s.count(ctx, "countLiveSessions", codeId, now.UTC())
}

func (s *MySql) ListSessions(ctx context.Context, page entity.Page) ([]*entity.DeviceSession, int64, error) {
	total, err := s.count(ctx, "countSessions")
	if err != nil {
		return nil, 0, err
	}
	sessions, err := s.querySessions(ctx, "selectSessionsPage", page.PerPage, page.Offset())
	if err != nil {
		return nil, 0, err
	}
	return sessions, total, nil
}

func (s *MySql) DeleteExpiredSessions(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.exec(ctx, "deleteExpiredSession", before.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *MySql) Stats(ctx context.Context, now time.Time) (*entity.Stats, error) {
	var stats entity.Stats
	var all int64
	var err error
	if stats.TotalCodes, err = s.count(ctx, "countCodes"); err != nil {
		return nil, err
	}
	if stats.ActiveCodes, err = s.count(ctx, "countActive"); err != nil {
		return nil, err
	}
	if all, err = s.count(ctx, "countSessions"); err != nil {
		return nil, err
	}
	if stats.LiveSessions, err = s.count(ctx, "countSessionsAfter", now.UTC()); err != nil {
		return nil, err
	}
	stats.ExpiredSessions = all - stats.LiveSessions
	return &stats, nil
}

var _ activation.Store = (*MySql)(nil)
