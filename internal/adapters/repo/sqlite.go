package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"tg-checkin-bot/internal/domain"
	"tg-checkin-bot/internal/infra/metrics"
)

const dateLayout = "2006-01-02"

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS users (
	user_id      INTEGER PRIMARY KEY,
	name         TEXT NOT NULL DEFAULT '',
	points       INTEGER NOT NULL DEFAULT 0 CHECK (points >= 0),
	last_checkin TEXT,
	created_at   INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS admins (
	user_id  INTEGER PRIMARY KEY,
	added_at INTEGER NOT NULL
);
`

// SQLite реализует репозитории поверх database/sql и modernc.org/sqlite.
// Используется для локального запуска без Postgres.
type SQLite struct {
	db  *sql.DB
	now func() time.Time
}

var (
	_ domain.ParticipantRepo = (*SQLite)(nil)
	_ domain.AdminRepo       = (*SQLite)(nil)
)

// NewSQLite создаёт адаптер.
func NewSQLite(db *sql.DB) *SQLite {
	return &SQLite{db: db, now: time.Now}
}

// Migrate создаёт таблицы, если их ещё нет.
func (s *SQLite) Migrate(ctx context.Context) error {
	start := time.Now()
	_, err := s.db.ExecContext(ctx, sqliteSchema)
	metrics.ObserveNetworkRequest("sqlite", "migrate", "schema", start, err)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanParticipant(row rowScanner) (domain.Participant, error) {
	var (
		participant domain.Participant
		lastCheckin sql.NullString
		createdAt   int64
	)
	if err := row.Scan(&participant.UserID, &participant.Name, &participant.Points, &lastCheckin, &createdAt); err != nil {
		return domain.Participant{}, err
	}
	participant.CreatedAt = time.Unix(createdAt, 0).UTC()
	if lastCheckin.Valid {
		day, err := time.Parse(dateLayout, lastCheckin.String)
		if err != nil {
			return domain.Participant{}, fmt.Errorf("parse last_checkin %q: %w", lastCheckin.String, err)
		}
		participant.LastCheckin = &day
	}
	return participant, nil
}

// GetParticipant возвращает участника по Telegram ID.
func (s *SQLite) GetParticipant(ctx context.Context, userID int64) (domain.Participant, error) {
	start := time.Now()
	row := s.db.QueryRowContext(ctx, `SELECT user_id, name, points, last_checkin, created_at FROM users WHERE user_id = ?`, userID)
	participant, err := scanParticipant(row)
	if errors.Is(err, sql.ErrNoRows) {
		metrics.ObserveNetworkRequest("sqlite", "users_get", "users", start, nil)
		return domain.Participant{}, domain.ErrNotFound
	}
	metrics.ObserveNetworkRequest("sqlite", "users_get", "users", start, err)
	return participant, err
}

// UpsertParticipant регистрирует участника; при повторе обновляет только имя.
func (s *SQLite) UpsertParticipant(ctx context.Context, userID int64, name string) (domain.Participant, bool, error) {
	start := time.Now()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Participant{}, false, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `INSERT INTO users (user_id, name, created_at) VALUES (?, ?, ?) ON CONFLICT (user_id) DO NOTHING`, userID, name, s.now().Unix())
	if err != nil {
		return domain.Participant{}, false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return domain.Participant{}, false, err
	}
	created := affected == 1
	if !created && name != "" {
		if _, err := tx.ExecContext(ctx, `UPDATE users SET name = ? WHERE user_id = ?`, name, userID); err != nil {
			return domain.Participant{}, false, err
		}
	}
	participant, err := scanParticipant(tx.QueryRowContext(ctx, `SELECT user_id, name, points, last_checkin, created_at FROM users WHERE user_id = ?`, userID))
	if err != nil {
		return domain.Participant{}, false, err
	}
	err = tx.Commit()
	metrics.ObserveNetworkRequest("sqlite", "users_upsert", "users", start, err)
	if err != nil {
		return domain.Participant{}, false, err
	}
	return participant, created, nil
}

// UpdatePoints записывает баллы и дату отметки одним UPDATE.
func (s *SQLite) UpdatePoints(ctx context.Context, userID int64, points int, day time.Time) error {
	start := time.Now()
	res, err := s.db.ExecContext(ctx, `UPDATE users SET points = ?, last_checkin = ? WHERE user_id = ?`, points, domain.DateOf(day).Format(dateLayout), userID)
	metrics.ObserveNetworkRequest("sqlite", "users_update_points", "users", start, err)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListParticipantIDs возвращает идентификаторы всех участников.
func (s *SQLite) ListParticipantIDs(ctx context.Context) ([]int64, error) {
	return s.listIDs(ctx, "users_list_ids", `SELECT user_id FROM users ORDER BY user_id`)
}

// IsAdmin проверяет наличие пользователя в списке администраторов.
func (s *SQLite) IsAdmin(ctx context.Context, userID int64) (bool, error) {
	var exists bool
	start := time.Now()
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM admins WHERE user_id = ?)`, userID).Scan(&exists)
	metrics.ObserveNetworkRequest("sqlite", "admins_exists", "admins", start, err)
	return exists, err
}

// AddAdmin добавляет администратора; повторное добавление не ошибка.
func (s *SQLite) AddAdmin(ctx context.Context, userID int64) error {
	start := time.Now()
	_, err := s.db.ExecContext(ctx, `INSERT INTO admins (user_id, added_at) VALUES (?, ?) ON CONFLICT (user_id) DO NOTHING`, userID, s.now().Unix())
	metrics.ObserveNetworkRequest("sqlite", "admins_insert", "admins", start, err)
	return err
}

// RemoveAdmin удаляет администратора.
func (s *SQLite) RemoveAdmin(ctx context.Context, userID int64) error {
	start := time.Now()
	_, err := s.db.ExecContext(ctx, `DELETE FROM admins WHERE user_id = ?`, userID)
	metrics.ObserveNetworkRequest("sqlite", "admins_delete", "admins", start, err)
	return err
}

// ListAdmins возвращает всех администраторов.
func (s *SQLite) ListAdmins(ctx context.Context) ([]int64, error) {
	return s.listIDs(ctx, "admins_list", `SELECT user_id FROM admins ORDER BY user_id`)
}

func (s *SQLite) listIDs(ctx context.Context, operation, query string) ([]int64, error) {
	start := time.Now()
	rows, err := s.db.QueryContext(ctx, query)
	metrics.ObserveNetworkRequest("sqlite", operation, "", start, err)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
