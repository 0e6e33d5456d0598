package repo

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"tg-checkin-bot/internal/domain"
	"tg-checkin-bot/internal/infra/metrics"
)

// Postgres реализует репозитории на основе pgxpool.
type Postgres struct {
	pool *pgxpool.Pool
}

var (
	_ domain.ParticipantRepo = (*Postgres)(nil)
	_ domain.AdminRepo       = (*Postgres)(nil)
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS users (
	user_id      BIGINT PRIMARY KEY,
	name         TEXT NOT NULL DEFAULT '',
	points       INTEGER NOT NULL DEFAULT 0 CHECK (points >= 0),
	last_checkin DATE,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS admins (
	user_id  BIGINT PRIMARY KEY,
	added_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// NewPostgres создаёт адаптер БД.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (p *Postgres) connCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 5*time.Second)
}

func (p *Postgres) connCtxWithParent(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		return p.connCtx()
	}
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, 5*time.Second)
}

// Migrate создаёт таблицы, если их ещё нет.
func (p *Postgres) Migrate(ctx context.Context) error {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	_, err := p.pool.Exec(ctx, postgresSchema)
	metrics.ObserveNetworkRequest("postgres", "migrate", "schema", start, err)
	return err
}

// GetParticipant возвращает участника по Telegram ID.
func (p *Postgres) GetParticipant(ctx context.Context, userID int64) (domain.Participant, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	var (
		participant domain.Participant
		lastCheckin sql.NullTime
	)
	start := time.Now()
	err := p.pool.QueryRow(ctx, `
SELECT user_id, name, points, last_checkin, created_at
FROM users WHERE user_id=$1
`, userID).Scan(&participant.UserID, &participant.Name, &participant.Points, &lastCheckin, &participant.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		metrics.ObserveNetworkRequest("postgres", "users_get", "users", start, nil)
		return domain.Participant{}, domain.ErrNotFound
	}
	metrics.ObserveNetworkRequest("postgres", "users_get", "users", start, err)
	if err != nil {
		return domain.Participant{}, err
	}
	if lastCheckin.Valid {
		day := domain.DateOf(lastCheckin.Time)
		participant.LastCheckin = &day
	}
	return participant, nil
}

// UpsertParticipant регистрирует участника; при повторе обновляет только имя.
func (p *Postgres) UpsertParticipant(ctx context.Context, userID int64, name string) (domain.Participant, bool, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	var (
		participant domain.Participant
		lastCheckin sql.NullTime
		created     bool
	)
	start := time.Now()
	err := p.pool.QueryRow(ctx, `
INSERT INTO users (user_id, name)
VALUES ($1, $2)
ON CONFLICT (user_id) DO UPDATE SET name = COALESCE(NULLIF(EXCLUDED.name, ''), users.name)
RETURNING user_id, name, points, last_checkin, created_at, (xmax = 0) AS inserted
`, userID, name).Scan(&participant.UserID, &participant.Name, &participant.Points, &lastCheckin, &participant.CreatedAt, &created)
	metrics.ObserveNetworkRequest("postgres", "users_upsert", "users", start, err)
	if err != nil {
		return domain.Participant{}, false, err
	}
	if lastCheckin.Valid {
		day := domain.DateOf(lastCheckin.Time)
		participant.LastCheckin = &day
	}
	return participant, created, nil
}

// UpdatePoints записывает баллы и дату отметки одним UPDATE.
func (p *Postgres) UpdatePoints(ctx context.Context, userID int64, points int, day time.Time) error {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	res, err := p.pool.Exec(ctx, `UPDATE users SET points=$2, last_checkin=$3 WHERE user_id=$1`, userID, points, domain.DateOf(day))
	metrics.ObserveNetworkRequest("postgres", "users_update_points", "users", start, err)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListParticipantIDs возвращает идентификаторы всех участников.
func (p *Postgres) ListParticipantIDs(ctx context.Context) ([]int64, error) {
	return p.listIDs(ctx, "users_list_ids", `SELECT user_id FROM users ORDER BY user_id`)
}

// IsAdmin проверяет наличие пользователя в списке администраторов.
func (p *Postgres) IsAdmin(ctx context.Context, userID int64) (bool, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	var exists bool
	start := time.Now()
	err := p.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM admins WHERE user_id=$1)`, userID).Scan(&exists)
	metrics.ObserveNetworkRequest("postgres", "admins_exists", "admins", start, err)
	return exists, err
}

// AddAdmin добавляет администратора; повторное добавление не ошибка.
func (p *Postgres) AddAdmin(ctx context.Context, userID int64) error {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	_, err := p.pool.Exec(ctx, `INSERT INTO admins (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`, userID)
	metrics.ObserveNetworkRequest("postgres", "admins_insert", "admins", start, err)
	return err
}

// RemoveAdmin удаляет администратора.
func (p *Postgres) RemoveAdmin(ctx context.Context, userID int64) error {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	_, err := p.pool.Exec(ctx, `DELETE FROM admins WHERE user_id=$1`, userID)
	metrics.ObserveNetworkRequest("postgres", "admins_delete", "admins", start, err)
	return err
}

// ListAdmins возвращает всех администраторов.
func (p *Postgres) ListAdmins(ctx context.Context) ([]int64, error) {
	return p.listIDs(ctx, "admins_list", `SELECT user_id FROM admins ORDER BY user_id`)
}

func (p *Postgres) listIDs(ctx context.Context, operation, query string) ([]int64, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	rows, err := p.pool.Query(ctx, query)
	metrics.ObserveNetworkRequest("postgres", operation, "", start, err)
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
