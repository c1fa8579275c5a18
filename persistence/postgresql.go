// persistence/postgresql.go
package persistence

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq" // PostgreSQL 驱动

	"github.com/wfunc/rajamantri/models"
)

// PostgreSQL 数据库实现
type PostgreSQL struct {
	db *sql.DB
}

// NewPostgreSQL 创建 PostgreSQL 数据库连接
func NewPostgreSQL(host string, port int, user, password, dbname string) (*PostgreSQL, error) {
	return NewPostgreSQLFromDSN(DSN(host, port, user, password, dbname))
}

// NewPostgreSQLFromDSN connects with a ready-made DSN and creates the tables.
func NewPostgreSQLFromDSN(dsn string) (*PostgreSQL, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	// 测试连接
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	// 设置连接池参数
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := initTables(ctx, db); err != nil {
		return nil, err
	}

	return &PostgreSQL{db: db}, nil
}

// initTables 初始化数据库表结构
func initTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
        CREATE TABLE IF NOT EXISTS rooms (
            room_id VARCHAR(16) PRIMARY KEY,
            status VARCHAR(16) NOT NULL,
            roles_assigned BOOLEAN NOT NULL DEFAULT FALSE,
            created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
            updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
        )
    `)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
        CREATE TABLE IF NOT EXISTS players (
            id VARCHAR(36) PRIMARY KEY,
            room_id VARCHAR(16) NOT NULL REFERENCES rooms(room_id) ON DELETE CASCADE,
            seat INTEGER NOT NULL,
            name VARCHAR(64) NOT NULL,
            role VARCHAR(16) NOT NULL DEFAULT '',
            score INTEGER NOT NULL DEFAULT 0,
            joined_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
        )
    `)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
        CREATE UNIQUE INDEX IF NOT EXISTS idx_players_room_seat ON players(room_id, seat);
        CREATE INDEX IF NOT EXISTS idx_rooms_status ON rooms(status);
    `)
	return err
}

// isUniqueViolation reports a Postgres unique_violation (23505).
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func (p *PostgreSQL) CreateRoom(ctx context.Context, room models.Room, host models.Player) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO rooms (room_id, status, roles_assigned, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)`,
		room.ID, string(room.Status), room.RolesAssigned, room.CreatedAt, room.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateRoom
		}
		return err
	}

	host.RoomID = room.ID
	host.Seat = 0
	if err := insertPlayer(ctx, tx, host); err != nil {
		return err
	}
	return tx.Commit()
}

func insertPlayer(ctx context.Context, tx *sql.Tx, pl models.Player) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO players (id, room_id, seat, name, role, score, joined_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		pl.ID, pl.RoomID, pl.Seat, pl.Name, string(pl.Role), pl.Score, pl.JoinedAt)
	return err
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func loadRoom(ctx context.Context, q queryer, roomID string, forUpdate bool) (*RoomSnapshot, error) {
	query := `SELECT room_id, status, roles_assigned, created_at, updated_at FROM rooms WHERE room_id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	var (
		snap   RoomSnapshot
		status string
	)
	err := q.QueryRowContext(ctx, query, roomID).Scan(
		&snap.Room.ID, &status, &snap.Room.RolesAssigned, &snap.Room.CreatedAt, &snap.Room.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	snap.Room.Status = models.RoomStatus(status)

	rows, err := q.QueryContext(ctx,
		`SELECT id, room_id, seat, name, role, score, joined_at FROM players WHERE room_id = $1 ORDER BY seat`,
		roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			pl   models.Player
			role string
		)
		if err := rows.Scan(&pl.ID, &pl.RoomID, &pl.Seat, &pl.Name, &role, &pl.Score, &pl.JoinedAt); err != nil {
			return nil, err
		}
		pl.Role = models.Role(role)
		snap.Players = append(snap.Players, pl)
	}
	return &snap, rows.Err()
}

func (p *PostgreSQL) LoadRoom(ctx context.Context, roomID string) (*RoomSnapshot, error) {
	return loadRoom(ctx, p.db, roomID, false)
}

func (p *PostgreSQL) UpdateRoom(ctx context.Context, roomID string, fn func(s *RoomSnapshot) error) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	snap, err := loadRoom(ctx, tx, roomID, true)
	if err != nil {
		return err
	}
	before := snap.clone()

	if err := fn(snap); err != nil {
		return err
	}

	if snap.Room != before.Room {
		_, err = tx.ExecContext(ctx,
			`UPDATE rooms SET status = $2, roles_assigned = $3, updated_at = CURRENT_TIMESTAMP WHERE room_id = $1`,
			roomID, string(snap.Room.Status), snap.Room.RolesAssigned)
		if err != nil {
			return err
		}
	}

	for i, pl := range snap.Existing() {
		old := before.Players[i]
		if pl.Role == old.Role && pl.Score == old.Score {
			continue
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE players SET role = $2, score = $3 WHERE id = $1`,
			pl.ID, string(pl.Role), pl.Score)
		if err != nil {
			return err
		}
	}

	for _, pl := range snap.Added() {
		if err := insertPlayer(ctx, tx, pl); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (p *PostgreSQL) CountRooms(ctx context.Context) (map[models.RoomStatus]int, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM rooms GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[models.RoomStatus]int)
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[models.RoomStatus(status)] = n
	}
	return counts, rows.Err()
}

// Close 关闭数据库连接
func (p *PostgreSQL) Close() error {
	return p.db.Close()
}
