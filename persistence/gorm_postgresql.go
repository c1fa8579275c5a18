// persistence/gorm_postgresql.go
package persistence

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/wfunc/rajamantri/models"
)

// GormPostgreSQL 使用GORM的PostgreSQL实现
type GormPostgreSQL struct {
	db *gorm.DB
}

// NewGormPostgreSQL 创建GORM PostgreSQL数据库连接
func NewGormPostgreSQL(host string, port int, user, password, dbname string) (*GormPostgreSQL, error) {
	return NewGormPostgreSQLFromDSN(DSN(host, port, user, password, dbname))
}

// NewGormPostgreSQLFromDSN connects with a ready-made DSN and migrates the schema.
func NewGormPostgreSQLFromDSN(dsn string) (*GormPostgreSQL, error) {
	// 配置GORM日志
	gormLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold: time.Second,
			LogLevel:      logger.Silent,
			Colorful:      false,
		},
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         gormLogger,
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	// 设置连接池
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := autoMigrate(db); err != nil {
		return nil, err
	}

	return &GormPostgreSQL{db: db}, nil
}

// DSN builds a libpq-style connection string.
func DSN(host string, port int, user, password, dbname string) string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)
}

// autoMigrate 自动迁移表结构
func autoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.GormRoom{},
		&models.GormPlayer{},
	)
}

func (p *GormPostgreSQL) CreateRoom(ctx context.Context, room models.Room, host models.Player) error {
	host.RoomID = room.ID
	host.Seat = 0

	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := models.GormRoom{
			RoomID:        room.ID,
			Status:        string(room.Status),
			RolesAssigned: room.RolesAssigned,
			CreatedAt:     room.CreatedAt,
			UpdatedAt:     room.UpdatedAt,
		}
		if err := tx.Omit(clause.Associations).Create(&row).Error; err != nil {
			return err
		}
		player := models.NewGormPlayer(host)
		return tx.Create(&player).Error
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateRoom
	}
	return err
}

func (p *GormPostgreSQL) LoadRoom(ctx context.Context, roomID string) (*RoomSnapshot, error) {
	return loadGormRoom(p.db.WithContext(ctx), roomID, false)
}

func loadGormRoom(tx *gorm.DB, roomID string, forUpdate bool) (*RoomSnapshot, error) {
	q := tx
	if forUpdate {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var room models.GormRoom
	if err := q.Where("room_id = ?", roomID).First(&room).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}

	var rows []models.GormPlayer
	if err := tx.Where("room_id = ?", roomID).Order("seat asc").Find(&rows).Error; err != nil {
		return nil, err
	}

	snap := &RoomSnapshot{Room: room.ToRoom(), Players: make([]models.Player, 0, len(rows))}
	for _, r := range rows {
		snap.Players = append(snap.Players, r.ToPlayer())
	}
	return snap, nil
}

func (p *GormPostgreSQL) UpdateRoom(ctx context.Context, roomID string, fn func(s *RoomSnapshot) error) error {
	return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		snap, err := loadGormRoom(tx, roomID, true)
		if err != nil {
			return err
		}
		before := snap.clone()

		if err := fn(snap); err != nil {
			return err
		}

		if snap.Room != before.Room {
			err := tx.Model(&models.GormRoom{}).Where("room_id = ?", roomID).Updates(map[string]interface{}{
				"status":         string(snap.Room.Status),
				"roles_assigned": snap.Room.RolesAssigned,
				"updated_at":     time.Now(),
			}).Error
			if err != nil {
				return err
			}
		}

		for i, pl := range snap.Existing() {
			old := before.Players[i]
			if pl.Role == old.Role && pl.Score == old.Score {
				continue
			}
			err := tx.Model(&models.GormPlayer{}).Where("id = ?", pl.ID).Updates(map[string]interface{}{
				"role":  string(pl.Role),
				"score": pl.Score,
			}).Error
			if err != nil {
				return err
			}
		}

		for _, pl := range snap.Added() {
			row := models.NewGormPlayer(pl)
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (p *GormPostgreSQL) CountRooms(ctx context.Context) (map[models.RoomStatus]int, error) {
	var rows []struct {
		Status string
		N      int
	}
	err := p.db.WithContext(ctx).
		Model(&models.GormRoom{}).
		Select("status, count(*) as n").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[models.RoomStatus]int, len(rows))
	for _, r := range rows {
		counts[models.RoomStatus(r.Status)] = r.N
	}
	return counts, nil
}

// Close 关闭数据库连接
func (p *GormPostgreSQL) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
