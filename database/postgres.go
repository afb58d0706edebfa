// Package database wires the relational store (GORM over PostgreSQL) and
// the Redis client shared by the channel work queues and rate limiter.
package database

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"gorm.io/gorm/schema"

	"github.com/5-VED/notification-dispatcher/config"
	"github.com/5-VED/notification-dispatcher/models"
)

// NamingStrategy converts CamelCase Go identifiers to snake_case, pluralized
// table names.
type NamingStrategy struct {
	schema.NamingStrategy
}

func (ns NamingStrategy) TableName(str string) string {
	return ns.toSnakeCase(str) + "s"
}

func (ns NamingStrategy) ColumnName(table, column string) string {
	return ns.toSnakeCase(column)
}

func (ns NamingStrategy) JoinTableName(joinTable string) string {
	return ns.toSnakeCase(joinTable)
}

func (ns NamingStrategy) RelationshipFKName(rel schema.Relationship) string {
	return ns.toSnakeCase(rel.Name) + "_id"
}

func (ns NamingStrategy) CheckerName(table, column string) string {
	return table + "_" + column + "_check"
}

func (ns NamingStrategy) IndexName(table, column string) string {
	return "idx_" + table + "_" + column
}

func (ns NamingStrategy) toSnakeCase(str string) string {
	var result strings.Builder
	for i, r := range str {
		if i > 0 && r >= 'A' && r <= 'Z' {
			result.WriteRune('_')
		}
		if r >= 'A' && r <= 'Z' {
			result.WriteRune(r - 'A' + 'a')
		} else {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// NewPostgres opens a pooled GORM connection and runs AutoMigrate over the
// four owned entity kinds plus the read-only user projection table.
func NewPostgres(cfg config.DatabaseConfig, debug bool, logger *zap.Logger) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.Username, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	logLevel := gormlogger.Silent
	if debug {
		logLevel = gormlogger.Info
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		NamingStrategy: NamingStrategy{},
		Logger:         gormlogger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("unwrap sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := runMigrations(db); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	logger.Info("connected to postgres", zap.String("host", cfg.Host), zap.Int("port", cfg.Port))
	return db, nil
}

func runMigrations(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Notification{},
		&models.UserPreference{},
		&models.DeviceToken{},
		&models.NotificationTemplate{},
		&models.User{},
	)
}

// HealthCheck pings the underlying connection; the ping sets no timeout of
// its own.
func HealthCheck(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}
