package main

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	_ "modernc.org/sqlite"
)

// openDB opens a sqlite database with the pure Go driver. sqlite serialises
// writers anyway, and a single connection keeps ":memory:" databases alive.
func openDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		return nil, err
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	return db, nil
}

func gormLogLevel(level string) logger.LogLevel {
	switch level {
	case "debug":
		return logger.Info
	case "error":
		return logger.Error
	case "silent":
		return logger.Silent
	default:
		return logger.Warn
	}
}

func openStore(cfg *Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.DBDriver {
	case "sqlite":
		sqlDB, err := openDB(cfg.DBDSN)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite: %w", err)
		}
		dialector = &sqlite.Dialector{Conn: sqlDB}
	case "mysql":
		dialector = mysql.Open(cfg.DBDSN)
	case "postgres":
		dialector = postgres.Open(cfg.DBDSN)
	default:
		return nil, fmt.Errorf("unknown DB_DRIVER %q", cfg.DBDriver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(gormLogLevel(cfg.LogLevel)),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", cfg.DBDriver, err)
	}

	if cfg.DBDriver != "sqlite" {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("sql.DB error: %w", err)
		}
		sqlDB.SetMaxOpenConns(cfg.DBMaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.DBMaxIdleConns)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}

	return db, nil
}

func closeStore(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func initDB(db *gorm.DB) error {
	if err := db.AutoMigrate(&Category{}, &User{}, &PhotoPost{}, &Session{}, &Setting{}); err != nil {
		return fmt.Errorf("migrating schema: %w", err)
	}
	return nil
}

func seedCategories(db *gorm.DB, titles []string) error {
	for _, title := range titles {
		var c Category
		if err := db.Where(Category{Title: title}).FirstOrCreate(&c).Error; err != nil {
			return fmt.Errorf("seeding category %q: %w", title, err)
		}
	}
	return nil
}

func seedAdmin(db *gorm.DB, username, password string) error {
	existing, err := getUserByUsername(db, username)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}

	if password == "" {
		log.Println("WARNING: ADMIN_PASS not set, using default password")
		password = "password"
	}

	_, err = createUser(db, username, password)
	if errors.Is(err, errUsernameTaken) {
		return nil
	}
	return err
}
