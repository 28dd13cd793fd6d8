package db

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
)

type Options struct {
	Driver   string
	DSN      string
	LogLevel logger.LogLevel
	Log      *zap.Logger
}

// OpenGorm picks the dialector for opts.Driver and opens a pinged pool.
func OpenGorm(opts Options) (*gorm.DB, error) {
	var dial gorm.Dialector
	switch opts.Driver {
	case DriverMySQL:
		dial = mysql.Open(opts.DSN)
	case DriverSQLite:
		dial = sqlite.Open(opts.DSN)
	default:
		return nil, fmt.Errorf("unsupported db driver %q", opts.Driver)
	}
	db, err := openGorm(dial, opts.LogLevel, opts.Log)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", opts.Driver, err)
	}
	if opts.Log != nil {
		opts.Log.Info("gorm: connected", zap.String("driver", opts.Driver))
	}
	return db, nil
}

// OpenGormWithDialector opens an already-built dialector with the default pool settings.
func OpenGormWithDialector(dial gorm.Dialector) (*gorm.DB, error) {
	return openGorm(dial, logger.Warn, nil)
}

func openGorm(dial gorm.Dialector, level logger.LogLevel, log *zap.Logger) (*gorm.DB, error) {
	if level == 0 {
		level = logger.Warn
	}
	db, err := gorm.Open(dial, &gorm.Config{Logger: NewZapLogger(log, level)})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(30)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	sqlDB.SetConnMaxIdleTime(10 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return nil, err
	}
	return db, nil
}

// ParseLogLevel maps silent|error|warn|info to a gorm log level, defaulting to warn.
func ParseLogLevel(s string) logger.LogLevel {
	switch s {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	default:
		return logger.Warn
	}
}
