package database

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/Venkmine/proxyforge/internal/logger"
)

// CurrentSchemaVersion is the schema version this binary expects. Bump
// it and add a case in migrate() whenever a migration is introduced.
const CurrentSchemaVersion = 1

// DB wraps the GORM handle for the embedded SQLite store (§6: "single-
// file embedded relational store").
type DB struct {
	*gorm.DB
}

// Open creates the parent directory for path if needed, opens the
// SQLite file, runs AutoMigrate for every row type, then applies any
// pending schema_version migrations.
func Open(path string) (*DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory %s: %w", dir, err)
		}
	}

	gdb, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("opening database %s: %w", path, err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("retrieving sql.DB handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(1) // SQLite: single writer, avoid SQLITE_BUSY under concurrent clip tasks.
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := gdb.AutoMigrate(
		&JobRow{},
		&ClipTaskRow{},
		&JobPresetBindingRow{},
		&WatchFolderRow{},
		&ProcessedFileRow{},
		&ExecutionEventRow{},
		&WorkerStatusRow{},
		&SchemaVersionRow{},
	); err != nil {
		return nil, fmt.Errorf("running auto-migration: %w", err)
	}

	db := &DB{gdb}
	if err := db.migrate(); err != nil {
		return nil, fmt.Errorf("running schema migrations: %w", err)
	}
	return db, nil
}

// migrate advances schema_version to CurrentSchemaVersion, applying
// each intermediate version's migration in order. There are none yet
// beyond the AutoMigrate-managed initial schema, so this only records
// the version row.
func (db *DB) migrate() error {
	var row SchemaVersionRow
	err := db.First(&row).Error
	switch {
	case err == gorm.ErrRecordNotFound:
		row = SchemaVersionRow{Version: CurrentSchemaVersion, AppliedAt: time.Now()}
		return db.Create(&row).Error
	case err != nil:
		return err
	}

	if row.Version >= CurrentSchemaVersion {
		return nil
	}

	for v := row.Version + 1; v <= CurrentSchemaVersion; v++ {
		logger.Info("applying schema migration to version %d", v)
		// No migrations defined beyond version 1 yet.
	}
	row.Version = CurrentSchemaVersion
	row.AppliedAt = time.Now()
	return db.Save(&row).Error
}

// Close releases the underlying sql.DB connection.
func (db *DB) Close() error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
