package database

import (
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const sqliteMemoryDSN = "file::memory:?cache=shared&_foreign_keys=1"

func openSQLite(cfg Config) (*gorm.DB, error) {
	dsn, err := buildSQLiteDSN(cfg)
	if err != nil {
		return nil, err
	}
	if path := strings.TrimSpace(cfg.Path); cfg.DSN == "" && !isSQLiteMemory(path) {
		if err := ensureDir(path); err != nil {
			return nil, err
		}
	}

	db, err := gorm.Open(sqlite.Open(dsn), gormConfig())
	if err != nil {
		return nil, err
	}
	if err := enableForeignKeys(db); err != nil {
		return nil, err
	}
	return db, nil
}

// buildSQLiteDSN returns cfg.DSN verbatim when set. File databases default to
// WAL journaling and a busy timeout so concurrent writers wait instead of failing.
func buildSQLiteDSN(cfg Config) (string, error) {
	if cfg.DSN != "" {
		return cfg.DSN, nil
	}

	path := strings.TrimSpace(cfg.Path)
	if isSQLiteMemory(path) {
		return sqliteMemoryDSN, nil
	}
	if strings.ContainsAny(path, "?#") {
		return "", errors.New("sqlite path must not contain query parameters; use options")
	}

	options := map[string]string{
		"_foreign_keys": "1",
		"_journal_mode": "WAL",
		"_busy_timeout": "5000",
	}
	for key, value := range cfg.Options {
		options[key] = value
	}

	keys := make([]string, 0, len(options))
	for key := range options {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	params := make([]string, 0, len(keys))
	for _, key := range keys {
		params = append(params, key+"="+options[key])
	}
	return "file:" + filepath.ToSlash(path) + "?" + strings.Join(params, "&"), nil
}

func isSQLiteMemory(path string) bool {
	return path == "" || strings.EqualFold(path, ":memory:")
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func enableForeignKeys(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	if _, err := sqlDB.Exec("PRAGMA foreign_keys = ON"); err != nil && !errors.Is(err, sql.ErrConnDone) {
		return err
	}
	return nil
}
