package db

import (
	"database/sql"
	_ "embed"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/fpdash/fpboard/internal/config"
	"github.com/fpdash/fpboard/internal/models"
)

//go:embed schema.sql
var schema string

// Setting keys
const (
	KeySelectedSite = "fpResourceManagement_selectedSite"
	KeyLastView     = "lastView"
)

// DB wraps the database connection
type DB struct {
	*sql.DB
}

// New opens the database in the data directory
func New() (*DB, error) {
	dir, err := config.DataDir()
	if err != nil {
		return nil, err
	}
	return Open(filepath.Join(dir, "fpboard.db"))
}

// Open opens the database at path and initializes the schema
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}

	return &DB{db}, nil
}

// GetSetting retrieves a setting value by key
func (db *DB) GetSetting(key string) (string, error) {
	var value string
	err := db.QueryRow("SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

// SetSetting sets a setting value
func (db *DB) SetSetting(key, value string) error {
	_, err := db.Exec(`
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

// SelectedSite returns the saved site, or the first available site when
// nothing valid has been saved
func (db *DB) SelectedSite() (string, error) {
	site, err := db.GetSetting(KeySelectedSite)
	if err != nil {
		return models.AvailableSites[0], err
	}
	if !models.IsAvailableSite(site) {
		return models.AvailableSites[0], nil
	}
	return site, nil
}

// SetSelectedSite saves the site picker choice
func (db *DB) SetSelectedSite(site string) error {
	return db.SetSetting(KeySelectedSite, site)
}
