package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/evcc-io/cdrive/api"
	"github.com/evcc-io/cdrive/util"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Record is the persisted auth blob of an account
type Record struct {
	AccountID string `gorm:"primaryKey"`
	Blob      []byte
	Updated   time.Time
}

// Store persists auth blobs in sqlite
type Store struct {
	db *gorm.DB
}

// Open opens or creates the token database
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: &adapter{log: util.NewLogger("db")},
	})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&Record{}); err != nil {
		return nil, err
	}

	return &Store{db: db}, nil
}

// Load returns the blob for account or api.ErrNotFound
func (s *Store) Load(account string) ([]byte, error) {
	var rec Record

	tx := s.db.First(&rec, "account_id = ?", account)
	if errors.Is(tx.Error, gorm.ErrRecordNotFound) {
		return nil, api.ErrNotFound
	}

	return rec.Blob, tx.Error
}

// Save writes the blob for account. Last writer wins.
func (s *Store) Save(account string, blob []byte) error {
	rec := Record{
		AccountID: account,
		Blob:      blob,
		Updated:   time.Now(),
	}

	tx := s.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&rec)
	return tx.Error
}

// Delete removes the blob for account
func (s *Store) Delete(account string) error {
	return s.db.Delete(&Record{}, "account_id = ?", account).Error
}

// Close closes the database
func (s *Store) Close() error {
	db, err := s.db.DB()
	if err != nil {
		return err
	}
	return db.Close()
}
