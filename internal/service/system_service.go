package service

import (
	"database/sql"

	"github.com/fundval/fundval-backend/internal/database"
	"github.com/fundval/fundval-backend/internal/repository"
	"github.com/fundval/fundval-backend/internal/version"
)

// SystemService handles system-related operations
type SystemService struct {
	db       *sql.DB
	settings *repository.SettingRepository
}

// NewSystemService creates a new SystemService
func NewSystemService(db *sql.DB, settings *repository.SettingRepository) *SystemService {
	return &SystemService{
		db:       db,
		settings: settings,
	}
}

// CheckHealth checks the health of the system
func (s *SystemService) CheckHealth() error {
	return database.HealthCheck(s.db)
}

func (s *SystemService) CheckVersion() string {
	return version.Version
}

// GetSetting returns the value of a system setting, decrypted when it
// was stored as a secret.
func (s *SystemService) GetSetting(key string) (string, error) {
	return s.settings.Get(key)
}

// SetSetting stores a system setting, encrypted at rest when secret is
// true.
func (s *SystemService) SetSetting(key, value string, secret bool) error {
	if secret {
		return s.settings.SetSecret(key, value)
	}
	return s.settings.Set(key, value)
}
