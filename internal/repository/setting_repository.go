package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/fernet/fernet-go"

	"github.com/fundval/fundval-backend/internal/apperrors"
)

// SettingRepository provides data access methods for the system_setting
// table. Values stored through SetSecret are fernet-encrypted at rest;
// a repository constructed without a key can only handle plain values.
type SettingRepository struct {
	db  DBTX
	key *fernet.Key
}

// NewSettingRepository creates a new SettingRepository. fernetKey is the
// base64-encoded key used for secret values; pass "" to disable secrets.
func NewSettingRepository(db *sql.DB, fernetKey string) (*SettingRepository, error) {
	repo := &SettingRepository{db: db}
	if fernetKey != "" {
		key, err := fernet.DecodeKey(fernetKey)
		if err != nil {
			return nil, fmt.Errorf("failed to decode settings key: %w", err)
		}
		repo.key = key
	}
	return repo, nil
}

// Get returns the value of a setting, decrypting it when it was stored
// as a secret. Returns apperrors.ErrSettingNotFound for unknown keys.
func (s *SettingRepository) Get(key string) (string, error) {
	var value string
	var encrypted bool
	err := s.db.QueryRow(`SELECT value, encrypted FROM system_setting WHERE "key" = ?`, key).
		Scan(&value, &encrypted)
	if err == sql.ErrNoRows {
		return "", apperrors.ErrSettingNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to query setting: %w", err)
	}

	if !encrypted {
		return value, nil
	}
	if s.key == nil {
		return "", fmt.Errorf("setting %q is encrypted but no settings key is configured", key)
	}

	plain := fernet.VerifyAndDecrypt([]byte(value), 0, []*fernet.Key{s.key})
	if plain == nil {
		return "", fmt.Errorf("failed to decrypt setting %q", key)
	}
	return string(plain), nil
}

// Set stores a plain setting value.
func (s *SettingRepository) Set(key, value string) error {
	return s.put(key, value, false)
}

// SetSecret stores a setting value encrypted with the configured key.
func (s *SettingRepository) SetSecret(key, value string) error {
	if s.key == nil {
		return fmt.Errorf("no settings key configured")
	}
	tok, err := fernet.EncryptAndSign([]byte(value), s.key)
	if err != nil {
		return fmt.Errorf("failed to encrypt setting %q: %w", key, err)
	}
	return s.put(key, string(tok), true)
}

func (s *SettingRepository) put(key, value string, encrypted bool) error {
	_, err := s.db.Exec(`
		INSERT INTO system_setting ("key", value, encrypted, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT("key") DO UPDATE SET
			value = excluded.value,
			encrypted = excluded.encrypted,
			updated_at = excluded.updated_at
	`, key, value, encrypted, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to store setting: %w", err)
	}
	return nil
}
