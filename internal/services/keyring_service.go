package services

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/99designs/keyring"
	"github.com/pkg/errors"
)

const serviceName = "chatvault"

// SecretStore keeps values that must not be written to the database.
type SecretStore interface {
	Set(key string, value []byte) error
	Get(key string) ([]byte, error)
	Delete(key string) error
}

var ErrSecretNotFound = errors.New("secret not found")

const (
	KeyringBackendSystem = "system"
	KeyringBackendFile   = "file"
	KeyringBackendMemory = "memory"
)

type KeyringConfig struct {
	Backend  string
	FileDir  string
	Password string
}

// OpenKeyring opens the configured keyring backend.
func OpenKeyring(cfg KeyringConfig) (keyring.Keyring, error) {
	switch strings.ToLower(cfg.Backend) {
	case KeyringBackendMemory:
		return keyring.NewArrayKeyring(nil), nil
	case KeyringBackendFile:
		dir := cfg.FileDir
		if dir == "" {
			configDir, err := os.UserConfigDir()
			if err != nil {
				return nil, errors.Wrap(err, "resolve keyring dir")
			}
			dir = filepath.Join(configDir, serviceName, "keyring")
		}
		password := cfg.Password
		return keyring.Open(keyring.Config{
			ServiceName:      serviceName,
			AllowedBackends:  []keyring.BackendType{keyring.FileBackend},
			FileDir:          dir,
			FilePasswordFunc: keyring.FixedStringPrompt(password),
		})
	case "", KeyringBackendSystem:
		return keyring.Open(keyring.Config{
			ServiceName: serviceName,
			AllowedBackends: []keyring.BackendType{
				keyring.KeychainBackend,
				keyring.WinCredBackend,
				keyring.SecretServiceBackend,
				keyring.KWalletBackend,
			},
		})
	default:
		return nil, errors.Errorf("unknown keyring backend %q", cfg.Backend)
	}
}

type KeyringService struct {
	ring keyring.Keyring
}

func NewKeyringService(ring keyring.Keyring) *KeyringService {
	return &KeyringService{ring: ring}
}

func (s *KeyringService) Set(key string, value []byte) error {
	if key == "" {
		return errors.New("secret key is required")
	}
	if len(value) == 0 {
		return errors.New("secret is empty")
	}
	return s.ring.Set(keyring.Item{
		Key:   key,
		Data:  value,
		Label: serviceName + " " + key,
	})
}

func (s *KeyringService) Get(key string) ([]byte, error) {
	item, err := s.ring.Get(key)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return nil, errors.Wrap(ErrSecretNotFound, key)
	}
	if err != nil {
		return nil, err
	}
	return item.Data, nil
}

func (s *KeyringService) Delete(key string) error {
	err := s.ring.Remove(key)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return nil
	}
	return err
}
