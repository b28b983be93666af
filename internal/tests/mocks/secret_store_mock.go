package mocks

import "chatvault/internal/services"

// SecretStoreMock keeps secrets in memory unless a Func override is set.
type SecretStoreMock struct {
	SetFunc    func(key string, value []byte) error
	GetFunc    func(key string) ([]byte, error)
	DeleteFunc func(key string) error

	Secrets map[string][]byte
}

func (m *SecretStoreMock) Set(key string, value []byte) error {
	if m.SetFunc != nil {
		return m.SetFunc(key, value)
	}
	if m.Secrets == nil {
		m.Secrets = map[string][]byte{}
	}
	m.Secrets[key] = value
	return nil
}

func (m *SecretStoreMock) Get(key string) ([]byte, error) {
	if m.GetFunc != nil {
		return m.GetFunc(key)
	}
	value, ok := m.Secrets[key]
	if !ok {
		return nil, services.ErrSecretNotFound
	}
	return value, nil
}

func (m *SecretStoreMock) Delete(key string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(key)
	}
	delete(m.Secrets, key)
	return nil
}
