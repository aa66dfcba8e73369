package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Record keys as laid out on the device.
const (
	KeyMasterConfig = "AdminData"
	KeyLoginToken   = "LoginTokenData"
	KeyMpinToken    = "mPinTokenData"
	KeyAppVersion   = "AppVersion"
	KeyFCMToken     = "FCMToken"
	KeyLanguage     = "Language"
)

const (
	defaultAppVersion = "1.0.0"
	defaultLanguage   = "en"
)

var (
	// ErrCorruptRecord is returned when a stored record cannot be decoded.
	ErrCorruptRecord = errors.New("corrupt session record")
	// ErrUnknownEngine is returned for an unsupported storage engine name.
	ErrUnknownEngine = errors.New("unknown session store engine")
)

// Engine names accepted by the infra factory.
const (
	EngineMemory   = "memory"
	EngineSQLite   = "sqlite"
	EngineRedis    = "redis"
	EnginePostgres = "postgres"
)

// KV is a durable byte-level key/value engine. Get reports a missing key with
// ok=false and a nil error. Delete removes every listed key in one atomic
// operation and ignores keys that do not exist.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, keys ...string) error
	Ping(ctx context.Context) error
	Close() error
}

// Store persists the session records and small client settings.
type Store interface {
	PrimarySession(ctx context.Context) (PrimarySession, bool, error)
	SetPrimarySession(ctx context.Context, p PrimarySession) error
	ElevatedSession(ctx context.Context) (ElevatedSession, bool, error)
	SetElevatedSession(ctx context.Context, e ElevatedSession) error
	ClearPrimaryAndElevated(ctx context.Context) error
	ClearElevated(ctx context.Context) error
	MasterConfig(ctx context.Context) (MasterConfig, bool, error)
	SetMasterConfig(ctx context.Context, c MasterConfig) error

	FCMToken(ctx context.Context) (string, error)
	SetFCMToken(ctx context.Context, token string) error
	AppVersion(ctx context.Context) (string, error)
	SetAppVersion(ctx context.Context, version string) error
	Language(ctx context.Context) (string, error)
	SetLanguage(ctx context.Context, language string) error

	Ping(ctx context.Context) error
}

type kvStore struct {
	kv KV
}

// NewStore builds a Store that encodes records as JSON on top of kv.
func NewStore(kv KV) Store {
	return &kvStore{kv: kv}
}

func (s *kvStore) PrimarySession(ctx context.Context) (PrimarySession, bool, error) {
	var p PrimarySession
	ok, err := s.getJSON(ctx, KeyLoginToken, &p)
	if err != nil || !ok || !p.Present() {
		return PrimarySession{}, false, err
	}
	return p, true, nil
}

func (s *kvStore) SetPrimarySession(ctx context.Context, p PrimarySession) error {
	if !p.Present() {
		return fmt.Errorf("set %s: empty user token", KeyLoginToken)
	}
	return s.setJSON(ctx, KeyLoginToken, p)
}

func (s *kvStore) ElevatedSession(ctx context.Context) (ElevatedSession, bool, error) {
	var e ElevatedSession
	ok, err := s.getJSON(ctx, KeyMpinToken, &e)
	if err != nil || !ok || !e.Present() {
		return ElevatedSession{}, false, err
	}
	if e.Banners == nil {
		e.Banners = []Banner{}
	}
	return e, true, nil
}

func (s *kvStore) SetElevatedSession(ctx context.Context, e ElevatedSession) error {
	if !e.Present() {
		return fmt.Errorf("set %s: empty pin token", KeyMpinToken)
	}
	return s.setJSON(ctx, KeyMpinToken, e)
}

func (s *kvStore) ClearPrimaryAndElevated(ctx context.Context) error {
	if err := s.kv.Delete(ctx, KeyLoginToken, KeyMpinToken); err != nil {
		return fmt.Errorf("clear login session: %w", err)
	}
	return nil
}

func (s *kvStore) ClearElevated(ctx context.Context) error {
	if err := s.kv.Delete(ctx, KeyMpinToken); err != nil {
		return fmt.Errorf("clear mpin session: %w", err)
	}
	return nil
}

func (s *kvStore) MasterConfig(ctx context.Context) (MasterConfig, bool, error) {
	var c MasterConfig
	ok, err := s.getJSON(ctx, KeyMasterConfig, &c)
	if err != nil || !ok || c == nil {
		return nil, false, err
	}
	return c, true, nil
}

func (s *kvStore) SetMasterConfig(ctx context.Context, c MasterConfig) error {
	return s.setJSON(ctx, KeyMasterConfig, c)
}

func (s *kvStore) FCMToken(ctx context.Context) (string, error) {
	return s.getString(ctx, KeyFCMToken, "")
}

func (s *kvStore) SetFCMToken(ctx context.Context, token string) error {
	return s.setString(ctx, KeyFCMToken, token)
}

func (s *kvStore) AppVersion(ctx context.Context) (string, error) {
	return s.getString(ctx, KeyAppVersion, defaultAppVersion)
}

func (s *kvStore) SetAppVersion(ctx context.Context, version string) error {
	return s.setString(ctx, KeyAppVersion, version)
}

func (s *kvStore) Language(ctx context.Context) (string, error) {
	return s.getString(ctx, KeyLanguage, defaultLanguage)
}

func (s *kvStore) SetLanguage(ctx context.Context, language string) error {
	return s.setString(ctx, KeyLanguage, language)
}

func (s *kvStore) Ping(ctx context.Context) error {
	return s.kv.Ping(ctx)
}

func (s *kvStore) getJSON(ctx context.Context, key string, dst any) (bool, error) {
	raw, ok, err := s.kv.Get(ctx, key)
	if err != nil {
		return false, fmt.Errorf("get %s: %w", key, err)
	}
	if !ok || len(raw) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("decode %s: %w: %v", key, ErrCorruptRecord, err)
	}
	return true, nil
}

func (s *kvStore) setJSON(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := s.kv.Set(ctx, key, raw); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

func (s *kvStore) getString(ctx context.Context, key, fallback string) (string, error) {
	raw, ok, err := s.kv.Get(ctx, key)
	if err != nil {
		return fallback, fmt.Errorf("get %s: %w", key, err)
	}
	if !ok || len(raw) == 0 {
		return fallback, nil
	}
	return string(raw), nil
}

func (s *kvStore) setString(ctx context.Context, key, value string) error {
	if err := s.kv.Set(ctx, key, []byte(value)); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}
