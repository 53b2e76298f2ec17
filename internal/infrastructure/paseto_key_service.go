package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"aidanwoods.dev/go-paseto/v2"
	"github.com/architeacher/svc-broker-link/internal/config"
	"github.com/architeacher/svc-broker-link/internal/ports"
)

const (
	vaultKeyField        = "public_key"
	vaultKeyVersionField = "version"
	fallbackKeyVersion   = "fallback"
)

var errInvalidKeySecret = errors.New("invalid PASETO key secret")

type (
	// PasetoKeyService resolves the public key used to verify bearer tokens on the send endpoint.
	// Keys come from Vault and are cached for the configured TTL; the configured fallback key
	// is used when Vault keys are disabled or unreadable.
	PasetoKeyService struct {
		config      config.AuthConfig
		secretsRepo ports.SecretsRepository
		logger      Logger

		mu        sync.RWMutex
		cached    *paseto.V4AsymmetricPublicKey
		version   string
		expiresAt time.Time
		now       func() time.Time
	}
)

func NewPasetoKeyService(
	cfg config.AuthConfig,
	secretsRepo ports.SecretsRepository,
	logger Logger,
) *PasetoKeyService {
	return &PasetoKeyService{
		config:      cfg,
		secretsRepo: secretsRepo,
		logger:      logger.WithComponent("paseto_keys"),
		now:         time.Now,
	}
}

func (s *PasetoKeyService) GetPublicKey(ctx context.Context) (paseto.V4AsymmetricPublicKey, error) {
	if !s.config.UseVaultKeys {
		return s.fallbackKey()
	}

	if key, ok := s.cachedKey(); ok {
		return key, nil
	}

	return s.reload(ctx, false)
}

// RefreshKey drops the cached key and reads it from Vault again.
func (s *PasetoKeyService) RefreshKey(ctx context.Context) error {
	if !s.config.UseVaultKeys {
		return nil
	}

	_, err := s.reload(ctx, true)

	return err
}

// KeyVersion reports the version of the key currently in use.
func (s *PasetoKeyService) KeyVersion() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.cached == nil {
		return fallbackKeyVersion
	}

	return s.version
}

func (s *PasetoKeyService) cachedKey() (paseto.V4AsymmetricPublicKey, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.cached == nil || !s.now().Before(s.expiresAt) {
		return paseto.V4AsymmetricPublicKey{}, false
	}

	return *s.cached, true
}

func (s *PasetoKeyService) reload(ctx context.Context, force bool) (paseto.V4AsymmetricPublicKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Another caller may have refreshed the key while this one waited for the lock.
	if !force && s.cached != nil && s.now().Before(s.expiresAt) {
		return *s.cached, nil
	}

	key, version, err := s.readVaultKey(ctx)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("path", s.config.PasetoKeyPath).
			Msg("unable to read PASETO key from Vault, using fallback key")

		return s.fallbackKey()
	}

	s.cached = &key
	s.version = version
	s.expiresAt = s.now().Add(s.config.KeyCacheTTL)

	s.logger.Info().
		Str("key_version", version).
		Dur("cache_ttl", s.config.KeyCacheTTL).
		Msg("PASETO public key loaded from Vault")

	return key, nil
}

func (s *PasetoKeyService) readVaultKey(ctx context.Context) (paseto.V4AsymmetricPublicKey, string, error) {
	secret, err := s.secretsRepo.GetSecrets(ctx, s.config.PasetoKeyPath)
	if err != nil {
		return paseto.V4AsymmetricPublicKey{}, "", fmt.Errorf("reading %s: %w", s.config.PasetoKeyPath, err)
	}

	if secret == nil || secret.Data == nil {
		return paseto.V4AsymmetricPublicKey{}, "", fmt.Errorf("%w: empty secret", errInvalidKeySecret)
	}

	// KV v2 nests the payload under "data".
	data, ok := secret.Data["data"].(map[string]any)
	if !ok {
		return paseto.V4AsymmetricPublicKey{}, "", fmt.Errorf("%w: missing data map", errInvalidKeySecret)
	}

	hexKey, _ := data[vaultKeyField].(string)
	if hexKey == "" {
		return paseto.V4AsymmetricPublicKey{}, "", fmt.Errorf("%w: %s is empty", errInvalidKeySecret, vaultKeyField)
	}

	version, _ := data[vaultKeyVersionField].(string)
	if version == "" {
		version = "unknown"
	}

	key, err := paseto.NewV4AsymmetricPublicKeyFromHex(hexKey)
	if err != nil {
		return paseto.V4AsymmetricPublicKey{}, "", fmt.Errorf("%w: %w", errInvalidKeySecret, err)
	}

	return key, version, nil
}

func (s *PasetoKeyService) fallbackKey() (paseto.V4AsymmetricPublicKey, error) {
	key, err := paseto.NewV4AsymmetricPublicKeyFromHex(s.config.FallbackKeyHex)
	if err != nil {
		return paseto.V4AsymmetricPublicKey{}, fmt.Errorf("failed to parse fallback PASETO public key: %w", err)
	}

	s.logger.Debug().Msg("using fallback PASETO public key")

	return key, nil
}
