package infrastructure

import (
	"context"
	"errors"
	"testing"
	"time"

	"aidanwoods.dev/go-paseto/v2"
	"github.com/architeacher/svc-broker-link/internal/config"
	"github.com/hashicorp/vault/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	testPublicKeyHex = "01c7981f62c676934dc4acfa7825205ae927960875d09abec497efbe2dba41b7"
	testKeyPath      = "secret/data/paseto/public-key"
)

type MockSecretsRepository struct {
	mock.Mock
}

func (m *MockSecretsRepository) SetToken(v string) {
	m.Called(v)
}

func (m *MockSecretsRepository) GetSecrets(ctx context.Context, path string) (*api.Secret, error) {
	args := m.Called(ctx, path)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*api.Secret), args.Error(1)
}

func (m *MockSecretsRepository) WriteWithContext(ctx context.Context, path string, data map[string]any) (*api.Secret, error) {
	args := m.Called(ctx, path, data)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*api.Secret), args.Error(1)
}

func vaultAuthConfig() config.AuthConfig {
	return config.AuthConfig{
		UseVaultKeys:   true,
		PasetoKeyPath:  testKeyPath,
		KeyCacheTTL:    time.Hour,
		FallbackKeyHex: testPublicKeyHex,
	}
}

func keySecret(hexKey, version string) *api.Secret {
	return &api.Secret{
		Data: map[string]any{
			"data": map[string]any{
				"public_key": hexKey,
				"version":    version,
			},
		},
	}
}

func TestPasetoKeyService_VaultDisabled(t *testing.T) {
	t.Parallel()

	repo := new(MockSecretsRepository)
	service := NewPasetoKeyService(config.AuthConfig{FallbackKeyHex: testPublicKeyHex}, repo, NewTestLogger())

	key, err := service.GetPublicKey(context.Background())

	require.NoError(t, err)
	assert.Equal(t, testPublicKeyHex, key.ExportHex())
	assert.Equal(t, fallbackKeyVersion, service.KeyVersion())
	require.NoError(t, service.RefreshKey(context.Background()))
	repo.AssertNotCalled(t, "GetSecrets", mock.Anything, mock.Anything)
}

func TestPasetoKeyService_CachesVaultKey(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := new(MockSecretsRepository)
	repo.On("GetSecrets", ctx, testKeyPath).Return(keySecret(testPublicKeyHex, "v3"), nil).Once()

	service := NewPasetoKeyService(vaultAuthConfig(), repo, NewTestLogger())

	first, err := service.GetPublicKey(ctx)
	require.NoError(t, err)

	second, err := service.GetPublicKey(ctx)
	require.NoError(t, err)

	assert.Equal(t, first.ExportHex(), second.ExportHex())
	assert.Equal(t, "v3", service.KeyVersion())
	repo.AssertExpectations(t)
}

func TestPasetoKeyService_ReloadsAfterTTL(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := new(MockSecretsRepository)
	repo.On("GetSecrets", ctx, testKeyPath).Return(keySecret(testPublicKeyHex, "v1"), nil).Twice()

	service := NewPasetoKeyService(vaultAuthConfig(), repo, NewTestLogger())

	now := time.Now()
	service.now = func() time.Time { return now }

	_, err := service.GetPublicKey(ctx)
	require.NoError(t, err)

	now = now.Add(2 * time.Hour)

	_, err = service.GetPublicKey(ctx)
	require.NoError(t, err)

	repo.AssertExpectations(t)
}

func TestPasetoKeyService_RefreshKeyBypassesCache(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := new(MockSecretsRepository)
	repo.On("GetSecrets", ctx, testKeyPath).Return(keySecret(testPublicKeyHex, "v1"), nil).Once()
	repo.On("GetSecrets", ctx, testKeyPath).Return(keySecret(testPublicKeyHex, "v2"), nil).Once()

	service := NewPasetoKeyService(vaultAuthConfig(), repo, NewTestLogger())

	_, err := service.GetPublicKey(ctx)
	require.NoError(t, err)
	require.NoError(t, service.RefreshKey(ctx))

	assert.Equal(t, "v2", service.KeyVersion())
	repo.AssertExpectations(t)
}

func TestPasetoKeyService_FallsBackOnBadVaultResponse(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		secret *api.Secret
		err    error
	}{
		{name: "vault error", err: errors.New("vault connection error")},
		{name: "nil secret"},
		{name: "nil data", secret: &api.Secret{}},
		{name: "missing kv wrapper", secret: &api.Secret{Data: map[string]any{"public_key": testPublicKeyHex}}},
		{name: "empty key", secret: keySecret("", "v1")},
		{name: "invalid hex", secret: keySecret("invalid-hex", "v1")},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ctx := context.Background()
			repo := new(MockSecretsRepository)

			if tc.secret == nil {
				repo.On("GetSecrets", ctx, testKeyPath).Return(nil, tc.err)
			} else {
				repo.On("GetSecrets", ctx, testKeyPath).Return(tc.secret, tc.err)
			}

			service := NewPasetoKeyService(vaultAuthConfig(), repo, NewTestLogger())

			key, err := service.GetPublicKey(ctx)

			require.NoError(t, err)
			assert.Equal(t, testPublicKeyHex, key.ExportHex())
			assert.Equal(t, fallbackKeyVersion, service.KeyVersion())
		})
	}
}

func TestPasetoKeyService_InvalidFallbackKey(t *testing.T) {
	t.Parallel()

	service := NewPasetoKeyService(config.AuthConfig{FallbackKeyHex: "invalid-hex-key"}, new(MockSecretsRepository), NewTestLogger())

	key, err := service.GetPublicKey(context.Background())

	require.Error(t, err)
	assert.Equal(t, paseto.V4AsymmetricPublicKey{}, key)
}
