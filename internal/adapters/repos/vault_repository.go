package repos

import (
	"context"
	"fmt"

	"github.com/architeacher/svc-broker-link/internal/config"
	"github.com/hashicorp/vault/api"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/architeacher/svc-broker-link/internal/adapters/repos"

type (
	VaultRepository struct {
		vaultClient *api.Client
		tracer      trace.Tracer
	}
)

// NewVaultClient builds a client for the configured secret storage.
func NewVaultClient(cfg config.SecretStorageConfig) (*api.Client, error) {
	vaultConfig := api.DefaultConfig()
	vaultConfig.Address = cfg.Address
	vaultConfig.Timeout = cfg.Timeout
	vaultConfig.MaxRetries = cfg.MaxRetries

	if cfg.TLSSkipVerify {
		if err := vaultConfig.ConfigureTLS(&api.TLSConfig{Insecure: true}); err != nil {
			return nil, fmt.Errorf("failed to configure TLS: %w", err)
		}
	}

	client, err := api.NewClient(vaultConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Vault client: %w", err)
	}

	if cfg.Namespace != "" {
		client.SetNamespace(cfg.Namespace)
	}

	return client, nil
}

func NewVaultRepository(vaultClient *api.Client) *VaultRepository {
	return &VaultRepository{
		vaultClient: vaultClient,
		tracer:      otel.Tracer(tracerName),
	}
}

func (r *VaultRepository) SetToken(v string) {
	r.vaultClient.SetToken(v)
}

// GetSecrets reads a logical path. A missing path yields a nil secret and no error.
func (r *VaultRepository) GetSecrets(ctx context.Context, path string) (*api.Secret, error) {
	ctx, span := r.start(ctx, "vault.read", path)
	defer span.End()

	secret, err := r.vaultClient.Logical().ReadWithContext(ctx, path)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "read failed")

		return nil, fmt.Errorf("vault read %s: %w", path, err)
	}

	return secret, nil
}

func (r *VaultRepository) WriteWithContext(ctx context.Context, path string, data map[string]any) (*api.Secret, error) {
	ctx, span := r.start(ctx, "vault.write", path)
	defer span.End()

	secret, err := r.vaultClient.Logical().WriteWithContext(ctx, path, data)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "write failed")

		return nil, fmt.Errorf("vault write %s: %w", path, err)
	}

	return secret, nil
}

func (r *VaultRepository) start(ctx context.Context, name, path string) (context.Context, trace.Span) {
	return r.tracer.Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("vault.path", path)),
	)
}
