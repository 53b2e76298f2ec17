package config

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/architeacher/svc-broker-link/internal/ports"
	"github.com/hashicorp/vault/api"
)

// secretBindings maps the flat keys stored in Vault onto the config fields
// they override. Keys outside this table are exported to the environment only.
var secretBindings = map[string]func(cfg *ServiceConfig, value string){
	"BROKER_HOST":                     func(cfg *ServiceConfig, v string) { cfg.Broker.Host = v },
	"BROKER_USERNAME":                 func(cfg *ServiceConfig, v string) { cfg.Broker.Username = v },
	"BROKER_PASSWORD":                 func(cfg *ServiceConfig, v string) { cfg.Broker.Password = v },
	"BROKER_SSL_TRUST_STORE_PASSWORD": func(cfg *ServiceConfig, v string) { cfg.Broker.TLS.TrustStorePassword = v },
	"BROKER_SSL_KEY_STORE_PASSWORD":   func(cfg *ServiceConfig, v string) { cfg.Broker.TLS.KeyStorePassword = v },
	"BROKER_MANAGEMENT_PASSWORD":      func(cfg *ServiceConfig, v string) { cfg.Management.Password = v },
	"AUTH_SECRET_KEY":                 func(cfg *ServiceConfig, v string) { cfg.Auth.SecretKey = v },
}

// secretDocument is a KV v2 read: the stored key/value pairs plus the
// metadata block describing which version was served.
type secretDocument struct {
	data     map[string]any
	metadata map[string]any
}

func (d secretDocument) version() (uint, error) {
	if d.metadata == nil {
		return 0, nil
	}

	raw, ok := d.metadata["current_version"]
	if !ok {
		if raw, ok = d.metadata["version"]; !ok {
			return 0, nil
		}
	}

	switch v := raw.(type) {
	case float64:
		return uint(v), nil
	case uint:
		return v, nil
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, fmt.Errorf("failed to parse version: %w", err)
		}

		return uint(n), nil
	default:
		return 0, fmt.Errorf("unexpected version type: %T", raw)
	}
}

func secretPath(storage SecretStorageConfig) string {
	return "apps/data/" + storage.MountPath
}

func authenticate(ctx context.Context, repo ports.SecretsRepository, storage SecretStorageConfig) error {
	switch strings.ToLower(storage.AuthMethod) {
	case "token":
		if storage.Token == "" {
			return fmt.Errorf("token is required for token auth method")
		}

		repo.SetToken(storage.Token)

		return nil

	case "approle":
		if storage.RoleID == "" || storage.SecretID == "" {
			return fmt.Errorf("role_id and secret_id are required for approle auth method")
		}

		resp, err := repo.WriteWithContext(ctx, "auth/approle/login", map[string]any{
			"role_id":   storage.RoleID,
			"secret_id": storage.SecretID,
		})
		if err != nil {
			return fmt.Errorf("failed to authenticate via approle: %w", err)
		}

		if resp == nil || resp.Auth == nil {
			return fmt.Errorf("no auth info returned from Vault")
		}

		repo.SetToken(resp.Auth.ClientToken)

		return nil

	default:
		return fmt.Errorf("unsupported auth method: %s", storage.AuthMethod)
	}
}

// fetchSecretDocument reads the mount path with linear retry pacing, bounded
// by the storage timeout.
func fetchSecretDocument(ctx context.Context, repo ports.SecretsRepository, storage SecretStorageConfig) (secretDocument, error) {
	path := secretPath(storage)

	if storage.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, storage.Timeout)
		defer cancel()
	}

	var (
		secret *api.Secret
		err    error
	)

	for attempt := 0; ; attempt++ {
		secret, err = repo.GetSecrets(ctx, path)
		if err == nil || attempt >= storage.MaxRetries {
			break
		}

		select {
		case <-ctx.Done():
			return secretDocument{}, fmt.Errorf("failed to read from path %s: %w", path, ctx.Err())
		case <-time.After(time.Duration(attempt+1) * time.Second):
		}
	}

	if err != nil {
		return secretDocument{}, fmt.Errorf("failed to read from path %s after %d retries: %w", path, storage.MaxRetries, err)
	}

	if secret == nil || secret.Data == nil {
		return secretDocument{}, nil
	}

	data, ok := secret.Data["data"].(map[string]any)
	if !ok {
		return secretDocument{}, fmt.Errorf("invalid secret format at path %s, missing 'data' key", path)
	}

	metadata, _ := secret.Data["metadata"].(map[string]any)

	return secretDocument{data: data, metadata: metadata}, nil
}

// applySecrets exports every non-empty string secret to the environment and
// applies the bound ones to cfg.
func applySecrets(cfg *ServiceConfig, data map[string]any) error {
	for key, value := range data {
		s, ok := value.(string)
		if !ok || s == "" {
			continue
		}

		if err := os.Setenv(key, s); err != nil {
			return fmt.Errorf("failed to set environment variable %s: %w", key, err)
		}

		if bind, ok := secretBindings[key]; ok {
			bind(cfg, s)
		}
	}

	return nil
}
