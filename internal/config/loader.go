package config

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/architeacher/svc-broker-link/internal/ports"
	"github.com/kelseyhightower/envconfig"
)

// Init reads the service configuration from the environment and overlays the
// broker properties file when BROKER_PROPERTIES_FILE points at one.
func Init() (*ServiceConfig, error) {
	cfg := &ServiceConfig{}

	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("unable to parse service configuration: %w", err)
	}

	if cfg.Broker.PropertiesFile != "" {
		props, err := LoadProperties(cfg.Broker.PropertiesFile)
		if err != nil {
			return nil, err
		}

		if err := cfg.Broker.ApplyProperties(props); err != nil {
			return nil, err
		}
	}

	stampBuildInfo(&cfg.AppConfig)

	return cfg, nil
}

func stampBuildInfo(app *AppConfig) {
	if ServiceVersion != "" {
		app.ServiceVersion = ServiceVersion
	}

	if CommitSHA != "" {
		app.CommitSHA = CommitSHA
	}

	if APIVersion != "" {
		app.APIVersion = APIVersion
	}
}

// Loader owns the live ServiceConfig once secrets have been layered on top of
// it. Writers hold mu; the broker snapshots are what long-lived components read.
type Loader struct {
	mu      sync.RWMutex
	cfg     *ServiceConfig
	secrets ports.SecretsRepository
	version uint

	signals chan os.Signal
	status  chan error
	dumpTo  io.Writer
}

func NewLoader(cfg *ServiceConfig, secrets ports.SecretsRepository, version uint) *Loader {
	return &Loader{
		cfg:     cfg,
		secrets: secrets,
		version: version,
		signals: make(chan os.Signal, 1),
		status:  make(chan error, 1),
		dumpTo:  os.Stdout,
	}
}

// Broker returns a copy of the current broker settings.
func (l *Loader) Broker() BrokerConfig {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.cfg.Broker
}

// Management returns a copy of the current management API settings.
func (l *Loader) Management() ManagementConfig {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.cfg.Management
}

// Version is the secret version the config was last loaded from.
func (l *Loader) Version() uint {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.version
}

// Load authenticates against the secret store, applies the stored secrets and
// returns the secret version they came from.
func (l *Loader) Load(ctx context.Context) (uint, error) {
	storage := l.cfg.SecretStorage
	if !storage.Enabled {
		return 0, fmt.Errorf("secret storage is not enabled")
	}

	if err := authenticate(ctx, l.secrets, storage); err != nil {
		return 0, fmt.Errorf("failed to authenticate with Vault: %w", err)
	}

	doc, err := fetchSecretDocument(ctx, l.secrets, storage)
	if err != nil {
		return 0, fmt.Errorf("failed to load secrets from Vault: %w", err)
	}

	version, err := doc.version()
	if err != nil {
		return 0, fmt.Errorf("failed to get secret version: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := applySecrets(l.cfg, doc.data); err != nil {
		return 0, fmt.Errorf("failed to apply secrets to config: %w", err)
	}

	l.version = version

	return version, nil
}

// WatchConfigSignals reloads on SIGHUP or on the poll interval and dumps the
// config on SIGUSR1. The returned channel carries the outcome of each reload
// that found a new secret version; it is closed when ctx is done.
func (l *Loader) WatchConfigSignals(ctx context.Context) <-chan error {
	signal.Notify(l.signals, syscall.SIGHUP, syscall.SIGUSR1)

	var (
		ticker *time.Ticker
		poll   <-chan time.Time
	)

	if interval := l.cfg.SecretStorage.PollInterval; l.cfg.SecretStorage.Enabled && interval > 0 {
		ticker = time.NewTicker(interval)
		poll = ticker.C
	}

	go func() {
		defer close(l.status)
		defer signal.Stop(l.signals)

		if ticker != nil {
			defer ticker.Stop()
		}

		for {
			select {
			case <-ctx.Done():
				return
			case <-poll:
				l.reload(ctx)
			case sig := <-l.signals:
				switch sig {
				case syscall.SIGHUP:
					l.reload(ctx)
				case syscall.SIGUSR1:
					l.DumpConfig()
				}
			}
		}
	}()

	return l.status
}

// DumpConfig writes the current configuration as indented JSON.
func (l *Loader) DumpConfig() {
	l.mu.RLock()
	out, err := json.MarshalIndent(l.cfg, "", "  ")
	l.mu.RUnlock()

	if err != nil {
		fmt.Fprintf(l.dumpTo, "Error marshaling config: %v\n", err)

		return
	}

	fmt.Fprintf(l.dumpTo, "\n=== Configuration Dump ===\n%s\n=== End Configuration ===\n\n", out)
}

func (l *Loader) reload(ctx context.Context) {
	if !l.cfg.SecretStorage.Enabled {
		return
	}

	doc, err := fetchSecretDocument(ctx, l.secrets, l.cfg.SecretStorage)
	if err != nil {
		l.report(fmt.Errorf("failed to load secret metadata: %w", err))

		return
	}

	latest, err := doc.version()
	if err != nil {
		l.report(fmt.Errorf("failed to get secret version: %w", err))

		return
	}

	if latest == l.Version() {
		return
	}

	if _, err := l.Load(ctx); err != nil {
		l.report(err)

		return
	}

	l.report(nil)
}

// report never blocks; a reload outcome nobody is waiting for is dropped.
func (l *Loader) report(err error) {
	select {
	case l.status <- err:
	default:
	}
}
