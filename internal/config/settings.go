package config

import (
	"time"
)

// Compile time variables are set by -ldflags.
var (
	ServiceVersion string
	CommitSHA      string
	APIVersion     string
)

type (
	ServiceConfig struct {
		AppConfig             AppConfig                   `json:"app_config"`
		Logging               LoggingConfig               `json:"logging"`
		Telemetry             Telemetry                   `json:"telemetry"`
		SecretStorage         SecretStorageConfig         `json:"secret_storage"`
		HTTPServer            HTTPServerConfig            `json:"http_server"`
		Broker                BrokerConfig                `json:"broker"`
		Scheduler             SchedulerConfig             `json:"scheduler"`
		Management            ManagementConfig            `json:"management"`
		Producer              ProducerConfig              `json:"producer"`
		Consumer              ConsumerConfig              `json:"consumer"`
		ThrottledRateLimiting ThrottledRateLimitingConfig `json:"throttled_rate_limiting"`
		Backoff               BackoffConfig               `json:"backoff"`
		Auth                  AuthConfig                  `json:"auth"`
	}

	AppConfig struct {
		ServiceName    string `envconfig:"APP_SERVICE_NAME" default:"svc-broker-link" json:"service_name"`
		ServiceVersion string `envconfig:"APP_SERVICE_VERSION" default:"0.0.0" json:"service_version"`
		CommitSHA      string `envconfig:"APP_COMMIT_SHA" default:"unknown" json:"commit_sha"`
		APIVersion     string `envconfig:"APP_API_VERSION" default:"v1" json:"api_version"`
		Env            string `envconfig:"APP_ENVIRONMENT" default:"unknown" json:"env"`
	}

	LoggingConfig struct {
		Level     string          `envconfig:"LOGGING_LEVEL" default:"info" json:"level"`
		Format    string          `envconfig:"LOGGING_FORMAT" default:"json" json:"format"`
		AccessLog AccessLogConfig `json:"access_log"`
	}

	AccessLogConfig struct {
		Enabled            bool `envconfig:"ACCESS_LOG_ENABLED" default:"true" json:"enabled"`
		LogHealthChecks    bool `envconfig:"ACCESS_LOG_HEALTH_CHECKS" default:"false" json:"log_health_checks"`
		IncludeQueryParams bool `envconfig:"ACCESS_LOG_INCLUDE_QUERY_PARAMS" default:"true" json:"include_query_params"`
	}

	Telemetry struct {
		ExporterType string `envconfig:"OTEL_EXPORTER" default:"grpc" json:"exporter_type"`

		OtelGRPCHost       string `envconfig:"OTEL_HOST" json:"otel_grpc_host"`
		OtelGRPCPort       string `envconfig:"OTEL_PORT" default:"4317" json:"otel_grpc_port"`
		OtelProductCluster string `envconfig:"OTEL_PRODUCT_CLUSTER" json:"otel_product_cluster"`

		Metrics Metrics `json:"metrics"`
		Traces  Traces  `json:"traces"`
	}

	Metrics struct {
		Enabled bool `envconfig:"METRICS_ENABLED" default:"false" json:"enabled"`
	}

	Traces struct {
		Enabled      bool    `envconfig:"TRACES_ENABLED" default:"false" json:"enabled"`
		SamplerRatio float64 `envconfig:"TRACES_SAMPLER_RATIO" default:"1" json:"sampler_ratio"`
	}

	SecretStorageConfig struct {
		Enabled       bool          `envconfig:"VAULT_ENABLED" default:"false" json:"enabled"`
		Address       string        `envconfig:"VAULT_ADDRESS" default:"http://vault:8200" json:"address"`
		Token         string        `envconfig:"VAULT_TOKEN" default:"bottom-Secret" json:"token,omitempty"`
		RoleID        string        `envconfig:"VAULT_ROLE_ID" default:"" json:"role_id,omitempty"`
		SecretID      string        `envconfig:"VAULT_SECRET_ID" default:"" json:"secret_id,omitempty"`
		AuthMethod    string        `envconfig:"VAULT_AUTH_METHOD" default:"token" json:"auth_method"`
		MountPath     string        `envconfig:"VAULT_MOUNT_PATH" default:"svc-broker-link" json:"mount_path"`
		Namespace     string        `envconfig:"VAULT_NAMESPACE" default:"" json:"namespace,omitempty"`
		Timeout       time.Duration `envconfig:"VAULT_TIMEOUT" default:"30s" json:"timeout"`
		MaxRetries    int           `envconfig:"VAULT_MAX_RETRIES" default:"3" json:"max_retries"`
		TLSSkipVerify bool          `envconfig:"VAULT_TLS_SKIP_VERIFY" default:"false" json:"tls_skip_verify"`
		PollInterval  time.Duration `envconfig:"VAULT_POLL_INTERVAL" default:"24h" json:"poll_interval"`
	}

	HTTPServerConfig struct {
		Port            int           `envconfig:"HTTP_SERVER_PORT" default:"8088" json:"port"`
		Host            string        `envconfig:"HTTP_SERVER_HOST" default:"0.0.0.0" json:"host"`
		ReadTimeout     time.Duration `envconfig:"HTTP_SERVER_READ_TIMEOUT" default:"30s" json:"read_timeout"`
		WriteTimeout    time.Duration `envconfig:"HTTP_SERVER_WRITE_TIMEOUT" default:"30s" json:"write_timeout"`
		IdleTimeout     time.Duration `envconfig:"HTTP_SERVER_IDLE_TIMEOUT" default:"120s" json:"idle_timeout"`
		ShutdownTimeout time.Duration `envconfig:"HTTP_SERVER_SHUTDOWN_TIMEOUT" default:"30s" json:"shutdown_timeout"`
	}

	BrokerConfig struct {
		Scheme         string          `envconfig:"BROKER_SCHEME" default:"amqp" json:"scheme"`
		Host           string          `envconfig:"BROKER_HOST" default:"rabbitmq" json:"host"`
		Port           int             `envconfig:"BROKER_PORT" default:"5672" json:"port"`
		Username       string          `envconfig:"BROKER_USERNAME" default:"guest" json:"username"`
		Password       string          `envconfig:"BROKER_PASSWORD" default:"guest" json:"password,omitempty"`
		VirtualHost    string          `envconfig:"BROKER_VIRTUAL_HOST" default:"/" json:"virtual_host"`
		QueueName      string          `envconfig:"BROKER_QUEUE_NAME" default:"data" json:"queue_name"`
		DeclareQueue   bool            `envconfig:"BROKER_DECLARE_QUEUE" default:"false" json:"declare_queue"`
		DurableQueue   bool            `envconfig:"BROKER_DURABLE_QUEUE" default:"true" json:"durable_queue"`
		ConnectionName string          `envconfig:"BROKER_CONNECTION_NAME" default:"svc-broker-link" json:"connection_name"`
		ConnectTimeout time.Duration   `envconfig:"BROKER_CONNECT_TIMEOUT" default:"10s" json:"connect_timeout"`
		Heartbeat      time.Duration   `envconfig:"BROKER_HEARTBEAT" default:"10s" json:"heartbeat"`
		PrefetchCount  int             `envconfig:"BROKER_PREFETCH_COUNT" default:"10" json:"prefetch_count"`
		PropertiesFile string          `envconfig:"BROKER_PROPERTIES_FILE" default:"" json:"properties_file"`
		TLS            BrokerTLSConfig `json:"tls"`
	}

	BrokerTLSConfig struct {
		TrustStore         string `envconfig:"BROKER_SSL_TRUST_STORE" default:"" json:"trust_store"`
		TrustStorePassword string `envconfig:"BROKER_SSL_TRUST_STORE_PASSWORD" default:"" json:"trust_store_password,omitempty"`
		KeyStore           string `envconfig:"BROKER_SSL_KEY_STORE" default:"" json:"key_store"`
		KeyStorePassword   string `envconfig:"BROKER_SSL_KEY_STORE_PASSWORD" default:"" json:"key_store_password,omitempty"`
		ServerName         string `envconfig:"BROKER_SSL_SERVER_NAME" default:"" json:"server_name"`
		InsecureSkipVerify bool   `envconfig:"BROKER_SSL_INSECURE_SKIP_VERIFY" default:"false" json:"insecure_skip_verify"`
	}

	SchedulerConfig struct {
		ValidationInterval time.Duration `envconfig:"SCHEDULER_VALIDATION_INTERVAL" default:"5m" json:"validation_interval"`
		BatchEnabled       bool          `envconfig:"SCHEDULER_BATCH_ENABLED" default:"true" json:"batch_enabled"`
		BatchInterval      time.Duration `envconfig:"SCHEDULER_BATCH_INTERVAL" default:"5m" json:"batch_interval"`
		BatchWaitTimeout   time.Duration `envconfig:"SCHEDULER_BATCH_WAIT_TIMEOUT" default:"1m" json:"batch_wait_timeout"`
		DepthProbe         string        `envconfig:"SCHEDULER_DEPTH_PROBE" default:"session" json:"depth_probe"`
	}

	ManagementConfig struct {
		URL      string        `envconfig:"BROKER_MANAGEMENT_URL" default:"http://rabbitmq:15672" json:"url"`
		Username string        `envconfig:"BROKER_MANAGEMENT_USERNAME" default:"guest" json:"username"`
		Password string        `envconfig:"BROKER_MANAGEMENT_PASSWORD" default:"guest" json:"password,omitempty"`
		Timeout  time.Duration `envconfig:"BROKER_MANAGEMENT_TIMEOUT" default:"5s" json:"timeout"`
		Retries  int           `envconfig:"BROKER_MANAGEMENT_RETRIES" default:"2" json:"retries"`
	}

	ProducerConfig struct {
		PublishTimeout time.Duration        `envconfig:"PRODUCER_PUBLISH_TIMEOUT" default:"5s" json:"publish_timeout"`
		MaxPayloadSize int                  `envconfig:"PRODUCER_MAX_PAYLOAD_SIZE" default:"65536" json:"max_payload_size"`
		CircuitBreaker CircuitBreakerConfig `envconfig:"PRODUCER_CIRCUIT_BREAKER" json:"circuit_breaker"`
	}

	ConsumerConfig struct {
		Workers        int           `envconfig:"CONSUMER_WORKERS" default:"1" json:"workers"`
		ReceiveTimeout time.Duration `envconfig:"CONSUMER_RECEIVE_TIMEOUT" default:"1s" json:"receive_timeout"`
		StopSentinel   string        `envconfig:"CONSUMER_STOP_SENTINEL" default:"goodbye" json:"stop_sentinel"`
		TagPrefix      string        `envconfig:"CONSUMER_TAG_PREFIX" default:"svc-broker-link" json:"tag_prefix"`
	}

	CircuitBreakerConfig struct {
		MaxRequests uint32        `envconfig:"MAX_REQUESTS" default:"1" json:"max_requests"`
		Interval    time.Duration `envconfig:"INTERVAL" default:"10s" json:"interval"`
		Timeout     time.Duration `envconfig:"TIMEOUT" default:"30s" json:"timeout"`
	}

	ThrottledRateLimitingConfig struct {
		Enabled            bool          `envconfig:"RATE_LIMITING_ENABLED" default:"true" json:"enabled"`
		RequestsPerSecond  int           `envconfig:"RATE_LIMITING_REQUESTS_PER_SECOND" default:"10" json:"requests_per_second"`
		BurstSize          int           `envconfig:"RATE_LIMITING_BURST_SIZE" default:"20" json:"burst_size"`
		WindowDuration     time.Duration `envconfig:"RATE_LIMITING_WINDOW_DURATION" default:"5m" json:"window_duration"`
		EnableIPLimiting   bool          `envconfig:"RATE_LIMITING_ENABLE_IP_LIMITING" default:"true" json:"enable_ip_limiting"`
		EnableUserLimiting bool          `envconfig:"RATE_LIMITING_ENABLE_USER_LIMITING" default:"true" json:"enable_user_limiting"`
		CleanupInterval    time.Duration `envconfig:"RATE_LIMITING_CLEANUP_INTERVAL" default:"1m" json:"cleanup_interval"`
		MaxKeys            int           `envconfig:"RATE_LIMITING_MAX_KEYS" default:"1000" json:"max_keys"`
		SkipPaths          []string      `envconfig:"RATE_LIMITING_SKIP_PATHS" default:"/v1/health,/metrics" json:"skip_paths"`
	}

	AuthConfig struct {
		Enabled        bool          `envconfig:"AUTH_ENABLED" default:"false" json:"enabled"`
		SecretKey      string        `envconfig:"AUTH_SECRET_KEY" default:"default-secret-key-change-in-production" json:"secret_key,omitempty"`
		ValidIssuers   []string      `envconfig:"AUTH_VALID_ISSUERS" default:"broker-link-service,auth-service" json:"valid_issuers"`
		TokenExpiry    time.Duration `envconfig:"AUTH_TOKEN_EXPIRY" default:"1h" json:"token_expiry"`
		SkipPaths      []string      `envconfig:"AUTH_SKIP_PATHS" default:"/v1/health,/metrics" json:"skip_paths"`
		PasetoKeyPath  string        `envconfig:"AUTH_PASETO_KEY_PATH" default:"secret/data/paseto/public-key" json:"paseto_key_path"`
		UseVaultKeys   bool          `envconfig:"AUTH_USE_VAULT_KEYS" default:"false" json:"use_vault_keys"`
		KeyCacheTTL    time.Duration `envconfig:"AUTH_KEY_CACHE_TTL" default:"1h" json:"key_cache_ttl"`
		FallbackKeyHex string        `envconfig:"AUTH_FALLBACK_KEY_HEX" default:"01c7981f62c676934dc4acfa7825205ae927960875d09abec497efbe2dba41b7" json:"fallback_key_hex,omitempty"`
	}

	BackoffConfig struct {
		// BaseDelay is the amount of time to backoff after the first failure.
		BaseDelay time.Duration `envconfig:"BACKOFF_BASE_DELAY" default:"1s" json:"base_delay"`
		// Multiplier is the factor with which to multiply backoffs after a
		// failed retry. Should ideally be greater than 1.
		Multiplier float64 `envconfig:"BACKOFF_MULTIPLIER" default:"1.6" json:"multiplier"`
		// Jitter is the factor with which backoffs are randomized.
		Jitter float64 `envconfig:"BACKOFF_JITTER" default:"0.2" json:"jitter"`
		// MaxDelay is the upper bound of backoff delay.
		MaxDelay time.Duration `envconfig:"BACKOFF_MAX_DELAY" default:"10s" json:"max_delay"`
	}
)
