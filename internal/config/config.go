package config

// Header constants.
const (
	HEADER_KEY_AUTHORIZATION = "Authorization"
	HEADER_KEY_X_REQUEST_ID  = "X-Request-Id"
)

const (
	ENV_KEY_APP_ENV   = "APP_ENV"
	ENV_KEY_PORT      = "PORT"
	ENV_KEY_LOG_LEVEL = "LOG_LEVEL"

	ENV_KEY_DB_DATABASE             = "DB_DATABASE"
	ENV_KEY_DB_PASSWORD             = "DB_PASSWORD"
	ENV_KEY_DB_USER                 = "DB_USER"
	ENV_KEY_DB_PORT                 = "DB_PORT"
	ENV_KEY_DB_HOST                 = "DB_HOST"
	ENV_KEY_DB_SSLMODE              = "DB_SSLMODE"
	ENV_KEY_DB_MAX_OPEN_CONNECTIONS = "DB_MAX_OPEN_CONNECTIONS"

	ENV_KEY_REDIS_HOST     = "REDIS_HOST"
	ENV_KEY_REDIS_PORT     = "REDIS_PORT"
	ENV_KEY_REDIS_PASSWORD = "REDIS_PASSWORD"

	ENV_KEY_STORAGE_PROVIDER  = "STORAGE_PROVIDER"
	ENV_KEY_ASSETS_BUCKET     = "ASSETS_BUCKET"
	ENV_KEY_PREVIEWS_BUCKET   = "PREVIEWS_BUCKET"
	ENV_KEY_MINIO_ENDPOINT    = "MINIO_ENDPOINT"
	ENV_KEY_MINIO_ACCESS_KEY  = "MINIO_ACCESS_KEY"
	ENV_KEY_MINIO_SECRET_KEY  = "MINIO_SECRET_KEY"
	ENV_KEY_MINIO_USE_SSL     = "MINIO_USE_SSL"
	ENV_KEY_S3_REGION         = "S3_REGION"
	ENV_KEY_PRESIGN_EXPIRE    = "PRESIGN_URL_EXPIRE_MINUTES"
	ENV_KEY_UPLOAD_MAX_BYTES  = "UPLOAD_MAX_BYTES"
	ENV_KEY_FIREBASE_KEY_PATH = "FIREBASE_SERVICE_ACCOUNT_KEY_PATH"

	ENV_KEY_SESSION_COOKIE_NAME   = "SESSION_COOKIE_NAME"
	ENV_KEY_SESSION_COOKIE_DAYS   = "SESSION_COOKIE_DAYS"
	ENV_KEY_SESSION_COOKIE_SECURE = "SESSION_COOKIE_SECURE"
	ENV_KEY_ALLOW_ORIGINS         = "ALLOW_ORIGINS"

	ENV_KEY_SMTP_HOST     = "SMTP_HOST"
	ENV_KEY_SMTP_PORT     = "SMTP_PORT"
	ENV_KEY_SMTP_USERNAME = "SMTP_USERNAME"
	ENV_KEY_SMTP_PASSWORD = "SMTP_PASSWORD"
	ENV_KEY_SMTP_FROM     = "SMTP_FROM"

	ENV_KEY_WORKER_CONCURRENCY   = "WORKER_CONCURRENCY"
	ENV_KEY_ORPHAN_TTL           = "ORPHAN_TTL"
	ENV_KEY_REAP_SCHEDULE        = "REAP_SCHEDULE"
	ENV_KEY_EXTENSION_RATE_LIMIT = "EXTENSION_RATE_LIMIT"

	ENV_KEY_OTEL_ENDPOINT     = "OTEL_EXPORTER_OTLP_ENDPOINT"
	ENV_KEY_OTEL_SERVICE_NAME = "OTEL_SERVICE_NAME"
)

// Defaults applied when the matching env key is empty.
const (
	PRESIGN_URL_EXPIRE_MINUTES = 15
	DEFAULT_ASSETS_BUCKET      = "assets"
	DEFAULT_PREVIEWS_BUCKET    = "previews"
	DEFAULT_UPLOAD_MAX_BYTES   = 500 << 20
	DEFAULT_SESSION_COOKIE     = "__session"
	DEFAULT_SESSION_DAYS       = 5
	DEFAULT_ORPHAN_TTL         = "24h"
	DEFAULT_REAP_SCHEDULE      = "@every 30m"
	DEFAULT_EXTENSION_RATE     = 20
)

// Redis channel carrying asset lifecycle events between api and worker.
const EVENTS_CHANNEL = "adstash:events"

type ContextKey uint

const (
	_ ContextKey = iota
	CTX_KEY_USER_ID
	CTX_KEY_AUTH_METHOD
)

// Values stored under CTX_KEY_AUTH_METHOD.
const (
	AUTH_METHOD_SESSION  = "session"
	AUTH_METHOD_ID_TOKEN = "id_token"
	AUTH_METHOD_PAT      = "pat"
)
