package config

import "time"

type PostgresConfig struct {
	DSN             string        `env:"PG_DSN" envDefault:""`
	MaxOpenConns    int           `env:"PG_MAX_OPEN_CONNS" envDefault:"10"`
	MaxIdleConns    int           `env:"PG_MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxIdleTime time.Duration `env:"PG_CONN_MAX_IDLE_TIME" envDefault:"5m"`
	ConnMaxLifetime time.Duration `env:"PG_CONN_MAX_LIFETIME" envDefault:"30m"`
}

type SQLiteConfig struct {
	Path string `env:"SQLITE_PATH" envDefault:"data/scalecoin.db"`
}

// StorageConfig selects the durable backend of the ledger and token registry.
type StorageConfig struct {
	Driver   string `env:"LEDGER_DRIVER" envDefault:"sqlite"`
	Postgres PostgresConfig
	SQLite   SQLiteConfig
}

type SlackConfig struct {
	BotToken      string `env:"SLACK_BOT_TOKEN"`
	SigningSecret string `env:"SLACK_SIGNING_SECRET" envDefault:""`
	APIURL        string `env:"SLACK_API_URL" envDefault:"https://slack.com/api"`
	// InsecureDev accepts unsigned Slack requests when no signing secret is
	// set. Local development only.
	InsecureDev bool `env:"SLACK_INSECURE_DEV" envDefault:"false"`
}

type ShipsConfig struct {
	Workspace string `env:"SLACK_WORKSPACE" envDefault:"hackclub"`
	ChannelID string `env:"SHIP_CHANNEL_ID" envDefault:"C0M8PUPU6"`
	// OldestTS is the cutoff message; ships before it were not threaded.
	OldestTS       string        `env:"SHIP_OLDEST_TS" envDefault:"1564202710.161200"`
	CacheTTL       time.Duration `env:"SHIPS_CACHE_TTL" envDefault:"1h"`
	RefreshSpec    string        `env:"SHIPS_REFRESH_SPEC" envDefault:"@every 55m"`
	RefreshTimeout time.Duration `env:"SHIPS_REFRESH_TIMEOUT" envDefault:"2m"`
}

type APIConfig struct {
	RatePerMinute float64       `env:"API_RATE_PER_MINUTE" envDefault:"120"`
	RateBurst     int           `env:"API_RATE_BURST" envDefault:"20"`
	NotifyTimeout time.Duration `env:"NOTIFY_TIMEOUT" envDefault:"5s"`
}
