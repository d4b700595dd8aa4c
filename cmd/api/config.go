package main

import (
	"log/slog"
	"time"

	"github.com/fastprodman/scalecoin/internal/config"
	"github.com/fastprodman/scalecoin/internal/infra/logging"
)

type apiConfig struct {
	Port            uint16        `env:"APP_PORT" envDefault:"8080"`
	LogLevel        slog.Level    `env:"APP_LOG_LEVEL" envDefault:"INFO"`
	ShutdownTimeout time.Duration `env:"APP_SHUTDOWN_TIMEOUT" envDefault:"15s"`
	LogFile         logging.FileConfig

	Storage config.StorageConfig
	Slack   config.SlackConfig
	Ships   config.ShipsConfig
	API     config.APIConfig

	// AdminIDs may run goblinstomp.
	AdminIDs    []string `env:"ADMIN_IDS" envDefault:""`
	RewardsFile string   `env:"REWARDS_FILE" envDefault:""`
}
