// Package app provides logger initialization.
package app

import (
	"github.com/guttosm/geo-cache-service/config"
	"github.com/guttosm/geo-cache-service/internal/logger"
)

// InitializeLogger initializes the JSON logger from the log configuration.
func InitializeLogger(cfg config.LogConfig) {
	logger.Init(cfg.Level, cfg.Pretty)
}
