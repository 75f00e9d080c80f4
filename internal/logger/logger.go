// Package logger builds the process wide zap logger.
package logger

import (
    "fmt"
    "strings"

    "go.uber.org/zap"
    "go.uber.org/zap/zapcore"
)

// Config configures the zap logger.
type Config struct {
    ServiceName string
    Environment string
    Level       string
}

// New builds a structured zap.Logger.  Production style JSON output is used
// everywhere except the dev environment, which gets the console encoder.
func New(cfg Config) (*zap.Logger, error) {
    zapCfg := zap.NewProductionConfig()
    if strings.EqualFold(cfg.Environment, "dev") {
        zapCfg.Encoding = "console"
        zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
    }
    zapCfg.EncoderConfig.TimeKey = "ts"
    zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
    zapCfg.OutputPaths = []string{"stdout"}
    zapCfg.ErrorOutputPaths = []string{"stderr"}

    level := strings.TrimSpace(cfg.Level)
    if level == "" {
        level = "info"
    }
    if err := zapCfg.Level.UnmarshalText([]byte(level)); err != nil {
        return nil, fmt.Errorf("invalid log level %q: %w", level, err)
    }

    log, err := zapCfg.Build(zap.AddStacktrace(zapcore.ErrorLevel))
    if err != nil {
        return nil, err
    }
    name := strings.TrimSpace(cfg.ServiceName)
    if name == "" {
        name = "movie-storefront"
    }
    log = log.With(
        zap.String("service", name),
        zap.String("env", cfg.Environment),
    )
    zap.ReplaceGlobals(log)
    return log, nil
}
