package config

import "path/filepath"

// ConsumerConfig is the audit consumer's configuration.  It needs no
// database or signing secret.
type ConsumerConfig struct {
    AMQPURL   string
    LogPath   string
    LogLevel  string
    LogFormat string
}

func LoadConsumerConfig() ConsumerConfig {
    return ConsumerConfig{
        AMQPURL:   AMQPURL(),
        LogPath:   envStr("AUDIT_LOG_PATH", filepath.Join("logs", "accounts.log")),
        LogLevel:  envStr("LOG_LEVEL", "info"),
        LogFormat: envStr("LOG_FORMAT", "text"),
    }
}

// Logging returns the part of Config NewLogger reads.
func (c ConsumerConfig) Logging() Config {
    return Config{LogLevel: c.LogLevel, LogFormat: c.LogFormat}
}
