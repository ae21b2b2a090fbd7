package config

// Default values for configuration.
const (
	// Telegram API defaults
	DefaultSessionFile = "tg.session"

	// Export defaults
	DefaultBatchSize   = 100
	DefaultMaxFileSize = 100 << 20 // 100 MiB
	DefaultExportPath  = "export"

	// Logging defaults
	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"
)
