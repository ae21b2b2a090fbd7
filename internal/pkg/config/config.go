// Package config предоставляет управление конфигурацией приложения
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

// TelegramAPI содержит конфигурацию Telegram API
type TelegramAPI struct {
	APIID       int    `json:"api_id" yaml:"api_id"`
	APIHash     string `json:"api_hash" yaml:"api_hash"`
	PhoneNumber string `json:"phone_number" yaml:"phone_number"`
	SessionFile string `json:"session_file" yaml:"session_file"`
}

// ChatList — список ссылок на чаты. В YAML ссылки могут быть записаны
// и строками ("@durov", "me"), и числами (отмеченные идентификаторы),
// поэтому разбор приводит все к строкам.
type ChatList []string

// UnmarshalYAML реализует yaml.Unmarshaler.
func (c *ChatList) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw []interface{}
	if err := unmarshal(&raw); err != nil {
		return err
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		out = append(out, fmt.Sprintf("%v", item))
	}
	*c = out
	return nil
}

// Export содержит конфигурацию выгрузки
type Export struct {
	// Chats — ссылки на чаты: "@username", "me" или отмеченный id.
	Chats ChatList `json:"chats" yaml:"chats"`
	// BatchSize — размер страницы истории и батча сериализации.
	BatchSize int `json:"batch_size" yaml:"batch_size"`
	// MaxFileSize — порог размера скачиваемых файлов в байтах.
	MaxFileSize int64 `json:"max_file_size" yaml:"max_file_size"`
	// Path — корневой каталог экспорта.
	Path string `json:"path" yaml:"path"`
}

// Logging содержит конфигурацию логирования
type Logging struct {
	Level  string `json:"level" yaml:"level"`   // debug, info, warn, error
	Format string `json:"format" yaml:"format"` // text, json
}

// Config содержит конфигурацию приложения
type Config struct {
	TelegramAPI TelegramAPI `json:"telegram_api" yaml:"telegram_api"`
	Export      Export      `json:"export" yaml:"export"`
	Logging     Logging     `json:"logging" yaml:"logging"`
}

// LoadConfig загружает конфигурацию приложения из переменных окружения, .env файла или config.yml
func LoadConfig() (*Config, error) {
	// Загрузка переменных окружения из .env файла, если он существует
	if err := godotenv.Load(); err != nil {
		// Если .env файла не существует, это нормально, мы будем полагаться на переменные окружения или config.yml
	}

	// Попытка загрузки из config.yml сначала
	cfg, err := loadFromYAML("config.yml")
	if err != nil {
		// Если загрузка YAML не удалась, используем переменные окружения
		cfg, err = loadFromEnv()
		if err != nil {
			return nil, fmt.Errorf("не удалось загрузить конфигурацию из env: %w", err)
		}
	}

	cfg.applyDefaults()
	return cfg, nil
}

// loadFromYAML загружает конфигурацию из YAML-файла
func loadFromYAML(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("не удалось прочитать файл конфигурации %s: %w", filename, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("не удалось разобрать YAML конфигурацию: %w", err)
	}

	return &cfg, nil
}

// loadFromEnv загружает конфигурацию из переменных окружения (обратная совместимость)
func loadFromEnv() (*Config, error) {
	apiIDStr := getEnv("API_ID", "")
	apiHash := getEnv("API_HASH", "")
	phoneNumber := getEnv("PHONE_NUMBER", "")
	sessionFile := getEnv("SESSION_FILE", DefaultSessionFile)
	chatsStr := getEnv("EXPORT_CHATS", "")
	batchStr := getEnv("EXPORT_BATCH_SIZE", strconv.Itoa(DefaultBatchSize))
	maxFileStr := getEnv("EXPORT_MAX_FILE_SIZE", strconv.FormatInt(DefaultMaxFileSize, 10))
	path := getEnv("EXPORT_PATH", DefaultExportPath)

	if apiIDStr == "" || apiHash == "" {
		return nil, fmt.Errorf("API_ID и API_HASH должны быть установлены в переменных окружения")
	}

	apiID, err := strconv.Atoi(apiIDStr)
	if err != nil {
		return nil, fmt.Errorf("недопустимый API_ID: %w", err)
	}

	batchSize, err := strconv.Atoi(batchStr)
	if err != nil {
		return nil, fmt.Errorf("недопустимый EXPORT_BATCH_SIZE: %w", err)
	}

	maxFileSize, err := strconv.ParseInt(maxFileStr, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("недопустимый EXPORT_MAX_FILE_SIZE: %w", err)
	}

	var chats ChatList
	for _, chat := range strings.Split(chatsStr, ",") {
		if chat = strings.TrimSpace(chat); chat != "" {
			chats = append(chats, chat)
		}
	}

	return &Config{
		TelegramAPI: TelegramAPI{
			APIID:       apiID,
			APIHash:     apiHash,
			PhoneNumber: phoneNumber,
			SessionFile: sessionFile,
		},
		Export: Export{
			Chats:       chats,
			BatchSize:   batchSize,
			MaxFileSize: maxFileSize,
			Path:        path,
		},
	}, nil
}

// applyDefaults заполняет незаданные значения значениями по умолчанию.
func (c *Config) applyDefaults() {
	if c.TelegramAPI.SessionFile == "" {
		c.TelegramAPI.SessionFile = DefaultSessionFile
	}
	if c.Export.BatchSize == 0 {
		c.Export.BatchSize = DefaultBatchSize
	}
	if c.Export.MaxFileSize == 0 {
		c.Export.MaxFileSize = DefaultMaxFileSize
	}
	if c.Export.Path == "" {
		c.Export.Path = DefaultExportPath
	}
	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
	if c.Logging.Format == "" {
		c.Logging.Format = DefaultLogFormat
	}
}

// Validate проверяет, являются ли значения конфигурации допустимыми
func (c *Config) Validate() error {
	if c.TelegramAPI.APIID <= 0 {
		return fmt.Errorf("telegram_api.api_id должно быть положительным целым числом")
	}
	if c.TelegramAPI.APIHash == "" {
		return fmt.Errorf("telegram_api.api_hash не может быть пустым")
	}

	if c.Export.BatchSize <= 0 || c.Export.BatchSize > 100 {
		return fmt.Errorf("export.batch_size должно быть в диапазоне 1-100")
	}
	if c.Export.MaxFileSize <= 0 {
		return fmt.Errorf("export.max_file_size должно быть положительным")
	}
	if c.Export.Path == "" {
		return fmt.Errorf("export.path не может быть пустым")
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		// all good
	default:
		return fmt.Errorf("logging.level должен быть одним из: debug, info, warn, error")
	}

	switch c.Logging.Format {
	case "text", "json":
		// all good
	default:
		return fmt.Errorf("logging.format должен быть одним из: text, json")
	}

	return nil
}

// getEnv извлекает значение переменной окружения или возвращает значение по умолчанию, если она не установлена
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
