package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultFile - имя файла конфигурации, который ищется без явного пути
const DefaultFile = "siteprobe.yaml"

// Load - читает конфигурацию: значения по умолчанию, затем YAML, затем .env и переменные окружения.
// Отсутствующий файл не ошибка, если путь не был задан явно.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("ошибка разбора %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return Config{}, fmt.Errorf("не удалось прочитать %s: %w", path, err)
	}

	if err := loadEnvFiles(); err != nil {
		return Config{}, err
	}
	applyEnv(&cfg, os.Getenv)

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("некорректная конфигурация: %w", err)
	}
	return cfg, nil
}

// loadEnvFiles - ENV_FILE, либо .env.local поверх .env; отсутствие файлов не ошибка
func loadEnvFiles() error {
	if envFile := os.Getenv("ENV_FILE"); envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("не удалось загрузить %s: %w", envFile, err)
		}
		return nil
	}
	for _, name := range []string{".env.local", ".env"} {
		if err := godotenv.Load(name); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("не удалось загрузить %s: %w", name, err)
		}
	}
	return nil
}

func applyEnv(cfg *Config, getenv func(string) string) {
	setString := func(dst *string, key string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	setInt := func(dst *int, key string) {
		if v, err := strconv.Atoi(getenv(key)); err == nil {
			*dst = v
		}
	}
	setDuration := func(dst *time.Duration, key string) {
		if d, err := time.ParseDuration(getenv(key)); err == nil {
			*dst = d
		}
	}

	setString(&cfg.Site, "SITEPROBE_SITE")
	if v := getenv("SITEPROBE_SUITES"); v != "" {
		cfg.Suites = splitList(v)
	}
	setInt(&cfg.Concurrency, "SITEPROBE_CONCURRENCY")
	setDuration(&cfg.SuiteTimeout, "SITEPROBE_SUITE_TIMEOUT")
	setString(&cfg.OutputDir, "SITEPROBE_OUTPUT_DIR")
	setString(&cfg.LogLevel, "SITEPROBE_LOG_LEVEL")

	setString(&cfg.Performance.APIKey, "PAGESPEED_API_KEY")
	setString(&cfg.Language.Endpoint, "LANGUAGE_TOOL_URL")

	setString(&cfg.Email.Host, "SMTP_HOST")
	setInt(&cfg.Email.Port, "SMTP_PORT")
	setString(&cfg.Email.Username, "SMTP_USER")
	setString(&cfg.Email.Password, "SMTP_PASS")
	setString(&cfg.Email.From, "SMTP_FROM")
	if v := getenv("SMTP_TO"); v != "" {
		cfg.Email.To = splitList(v)
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
