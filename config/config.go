package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	apperrors "bot-ofertas/pkg/errors"
)

// DefaultOffersURL é a listagem de ofertas do Mercado Livre; %d recebe o número da página
const DefaultOffersURL = "https://www.mercadolivre.com.br/ofertas?page=%d"

// Config contém as configurações da aplicação
type Config struct {
	TelegramBotToken string
	TelegramChatID   string

	// Postgres tem prioridade; sem DatabaseURL o SQLite em DatabasePath é usado
	DatabaseURL  string
	DatabasePath string

	OffersURL string
	FirstPage int
	LastPage  int

	SendInterval time.Duration
	PageDelay    time.Duration

	MemcacheAddr string
	FetchBlock   time.Duration

	RedisAddr   string
	RedisDB     int
	RunLockTTL  time.Duration
	RunLockName string

	MetricsTextfile string

	Environment string
}

// Load carrega as configurações das variáveis de ambiente
func Load() (*Config, error) {
	token := firstEnv("TELEGRAM_BOT_TOKEN", "TELEGRAM_TOKEN")
	if token == "" {
		return nil, apperrors.NewConfiguration("TELEGRAM_BOT_TOKEN não configurado", nil)
	}

	cfg := &Config{
		TelegramBotToken: token,
		TelegramChatID:   strings.TrimSpace(os.Getenv("TELEGRAM_CHAT_ID")),
		DatabaseURL:      databaseURL(),
		DatabasePath:     getEnv("DATABASE_PATH", "./products.db"),
		OffersURL:        getEnv("OFFERS_URL", DefaultOffersURL),
		FirstPage:        getInt("FIRST_PAGE", 1),
		LastPage:         getInt("LAST_PAGE", 20),
		SendInterval:     time.Duration(getInt("SEND_INTERVAL_SECONDS", 8)) * time.Second,
		PageDelay:        time.Duration(getInt("PAGE_DELAY_MILLISECONDS", 1000)) * time.Millisecond,
		MemcacheAddr:     os.Getenv("MEMCACHE_ADDR"),
		FetchBlock:       time.Duration(getInt("FETCH_BLOCK_SECONDS", 300)) * time.Second,
		RedisAddr:        os.Getenv("REDIS_ADDR"),
		RedisDB:          getInt("REDIS_DB", 0),
		RunLockTTL:       time.Duration(getInt("RUN_LOCK_TTL_SECONDS", 1800)) * time.Second,
		RunLockName:      getEnv("RUN_LOCK_NAME", "bot-ofertas:run"),
		MetricsTextfile:  os.Getenv("METRICS_TEXTFILE"),
		Environment:      getEnv("APP_ENVIRONMENT", "development"),
	}

	return cfg, nil
}

// Validate verifica combinações inválidas de configuração
func (c *Config) Validate() error {
	if c.TelegramChatID == "" {
		return apperrors.NewConfiguration("TELEGRAM_CHAT_ID não configurado", nil)
	}
	if c.FirstPage < 1 || c.LastPage < c.FirstPage {
		return apperrors.NewConfiguration(fmt.Sprintf("intervalo de páginas inválido: %d..%d", c.FirstPage, c.LastPage), nil)
	}
	if !strings.Contains(c.OffersURL, "%d") {
		return apperrors.NewConfiguration("OFFERS_URL precisa conter %d para o número da página", nil)
	}
	if c.SendInterval < 0 || c.PageDelay < 0 {
		return apperrors.NewConfiguration("intervalos não podem ser negativos", nil)
	}
	if c.DatabaseURL == "" && c.DatabasePath == "" {
		return apperrors.NewConfiguration("nenhum banco de dados configurado", nil)
	}
	return nil
}

// UsePostgres indica se o armazenamento deve ser o Postgres
func (c *Config) UsePostgres() bool {
	return c.DatabaseURL != ""
}

// databaseURL usa DATABASE_URL ou monta a DSN a partir de DB_HOST, DB_PORT, DB_NAME, DB_USER e DB_PASSWORD
func databaseURL() string {
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		return dsn
	}

	host := os.Getenv("DB_HOST")
	name := os.Getenv("DB_NAME")
	if host == "" || name == "" {
		return ""
	}

	u := &url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(host, getEnv("DB_PORT", "5432")),
		Path:   "/" + name,
	}
	if user := os.Getenv("DB_USER"); user != "" {
		if pass := os.Getenv("DB_PASSWORD"); pass != "" {
			u.User = url.UserPassword(user, pass)
		} else {
			u.User = url.User(user)
		}
	}
	return u.String()
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}
