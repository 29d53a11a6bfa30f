package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger encapsula um zerolog.Logger
type Logger struct {
	logger zerolog.Logger
}

// Default é o logger global da aplicação
var Default *Logger

// Init configura o logger global com o nível vindo do ambiente
func Init() {
	level := getLogLevel()

	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.SetGlobalLevel(level)

	output := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}

	Default = New(output)

	Default.Debug().
		Str("level", level.String()).
		Msg("Logger inicializado")
}

// New cria um logger escrevendo em w
func New(w io.Writer) *Logger {
	return &Logger{logger: zerolog.New(w).With().Timestamp().Logger()}
}

// Nop retorna um logger que descarta tudo (útil em testes)
func Nop() *Logger {
	return &Logger{logger: zerolog.Nop()}
}

// getLogLevel lê LOG_LEVEL; sem ele, usa info em produção e debug no resto
func getLogLevel() zerolog.Level {
	levelStr := os.Getenv("LOG_LEVEL")
	if levelStr == "" {
		if os.Getenv("APP_ENVIRONMENT") == "production" {
			return zerolog.InfoLevel
		}
		return zerolog.DebugLevel
	}

	level, err := zerolog.ParseLevel(levelStr)
	if err != nil {
		return zerolog.InfoLevel
	}
	return level
}

// WithField cria um logger filho com um campo fixo
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{logger: l.logger.With().Interface(key, value).Logger()}
}

// WithStr cria um logger filho com um campo string fixo
func (l *Logger) WithStr(key, value string) *Logger {
	return &Logger{logger: l.logger.With().Str(key, value).Logger()}
}

// Debug retorna um evento de debug
func (l *Logger) Debug() *zerolog.Event {
	return l.logger.Debug()
}

// Info retorna um evento de info
func (l *Logger) Info() *zerolog.Event {
	return l.logger.Info()
}

// Warn retorna um evento de aviso
func (l *Logger) Warn() *zerolog.Event {
	return l.logger.Warn()
}

// Error retorna um evento de erro
func (l *Logger) Error() *zerolog.Event {
	return l.logger.Error()
}

func defaultLogger() *Logger {
	if Default == nil {
		Init()
	}
	return Default
}

// ForPipeline cria o logger do pipeline
func ForPipeline() *Logger {
	return defaultLogger().WithStr("component", "pipeline")
}

// ForNotifier cria o logger do notificador
func ForNotifier() *Logger {
	return defaultLogger().WithStr("component", "notifier")
}

// ForRepository cria o logger do repositório
func ForRepository() *Logger {
	return defaultLogger().WithStr("component", "repository")
}

// ForScraper cria o logger do scraper
func ForScraper() *Logger {
	return defaultLogger().WithStr("component", "scraper")
}
