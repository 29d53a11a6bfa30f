package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"bot-ofertas/config"
	"bot-ofertas/internal/bot"
	"bot-ofertas/internal/cache"
	"bot-ofertas/internal/database"
	"bot-ofertas/internal/lock"
	"bot-ofertas/internal/logger"
	"bot-ofertas/internal/metrics"
	"bot-ofertas/internal/monitor"
	"bot-ofertas/internal/scraper"
)

// repository é o que main precisa de qualquer um dos bancos
type repository interface {
	monitor.Store
	Migrate(ctx context.Context) error
	Close() error
}

func main() {
	// Carregar variáveis de ambiente
	envErr := godotenv.Load()

	logger.Init()
	logger.Default = logger.Default.WithStr("run_id", uuid.NewString())
	log := logger.Default

	if envErr != nil {
		log.Debug().Msg("Arquivo .env não encontrado, usando variáveis de ambiente do sistema")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Error().Err(err).Msg("Execução falhou")
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	log := logger.Default

	// Carregar configurações
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	// Inicializar banco de dados
	db, err := openRepository(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		return err
	}

	if cfg.RedisAddr != "" {
		runLock := lock.NewRunLock(cfg.RedisAddr, cfg.RedisDB, cfg.RunLockName, cfg.RunLockTTL)
		defer runLock.Close()

		if err := runLock.Acquire(ctx); err != nil {
			if errors.Is(err, lock.ErrLocked) {
				log.Warn().Str("lock", cfg.RunLockName).Msg("Outra execução em andamento, encerrando")
				return nil
			}
			return err
		}
		defer func() {
			releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := runLock.Release(releaseCtx); err != nil {
				log.Warn().Err(err).Msg("Erro ao liberar trava")
			}
		}()
	}

	// Inicializar bot do Telegram
	api, err := bot.Init(cfg.TelegramBotToken)
	if err != nil {
		return err
	}
	telegram, err := bot.NewTelegram(api, cfg.TelegramChatID)
	if err != nil {
		return err
	}

	var blockCache cache.CacheService
	if cfg.MemcacheAddr != "" {
		mc := cache.NewMemcacheService(cfg.MemcacheAddr)
		if err := mc.Ping(); err != nil {
			log.Warn().Err(err).Str("addr", cfg.MemcacheAddr).Msg("Memcache indisponível, seguindo sem bloqueio de downloads")
		} else {
			blockCache = mc
		}
	}

	fetcher := scraper.NewPageFetcher(cfg.OffersURL, blockCache, cfg.FetchBlock)

	m := monitor.New(db, telegram, fetcher, scraper.NewMercadoLivreScraper(), monitor.Options{
		FirstPage:    cfg.FirstPage,
		LastPage:     cfg.LastPage,
		PageDelay:    cfg.PageDelay,
		SendInterval: cfg.SendInterval,
	}, logger.ForPipeline())

	runErr := m.Run(ctx)

	if cfg.MetricsTextfile != "" {
		if err := metrics.WriteTextfile(cfg.MetricsTextfile); err != nil {
			log.Warn().Err(err).Str("path", cfg.MetricsTextfile).Msg("Erro ao gravar métricas")
		}
	}

	if runErr != nil {
		return runErr
	}
	log.Info().Msg("Execução concluída")
	return nil
}

func openRepository(ctx context.Context, cfg *config.Config) (repository, error) {
	if cfg.UsePostgres() {
		return database.NewPostgres(ctx, cfg.DatabaseURL, logger.ForRepository())
	}
	return database.NewSQLite(cfg.DatabasePath, logger.ForRepository())
}
