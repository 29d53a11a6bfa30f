package monitor

import (
	"context"
	"time"

	"bot-ofertas/internal/database"
	"bot-ofertas/internal/logger"
	"bot-ofertas/internal/metrics"
	"bot-ofertas/internal/models"
	"bot-ofertas/internal/scraper"
	apperrors "bot-ofertas/pkg/errors"
)

// Store é o repositório usado por uma execução do pipeline
type Store interface {
	PendingStore
	UpsertAll(ctx context.Context, products []models.NormalizedProduct) (database.UpsertResult, error)
}

// Options controla o intervalo de páginas e as pausas
type Options struct {
	FirstPage    int
	LastPage     int
	PageDelay    time.Duration
	SendInterval time.Duration
	Sleep        Sleeper
}

// Monitor executa uma rodada: raspa as páginas, grava o lote e envia os pendentes
type Monitor struct {
	store     Store
	fetcher   scraper.Fetcher
	extractor scraper.Extractor
	notifier  *Notifier
	opts      Options
	log       *logger.Logger
	now       func() time.Time
}

// New cria uma nova instância do monitor
func New(store Store, sender Sender, fetcher scraper.Fetcher, extractor scraper.Extractor, opts Options, log *logger.Logger) *Monitor {
	if opts.Sleep == nil {
		opts.Sleep = Sleep
	}
	if opts.FirstPage < 1 {
		opts.FirstPage = 1
	}

	return &Monitor{
		store:     store,
		fetcher:   fetcher,
		extractor: extractor,
		notifier:  NewNotifier(store, sender, opts.SendInterval, opts.Sleep, log),
		opts:      opts,
		log:       log,
		now:       time.Now,
	}
}

// Run faz uma rodada completa; páginas com falha são puladas, falha no banco aborta
func (m *Monitor) Run(ctx context.Context) error {
	m.log.Info().
		Int("first_page", m.opts.FirstPage).
		Int("last_page", m.opts.LastPage).
		Msg("Iniciando raspagem")

	products, err := m.scrape(ctx)
	if err != nil {
		return err
	}

	res, err := m.store.UpsertAll(ctx, products)
	if err != nil {
		return apperrors.NewPersistence("upsert", "erro ao gravar produtos", err)
	}
	metrics.ProductsUpserted.WithLabelValues("inserted").Add(float64(res.Inserted))
	metrics.ProductsUpserted.WithLabelValues("changed").Add(float64(res.Changed))
	metrics.ProductsUpserted.WithLabelValues("unchanged").Add(float64(res.Unchanged))

	m.log.Info().
		Int("products", len(products)).
		Int("inserted", res.Inserted).
		Int("changed", res.Changed).
		Int("unchanged", res.Unchanged).
		Int("new_pending", res.Pending()).
		Msg("Produtos gravados")

	return m.notifier.Flush(ctx)
}

func (m *Monitor) scrape(ctx context.Context) ([]models.NormalizedProduct, error) {
	var products []models.NormalizedProduct

	for page := m.opts.FirstPage; page <= m.opts.LastPage; page++ {
		if page > m.opts.FirstPage {
			// Pequeno delay entre requisições para não sobrecarregar
			if err := m.opts.Sleep(ctx, m.opts.PageDelay); err != nil {
				return nil, err
			}
		}

		records, err := m.scrapePage(ctx, page)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			metrics.PagesFetched.WithLabelValues("skipped").Inc()
			m.log.Warn().Err(err).Int("page", page).Msg("Página ignorada")
			continue
		}
		metrics.PagesFetched.WithLabelValues("ok").Inc()

		m.log.Debug().Int("page", page).Int("products", len(records)).Msg("Página processada")
		products = append(products, scraper.NormalizeAll(records)...)
	}

	return products, nil
}

func (m *Monitor) scrapePage(ctx context.Context, page int) ([]models.ProductRecord, error) {
	body, err := m.fetcher.Fetch(ctx, page)
	if err != nil {
		return nil, err
	}

	records, err := m.extractor.Extract(body, m.now())
	if err != nil {
		return nil, apperrors.NewParse("extract", "erro ao ler HTML da página", err)
	}
	return records, nil
}
