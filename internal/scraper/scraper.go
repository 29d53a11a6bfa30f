package scraper

import (
	"context"
	"io"
	"time"

	"bot-ofertas/internal/models"
)

// Fetcher baixa o HTML de uma página da listagem de ofertas
type Fetcher interface {
	Fetch(ctx context.Context, page int) (io.Reader, error)
}

// Extractor transforma o HTML de uma página em registros de produto
type Extractor interface {
	Extract(r io.Reader, observedAt time.Time) ([]models.ProductRecord, error)
}

var (
	_ Fetcher   = (*PageFetcher)(nil)
	_ Extractor = (*MercadoLivreScraper)(nil)
)
