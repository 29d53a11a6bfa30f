package scraper

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html/charset"

	"bot-ofertas/internal/cache"
	apperrors "bot-ofertas/pkg/errors"
)

const (
	fetchStage       = "fetch"
	defaultBlockKey  = "bot-ofertas:fetch-block"
	defaultBlockTime = 5 * time.Minute
	userAgent        = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
)

// PageFetcher baixa páginas da listagem de ofertas.
// Com um cache configurado, um 429 do site bloqueia novos downloads por BlockTime.
type PageFetcher struct {
	client    *http.Client
	urlFormat string
	CacheSvc  cache.CacheService
	CacheKey  string
	BlockTime time.Duration
}

// NewPageFetcher cria um fetcher; urlFormat recebe o número da página em %d
func NewPageFetcher(urlFormat string, cacheSvc cache.CacheService, blockTime time.Duration) *PageFetcher {
	if blockTime <= 0 {
		blockTime = defaultBlockTime
	}
	return &PageFetcher{
		client:    &http.Client{Timeout: 30 * time.Second},
		urlFormat: urlFormat,
		CacheSvc:  cacheSvc,
		CacheKey:  defaultBlockKey,
		BlockTime: blockTime,
	}
}

// Fetch baixa a página informada e devolve o corpo já convertido para UTF-8
func (f *PageFetcher) Fetch(ctx context.Context, page int) (io.Reader, error) {
	if f.blocked() {
		return nil, apperrors.NewFetch(fetchStage, fmt.Sprintf("downloads bloqueados por até %v após limite do site", f.BlockTime), nil)
	}

	url := fmt.Sprintf(f.urlFormat, page)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, apperrors.NewFetch(fetchStage, "erro ao criar requisição", err)
	}

	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "pt-BR,pt;q=0.9,en-US;q=0.8,en;q=0.7")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, apperrors.NewFetch(fetchStage, "erro na requisição de "+url, err)
	}
	defer resp.Body.Close()

	if slices.Contains([]int{http.StatusTooManyRequests, 430}, resp.StatusCode) {
		wait := retryAfter(resp.Header.Get("Retry-After"), f.BlockTime)
		f.block(wait)
		return nil, apperrors.NewRateLimit(fetchStage, wait, fmt.Errorf("status code: %d", resp.StatusCode))
	}

	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.NewFetch(fetchStage, url, fmt.Errorf("status code: %d", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.NewFetch(fetchStage, "erro ao ler corpo da resposta", err)
	}

	encoding, name, _ := charset.DetermineEncoding(body, resp.Header.Get("Content-Type"))
	if strings.EqualFold(name, "utf-8") {
		return bytes.NewReader(body), nil
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, encoding.NewDecoder().Reader(bytes.NewReader(body))); err != nil {
		return nil, apperrors.NewFetch(fetchStage, "erro ao converter corpo para UTF-8", err)
	}
	return &buf, nil
}

func (f *PageFetcher) blocked() bool {
	if f.CacheSvc == nil || f.CacheKey == "" {
		return false
	}
	_, err := f.CacheSvc.Get(f.CacheKey)
	return err == nil
}

func (f *PageFetcher) block(wait time.Duration) {
	if f.CacheSvc == nil || f.CacheKey == "" {
		return
	}
	_ = f.CacheSvc.Set(f.CacheKey, []byte(strconv.Itoa(int(wait/time.Second))), wait)
}

// retryAfter interpreta o cabeçalho Retry-After em segundos
func retryAfter(header string, fallback time.Duration) time.Duration {
	if seconds, err := strconv.Atoi(strings.TrimSpace(header)); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	return fallback
}
