package scraper

import (
	"io"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"bot-ofertas/internal/models"
	apperrors "bot-ofertas/pkg/errors"
)

// Seletores da página de ofertas do Mercado Livre
const (
	cardSelector      = "div.andes-card"
	titleSelector     = "a.poly-component__title"
	amountSelector    = ".andes-money-amount"
	previousSelector  = ".andes-money-amount--previous"
	currentSelector   = "span.andes-money-amount.andes-money-amount--cents-superscript"
	fractionSelector  = ".andes-money-amount__fraction"
	centsSelector     = ".andes-money-amount__cents"
	extractorStageTag = "extract"
)

// MercadoLivreScraper extrai os cards de oferta de uma página de /ofertas
type MercadoLivreScraper struct{}

// NewMercadoLivreScraper cria uma nova instância do extrator do Mercado Livre
func NewMercadoLivreScraper() *MercadoLivreScraper {
	return &MercadoLivreScraper{}
}

// Extract lê o HTML de uma página e devolve um registro por card com título.
// Campos ausentes ficam vazios; cards sem título são descartados.
func (m *MercadoLivreScraper) Extract(r io.Reader, observedAt time.Time) ([]models.ProductRecord, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, apperrors.NewParse(extractorStageTag, "erro ao ler HTML", err)
	}

	var products []models.ProductRecord
	doc.Find(cardSelector).Each(func(i int, card *goquery.Selection) {
		title := card.Find(titleSelector).First()
		name := strings.TrimSpace(title.Text())
		if name == "" {
			return
		}

		link, _ := title.Attr("href")

		products = append(products, models.ProductRecord{
			Name:         name,
			OldPriceText: m.oldPriceText(card),
			NewPriceText: m.newPriceText(card),
			Link:         strings.TrimSpace(link),
			ObservedAt:   observedAt,
		})
	})

	return products, nil
}

// oldPriceText usa o preço riscado quando existe; sem ele, o primeiro valor do card
func (m *MercadoLivreScraper) oldPriceText(card *goquery.Selection) string {
	amount := card.Find(previousSelector).First()
	if amount.Length() == 0 {
		amount = card.Find(amountSelector).First()
	}
	return amountText(amount)
}

func (m *MercadoLivreScraper) newPriceText(card *goquery.Selection) string {
	amount := card.Find(currentSelector).First()
	if amount.Length() == 0 {
		return ""
	}
	if text := amountText(amount); text != "" {
		return text
	}
	return strings.TrimSpace(amount.Text())
}

// amountText monta "fração,centavos" a partir dos spans de um andes-money-amount
func amountText(amount *goquery.Selection) string {
	if amount.Length() == 0 {
		return ""
	}
	fraction := strings.TrimSpace(amount.Find(fractionSelector).First().Text())
	if fraction == "" {
		return ""
	}
	cents := strings.TrimSpace(amount.Find(centsSelector).First().Text())
	if cents == "" {
		return fraction
	}
	return fraction + "," + cents
}
