package scraper

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"bot-ofertas/internal/models"
)

var (
	priceNoise   = strings.NewReplacer("R$", "", " ", "", "\u00a0", "", "\t", "", "\n", "", "\r", "")
	validPriceRe = regexp.MustCompile(`^\d+(\.\d+)?$`)
	hundred      = decimal.NewFromInt(100)
)

// ParsePrice converte um preço em formato brasileiro ("R$ 1.234,56") para decimal.
// Texto vazio ou malformado resulta em valor ausente, nunca em erro.
func ParsePrice(text string) decimal.NullDecimal {
	clean := priceNoise.Replace(text)
	clean = strings.ReplaceAll(clean, ".", "")
	clean = strings.ReplaceAll(clean, ",", ".")
	if !validPriceRe.MatchString(clean) {
		return decimal.NullDecimal{}
	}

	price, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return models.Round(decimal.NewNullDecimal(price))
}

// Discount calcula o percentual de desconto entre o preço antigo e o novo
func Discount(oldPrice, newPrice decimal.NullDecimal) decimal.NullDecimal {
	if !oldPrice.Valid || !newPrice.Valid || !oldPrice.Decimal.IsPositive() {
		return decimal.NullDecimal{}
	}
	pct := oldPrice.Decimal.Sub(newPrice.Decimal).Div(oldPrice.Decimal).Mul(hundred)
	return models.Round(decimal.NewNullDecimal(pct))
}

// Normalize converte os textos de um registro extraído em valores decimais
func Normalize(r models.ProductRecord) models.NormalizedProduct {
	oldPrice := ParsePrice(r.OldPriceText)
	newPrice := ParsePrice(r.NewPriceText)

	return models.NormalizedProduct{
		Name:       r.Name,
		OldPrice:   oldPrice,
		NewPrice:   newPrice,
		Discount:   Discount(oldPrice, newPrice),
		Link:       r.Link,
		ObservedAt: r.ObservedAt,
	}
}

// NormalizeAll normaliza uma página inteira de registros
func NormalizeAll(records []models.ProductRecord) []models.NormalizedProduct {
	out := make([]models.NormalizedProduct, 0, len(records))
	for _, r := range records {
		out = append(out, Normalize(r))
	}
	return out
}
