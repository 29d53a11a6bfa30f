package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProductRecord é um card de oferta como extraído do HTML, ainda em texto.
// String vazia significa campo ausente.
type ProductRecord struct {
	Name         string
	OldPriceText string
	NewPriceText string
	DiscountText string // sempre vazio na extração; o desconto é recalculado
	Link         string
	ObservedAt   time.Time
}

// NormalizedProduct é uma oferta com preços convertidos e desconto derivado
type NormalizedProduct struct {
	Name       string
	OldPrice   decimal.NullDecimal
	NewPrice   decimal.NullDecimal
	Discount   decimal.NullDecimal // percentual (0-100), presente só com os dois preços
	Link       string
	ObservedAt time.Time
}

// StoredProduct representa uma linha da tabela products
type StoredProduct struct {
	ID              int64
	Name            string
	OldPrice        decimal.NullDecimal
	NewPrice        decimal.NullDecimal
	Discount        decimal.NullDecimal
	Link            string
	LastUpdated     time.Time
	DeliveryPending bool
}

// Places é o número de casas decimais de preços e descontos
const Places = 2

// Round arredonda para duas casas (meio para cima nos valores positivos); ausente continua ausente
func Round(d decimal.NullDecimal) decimal.NullDecimal {
	if !d.Valid {
		return d
	}
	return decimal.NewNullDecimal(d.Decimal.Round(Places))
}
