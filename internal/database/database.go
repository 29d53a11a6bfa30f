package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"bot-ofertas/internal/models"
)

var (
	// ErrInvalidProduct indica um registro que não pode ser gravado (nome vazio ou preço negativo)
	ErrInvalidProduct = errors.New("produto inválido")
	// ErrNotFound indica que o id informado não existe
	ErrNotFound = errors.New("produto não encontrado")
)

// UpsertResult resume o que uma chamada de UpsertAll fez
type UpsertResult struct {
	Inserted  int
	Changed   int
	Unchanged int
}

// Pending retorna quantos registros passaram a aguardar envio nesta chamada
func (r UpsertResult) Pending() int {
	return r.Inserted + r.Changed
}

// productTx são as operações que cada banco oferece dentro de uma transação
type productTx interface {
	// findByName retorna nil, nil quando o produto ainda não existe
	findByName(ctx context.Context, name string) (*models.StoredProduct, error)
	insert(ctx context.Context, p models.NormalizedProduct) error
	replace(ctx context.Context, id int64, p models.NormalizedProduct) error
	touch(ctx context.Context, id int64, link string, observedAt time.Time) error
}

// applyBatch aplica a política de mudança de preço a cada registro, em ordem.
// Produto novo entra pendente; preço, preço antigo ou desconto diferente (arredondado)
// sobrescreve tudo e volta a pendente; valores iguais só atualizam link e data.
func applyBatch(ctx context.Context, tx productTx, batch []models.NormalizedProduct) (UpsertResult, error) {
	var res UpsertResult
	for i, p := range batch {
		if err := validate(p); err != nil {
			return res, fmt.Errorf("registro %d (%q): %w", i, p.Name, err)
		}
		p = roundProduct(p)

		existing, err := tx.findByName(ctx, p.Name)
		if err != nil {
			return res, fmt.Errorf("buscar %q: %w", p.Name, err)
		}

		switch {
		case existing == nil:
			if err := tx.insert(ctx, p); err != nil {
				return res, fmt.Errorf("inserir %q: %w", p.Name, err)
			}
			res.Inserted++
		case priceChanged(existing, p):
			if err := tx.replace(ctx, existing.ID, p); err != nil {
				return res, fmt.Errorf("atualizar %q: %w", p.Name, err)
			}
			res.Changed++
		default:
			if err := tx.touch(ctx, existing.ID, p.Link, p.ObservedAt); err != nil {
				return res, fmt.Errorf("atualizar link de %q: %w", p.Name, err)
			}
			res.Unchanged++
		}
	}
	return res, nil
}

// priceChanged compara preço antigo, preço novo e desconto com duas casas.
// Ausente contra presente conta como mudança.
func priceChanged(stored *models.StoredProduct, incoming models.NormalizedProduct) bool {
	return !sameValue(stored.OldPrice, incoming.OldPrice) ||
		!sameValue(stored.NewPrice, incoming.NewPrice) ||
		!sameValue(stored.Discount, incoming.Discount)
}

func sameValue(a, b decimal.NullDecimal) bool {
	if a.Valid != b.Valid {
		return false
	}
	if !a.Valid {
		return true
	}
	return models.Round(a).Decimal.Equal(models.Round(b).Decimal)
}

func validate(p models.NormalizedProduct) error {
	if p.Name == "" {
		return fmt.Errorf("%w: nome vazio", ErrInvalidProduct)
	}
	if p.OldPrice.Valid && p.OldPrice.Decimal.IsNegative() {
		return fmt.Errorf("%w: preço antigo negativo", ErrInvalidProduct)
	}
	if p.NewPrice.Valid && p.NewPrice.Decimal.IsNegative() {
		return fmt.Errorf("%w: preço novo negativo", ErrInvalidProduct)
	}
	return nil
}

func roundProduct(p models.NormalizedProduct) models.NormalizedProduct {
	p.OldPrice = models.Round(p.OldPrice)
	p.NewPrice = models.Round(p.NewPrice)
	p.Discount = models.Round(p.Discount)
	if p.ObservedAt.IsZero() {
		p.ObservedAt = time.Now()
	}
	return p
}

// nullableString grava string vazia como NULL
func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
