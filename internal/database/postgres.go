package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"bot-ofertas/internal/logger"
	"bot-ofertas/internal/models"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS products (
	id BIGSERIAL PRIMARY KEY,
	product_name TEXT NOT NULL UNIQUE,
	old_price NUMERIC CHECK (old_price >= 0),
	new_price NUMERIC CHECK (new_price >= 0),
	discount NUMERIC,
	link TEXT,
	last_updated TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
	delivery_pending BOOLEAN NOT NULL DEFAULT TRUE
);
CREATE INDEX IF NOT EXISTS idx_products_pending ON products (id) WHERE delivery_pending;
`

// Postgres guarda os produtos no PostgreSQL via pgxpool
type Postgres struct {
	pool *pgxpool.Pool
	log  *logger.Logger
}

// NewPostgres conecta ao banco descrito pela DSN
func NewPostgres(ctx context.Context, dsn string, log *logger.Logger) (*Postgres, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("DSN inválida: %w", err)
	}
	cfg.MaxConns = 2

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return &Postgres{pool: pool, log: log}, nil
}

// Migrate cria as tabelas necessárias
func (db *Postgres) Migrate(ctx context.Context) error {
	if _, err := db.pool.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("criar schema: %w", err)
	}
	db.log.Debug().Msg("Schema Postgres pronto")
	return nil
}

// Close fecha o pool de conexões
func (db *Postgres) Close() error {
	db.pool.Close()
	return nil
}

// UpsertAll grava o lote inteiro em uma transação; qualquer erro desfaz tudo
func (db *Postgres) UpsertAll(ctx context.Context, products []models.NormalizedProduct) (UpsertResult, error) {
	var res UpsertResult
	err := db.runInTx(ctx, func(tx pgx.Tx) error {
		var err error
		res, err = applyBatch(ctx, pgTx{tx: tx}, products)
		return err
	})
	if err != nil {
		return UpsertResult{}, err
	}
	return res, nil
}

// FetchPending retorna os produtos aguardando envio, em ordem de id
func (db *Postgres) FetchPending(ctx context.Context) ([]models.StoredProduct, error) {
	rows, err := db.pool.Query(ctx,
		"SELECT "+productColumns+" FROM products WHERE delivery_pending ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []models.StoredProduct
	for rows.Next() {
		p, err := scanPgProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}

// MarkDelivered marca um produto como enviado; chamar duas vezes não é erro
func (db *Postgres) MarkDelivered(ctx context.Context, id int64) error {
	tag, err := db.pool.Exec(ctx, "UPDATE products SET delivery_pending = FALSE WHERE id = $1", id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	return nil
}

func (db *Postgres) runInTx(ctx context.Context, fn func(pgx.Tx) error) error {
	tx, err := db.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

type pgTx struct {
	tx pgx.Tx
}

func (t pgTx) findByName(ctx context.Context, name string) (*models.StoredProduct, error) {
	row := t.tx.QueryRow(ctx,
		"SELECT "+productColumns+" FROM products WHERE product_name = $1 FOR UPDATE", name)
	p, err := scanPgProduct(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return p, err
}

func (t pgTx) insert(ctx context.Context, p models.NormalizedProduct) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO products (product_name, old_price, new_price, discount, link, last_updated, delivery_pending)
		VALUES ($1, $2, $3, $4, $5, $6, TRUE)`,
		p.Name, p.OldPrice, p.NewPrice, p.Discount, nullableString(p.Link), p.ObservedAt)
	return err
}

func (t pgTx) replace(ctx context.Context, id int64, p models.NormalizedProduct) error {
	_, err := t.tx.Exec(ctx, `
		UPDATE products
		SET old_price = $1, new_price = $2, discount = $3, link = $4, last_updated = $5, delivery_pending = TRUE
		WHERE id = $6`,
		p.OldPrice, p.NewPrice, p.Discount, nullableString(p.Link), p.ObservedAt, id)
	return err
}

func (t pgTx) touch(ctx context.Context, id int64, link string, observedAt time.Time) error {
	_, err := t.tx.Exec(ctx,
		"UPDATE products SET link = $1, last_updated = $2 WHERE id = $3",
		nullableString(link), observedAt, id)
	return err
}

func scanPgProduct(row pgx.Row) (*models.StoredProduct, error) {
	var p models.StoredProduct
	var link *string
	err := row.Scan(&p.ID, &p.Name, &p.OldPrice, &p.NewPrice, &p.Discount, &link, &p.LastUpdated, &p.DeliveryPending)
	if err != nil {
		return nil, err
	}
	if link != nil {
		p.Link = *link
	}
	return &p, nil
}
