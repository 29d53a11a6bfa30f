package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"bot-ofertas/internal/logger"
	"bot-ofertas/internal/models"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS products (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	product_name TEXT NOT NULL UNIQUE,
	old_price TEXT CHECK (old_price IS NULL OR CAST(old_price AS REAL) >= 0),
	new_price TEXT CHECK (new_price IS NULL OR CAST(new_price AS REAL) >= 0),
	discount TEXT,
	link TEXT,
	last_updated DATETIME,
	delivery_pending BOOLEAN NOT NULL DEFAULT 1
);
CREATE INDEX IF NOT EXISTS idx_products_pending ON products (delivery_pending, id);
`

const productColumns = "id, product_name, old_price, new_price, discount, link, last_updated, delivery_pending"

// SQLite guarda os produtos em um arquivo SQLite
type SQLite struct {
	conn *sql.DB
	log  *logger.Logger
}

// NewSQLite abre (ou cria) o banco em dbPath; ":memory:" serve para testes
func NewSQLite(dbPath string, log *logger.Logger) (*SQLite, error) {
	conn, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}
	// uma conexão só: SQLite aceita um escritor por vez e ":memory:" é por conexão
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, err
	}

	return &SQLite{conn: conn, log: log}, nil
}

// Migrate cria as tabelas necessárias
func (db *SQLite) Migrate(ctx context.Context) error {
	if _, err := db.conn.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("criar schema: %w", err)
	}
	db.log.Debug().Msg("Schema SQLite pronto")
	return nil
}

// Close fecha a conexão com o banco de dados
func (db *SQLite) Close() error {
	return db.conn.Close()
}

// UpsertAll grava o lote inteiro em uma transação; qualquer erro desfaz tudo
func (db *SQLite) UpsertAll(ctx context.Context, products []models.NormalizedProduct) (UpsertResult, error) {
	var res UpsertResult
	err := db.runInTx(ctx, func(tx *sql.Tx) error {
		var err error
		res, err = applyBatch(ctx, sqliteTx{tx: tx}, products)
		return err
	})
	if err != nil {
		return UpsertResult{}, err
	}
	return res, nil
}

// FetchPending retorna os produtos aguardando envio, em ordem de id
func (db *SQLite) FetchPending(ctx context.Context) ([]models.StoredProduct, error) {
	rows, err := db.conn.QueryContext(ctx,
		"SELECT "+productColumns+" FROM products WHERE delivery_pending = 1 ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []models.StoredProduct
	for rows.Next() {
		p, err := scanSQLProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}

// MarkDelivered marca um produto como enviado; chamar duas vezes não é erro
func (db *SQLite) MarkDelivered(ctx context.Context, id int64) error {
	res, err := db.conn.ExecContext(ctx, "UPDATE products SET delivery_pending = 0 WHERE id = ?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	return nil
}

func (db *SQLite) runInTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

type sqliteTx struct {
	tx *sql.Tx
}

func (t sqliteTx) findByName(ctx context.Context, name string) (*models.StoredProduct, error) {
	row := t.tx.QueryRowContext(ctx, "SELECT "+productColumns+" FROM products WHERE product_name = ?", name)
	p, err := scanSQLProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return p, err
}

func (t sqliteTx) insert(ctx context.Context, p models.NormalizedProduct) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO products (product_name, old_price, new_price, discount, link, last_updated, delivery_pending)
		VALUES (?, ?, ?, ?, ?, ?, 1)`,
		p.Name, p.OldPrice, p.NewPrice, p.Discount, nullableString(p.Link), p.ObservedAt.UTC())
	return err
}

func (t sqliteTx) replace(ctx context.Context, id int64, p models.NormalizedProduct) error {
	_, err := t.tx.ExecContext(ctx, `
		UPDATE products
		SET old_price = ?, new_price = ?, discount = ?, link = ?, last_updated = ?, delivery_pending = 1
		WHERE id = ?`,
		p.OldPrice, p.NewPrice, p.Discount, nullableString(p.Link), p.ObservedAt.UTC(), id)
	return err
}

func (t sqliteTx) touch(ctx context.Context, id int64, link string, observedAt time.Time) error {
	_, err := t.tx.ExecContext(ctx,
		"UPDATE products SET link = ?, last_updated = ? WHERE id = ?",
		nullableString(link), observedAt.UTC(), id)
	return err
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSQLProduct(row rowScanner) (*models.StoredProduct, error) {
	var p models.StoredProduct
	var link sql.NullString
	var lastUpdated sql.NullTime
	err := row.Scan(&p.ID, &p.Name, &p.OldPrice, &p.NewPrice, &p.Discount, &link, &lastUpdated, &p.DeliveryPending)
	if err != nil {
		return nil, err
	}
	if link.Valid {
		p.Link = link.String
	}
	if lastUpdated.Valid {
		p.LastUpdated = lastUpdated.Time
	}
	return &p, nil
}
