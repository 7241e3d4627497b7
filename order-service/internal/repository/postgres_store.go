package repository

import (
	"context"
	"database/sql"

	"github.com/arojasjg/milicon/shared-domain/database"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Carts() CartRepository {
	return &PostgresCartRepository{db: s.db}
}

func (s *PostgresStore) Orders() OrderRepository {
	return &PostgresOrderRepository{db: s.db}
}

func (s *PostgresStore) Payments() PaymentRepository {
	return &PostgresPaymentRepository{db: s.db}
}

func (s *PostgresStore) WithinTx(ctx context.Context, fn func(repos Repositories) error) error {
	return database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		return fn(&txRepositories{tx: tx})
	})
}

type txRepositories struct {
	tx *sql.Tx
}

func (r *txRepositories) Carts() CartRepository {
	return &PostgresCartRepository{db: r.tx, lockRows: true}
}

func (r *txRepositories) Orders() OrderRepository {
	return &PostgresOrderRepository{db: r.tx, lockRows: true}
}

func (r *txRepositories) Payments() PaymentRepository {
	return &PostgresPaymentRepository{db: r.tx}
}
