package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/scratchbank/ledgerd/internal/domain"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS accounts (
    account_id    TEXT PRIMARY KEY,
    balance_cents BIGINT NOT NULL DEFAULT 0,
    frozen        BOOLEAN NOT NULL DEFAULT FALSE,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// Postgres stores accounts in a single table keyed by account_id.
type Postgres struct {
	db *pgxpool.Pool
}

func NewPostgres(connString string) (*Postgres, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(context.Background(), config)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	return &Postgres{db: pool}, nil
}

func (s *Postgres) Close() {
	s.db.Close()
}

// EnsureSchema creates the accounts table if it does not exist yet.
func (s *Postgres) EnsureSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, schemaSQL)
	return err
}

func (s *Postgres) Exists(ctx context.Context, accountID string) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM accounts WHERE account_id = $1)", accountID).Scan(&exists)
	return exists, err
}

func (s *Postgres) Get(ctx context.Context, accountID string) (*domain.Account, error) {
	var acct domain.Account
	err := s.db.QueryRow(ctx,
		"SELECT account_id, balance_cents, frozen, created_at FROM accounts WHERE account_id = $1",
		accountID).Scan(&acct.AccountID, &acct.BalanceCents, &acct.Frozen, &acct.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	return &acct, nil
}

func (s *Postgres) Create(ctx context.Context, acct domain.Account) error {
	_, err := s.db.Exec(ctx,
		"INSERT INTO accounts (account_id, balance_cents, frozen, created_at) VALUES ($1, $2, $3, $4)",
		acct.AccountID, acct.BalanceCents, acct.Frozen, acct.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrAccountExists
		}
		return err
	}
	return nil
}

func (s *Postgres) UpdateBalance(ctx context.Context, accountID string, balanceCents int64) error {
	tag, err := s.db.Exec(ctx,
		"UPDATE accounts SET balance_cents = $2 WHERE account_id = $1", accountID, balanceCents)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func (s *Postgres) SetFrozen(ctx context.Context, accountID string, frozen bool) error {
	tag, err := s.db.Exec(ctx,
		"UPDATE accounts SET frozen = $2 WHERE account_id = $1", accountID, frozen)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func (s *Postgres) Lookup(ctx context.Context, accountIDs []string) ([]domain.Account, error) {
	rows, err := s.db.Query(ctx,
		"SELECT account_id, balance_cents, frozen, created_at FROM accounts WHERE account_id = ANY($1)",
		accountIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []domain.Account
	for rows.Next() {
		var acct domain.Account
		if err := rows.Scan(&acct.AccountID, &acct.BalanceCents, &acct.Frozen, &acct.CreatedAt); err != nil {
			return nil, err
		}
		accounts = append(accounts, acct)
	}
	return accounts, rows.Err()
}
