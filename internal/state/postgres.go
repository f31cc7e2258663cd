package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"github.com/redmonkez12/work4u/internal/database"
)

// PostgresFactory stores client state in the client_state table, one
// namespace per client.
type PostgresFactory struct {
	db *bun.DB
}

func NewPostgresFactory(db *bun.DB) *PostgresFactory {
	return &PostgresFactory{db: db}
}

func (f *PostgresFactory) ForClient(clientID string) Storage {
	return &PostgresStorage{db: f.db, namespace: clientID}
}

func (f *PostgresFactory) Purge(ctx context.Context, clientID string) error {
	_, err := f.db.NewDelete().
		Model((*database.ClientState)(nil)).
		Where("namespace = ?", clientID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to purge client state: %w", err)
	}
	return nil
}

// PurgeIdle removes namespaces not written since before cutoff
func (f *PostgresFactory) PurgeIdle(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := f.db.NewDelete().
		Model((*database.ClientState)(nil)).
		Where("updated_at < ?", cutoff).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to purge idle client state: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// PostgresStorage is the Storage of one client
type PostgresStorage struct {
	db        *bun.DB
	namespace string
}

func (p *PostgresStorage) Get(ctx context.Context, key string) ([]byte, bool, error) {
	row := new(database.ClientState)
	err := p.db.NewSelect().
		Model(row).
		Where("namespace = ?", p.namespace).
		Where("key = ?", key).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get client state: %w", err)
	}
	return row.Value, true, nil
}

func (p *PostgresStorage) Set(ctx context.Context, key string, value []byte) error {
	row := &database.ClientState{
		Namespace: p.namespace,
		Key:       key,
		Value:     value,
		UpdatedAt: time.Now(),
	}

	_, err := p.db.NewInsert().
		Model(row).
		On("CONFLICT (namespace, key) DO UPDATE").
		Set("value = EXCLUDED.value").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to set client state: %w", err)
	}
	return nil
}

func (p *PostgresStorage) Delete(ctx context.Context, key string) error {
	_, err := p.db.NewDelete().
		Model((*database.ClientState)(nil)).
		Where("namespace = ?", p.namespace).
		Where("key = ?", key).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete client state: %w", err)
	}
	return nil
}
