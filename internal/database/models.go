package database

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

// ClientState is one persisted value of a client instance
type ClientState struct {
	bun.BaseModel `bun:"table:client_state,alias:cs"`

	Namespace string    `bun:"namespace,pk"`
	Key       string    `bun:"key,pk"`
	Value     []byte    `bun:"value,type:bytea,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

// CreateSchema creates the tables used by the application if missing
func CreateSchema(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().
		Model((*ClientState)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create client_state table: %w", err)
	}

	_, err = db.NewCreateIndex().
		Model((*ClientState)(nil)).
		Index("client_state_updated_at_idx").
		Column("updated_at").
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create client_state index: %w", err)
	}

	return nil
}
