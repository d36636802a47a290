package commands

import (
	"context"
	"fmt"

	"github.com/wolfeidau/authcore/internal/store/postgres"
)

type Globals struct {
	Debug   bool
	Version string
}

// StoreFlags configure the PostgreSQL datastore shared by every command.
type StoreFlags struct {
	ConnString string `help:"PostgreSQL connection string" env:"POSTGRES_CONNECTION_STRING"`

	MaxConns        int32 `help:"maximum number of connections in pool" default:"20"`
	MinConns        int32 `help:"minimum number of connections in pool" default:"5"`
	MaxConnLifetime int32 `help:"maximum connection lifetime in seconds" default:"3600"`
	MaxConnIdleTime int32 `help:"maximum connection idle time in seconds" default:"1800"`

	AutoMigrate bool `help:"run database migrations before the command" default:"false" env:"AUTHCORE_POSTGRES_AUTO_MIGRATE"`
}

func (s *StoreFlags) open(ctx context.Context) (*postgres.DB, error) {
	db, err := postgres.Open(ctx, &postgres.PoolConfig{
		ConnString:      s.ConnString,
		MaxConns:        s.MaxConns,
		MinConns:        s.MinConns,
		MaxConnLifetime: s.MaxConnLifetime,
		MaxConnIdleTime: s.MaxConnIdleTime,
	}, s.AutoMigrate)
	if err != nil {
		return nil, fmt.Errorf("failed to open datastore: %w", err)
	}
	return db, nil
}
