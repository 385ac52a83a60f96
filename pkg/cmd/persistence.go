package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/driftline/automaton/pkg/persistence"
	"github.com/driftline/automaton/pkg/persistence/file"
	"github.com/driftline/automaton/pkg/persistence/postgresql"
)

// NewPersistence creates a persistence backend from a database URL. A
// postgres:// URL selects PostgreSQL; anything else is treated as a
// filesystem path.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) persistence.Persistence {
	switch parsePersistenceProvider(databaseURL) {
	case "postgres", "postgresql":
		p, err := postgresql.NewPersistence(ctx, logger, databaseURL)
		if err != nil {
			panic(fmt.Errorf("failed to initialize postgres persistence: %w", err))
		}

		return p
	default:
		return file.NewPersistence(strings.TrimPrefix(databaseURL, "file://"))
	}
}

func parsePersistenceProvider(databaseURL string) string {
	provider, _, found := strings.Cut(databaseURL, "://")
	if !found {
		return "file"
	}

	return provider
}
