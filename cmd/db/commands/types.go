package commands

import (
	"errors"

	"github.com/barazo-forum/barazo-api-sub002/internal/database"
	"github.com/uptrace/bun/migrate"
	"go.uber.org/zap"
)

// ErrNameRequired is returned when a migration name is missing.
var ErrNameRequired = errors.New("NAME argument required")

// CLIDependencies holds the common dependencies needed by CLI commands.
type CLIDependencies struct {
	DB       database.Client
	Migrator *migrate.Migrator
	Logger   *zap.Logger
}
