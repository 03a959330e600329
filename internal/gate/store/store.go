// Package store persists the append-only gate scan log.
package store

import (
	"context"

	"outpass/internal/gate/models"
	id "outpass/pkg/domain"
)

// Store appends and reads gate log rows. There is deliberately no update or
// delete: the log is an audit ledger.
type Store interface {
	Append(ctx context.Context, log *models.GateLog) error
	ListRecent(ctx context.Context, limit int) ([]*models.GateLog, error)
	ListByPass(ctx context.Context, passID id.PassID) ([]*models.GateLog, error)
}
