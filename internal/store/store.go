package store

import (
	"context"

	"github.com/seantiz/montecarlo/internal/model"
)

// Store defines the persistence operations for engine checkpoints. A
// checkpoint is addressed by a group and a name within the group.
type Store interface {
	SaveCheckpoint(ctx context.Context, cp *model.Checkpoint) error
	GetCheckpoint(ctx context.Context, group, name string) (*model.Checkpoint, error)
	ListCheckpoints(ctx context.Context, group string) ([]*model.Checkpoint, error)
	DeleteCheckpoint(ctx context.Context, group, name string) error
	Close() error
}
