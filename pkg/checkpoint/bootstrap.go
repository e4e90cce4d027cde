package checkpoint

import (
	"context"
	"fmt"
	"time"

	"github.com/rsksmart/bitcoinj/pkg/storedblock"
)

// BlockStore is the slice of the block store bootstrap needs.
type BlockStore interface {
	Put(ctx context.Context, b *storedblock.StoredBlock) error
	SetChainHead(ctx context.Context, b *storedblock.StoredBlock) error
}

// bootstrapMargin keeps the chosen checkpoint comfortably behind wall-clock
// time so a client never trusts a checkpoint near the chain tip.
const bootstrapMargin = 7 * 24 * time.Hour

// Bootstrap seeds a fresh store from the newest checkpoint at least one week
// older than now, making it the chain head so the client syncs headers from
// there instead of from genesis. A now earlier than every checkpoint fails
// with ErrNoCheckpointBefore; callers then start from genesis as usual.
func Bootstrap(ctx context.Context, m *Manager, store BlockStore, now time.Time) error {
	cp, err := m.CheckpointBefore(now.Add(-bootstrapMargin))
	if err != nil {
		return fmt.Errorf("select checkpoint: %w", err)
	}
	if err := store.Put(ctx, cp); err != nil {
		return fmt.Errorf("store checkpoint %d: %w", cp.Height, err)
	}
	if err := store.SetChainHead(ctx, cp); err != nil {
		return fmt.Errorf("set chain head to checkpoint %d: %w", cp.Height, err)
	}
	return nil
}
