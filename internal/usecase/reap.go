package usecase

import (
	"context"
	"log/slog"
)

const reapBatchSize = 100

// ProcessReapOrphans fails assets stuck in uploading for longer than the
// orphan TTL and drops whatever bytes reached storage. It returns the number
// of assets it marked failed.
func (u Usecase) ProcessReapOrphans(ctx context.Context) (int, error) {
	cutoff := u.clock().Add(-u.orphanTTL)
	var reaped int
	for {
		assets, err := u.repo.ListOrphanAssets(ctx, cutoff, reapBatchSize)
		if err != nil {
			return reaped, err
		}
		var marked int
		for _, a := range assets {
			ok, err := u.repo.MarkAssetFailed(ctx, a.ID)
			if err != nil {
				return reaped, err
			}
			if !ok {
				// finalized since it was listed
				continue
			}
			marked++
			u.removeObjects(ctx, a)
		}
		reaped += marked
		if len(assets) < reapBatchSize || marked == 0 {
			break
		}
	}
	if reaped > 0 {
		slog.InfoContext(ctx, "reaped orphan uploads", "count", reaped, "cutoff", cutoff)
	}
	return reaped, nil
}
