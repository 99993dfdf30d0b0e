package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/newsroom-labs/cms-service/internal/auth"
)

// DenylistPruner drops expired revocations every interval until ctx is cancelled.
// It returns once the loop has stopped.
func DenylistPruner(ctx context.Context, denylist auth.Denylist, interval time.Duration, logger *zap.Logger) {
	if denylist == nil || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Debug("denylist pruner stopped")
			return
		case now := <-ticker.C:
			removed, err := denylist.Prune(ctx, now)
			if err != nil {
				logger.Warn("denylist prune failed", zap.Error(err))
				continue
			}
			if removed > 0 {
				logger.Debug("denylist pruned", zap.Int("removed", removed))
			}
		}
	}
}
