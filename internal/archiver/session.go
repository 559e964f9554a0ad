package archiver

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/boxarchiver/internal/metrics"
)

// withSession opens a session, hands it to fn and closes it on every path.
func withSession[S Session](
	ctx context.Context,
	open func(context.Context) (S, error),
	logger *zap.Logger,
	fn func(S) error,
) error {
	session, err := open(ctx)
	if err != nil {
		return fmt.Errorf("open session: %w", err)
	}
	metrics.IncActiveSessions()
	defer func() {
		metrics.DecActiveSessions()
		if cerr := session.Close(); cerr != nil {
			logger.Warn("session close failed", zap.Error(cerr))
		}
	}()
	return fn(session)
}
