package engine

import (
	"context"
	"time"

	"github.com/instmulti/instmulti/config"
	"github.com/instmulti/instmulti/log"
)

// closeControlsSelector matches the dismiss buttons of whatever dialog the
// platform may have opened over the page.
const closeControlsSelector = "[aria-label='Close']"

// attemptRecovery tries to bring the page back to a usable state after an
// unexpected fault: confirm responsiveness, reload if needed, dismiss
// dialogs, then re-navigate to the target with a reduced retry budget.
// Recovery succeeds iff the final navigation does.
func (r *Runner) attemptRecovery(ctx context.Context, target string) bool {
	logger := log.LoggerFromContext(ctx)
	logger.Info("attempting recovery after fault")

	wctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	err := r.page.WaitReady(wctx)
	cancel()
	if err != nil {
		logger.Debug("page unresponsive, reloading")
		if rerr := r.page.Reload(ctx); rerr != nil {
			logger.Warn("reload failed during recovery")
		}
		if !r.ctrl.Sleep(uniformDuration(r.rnd, config.DelayRange{Min: 3, Max: 6})) {
			return false
		}
	}

	if n, err := r.page.ClickAll(ctx, closeControlsSelector); err == nil && n > 0 {
		logger.Debug("dismissed open dialogs during recovery")
		r.ctrl.Sleep(time.Second)
	}

	return r.navigateToProfile(ctx, target, 2)
}
