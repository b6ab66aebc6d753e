package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/instmulti/instmulti/browser"
	"github.com/instmulti/instmulti/chain"
	"github.com/instmulti/instmulti/config"
	"github.com/instmulti/instmulti/log"
	"github.com/instmulti/instmulti/storage"
	"github.com/instmulti/instmulti/texts"
)

// Session is one account's live browser, able to open pages.
type Session interface {
	NewPage() browser.Page
}

// SessionProvider supplies ready browser sessions for accounts. A provider
// must return an error wrapping browser.ErrSessionActive when the account is
// already leased elsewhere.
type SessionProvider interface {
	NewSession(ctx context.Context, account, proxy string) (Session, error)
	CloseSession(s Session)
}

// Status is the coarse worker state reported through the status callback.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusWorking Status = "working"
	StatusError   Status = "error"
	StatusPaused  Status = "paused"
)

// StatusCallback relays worker progress outward, e.g. to a UI.
type StatusCallback func(workerID int, status Status, label string, snap *StatsSnapshot)

// Orchestrator processes one worker's accounts sequentially: for each
// account it leases a session, logs in, and runs the chain over a shuffled
// copy of the target list. Failures of a single target or account never
// escape to the caller.
type Orchestrator struct {
	provider SessionProvider
	cfg      *config.Config
	steps    []chain.Step
	pool     texts.Pool
	stats    *RunStats
	ctrl     *Control
	rnd      *rand.Rand
	callback StatusCallback
	workerID int
}

func NewOrchestrator(provider SessionProvider, cfg *config.Config, steps []chain.Step, pool texts.Pool,
	stats *RunStats, ctrl *Control, rnd *rand.Rand, callback StatusCallback, workerID int) *Orchestrator {
	return &Orchestrator{
		provider: provider,
		cfg:      cfg,
		steps:    steps,
		pool:     pool,
		stats:    stats,
		ctrl:     ctrl,
		rnd:      rnd,
		callback: callback,
		workerID: workerID,
	}
}

func (o *Orchestrator) notify(status Status, label string, snap *StatsSnapshot) {
	if o.callback != nil {
		o.callback(o.workerID, status, label, snap)
	}
}

// RunAccount drives the full target list for one account. The session lease
// and the page are released on every exit path.
func (o *Orchestrator) RunAccount(ctx context.Context, acc *storage.Account, targets []string) {
	logger := log.LoggerFromContext(ctx).With(
		slog.Int("worker", o.workerID), slog.String("account", acc.Username))
	ctx = log.ContextWithLogger(ctx, logger)

	o.stats.SetCurrent(acc.Username, "")
	o.notify(StatusWorking, acc.Username, nil)

	session, err := o.provider.NewSession(ctx, acc.Username, acc.Proxy)
	if err != nil {
		if errors.Is(err, browser.ErrSessionActive) {
			// another worker owns this account right now; skip, not an error
			logger.Info("session already active, skipping account")
			o.stats.AccountSkipped(acc.Username)
			o.notify(StatusIdle, acc.Username, nil)
			return
		}
		logger.Error(fmt.Sprintf("failed to create session: %v", err))
		o.stats.AddError(ErrorRecord{Account: acc.Username, Err: err.Error(), Time: time.Now()})
		o.notify(StatusError, acc.Username, nil)
		return
	}

	page := session.NewPage()
	defer func() {
		_ = page.Close()
		o.provider.CloseSession(session)
		o.notify(StatusIdle, acc.Username, nil)
	}()

	if !o.login(ctx, page, acc) {
		logger.Error("login failed")
		o.stats.AddError(ErrorRecord{Account: acc.Username, Err: "login failed", Time: time.Now()})
		o.notify(StatusError, acc.Username, nil)
		return
	}

	// a fixed visiting order is an easy automation tell
	shuffled := slices.Clone(targets)
	o.rnd.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	runner := NewRunner(page, o.cfg, o.pool, o.stats, o.ctrl, o.rnd, acc.Username)

	var succeeded, failedCount int
	for i, target := range shuffled {
		if o.ctrl.Paused() {
			o.notify(StatusPaused, acc.Username, nil)
		}
		if !o.ctrl.WaitIfPaused() {
			break
		}
		o.stats.SetCurrent(acc.Username, target)
		o.notify(StatusWorking, fmt.Sprintf("%s -> %s", acc.Username, target), nil)

		ts := runner.Run(ctx, target, o.steps)
		succeeded += ts.Successful
		failedCount += ts.Failed

		if i < len(shuffled)-1 {
			if !o.ctrl.Sleep(uniformDuration(o.rnd, o.cfg.Delays.BetweenTargets)) {
				break
			}
		}
	}

	o.updateAccount(acc, succeeded, failedCount)
	o.stats.AccountProcessed()
	snap := o.stats.Snapshot()
	o.notify(StatusWorking, acc.Username, &snap)
	logger.Info("account processed", slog.Int("successful", succeeded), slog.Int("failed", failedCount))
}

// updateAccount folds this run's results into the account's cumulative
// numbers.
func (o *Orchestrator) updateAccount(acc *storage.Account, succeeded, failedCount int) {
	total := succeeded + failedCount
	acc.TotalActions += total
	acc.LastUsed = time.Now()
	if total == 0 {
		return
	}
	rate := float64(succeeded) / float64(total) * 100
	if acc.SuccessRate == 0 {
		acc.SuccessRate = rate
	} else {
		acc.SuccessRate = (acc.SuccessRate + rate) / 2
	}
}

// login signs the account in and dismisses the post-login dialogs. Success
// is judged by landing somewhere on the platform other than the login page.
func (o *Orchestrator) login(ctx context.Context, page browser.Page, acc *storage.Account) bool {
	logger := log.LoggerFromContext(ctx)

	if err := page.Navigate(ctx, o.cfg.BaseURL+"/accounts/login/"); err != nil {
		logger.Warn(fmt.Sprintf("could not open login page: %v", err))
		return false
	}
	if !o.ctrl.Sleep(uniformDuration(o.rnd, config.DelayRange{Min: 2, Max: 4})) {
		return false
	}

	sel := o.cfg.Selectors.Login
	if err := page.Fill(ctx, sel.UsernameField, acc.Username); err != nil {
		logger.Warn(fmt.Sprintf("could not fill username: %v", err))
		return false
	}
	o.ctrl.Sleep(time.Second)
	if err := page.Fill(ctx, sel.PasswordField, acc.Password); err != nil {
		logger.Warn(fmt.Sprintf("could not fill password: %v", err))
		return false
	}
	o.ctrl.Sleep(time.Second)
	if err := page.Click(ctx, sel.LoginButton); err != nil {
		logger.Warn(fmt.Sprintf("could not submit login: %v", err))
		return false
	}
	if !o.ctrl.Sleep(uniformDuration(o.rnd, config.DelayRange{Min: 3, Max: 5})) {
		return false
	}

	current, err := page.URL(ctx)
	if err != nil {
		return false
	}
	host := o.cfg.BaseURL
	if u, perr := url.Parse(o.cfg.BaseURL); perr == nil {
		host = u.Host
	}
	if !strings.Contains(current, host) || strings.Contains(current, "login") {
		return false
	}

	// "save your login info" and "turn on notifications" dialogs
	for i := 0; i < 2; i++ {
		if n, err := page.ClickAll(ctx, sel.DismissPopup); err != nil || n == 0 {
			break
		}
		o.ctrl.Sleep(time.Second)
	}
	logger.Info("logged in")
	return true
}
