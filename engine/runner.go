package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"time"

	"github.com/instmulti/instmulti/browser"
	"github.com/instmulti/instmulti/chain"
	"github.com/instmulti/instmulti/config"
	"github.com/instmulti/instmulti/log"
	"github.com/instmulti/instmulti/profile"
	"github.com/instmulti/instmulti/texts"
)

// Runner walks the action chain against one target at a time on one
// authenticated page. It owns navigation, status checks, adaptive delays,
// block detection and bounded recovery; faults never escape it.
type Runner struct {
	page    browser.Page
	exec    *Executor
	cfg     *config.Config
	stats   *RunStats
	ctrl    *Control
	rnd     *rand.Rand
	account string
}

func NewRunner(page browser.Page, cfg *config.Config, pool texts.Pool, stats *RunStats, ctrl *Control, rnd *rand.Rand, account string) *Runner {
	return &Runner{
		page:    page,
		exec:    NewExecutor(page, cfg, pool, ctrl, rnd),
		cfg:     cfg,
		stats:   stats,
		ctrl:    ctrl,
		rnd:     rnd,
		account: account,
	}
}

// Run executes the chain for one target and returns the per-target entry. It
// never returns an error: every failure mode degrades to a recorded outcome.
func (r *Runner) Run(ctx context.Context, target string, steps []chain.Step) TargetStats {
	logger := log.LoggerFromContext(ctx).With(
		slog.String("account", r.account), slog.String("target", target))
	ctx = log.ContextWithLogger(ctx, logger)

	ts := TargetStats{Target: target, Account: r.account, ProcessedAt: time.Now()}

	enabled := chain.Enabled(steps)
	if len(enabled) == 0 {
		logger.Warn("no enabled steps in action chain, nothing to do")
		ts.Outcome = OutcomeEmptyChain
		return ts
	}

	if !r.navigateToProfile(ctx, target, 3) {
		if r.ctrl.Stopped() {
			ts.Outcome = OutcomeStopped
		} else {
			logger.Error("failed to load target profile")
			ts.Outcome = OutcomeNavigationFailed
			ts.Reason = "profile page did not load"
			r.stats.AddError(ErrorRecord{
				Account: r.account, Target: target,
				Err: "profile page did not load", Time: time.Now(),
			})
		}
		r.finish(ctx, &ts)
		return ts
	}

	status := r.checkStatus(ctx, target)
	if !status.Available() {
		logger.Warn("target profile unavailable", slog.String("reason", status.Reason))
		ts.Outcome = OutcomeUnavailable
		ts.Reason = status.Reason
		r.finish(ctx, &ts)
		return ts
	}

	info := r.gatherInfo(ctx, target)
	logger.Info(fmt.Sprintf("profile has %d posts, %d followers, stories=%v",
		info.Posts, info.Followers, info.HasStories))

	ts.Outcome = OutcomeCompleted
	r.runSteps(ctx, target, enabled, &info, &ts)
	r.finish(ctx, &ts)
	return ts
}

// runSteps is the per-step execution loop of the chain state machine.
func (r *Runner) runSteps(ctx context.Context, target string, enabled []chain.Step, info *profile.Info, ts *TargetStats) {
	logger := log.LoggerFromContext(ctx)

	for i, step := range enabled {
		if !r.ctrl.WaitIfPaused() {
			logger.Info("stop signal observed, ending chain early")
			ts.Outcome = OutcomeStopped
			return
		}

		logger.Info(fmt.Sprintf("step %d/%d: %s", i+1, len(enabled), step.DisplayName()))
		res, err := r.executeStep(ctx, target, enabled, i, info)
		succeeded := err == nil && res.Success

		r.stats.RecordAction(succeeded)
		if succeeded {
			ts.Successful++
		} else {
			ts.Failed++
		}
		ts.StepsRun = append(ts.StepsRun, step.DisplayName())

		switch {
		case err != nil:
			logger.Error(fmt.Sprintf("step %s faulted: %v", step.DisplayName(), err))
			if !r.attemptRecovery(ctx, target) {
				logger.Error("recovery failed, aborting remaining steps")
				ts.Outcome = OutcomeRecoveryFailed
				ts.Reason = err.Error()
				r.stats.AddError(ErrorRecord{
					Account: r.account, Target: target, Err: err.Error(), Time: time.Now(),
				})
				return
			}
		case res.Success:
			// Engagement can surface new content; refresh the story flag
			// after the actions that tend to trigger it.
			if step.Type == chain.StepFollow || step.Type == chain.StepLikePosts {
				info.HasStories = r.exec.HasActiveStories(ctx)
			}
		default:
			logger.Warn(fmt.Sprintf("step %s not performed: %s", step.DisplayName(), res.Reason))
		}

		if i < len(enabled)-1 {
			delay := adaptiveDelay(r.rnd, r.cfg.Delays.BetweenActions, step.Type, succeeded)
			if !r.ctrl.Sleep(delay) {
				ts.Outcome = OutcomeStopped
				return
			}
		}

		if phrase, blocked := checkForBlocks(ctx, r.page, r.cfg.BlockPhrases); blocked {
			logger.Error("block indicator detected, aborting remaining steps",
				slog.String("indicator", phrase))
			ts.Outcome = OutcomeBlocked
			ts.Reason = phrase
			return
		}
	}
}

// executeStep dispatches one enabled step to the matching executor
// operation. Story steps are guarded here: the chain may have been loaded
// from a file that skipped authoring-time validation, so the viewed budget
// is enforced again before any story like.
func (r *Runner) executeStep(ctx context.Context, target string, enabled []chain.Step, i int, info *profile.Info) (Result, error) {
	step := enabled[i]
	switch step.Type {
	case chain.StepFollow:
		return r.exec.Follow(ctx, target)
	case chain.StepLikePosts:
		return r.exec.LikePosts(ctx, target, countOrDefault(step, 2))
	case chain.StepViewStories:
		if !info.HasStories {
			return failed("no active stories"), nil
		}
		return r.exec.ViewStories(ctx, target, countOrDefault(step, 3))
	case chain.StepLikeStories:
		if !info.HasStories {
			return failed("no active stories"), nil
		}
		if budget := chain.ViewedBudgetBefore(enabled, i); budget < 0 {
			return failed("no view_stories step precedes like_stories"), nil
		} else if step.Settings.Count > budget {
			return failed(fmt.Sprintf("like count %d exceeds viewed count %d", step.Settings.Count, budget)), nil
		}
		return r.exec.LikeStories(ctx, target)
	case chain.StepReplyStories:
		if !info.HasStories {
			return failed("no active stories"), nil
		}
		return r.exec.ReplyStories(ctx, target)
	case chain.StepSendDM:
		return r.exec.SendDM(ctx, target)
	case chain.StepDelay:
		return r.exec.Delay(delayOrDefault(step, 30)), nil
	}
	return failed(fmt.Sprintf("unknown step type %q", step.Type)), nil
}

// navigateToProfile loads the target's profile page with a bounded retry
// budget and a randomized backoff between attempts. The load counts as
// successful when the page title carries the platform name or the handle.
func (r *Runner) navigateToProfile(ctx context.Context, target string, maxRetries int) bool {
	logger := log.LoggerFromContext(ctx)
	url := fmt.Sprintf("%s/%s/", r.cfg.BaseURL, target)

	for attempt := 1; attempt <= maxRetries; attempt++ {
		if r.ctrl.Stopped() {
			return false
		}
		logger.Debug(fmt.Sprintf("loading profile, attempt %d/%d", attempt, maxRetries))

		err := r.page.Navigate(ctx, url)
		if err == nil {
			err = r.page.WaitReady(ctx)
		}
		if err == nil {
			title, terr := r.page.Title(ctx)
			if terr == nil && (strings.Contains(title, "Instagram") || strings.Contains(title, target)) {
				if !r.ctrl.Sleep(uniformDuration(r.rnd, r.cfg.Delays.PageLoad)) {
					return false
				}
				return true
			}
			err = fmt.Errorf("unexpected page title %q", title)
		}

		logger.Warn(fmt.Sprintf("attempt %d failed: %v", attempt, err))
		if attempt < maxRetries {
			if !r.ctrl.Sleep(uniformDuration(r.rnd, config.DelayRange{Min: 3, Max: 6})) {
				return false
			}
		}
	}
	return false
}

// checkStatus classifies the loaded page. An unreadable page counts as
// blocked with a synthetic reason rather than reaching the classifier.
func (r *Runner) checkStatus(ctx context.Context, target string) profile.Status {
	content, err := r.page.Content(ctx)
	if err != nil {
		return profile.Status{Blocked: true, Reason: fmt.Sprintf("could not read page: %v", err)}
	}
	return profile.Classify(content)
}

// gatherInfo populates the profile snapshot best-effort; it never aborts the
// chain.
func (r *Runner) gatherInfo(ctx context.Context, target string) profile.Info {
	content, err := r.page.Content(ctx)
	if err != nil {
		log.LoggerFromContext(ctx).Debug(fmt.Sprintf("could not read page for profile info: %v", err))
		return profile.Info{Username: target}
	}
	return profile.Extract(content, target)
}

// finish records the per-target entry regardless of how the chain ended.
func (r *Runner) finish(ctx context.Context, ts *TargetStats) {
	if total := ts.Successful + ts.Failed; total > 0 {
		ts.SuccessRate = float64(ts.Successful) / float64(total) * 100
	}
	r.stats.AddTarget(*ts)
	log.LoggerFromContext(ctx).Info(fmt.Sprintf(
		"target done: outcome=%s successful=%d failed=%d", ts.Outcome, ts.Successful, ts.Failed))
}

func countOrDefault(s chain.Step, def int) int {
	if s.Settings.Count > 0 {
		return s.Settings.Count
	}
	return def
}

func delayOrDefault(s chain.Step, def int) int {
	if s.Settings.Delay > 0 {
		return s.Settings.Delay
	}
	return def
}
