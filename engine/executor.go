package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/agnivade/levenshtein"
	"github.com/instmulti/instmulti/browser"
	"github.com/instmulti/instmulti/config"
	"github.com/instmulti/instmulti/log"
	"github.com/instmulti/instmulti/texts"
)

// Result is the outcome of one executed action. A Success=false result is a
// business outcome with a Reason, not a fault; faults surface as errors from
// the executor methods.
type Result struct {
	Success bool
	Reason  string
	Details map[string]int
}

func ok(details map[string]int) Result {
	return Result{Success: true, Details: details}
}

func failed(reason string) Result {
	return Result{Reason: reason}
}

// Executor performs exactly one unit of engagement work per call against a
// live page.
type Executor struct {
	page    browser.Page
	sel     config.Selectors
	delays  config.Delays
	pool    texts.Pool
	ctrl    *Control
	rnd     *rand.Rand
	baseURL string
}

func NewExecutor(page browser.Page, cfg *config.Config, pool texts.Pool, ctrl *Control, rnd *rand.Rand) *Executor {
	return &Executor{
		page:    page,
		sel:     cfg.Selectors,
		delays:  cfg.Delays,
		pool:    pool,
		ctrl:    ctrl,
		rnd:     rnd,
		baseURL: cfg.BaseURL,
	}
}

// sleepRange pauses for a uniform draw from [min, max] seconds, honoring
// stop and pause.
func (e *Executor) sleepRange(min, max float64) {
	e.ctrl.Sleep(time.Duration((min + e.rnd.Float64()*(max-min)) * float64(time.Second)))
}

// Follow activates the follow control. Already following counts as success;
// the executor never unfollows.
func (e *Executor) Follow(ctx context.Context, target string) (Result, error) {
	logger := log.LoggerFromContext(ctx)

	found, err := e.page.Exists(ctx, e.sel.Follow.FollowButton)
	if err != nil {
		return Result{}, err
	}
	if found {
		if err := e.page.Click(ctx, e.sel.Follow.FollowButton); err != nil {
			return Result{}, err
		}
		e.sleepRange(1, 2)
		logger.Info("followed target", slog.String("target", target))
		return ok(nil), nil
	}

	following, err := e.page.Exists(ctx, e.sel.Follow.FollowingButton)
	if err != nil {
		return Result{}, err
	}
	if following {
		logger.Info("already following target", slog.String("target", target))
		return ok(map[string]int{"already_following": 1}), nil
	}
	return failed("follow control not found"), nil
}

// LikePosts opens up to count recent posts and likes each one that is not
// already liked. Per-post failures are logged and skipped; the action
// succeeds if at least one like went through.
func (e *Executor) LikePosts(ctx context.Context, target string, count int) (Result, error) {
	logger := log.LoggerFromContext(ctx)

	available, err := e.page.Count(ctx, e.sel.Posts.PostLinks)
	if err != nil {
		return Result{}, err
	}
	if available == 0 {
		return failed("no posts found"), nil
	}
	if count > available {
		count = available
	}

	liked := 0
	for i := 0; i < count; i++ {
		if e.ctrl.Stopped() {
			break
		}
		if err := e.likeSinglePost(ctx, i, &liked); err != nil {
			logger.Warn(fmt.Sprintf("failed to like post %d of %s: %v", i+1, target, err))
		}
	}

	logger.Info(fmt.Sprintf("liked %d/%d posts of %s", liked, count, target))
	if liked == 0 {
		return failed("no posts liked"), nil
	}
	return ok(map[string]int{"posts_liked": liked}), nil
}

func (e *Executor) likeSinglePost(ctx context.Context, i int, liked *int) error {
	if err := e.page.ClickNth(ctx, e.sel.Posts.PostLinks, i); err != nil {
		return err
	}
	e.sleepRange(2, 4)
	defer e.closePost(ctx)

	alreadyLiked, err := e.page.Exists(ctx, e.sel.Posts.LikedButton)
	if err != nil {
		return err
	}
	if alreadyLiked {
		return nil // not a failure, just nothing to do
	}
	if err := e.page.Click(ctx, e.sel.Posts.LikeButton); err != nil {
		return err
	}
	*liked++
	e.sleepRange(e.delays.LikePost.Min, e.delays.LikePost.Max)
	return nil
}

func (e *Executor) closePost(ctx context.Context) {
	if err := e.page.Click(ctx, e.sel.Posts.CloseButton); err != nil {
		// fall back to the keyboard
		_ = e.page.Press(ctx, browser.KeyEscape)
	}
	e.ctrl.Sleep(time.Second)
}

// ViewStories opens the story viewer and advances through up to count
// frames with a dwell delay each, stopping early when no frames remain. The
// viewer is closed on every exit path.
func (e *Executor) ViewStories(ctx context.Context, target string, count int) (Result, error) {
	logger := log.LoggerFromContext(ctx)

	opened, err := e.openStories(ctx)
	if err != nil {
		return Result{}, err
	}
	if !opened {
		return failed("no active stories"), nil
	}
	defer e.closeStories(ctx)

	viewed := 0
	for i := 0; i < count; i++ {
		if e.ctrl.Stopped() {
			break
		}
		e.sleepRange(e.delays.ViewStory.Min, e.delays.ViewStory.Max)
		viewed++
		if i < count-1 {
			next, err := e.page.Exists(ctx, e.sel.Stories.NextButton)
			if err != nil {
				return Result{}, err
			}
			if !next {
				break // no further frames
			}
			if err := e.page.Click(ctx, e.sel.Stories.NextButton); err != nil {
				return Result{}, err
			}
			e.sleepRange(1, 2)
		}
	}

	logger.Info(fmt.Sprintf("viewed %d stories of %s", viewed, target))
	if viewed == 0 {
		return failed("no stories viewed"), nil
	}
	return ok(map[string]int{"stories_viewed": viewed}), nil
}

// LikeStories opens the viewer and likes the currently open frame.
func (e *Executor) LikeStories(ctx context.Context, target string) (Result, error) {
	opened, err := e.openStories(ctx)
	if err != nil {
		return Result{}, err
	}
	if !opened {
		return failed("no active stories"), nil
	}
	defer e.closeStories(ctx)

	if err := e.page.Click(ctx, e.sel.Stories.LikeButton); err != nil {
		if errors.Is(err, browser.ErrNotFound) {
			return failed("story like control not found"), nil
		}
		return Result{}, err
	}
	e.sleepRange(1, 2)
	log.LoggerFromContext(ctx).Info("liked story", slog.String("target", target))
	return ok(nil), nil
}

// ReplyStories fills the reply field of the open story with a randomly
// chosen template and submits it.
func (e *Executor) ReplyStories(ctx context.Context, target string) (Result, error) {
	message := e.pool.PickStoryReply(e.rnd)
	if message == "" {
		return failed("no story reply texts configured"), nil
	}

	opened, err := e.openStories(ctx)
	if err != nil {
		return Result{}, err
	}
	if !opened {
		return failed("no active stories"), nil
	}
	defer e.closeStories(ctx)

	if err := e.page.Fill(ctx, e.sel.Stories.ReplyField, message); err != nil {
		if errors.Is(err, browser.ErrNotFound) {
			return failed("story reply field not found"), nil
		}
		return Result{}, err
	}
	e.sleepRange(1, 2)
	if err := e.page.Click(ctx, e.sel.Stories.SendButton); err != nil {
		if errors.Is(err, browser.ErrNotFound) {
			return failed("story send control not found"), nil
		}
		return Result{}, err
	}
	e.sleepRange(2, 4)
	log.LoggerFromContext(ctx).Info("replied to story", slog.String("target", target))
	return ok(nil), nil
}

// SendDM walks the new-conversation flow: search the target, pick the
// closest matching result, advance to the composer and send one randomly
// chosen template.
func (e *Executor) SendDM(ctx context.Context, target string) (Result, error) {
	message := e.pool.PickDirectMessage(e.rnd)
	if message == "" {
		return failed("no direct message texts configured"), nil
	}

	if err := e.page.Navigate(ctx, e.baseURL+"/direct/new/"); err != nil {
		return Result{}, err
	}
	e.sleepRange(2, 4)

	if err := e.page.Fill(ctx, e.sel.Direct.SearchField, target); err != nil {
		if errors.Is(err, browser.ErrNotFound) {
			return failed("recipient search field not found"), nil
		}
		return Result{}, err
	}
	e.sleepRange(1, 2)

	rows, err := e.page.Texts(ctx, e.sel.Direct.ResultRows)
	if err != nil {
		return Result{}, err
	}
	idx := closestMatch(rows, target)
	if idx < 0 {
		return failed("target not found in recipient search"), nil
	}
	if err := e.page.ClickNth(ctx, e.sel.Direct.ResultRows, idx); err != nil {
		return Result{}, err
	}
	e.ctrl.Sleep(time.Second)

	if err := e.page.Click(ctx, e.sel.Direct.NextButton); err != nil {
		if errors.Is(err, browser.ErrNotFound) {
			return failed("conversation next control not found"), nil
		}
		return Result{}, err
	}
	e.sleepRange(1, 2)

	if err := e.page.Fill(ctx, e.sel.Direct.MessageField, message); err != nil {
		if errors.Is(err, browser.ErrNotFound) {
			return failed("message composer not found"), nil
		}
		return Result{}, err
	}
	e.sleepRange(1, 2)
	if err := e.page.Click(ctx, e.sel.Direct.SendButton); err != nil {
		if errors.Is(err, browser.ErrNotFound) {
			return failed("message send control not found"), nil
		}
		return Result{}, err
	}
	e.sleepRange(2, 4)
	log.LoggerFromContext(ctx).Info("sent direct message", slog.String("target", target))
	return ok(nil), nil
}

// Delay is the explicit chain step, distinct from the adaptive inter-action
// delay the runner computes.
func (e *Executor) Delay(seconds int) Result {
	if !e.ctrl.Sleep(time.Duration(seconds) * time.Second) {
		return failed("delay interrupted")
	}
	return ok(map[string]int{"delay_seconds": seconds})
}

// openStories clicks the story ring and waits for the viewer. It returns
// false when the target has no active stories.
func (e *Executor) openStories(ctx context.Context) (bool, error) {
	found, err := e.page.Exists(ctx, e.sel.Stories.StoryRing)
	if err != nil || !found {
		return false, err
	}
	if err := e.page.Click(ctx, e.sel.Stories.StoryRing); err != nil {
		return false, err
	}
	e.sleepRange(2, 4)
	return true, nil
}

func (e *Executor) closeStories(ctx context.Context) {
	if err := e.page.Click(ctx, e.sel.Stories.CloseStory); err != nil {
		_ = e.page.Press(ctx, browser.KeyEscape)
	}
	e.ctrl.Sleep(time.Second)
}

// closestMatch picks the search result row with the smallest edit distance
// to the target handle, or -1 when no row comes close enough.
func closestMatch(rows []string, target string) int {
	best, bestDist := -1, len(target) // anything further off than the handle itself is noise
	for i, row := range rows {
		if d := levenshtein.ComputeDistance(row, target); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

// HasActiveStories is the cheap story-ring re-check the runner uses to
// refresh profile info after engagement actions.
func (e *Executor) HasActiveStories(ctx context.Context) bool {
	found, err := e.page.Exists(ctx, e.sel.Stories.StoryRing)
	return err == nil && found
}
