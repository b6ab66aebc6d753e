// Package chain defines the ordered sequence of engagement actions executed
// against each target, and the authoring-time validation rules for it.
package chain

import "fmt"

// StepType identifies one kind of engagement action. The set is closed;
// dispatch over it is exhaustive in the engine.
type StepType string

const (
	StepFollow       StepType = "follow"
	StepLikePosts    StepType = "like_posts"
	StepViewStories  StepType = "view_stories"
	StepLikeStories  StepType = "like_stories"
	StepReplyStories StepType = "reply_stories"
	StepSendDM       StepType = "send_dm"
	StepDelay        StepType = "delay"
)

var stepTypes = map[StepType]bool{
	StepFollow:       true,
	StepLikePosts:    true,
	StepViewStories:  true,
	StepLikeStories:  true,
	StepReplyStories: true,
	StepSendDM:       true,
	StepDelay:        true,
}

// Settings carries the type-specific parameters of a step.
type Settings struct {
	// Count is the number of posts to like or story frames to view/like.
	Count int `json:"count,omitempty" yaml:"count,omitempty"`
	// Delay is the wait in seconds for explicit delay steps.
	Delay int `json:"delay,omitempty" yaml:"delay,omitempty"`
}

// Step is one entry of an action chain. Order in the slice is execution order.
type Step struct {
	Type     StepType `json:"type" yaml:"type"`
	Name     string   `json:"name,omitempty" yaml:"name,omitempty"`
	Enabled  bool     `json:"enabled" yaml:"enabled"`
	Settings Settings `json:"settings,omitempty" yaml:"settings,omitempty"`
}

// DisplayName returns the step's configured name, falling back to its type.
func (s Step) DisplayName() string {
	if s.Name != "" {
		return s.Name
	}
	return string(s.Type)
}

// Enabled filters the chain down to its enabled steps, preserving order.
func Enabled(steps []Step) []Step {
	var out []Step
	for _, s := range steps {
		if s.Enabled {
			out = append(out, s)
		}
	}
	return out
}

// ValidationResult separates hard errors (the chain must not run) from
// warnings (the chain runs but a setting looks off).
type ValidationResult struct {
	Errors   []string
	Warnings []string
}

func (r ValidationResult) Valid() bool {
	return len(r.Errors) == 0
}

// Validate checks a chain at authoring time. Beyond per-step checks it
// enforces the cross-step rule that a like_stories step may not like more
// frames than the most recent preceding enabled view_stories step viewed.
func Validate(steps []Step) ValidationResult {
	var res ValidationResult

	if len(steps) == 0 {
		res.Errors = append(res.Errors, "action chain is empty")
		return res
	}
	if len(Enabled(steps)) == 0 {
		res.Errors = append(res.Errors, "no enabled steps in action chain")
	}

	viewedBudget := -1 // no preceding view_stories step seen yet
	for i, s := range steps {
		if !stepTypes[s.Type] {
			res.Errors = append(res.Errors, fmt.Sprintf("step %d: unknown step type %q", i+1, s.Type))
			continue
		}
		if !s.Enabled {
			continue
		}
		switch s.Type {
		case StepLikePosts, StepViewStories:
			if s.Settings.Count < 1 || s.Settings.Count > 10 {
				res.Warnings = append(res.Warnings, fmt.Sprintf("step %d: count %d outside [1,10]", i+1, s.Settings.Count))
			}
			if s.Type == StepViewStories {
				viewedBudget = s.Settings.Count
			}
		case StepLikeStories:
			if viewedBudget < 0 {
				res.Errors = append(res.Errors, fmt.Sprintf("step %d: like_stories without a preceding enabled view_stories step", i+1))
			} else if s.Settings.Count > viewedBudget {
				res.Errors = append(res.Errors, fmt.Sprintf("step %d: like_stories count %d exceeds viewed count %d", i+1, s.Settings.Count, viewedBudget))
			}
		case StepDelay:
			if s.Settings.Delay < 1 {
				res.Warnings = append(res.Warnings, fmt.Sprintf("step %d: delay %d below 1s", i+1, s.Settings.Delay))
			}
		}
	}
	return res
}

// ViewedBudgetBefore returns the count of the most recent enabled
// view_stories step before index i, or -1 if there is none. The engine uses
// it as a runtime guard for chains loaded from disk that skipped validation.
func ViewedBudgetBefore(steps []Step, i int) int {
	budget := -1
	for j := 0; j < i && j < len(steps); j++ {
		if steps[j].Enabled && steps[j].Type == StepViewStories {
			budget = steps[j].Settings.Count
		}
	}
	return budget
}
