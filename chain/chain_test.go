package chain

import (
	"strings"
	"testing"
)

func TestValidateEmptyChain(t *testing.T) {
	res := Validate(nil)
	if res.Valid() {
		t.Fatal("expected empty chain to be invalid")
	}
	if len(res.Errors) != 1 || !strings.Contains(res.Errors[0], "empty") {
		t.Fatalf("expected a single empty-chain error, got %v", res.Errors)
	}
}

func TestValidateNoEnabledSteps(t *testing.T) {
	steps := []Step{
		{Type: StepFollow, Enabled: false},
		{Type: StepLikePosts, Enabled: false},
	}
	res := Validate(steps)
	if res.Valid() {
		t.Fatal("expected chain without enabled steps to be invalid")
	}
	if !strings.Contains(res.Errors[0], "no enabled steps") {
		t.Fatalf("unexpected error: %v", res.Errors)
	}
}

func TestValidateUnknownStepType(t *testing.T) {
	steps := []Step{
		{Type: StepFollow, Enabled: true},
		{Type: StepType("retweet"), Enabled: true},
	}
	res := Validate(steps)
	if res.Valid() {
		t.Fatal("expected chain with unknown step type to be invalid")
	}
	if !strings.Contains(res.Errors[0], "retweet") {
		t.Fatalf("unexpected error: %v", res.Errors)
	}
}

func TestValidateCountWarning(t *testing.T) {
	steps := []Step{
		{Type: StepLikePosts, Enabled: true, Settings: Settings{Count: 15}},
	}
	res := Validate(steps)
	if !res.Valid() {
		t.Fatalf("expected chain to be valid, got errors %v", res.Errors)
	}
	if len(res.Warnings) != 1 || !strings.Contains(res.Warnings[0], "outside [1,10]") {
		t.Fatalf("expected a count warning, got %v", res.Warnings)
	}
}

func TestValidateLikeStoriesWithoutView(t *testing.T) {
	steps := []Step{
		{Type: StepFollow, Enabled: true},
		{Type: StepLikeStories, Enabled: true, Settings: Settings{Count: 1}},
	}
	res := Validate(steps)
	if res.Valid() {
		t.Fatal("expected like_stories without view_stories to be invalid")
	}
	if !strings.Contains(res.Errors[0], "without a preceding") {
		t.Fatalf("unexpected error: %v", res.Errors)
	}
}

func TestValidateLikeStoriesExceedsViewed(t *testing.T) {
	steps := []Step{
		{Type: StepViewStories, Enabled: true, Settings: Settings{Count: 2}},
		{Type: StepLikeStories, Enabled: true, Settings: Settings{Count: 5}},
	}
	res := Validate(steps)
	if res.Valid() {
		t.Fatal("expected like count above viewed count to be invalid")
	}
	if !strings.Contains(res.Errors[0], "exceeds viewed count") {
		t.Fatalf("unexpected error: %v", res.Errors)
	}
}

func TestValidateLikeStoriesIgnoresDisabledView(t *testing.T) {
	steps := []Step{
		{Type: StepViewStories, Enabled: false, Settings: Settings{Count: 5}},
		{Type: StepLikeStories, Enabled: true, Settings: Settings{Count: 2}},
	}
	res := Validate(steps)
	if res.Valid() {
		t.Fatal("expected disabled view_stories not to count as budget")
	}
}

func TestValidateFullChain(t *testing.T) {
	steps := []Step{
		{Type: StepFollow, Enabled: true},
		{Type: StepLikePosts, Enabled: true, Settings: Settings{Count: 2}},
		{Type: StepViewStories, Enabled: true, Settings: Settings{Count: 3}},
		{Type: StepLikeStories, Enabled: true, Settings: Settings{Count: 3}},
		{Type: StepDelay, Enabled: true, Settings: Settings{Delay: 30}},
		{Type: StepSendDM, Enabled: false},
	}
	res := Validate(steps)
	if !res.Valid() {
		t.Fatalf("expected chain to be valid, got errors %v", res.Errors)
	}
	if len(res.Warnings) != 0 {
		t.Fatalf("expected no warnings, got %v", res.Warnings)
	}
}

func TestEnabledPreservesOrder(t *testing.T) {
	steps := []Step{
		{Type: StepFollow, Enabled: true},
		{Type: StepLikePosts, Enabled: false},
		{Type: StepViewStories, Enabled: true},
	}
	enabled := Enabled(steps)
	if len(enabled) != 2 {
		t.Fatalf("expected 2 enabled steps, got %d", len(enabled))
	}
	if enabled[0].Type != StepFollow || enabled[1].Type != StepViewStories {
		t.Fatalf("unexpected order: %v", enabled)
	}
}

func TestViewedBudgetBefore(t *testing.T) {
	steps := []Step{
		{Type: StepViewStories, Enabled: true, Settings: Settings{Count: 2}},
		{Type: StepDelay, Enabled: true},
		{Type: StepViewStories, Enabled: true, Settings: Settings{Count: 5}},
		{Type: StepLikeStories, Enabled: true},
	}
	if b := ViewedBudgetBefore(steps, 3); b != 5 {
		t.Fatalf("expected most recent budget 5, got %d", b)
	}
	if b := ViewedBudgetBefore(steps, 0); b != -1 {
		t.Fatalf("expected -1 without preceding view step, got %d", b)
	}
}

func TestDisplayName(t *testing.T) {
	s := Step{Type: StepFollow}
	if s.DisplayName() != "follow" {
		t.Fatalf("expected type fallback, got %s", s.DisplayName())
	}
	s.Name = "Follow the target"
	if s.DisplayName() != "Follow the target" {
		t.Fatalf("expected configured name, got %s", s.DisplayName())
	}
}
