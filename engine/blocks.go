package engine

import (
	"context"
	"strings"

	"github.com/instmulti/instmulti/browser"
)

// dialogSelector matches any open modal; its text is scanned for block
// phrases in addition to the page body.
const dialogSelector = "div[role='dialog']"

// matchBlockPhrase returns the first phrase found in text, case-insensitive.
func matchBlockPhrase(text string, phrases []string) (string, bool) {
	lower := strings.ToLower(text)
	for _, phrase := range phrases {
		if strings.Contains(lower, strings.ToLower(phrase)) {
			return phrase, true
		}
	}
	return "", false
}

// checkForBlocks scans the current page text and any open dialog for the
// configured block indicators. It is cheap, has no retry and is called after
// every step.
func checkForBlocks(ctx context.Context, page browser.Page, phrases []string) (string, bool) {
	content, err := page.Content(ctx)
	if err == nil {
		if phrase, ok := matchBlockPhrase(content, phrases); ok {
			return phrase, true
		}
	}
	dialogText, err := page.Text(ctx, dialogSelector)
	if err == nil && dialogText != "" {
		if phrase, ok := matchBlockPhrase(dialogText, phrases); ok {
			return phrase, true
		}
	}
	return "", false
}
