// Package browser provides the page capability the engine drives and the
// session provisioning around it. The concrete implementation renders pages
// through chromedp; tests use the MockPage.
package browser

import (
	"context"
	"errors"

	"github.com/chromedp/chromedp/kb"
)

// KeyEscape closes the platform's modal overlays (open post, story viewer).
const KeyEscape = kb.Escape

// ErrNotFound is returned by element operations when no element matches the
// selector. Callers treat it as a business outcome, not a fault.
var ErrNotFound = errors.New("element not found")

// Page is one live browser tab. All operations are context-bound and
// individually timeout-limited by the implementation.
type Page interface {
	// Navigate loads the given URL and waits for the page load event.
	Navigate(ctx context.Context, url string) error
	// WaitReady blocks until the document body is ready or the context ends.
	WaitReady(ctx context.Context) error
	// Reload reloads the current page.
	Reload(ctx context.Context) error
	// Content returns the full rendered HTML of the current page.
	Content(ctx context.Context) (string, error)
	// Title returns the current page title.
	Title(ctx context.Context) (string, error)
	// URL returns the current location.
	URL(ctx context.Context) (string, error)
	// Click clicks the first element matching the selector, or ErrNotFound.
	Click(ctx context.Context, selector string) error
	// ClickNth clicks the n-th (0-based) element matching the selector.
	ClickNth(ctx context.Context, selector string, n int) error
	// ClickAll clicks every element matching the selector and reports how
	// many were clicked.
	ClickAll(ctx context.Context, selector string) (int, error)
	// Fill types text into the first element matching the selector.
	Fill(ctx context.Context, selector, text string) error
	// Text returns the text content of the first matching element, or "" if
	// none matches.
	Text(ctx context.Context, selector string) (string, error)
	// Texts returns the text content of every matching element in document
	// order.
	Texts(ctx context.Context, selector string) ([]string, error)
	// Exists reports whether at least one element matches the selector.
	Exists(ctx context.Context, selector string) (bool, error)
	// Count returns the number of elements matching the selector.
	Count(ctx context.Context, selector string) (int, error)
	// Press sends a named key event (e.g. Escape) to the page.
	Press(ctx context.Context, key string) error
	// Close closes the tab. Closing twice is safe.
	Close() error
}
