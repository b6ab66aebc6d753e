package browser

import (
	"context"
	"fmt"
	"sync"
)

// MockPage implements Page for tests. Element presence is scripted through
// the Elements map; page content and title follow the last navigated URL.
type MockPage struct {
	mu sync.Mutex

	// ContentByURL serves page content per navigated URL.
	ContentByURL map[string]string
	// TitleByURL serves the page title per navigated URL. URLs absent from
	// the map fall back to the URL itself.
	TitleByURL map[string]string
	// Elements maps a selector to the number of matching elements.
	Elements map[string]int
	// TextBySelector serves Text() results.
	TextBySelector map[string]string
	// TextsBySelector serves Texts() results.
	TextsBySelector map[string][]string
	// FailNavigations makes the next n Navigate calls fail.
	FailNavigations int
	// OnClick, if set, is invoked after every successful click so tests can
	// mutate page state mid-chain.
	OnClick func(selector string)
	// OnContent, if set, is invoked after every Content read.
	OnContent func()

	currentURL string
	Navigated  []string
	Clicks     []string
	Filled     map[string]string
	Pressed    []string
	Reloads    int
	Closed     bool
}

func NewMockPage() *MockPage {
	return &MockPage{
		ContentByURL:    map[string]string{},
		TitleByURL:      map[string]string{},
		Elements:        map[string]int{},
		TextBySelector:  map[string]string{},
		TextsBySelector: map[string][]string{},
		Filled:          map[string]string{},
	}
}

// SetContent replaces the content served for the current URL.
func (p *MockPage) SetContent(content string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ContentByURL[p.currentURL] = content
}

func (p *MockPage) Navigate(_ context.Context, url string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.FailNavigations > 0 {
		p.FailNavigations--
		return fmt.Errorf("mock navigation failure for %s", url)
	}
	p.currentURL = url
	p.Navigated = append(p.Navigated, url)
	return nil
}

func (p *MockPage) WaitReady(context.Context) error { return nil }

func (p *MockPage) Reload(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Reloads++
	return nil
}

func (p *MockPage) Content(context.Context) (string, error) {
	p.mu.Lock()
	content := p.ContentByURL[p.currentURL]
	hook := p.OnContent
	p.mu.Unlock()
	if hook != nil {
		hook()
	}
	return content, nil
}

func (p *MockPage) Title(context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if t, ok := p.TitleByURL[p.currentURL]; ok {
		return t, nil
	}
	return p.currentURL, nil
}

func (p *MockPage) URL(context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.currentURL, nil
}

func (p *MockPage) Click(ctx context.Context, selector string) error {
	return p.ClickNth(ctx, selector, 0)
}

func (p *MockPage) ClickNth(_ context.Context, selector string, n int) error {
	p.mu.Lock()
	if n >= p.Elements[selector] {
		p.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotFound, selector)
	}
	p.Clicks = append(p.Clicks, selector)
	hook := p.OnClick
	p.mu.Unlock()
	if hook != nil {
		hook(selector)
	}
	return nil
}

func (p *MockPage) ClickAll(_ context.Context, selector string) (int, error) {
	p.mu.Lock()
	n := p.Elements[selector]
	for i := 0; i < n; i++ {
		p.Clicks = append(p.Clicks, selector)
	}
	hook := p.OnClick
	p.mu.Unlock()
	if hook != nil && n > 0 {
		hook(selector)
	}
	return n, nil
}

func (p *MockPage) Fill(_ context.Context, selector, text string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Elements[selector] == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, selector)
	}
	p.Filled[selector] = text
	return nil
}

func (p *MockPage) Text(_ context.Context, selector string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.TextBySelector[selector], nil
}

func (p *MockPage) Texts(_ context.Context, selector string) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.TextsBySelector[selector], nil
}

func (p *MockPage) Exists(_ context.Context, selector string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Elements[selector] > 0, nil
}

func (p *MockPage) Count(_ context.Context, selector string) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Elements[selector], nil
}

func (p *MockPage) Press(_ context.Context, key string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Pressed = append(p.Pressed, key)
	return nil
}

func (p *MockPage) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Closed = true
	return nil
}
