package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/chromedp"
)

// chromePage drives one chromedp tab.
type chromePage struct {
	ctx     context.Context
	cancel  context.CancelFunc
	timeout time.Duration
}

func newChromePage(parent context.Context, timeout time.Duration) *chromePage {
	ctx, cancel := chromedp.NewContext(parent)
	return &chromePage{ctx: ctx, cancel: cancel, timeout: timeout}
}

// run executes chromedp actions against the tab, bounded by the page timeout
// and by the caller's context.
func (p *chromePage) run(ctx context.Context, actions ...chromedp.Action) error {
	tctx, cancel := context.WithTimeout(p.ctx, p.timeout)
	defer cancel()
	done := make(chan error, 1)
	go func() {
		done <- chromedp.Run(tctx, actions...)
	}()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		cancel()
		return ctx.Err()
	}
}

func (p *chromePage) Navigate(ctx context.Context, url string) error {
	return p.run(ctx, chromedp.Navigate(url))
}

func (p *chromePage) WaitReady(ctx context.Context) error {
	return p.run(ctx, chromedp.WaitReady("body", chromedp.ByQuery))
}

func (p *chromePage) Reload(ctx context.Context) error {
	return p.run(ctx, chromedp.Reload())
}

func (p *chromePage) Content(ctx context.Context) (string, error) {
	var body string
	err := p.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		node, err := dom.GetDocument().Do(ctx)
		if err != nil {
			return err
		}
		body, err = dom.GetOuterHTML().WithNodeID(node.NodeID).Do(ctx)
		return err
	}))
	return body, err
}

func (p *chromePage) Title(ctx context.Context) (string, error) {
	var title string
	err := p.run(ctx, chromedp.Title(&title))
	return title, err
}

func (p *chromePage) URL(ctx context.Context) (string, error) {
	var loc string
	err := p.run(ctx, chromedp.Location(&loc))
	return loc, err
}

func (p *chromePage) nodes(ctx context.Context, selector string) ([]*cdp.Node, error) {
	var nodes []*cdp.Node
	err := p.run(ctx, chromedp.Nodes(selector, &nodes, chromedp.ByQueryAll, chromedp.AtLeast(0)))
	return nodes, err
}

func (p *chromePage) Click(ctx context.Context, selector string) error {
	return p.ClickNth(ctx, selector, 0)
}

func (p *chromePage) ClickNth(ctx context.Context, selector string, n int) error {
	nodes, err := p.nodes(ctx, selector)
	if err != nil {
		return err
	}
	if n >= len(nodes) {
		return fmt.Errorf("%w: %s", ErrNotFound, selector)
	}
	return p.run(ctx, chromedp.MouseClickNode(nodes[n]))
}

func (p *chromePage) ClickAll(ctx context.Context, selector string) (int, error) {
	nodes, err := p.nodes(ctx, selector)
	if err != nil {
		return 0, err
	}
	for _, node := range nodes {
		if err := p.run(ctx, chromedp.MouseClickNode(node)); err != nil {
			return 0, err
		}
	}
	return len(nodes), nil
}

func (p *chromePage) Fill(ctx context.Context, selector, text string) error {
	nodes, err := p.nodes(ctx, selector)
	if err != nil {
		return err
	}
	if len(nodes) == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, selector)
	}
	return p.run(ctx,
		chromedp.Clear(selector, chromedp.ByQuery),
		chromedp.SendKeys(selector, text, chromedp.ByQuery),
	)
}

func (p *chromePage) Text(ctx context.Context, selector string) (string, error) {
	var text string
	err := p.run(ctx, chromedp.Text(selector, &text, chromedp.ByQuery, chromedp.AtLeast(0)))
	return text, err
}

func (p *chromePage) Texts(ctx context.Context, selector string) ([]string, error) {
	var texts []string
	expr := fmt.Sprintf(
		`Array.from(document.querySelectorAll(%q)).map(e => e.innerText)`, selector)
	err := p.run(ctx, chromedp.Evaluate(expr, &texts))
	return texts, err
}

func (p *chromePage) Exists(ctx context.Context, selector string) (bool, error) {
	n, err := p.Count(ctx, selector)
	return n > 0, err
}

func (p *chromePage) Count(ctx context.Context, selector string) (int, error) {
	nodes, err := p.nodes(ctx, selector)
	return len(nodes), err
}

func (p *chromePage) Press(ctx context.Context, key string) error {
	return p.run(ctx, chromedp.KeyEvent(key))
}

func (p *chromePage) Close() error {
	p.cancel()
	return nil
}
