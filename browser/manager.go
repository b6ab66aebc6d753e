package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"time"

	cdppage "github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/instmulti/instmulti/config"
	"github.com/instmulti/instmulti/gate"
	"github.com/instmulti/instmulti/log"
)

// ErrSessionActive is returned when another worker already holds the session
// lease for the account.
var ErrSessionActive = errors.New("session already active for account")

// stealthScript hides the usual automation fingerprints before any page
// script runs.
const stealthScript = `
Object.defineProperty(navigator, 'webdriver', { get: () => undefined });
Object.defineProperty(navigator, 'plugins', {
	get: () => ({
		length: 3,
		0: { name: 'Chrome PDF Plugin' },
		1: { name: 'Chrome PDF Viewer' },
		2: { name: 'Native Client' }
	}),
});
Object.defineProperty(navigator, 'languages', { get: () => ['en-US', 'en'] });
if (window.chrome) { delete window.chrome.runtime; }
`

// Manager provisions one isolated browser per account session. It owns the
// session gate so that session creation and lease acquisition stay atomic.
type Manager struct {
	cfg  *config.BrowserConfig
	gate *gate.Gate
	rnd  *rand.Rand
}

func NewManager(cfg *config.BrowserConfig) *Manager {
	return &Manager{
		cfg:  cfg,
		gate: gate.New(),
		rnd:  rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Gate exposes the session gate for diagnostics.
func (m *Manager) Gate() *gate.Gate {
	return m.gate
}

// Session is one account's isolated browser instance.
type Session struct {
	Account     string
	allocCtx    context.Context
	cancelAlloc context.CancelFunc
	browserCtx  context.Context
	cancelBrow  context.CancelFunc
	timeout     time.Duration
}

// NewSession acquires the account's lease and starts a dedicated browser with
// randomized fingerprint settings. It returns ErrSessionActive without side
// effects when the account is already leased.
func (m *Manager) NewSession(ctx context.Context, account, proxy string) (*Session, error) {
	logger := log.LoggerFromContext(ctx).With(slog.String("account", account))
	if !m.gate.Acquire(account) {
		return nil, fmt.Errorf("%w: %s", ErrSessionActive, account)
	}

	viewport := m.cfg.ViewportSizes[m.rnd.Intn(len(m.cfg.ViewportSizes))]
	opts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", m.cfg.Headless),
		chromedp.UserAgent(m.cfg.UserAgents[m.rnd.Intn(len(m.cfg.UserAgents))]),
		chromedp.WindowSize(viewport[0], viewport[1]),
	)
	if m.cfg.StealthMode {
		opts = append(opts,
			chromedp.Flag("disable-blink-features", "AutomationControlled"),
			chromedp.Flag("no-first-run", true),
			chromedp.Flag("no-default-browser-check", true),
			chromedp.Flag("disable-popup-blocking", true),
		)
	}
	if proxy != "" {
		server, warn := parseProxy(proxy)
		if warn != "" {
			logger.Warn(warn)
		}
		if server != "" {
			opts = append(opts, chromedp.ProxyServer(server))
			logger.Debug("using proxy", slog.String("proxy", server))
		}
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	browserCtx, cancelBrow := chromedp.NewContext(allocCtx)

	s := &Session{
		Account:     account,
		allocCtx:    allocCtx,
		cancelAlloc: cancelAlloc,
		browserCtx:  browserCtx,
		cancelBrow:  cancelBrow,
		timeout:     time.Duration(m.cfg.TimeoutMS) * time.Millisecond,
	}

	if m.cfg.StealthMode {
		err := chromedp.Run(browserCtx, chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := cdppage.AddScriptToEvaluateOnNewDocument(stealthScript).Do(ctx)
			return err
		}))
		if err != nil {
			m.CloseSession(s)
			return nil, fmt.Errorf("failed to start browser for %s: %v", account, err)
		}
	}

	logger.Debug("created browser session")
	return s, nil
}

// NewPage opens a new tab in the session's browser.
func (s *Session) NewPage() Page {
	return newChromePage(s.browserCtx, s.timeout)
}

// CloseSession tears down the session's browser and releases the account
// lease. Safe to call on every exit path.
func (m *Manager) CloseSession(s *Session) {
	if s == nil {
		return
	}
	s.cancelBrow()
	s.cancelAlloc()
	m.gate.Release(s.Account)
}

// parseProxy converts "host:port" or "host:port:user:pass" into a proxy
// server URL. Authenticated proxies are passed without credentials since the
// exec allocator cannot carry them; the warning names the limitation.
func parseProxy(proxy string) (server, warn string) {
	parts := strings.Split(proxy, ":")
	switch len(parts) {
	case 2:
		return fmt.Sprintf("http://%s:%s", parts[0], parts[1]), ""
	case 4:
		return fmt.Sprintf("http://%s:%s", parts[0], parts[1]),
			"proxy credentials are ignored, configure an IP-authorized proxy"
	}
	return "", fmt.Sprintf("unparseable proxy %q", proxy)
}
