package engine

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"testing"

	"github.com/instmulti/instmulti/browser"
	"github.com/instmulti/instmulti/chain"
	"github.com/instmulti/instmulti/config"
	"github.com/instmulti/instmulti/gate"
	"github.com/instmulti/instmulti/storage"
	"github.com/instmulti/instmulti/texts"
)

type mockSession struct {
	account string
	page    *browser.MockPage
}

func (s *mockSession) NewPage() browser.Page { return s.page }

type mockProvider struct {
	mu      sync.Mutex
	gate    *gate.Gate
	newPage func() *browser.MockPage
	closed  int
}

func newMockProvider(newPage func() *browser.MockPage) *mockProvider {
	return &mockProvider{gate: gate.New(), newPage: newPage}
}

func (p *mockProvider) NewSession(_ context.Context, account, proxy string) (Session, error) {
	if !p.gate.Acquire(account) {
		return nil, fmt.Errorf("%w: %s", browser.ErrSessionActive, account)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return &mockSession{account: account, page: p.newPage()}, nil
}

func (p *mockProvider) CloseSession(s Session) {
	ms := s.(*mockSession)
	p.gate.Release(ms.account)
	p.mu.Lock()
	p.closed++
	p.mu.Unlock()
}

func (p *mockProvider) closedSessions() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// loginReadyPage scripts a page where the login flow succeeds and the target
// profile can be followed.
func loginReadyPage(cfg *config.Config) *browser.MockPage {
	page := browser.NewMockPage()
	sel := cfg.Selectors.Login
	page.Elements[sel.UsernameField] = 1
	page.Elements[sel.PasswordField] = 1
	page.Elements[sel.LoginButton] = 1
	page.Elements[cfg.Selectors.Follow.FollowButton] = 1
	page.OnClick = func(selector string) {
		if selector == sel.LoginButton {
			page.Navigate(context.Background(), cfg.BaseURL+"/")
		}
	}
	return page
}

func followChain() []chain.Step {
	return []chain.Step{{Type: chain.StepFollow, Enabled: true}}
}

func newTestOrchestrator(provider SessionProvider, cfg *config.Config, stats *RunStats) *Orchestrator {
	ctrl := NewControl(context.Background())
	rnd := rand.New(rand.NewSource(1))
	return NewOrchestrator(provider, cfg, followChain(), texts.Pool{}, stats, ctrl, rnd, nil, 0)
}

func TestRunAccountSkipsWhenLeaseActive(t *testing.T) {
	cfg := testConfig()
	provider := newMockProvider(func() *browser.MockPage { return loginReadyPage(cfg) })
	provider.gate.Acquire("alice") // someone else owns the account

	stats := NewRunStats()
	orch := newTestOrchestrator(provider, cfg, stats)
	acc := storage.Account{Username: "alice", Password: "secret123", Status: storage.AccountActive}

	orch.RunAccount(context.Background(), &acc, []string{"bob"})

	snap := stats.Snapshot()
	if len(snap.SkippedAccounts) != 1 || snap.SkippedAccounts[0] != "alice" {
		t.Fatalf("expected alice to be skipped, got %v", snap.SkippedAccounts)
	}
	if snap.AccountsProcessed != 0 {
		t.Fatalf("expected no account processed, got %d", snap.AccountsProcessed)
	}
	if len(snap.Errors) != 0 {
		t.Fatalf("expected a skip to not be an error, got %v", snap.Errors)
	}
	if provider.closedSessions() != 0 {
		t.Fatal("expected no session to be created or closed")
	}
}

func TestRunAccountLoginFailure(t *testing.T) {
	cfg := testConfig()
	// a page without any login controls
	provider := newMockProvider(func() *browser.MockPage { return browser.NewMockPage() })

	stats := NewRunStats()
	orch := newTestOrchestrator(provider, cfg, stats)
	acc := storage.Account{Username: "alice", Password: "secret123", Status: storage.AccountActive}

	orch.RunAccount(context.Background(), &acc, []string{"bob"})

	snap := stats.Snapshot()
	if len(snap.Errors) != 1 {
		t.Fatalf("expected a login error record, got %v", snap.Errors)
	}
	if snap.AccountsProcessed != 0 {
		t.Fatalf("expected no account processed, got %d", snap.AccountsProcessed)
	}
	if provider.closedSessions() != 1 {
		t.Fatal("expected the session to be released after the login failure")
	}
	if provider.gate.IsActive("alice") {
		t.Fatal("expected the lease to be released")
	}
}

func TestRunAccountContinuesAfterFailedTarget(t *testing.T) {
	cfg := testConfig()
	var page *browser.MockPage
	provider := newMockProvider(func() *browser.MockPage {
		page = loginReadyPage(cfg)
		page.ContentByURL[cfg.BaseURL+"/ghost/"] = "Sorry, this page isn't available."
		return page
	})

	stats := NewRunStats()
	orch := newTestOrchestrator(provider, cfg, stats)
	acc := storage.Account{Username: "alice", Password: "secret123", Status: storage.AccountActive}

	orch.RunAccount(context.Background(), &acc, []string{"ghost", "bob"})

	snap := stats.Snapshot()
	if snap.AccountsProcessed != 1 {
		t.Fatalf("expected the account to finish, got %d processed", snap.AccountsProcessed)
	}
	if len(snap.Targets) != 2 {
		t.Fatalf("expected entries for both targets, got %d", len(snap.Targets))
	}
	if snap.SuccessfulActions != 1 {
		t.Fatalf("expected the reachable target to be engaged, got %+v", snap)
	}
}

func TestRunAccountReportsPausedStatus(t *testing.T) {
	cfg := testConfig()
	ctrl := NewControl(context.Background())

	// pause right after the first target finishes: the follow click arms a
	// flag and the block scan's content read, the last page call of a
	// target, trips it
	followed := false
	provider := newMockProvider(func() *browser.MockPage {
		page := loginReadyPage(cfg)
		prev := page.OnClick
		page.OnClick = func(selector string) {
			prev(selector)
			if selector == cfg.Selectors.Follow.FollowButton {
				followed = true
			}
		}
		page.OnContent = func() {
			if followed {
				followed = false
				ctrl.Pause()
			}
		}
		return page
	})

	stats := NewRunStats()
	var pausedSeen int
	callback := func(workerID int, status Status, label string, snap *StatsSnapshot) {
		if status == StatusPaused {
			pausedSeen++
			ctrl.Resume()
		}
	}
	orch := NewOrchestrator(provider, cfg, followChain(), texts.Pool{}, stats, ctrl,
		rand.New(rand.NewSource(1)), callback, 0)
	acc := storage.Account{Username: "alice", Password: "secret123", Status: storage.AccountActive}

	orch.RunAccount(context.Background(), &acc, []string{"bob", "carol"})

	if pausedSeen != 1 {
		t.Fatalf("expected one paused notification, got %d", pausedSeen)
	}
	snap := stats.Snapshot()
	if snap.AccountsProcessed != 1 {
		t.Fatalf("expected the account to finish after resuming, got %+v", snap)
	}
	if len(snap.Targets) != 2 {
		t.Fatalf("expected both targets processed, got %d", len(snap.Targets))
	}
}

func TestRunAccountProcessesTargets(t *testing.T) {
	cfg := testConfig()
	var page *browser.MockPage
	provider := newMockProvider(func() *browser.MockPage {
		page = loginReadyPage(cfg)
		return page
	})

	stats := NewRunStats()
	orch := newTestOrchestrator(provider, cfg, stats)
	acc := storage.Account{Username: "alice", Password: "secret123", Status: storage.AccountActive}

	orch.RunAccount(context.Background(), &acc, []string{"bob"})

	snap := stats.Snapshot()
	if snap.AccountsProcessed != 1 {
		t.Fatalf("expected one account processed, got %d", snap.AccountsProcessed)
	}
	if snap.TotalActions != 1 || snap.SuccessfulActions != 1 {
		t.Fatalf("unexpected counters: %+v", snap)
	}
	if acc.TotalActions != 1 {
		t.Fatalf("expected account totals to be updated, got %+v", acc)
	}
	if acc.SuccessRate != 100 {
		t.Fatalf("expected 100%% success rate, got %f", acc.SuccessRate)
	}
	if acc.LastUsed.IsZero() {
		t.Fatal("expected last-used timestamp to be set")
	}
	if got := page.Filled[cfg.Selectors.Login.UsernameField]; got != "alice" {
		t.Fatalf("expected login with the account username, got %q", got)
	}
	if !page.Closed {
		t.Fatal("expected the page to be closed")
	}
	if provider.closedSessions() != 1 {
		t.Fatal("expected the session to be closed")
	}
	if provider.gate.IsActive("alice") {
		t.Fatal("expected the lease to be released")
	}
}
