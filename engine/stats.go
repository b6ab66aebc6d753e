package engine

import (
	"sync"
	"time"
)

// Outcome classifies how a target's chain run ended. Every outcome an
// operator needs to tell apart gets its own value.
type Outcome string

const (
	// OutcomeCompleted means the chain ran to its end, possibly with some
	// failed steps.
	OutcomeCompleted Outcome = "completed"
	// OutcomeEmptyChain means entry validation found nothing to execute.
	OutcomeEmptyChain Outcome = "empty_chain"
	// OutcomeNavigationFailed means the profile page never loaded within the
	// retry budget.
	OutcomeNavigationFailed Outcome = "navigation_failed"
	// OutcomeUnavailable means the profile is private, missing or suspended.
	OutcomeUnavailable Outcome = "unavailable"
	// OutcomeBlocked means a platform block indicator appeared mid-chain.
	OutcomeBlocked Outcome = "blocked"
	// OutcomeStopped means the external stop signal ended the chain early.
	OutcomeStopped Outcome = "stopped"
	// OutcomeRecoveryFailed means a fault could not be recovered from.
	OutcomeRecoveryFailed Outcome = "recovery_failed"
)

// TargetStats is the per-target entry recorded on every chain exit path.
type TargetStats struct {
	Target      string    `json:"target"`
	Account     string    `json:"account"`
	Successful  int       `json:"successful_actions"`
	Failed      int       `json:"failed_actions"`
	SuccessRate float64   `json:"success_rate"`
	StepsRun    []string  `json:"actions_performed"`
	Outcome     Outcome   `json:"outcome"`
	Reason      string    `json:"reason,omitempty"`
	ProcessedAt time.Time `json:"processed_at"`
}

// ErrorRecord captures a target- or account-level failure for the run log.
type ErrorRecord struct {
	Account string    `json:"account"`
	Target  string    `json:"target,omitempty"`
	Err     string    `json:"error"`
	Time    time.Time `json:"timestamp"`
}

// RunStats accumulates counters across all workers of one run. All methods
// are safe for concurrent use.
type RunStats struct {
	mu                sync.Mutex
	totalActions      int
	successfulActions int
	failedActions     int
	accountsProcessed int
	currentAccount    string
	currentTarget     string
	startTime         time.Time
	errors            []ErrorRecord
	targets           []TargetStats
	skippedAccounts   []string
}

func NewRunStats() *RunStats {
	return &RunStats{startTime: time.Now()}
}

// RecordAction bumps the total-attempted counter exactly once and one of the
// success/failure counters.
func (s *RunStats) RecordAction(success bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.totalActions++
	if success {
		s.successfulActions++
	} else {
		s.failedActions++
	}
}

func (s *RunStats) SetCurrent(account, target string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentAccount = account
	s.currentTarget = target
}

func (s *RunStats) AccountProcessed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accountsProcessed++
}

// AccountSkipped records a contention skip, which is not an error.
func (s *RunStats) AccountSkipped(account string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.skippedAccounts = append(s.skippedAccounts, account)
}

func (s *RunStats) AddError(rec ErrorRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errors = append(s.errors, rec)
}

func (s *RunStats) AddTarget(ts TargetStats) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.targets = append(s.targets, ts)
}

// StatsSnapshot is a read-only copy of the run statistics.
type StatsSnapshot struct {
	TotalActions      int           `json:"total_actions"`
	SuccessfulActions int           `json:"successful_actions"`
	FailedActions     int           `json:"failed_actions"`
	AccountsProcessed int           `json:"accounts_processed"`
	CurrentAccount    string        `json:"current_account,omitempty"`
	CurrentTarget     string        `json:"current_target,omitempty"`
	StartTime         time.Time     `json:"start_time"`
	Duration          time.Duration `json:"duration"`
	Errors            []ErrorRecord `json:"errors,omitempty"`
	Targets           []TargetStats `json:"targets,omitempty"`
	SkippedAccounts   []string      `json:"skipped_accounts,omitempty"`
}

func (s *RunStats) Snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := StatsSnapshot{
		TotalActions:      s.totalActions,
		SuccessfulActions: s.successfulActions,
		FailedActions:     s.failedActions,
		AccountsProcessed: s.accountsProcessed,
		CurrentAccount:    s.currentAccount,
		CurrentTarget:     s.currentTarget,
		StartTime:         s.startTime,
		Duration:          time.Since(s.startTime),
	}
	snap.Errors = append(snap.Errors, s.errors...)
	snap.Targets = append(snap.Targets, s.targets...)
	snap.SkippedAccounts = append(snap.SkippedAccounts, s.skippedAccounts...)
	return snap
}
