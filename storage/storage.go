// Package storage persists the operator-managed data sets (accounts,
// targets, action chain, text pools) and run statistics as JSON files under
// a data directory.
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/instmulti/instmulti/chain"
	"github.com/instmulti/instmulti/texts"
)

const (
	AccountActive   = "active"
	AccountDisabled = "disabled"
)

// Account is one credentialed identity of the pool. It is mutated after each
// automation run and never deleted automatically.
type Account struct {
	Username     string    `json:"username"`
	Password     string    `json:"password"`
	Proxy        string    `json:"proxy,omitempty"`
	Status       string    `json:"status"`
	TotalActions int       `json:"total_actions"`
	SuccessRate  float64   `json:"success_rate"`
	LastUsed     time.Time `json:"last_used,omitzero"`
}

func (a Account) Active() bool {
	return a.Status != AccountDisabled
}

// Store reads and writes the JSON data files.
type Store struct {
	dataDir string
}

func NewStore(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory %s: %v", dataDir, err)
	}
	return &Store{dataDir: dataDir}, nil
}

func (s *Store) LoadAccounts() ([]Account, error) {
	var accounts []Account
	err := s.loadJSON("accounts.json", &accounts)
	return accounts, err
}

func (s *Store) SaveAccounts(accounts []Account) error {
	return s.saveJSON("accounts.json", accounts)
}

func (s *Store) LoadTargets() ([]string, error) {
	var targets []string
	err := s.loadJSON("targets.json", &targets)
	return targets, err
}

func (s *Store) SaveTargets(targets []string) error {
	return s.saveJSON("targets.json", targets)
}

func (s *Store) LoadChain() ([]chain.Step, error) {
	var steps []chain.Step
	err := s.loadJSON("action_chain.json", &steps)
	return steps, err
}

func (s *Store) SaveChain(steps []chain.Step) error {
	return s.saveJSON("action_chain.json", steps)
}

func (s *Store) LoadTexts() (texts.Pool, error) {
	var pool texts.Pool
	err := s.loadJSON("texts.json", &pool)
	return pool, err
}

func (s *Store) SaveTexts(pool texts.Pool) error {
	return s.saveJSON("texts.json", pool)
}

// SaveStats appends nothing; it overwrites the statistics file with the
// latest snapshot of the run.
func (s *Store) SaveStats(snapshot any) error {
	return s.saveJSON("statistics.json", snapshot)
}

// loadJSON decodes the named file into v. A missing file is not an error;
// v keeps its zero value, mirroring a fresh installation.
func (s *Store) loadJSON(filename string, v any) error {
	data, err := os.ReadFile(filepath.Join(s.dataDir, filename))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read %s: %v", filename, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %s: %v", filename, err)
	}
	return nil
}

func (s *Store) saveJSON(filename string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %v", filename, err)
	}
	if err := os.WriteFile(filepath.Join(s.dataDir, filename), data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %v", filename, err)
	}
	return nil
}
