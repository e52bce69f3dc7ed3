package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"
)

// ErrCorrupt indicates the state file exists but cannot be decoded.
// Treated as a hard failure so a broken file is never mistaken for a
// first run.
var ErrCorrupt = errors.New("state file corrupt")

// State is the persisted alert baseline. Exactly one field is set
// depending on the active alert mode: LastPrice for absolute-delta
// alerts, LastStep for bucket alerts.
type State struct {
	LastPrice *decimal.Decimal `json:"last_price,omitempty"`
	LastStep  *int64           `json:"last_step,omitempty"`
}

// WithLastPrice returns a copy of s with the price baseline set and the
// bucket baseline cleared.
func (s State) WithLastPrice(p decimal.Decimal) State {
	s.LastPrice = &p
	s.LastStep = nil
	return s
}

// WithLastStep returns a copy of s with the bucket baseline set and the
// price baseline cleared.
func (s State) WithLastStep(level int64) State {
	s.LastStep = &level
	s.LastPrice = nil
	return s
}

// Store loads and persists the alert baseline.
type Store interface {
	// Load returns the persisted state. found is false when no state has
	// been written yet; that is not an error.
	Load() (st State, found bool, err error)
	Save(st State) error
}

// FileStore keeps the baseline in a single JSON file.
type FileStore struct {
	path string
}

// NewFileStore builds a store backed by the file at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads the state file. An absent file yields found=false.
func (f *FileStore) Load() (State, bool, error) {
	raw, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return State{}, false, nil
	}
	if err != nil {
		return State{}, false, fmt.Errorf("read state file %s: %w", f.path, err)
	}

	var st State
	if err := json.Unmarshal(raw, &st); err != nil {
		return State{}, false, fmt.Errorf("%w: %s: %v", ErrCorrupt, f.path, err)
	}
	return st, true, nil
}

// Save writes the state atomically: a temp file in the same directory
// is written and fsynced, then renamed over the target, so a crash mid
// write can never leave a half-written file behind.
func (f *FileStore) Save(st State) error {
	body, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	dir := filepath.Dir(f.path)
	tmp, err := os.CreateTemp(dir, ".state-*.json")
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(body); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp state file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("sync temp state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp state file: %w", err)
	}

	if err := os.Rename(tmpName, f.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace state file %s: %w", f.path, err)
	}
	return nil
}

var _ Store = (*FileStore)(nil)
