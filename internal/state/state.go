package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// Selection is the persisted report context: the last Jalaali year/month the
// user asked about. Scans that omit an explicit target fall back to it.
type Selection struct {
	Year      int    `json:"year"`
	Month     int    `json:"month"`
	UpdatedAt string `json:"updated_at"`
}

// Store persists the selection as a JSON file.
type Store struct {
	stateFile string
	selection *Selection
	logger    *zap.Logger
}

// NewStore creates a new state store backed by the given file.
func NewStore(stateFile string, logger *zap.Logger) *Store {
	return &Store{
		stateFile: stateFile,
		logger:    logger,
	}
}

// Load reads the state file. A missing file is not an error; the store starts
// empty and is created on first save.
func (s *Store) Load() error {
	data, err := os.ReadFile(s.stateFile)
	if err != nil {
		if os.IsNotExist(err) {
			s.selection = &Selection{}
			return nil
		}
		return fmt.Errorf("failed to read state file: %w", err)
	}

	var selection Selection
	if err := json.Unmarshal(data, &selection); err != nil {
		return fmt.Errorf("failed to parse state file: %w", err)
	}

	s.selection = &selection
	s.logger.Info("Report state loaded",
		zap.Int("year", selection.Year),
		zap.Int("month", selection.Month))

	return nil
}

// Save writes the state file, creating parent directories as needed.
func (s *Store) Save() error {
	if s.selection == nil {
		s.selection = &Selection{}
	}

	data, err := json.MarshalIndent(s.selection, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	if dir := filepath.Dir(s.stateFile); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create state directory: %w", err)
		}
	}
	if err := os.WriteFile(s.stateFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}

	s.logger.Info("Report state saved",
		zap.Int("year", s.selection.Year),
		zap.Int("month", s.selection.Month))

	return nil
}

// SelectedMonth returns the remembered year/month, or ok=false when nothing
// has been remembered yet.
func (s *Store) SelectedMonth() (year, month int, ok bool) {
	if s.selection == nil || s.selection.Year == 0 || s.selection.Month == 0 {
		return 0, 0, false
	}
	return s.selection.Year, s.selection.Month, true
}

// SetSelectedMonth remembers a year/month and persists it immediately.
func (s *Store) SetSelectedMonth(year, month int) error {
	s.selection = &Selection{
		Year:      year,
		Month:     month,
		UpdatedAt: time.Now().Format(time.RFC3339),
	}
	return s.Save()
}
