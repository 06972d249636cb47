// Package backup mirrors session state to local durable storage so a crash
// or reload mid-session can be reconciled by hand. The mirror is advisory:
// writes are best effort and the file is removed only after a confirmed
// remote save.
package backup

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"

	"github.com/LevyDecisionNeuroLab/risk-survey/internal/session"
)

// Store writes one backup file per participant under a configured directory.
type Store struct {
	dir string
	log *zap.Logger
}

func NewStore(dir string, log *zap.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("could not create backup directory: %w", err)
	}
	return &Store{dir: dir, log: log}, nil
}

// Save overwrites the participant's backup with the given snapshot. The
// write goes through a temp file and rename so a crash mid-write never
// leaves a truncated backup behind.
func (s *Store) Save(snap session.Snapshot) error {
	data, err := msgpack.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode backup: %w", err)
	}

	path := s.path(snap.ParticipantID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write backup: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("commit backup: %w", err)
	}
	return nil
}

// Load reads a participant's backup, if one exists.
func (s *Store) Load(participantID string) (session.Snapshot, error) {
	var snap session.Snapshot
	data, err := os.ReadFile(s.path(participantID))
	if err != nil {
		return snap, fmt.Errorf("read backup: %w", err)
	}
	if err := msgpack.Unmarshal(data, &snap); err != nil {
		return snap, fmt.Errorf("decode backup: %w", err)
	}
	return snap, nil
}

// Exists reports whether a backup file is present for the participant.
func (s *Store) Exists(participantID string) bool {
	_, err := os.Stat(s.path(participantID))
	return err == nil
}

// Clear removes the participant's backup after a confirmed remote save.
func (s *Store) Clear(participantID string) error {
	err := os.Remove(s.path(participantID))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("clear backup: %w", err)
	}
	return nil
}

func (s *Store) path(participantID string) string {
	return filepath.Join(s.dir, "risk_survey_backup_"+sanitize(participantID)+".bin")
}

// sanitize keeps participant-supplied ids from escaping the backup dir.
func sanitize(id string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, id)
}
