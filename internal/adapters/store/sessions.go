package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"go.cocoon.sh/cocoon/internal/core/domain"
	"go.trai.ch/zerr"
)

// RegisterSession persists a live environment record so the sweep treats
// its member hashes as referenced.
func (s *Store) RegisterSession(rec domain.SessionRecord) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		recordErr := zerr.Wrap(err, domain.ErrSessionRecordFailed.Error())
		return zerr.With(recordErr, "environment_id", rec.EnvironmentID)
	}

	path := s.sessionPath(rec.EnvironmentID)
	if err := os.WriteFile(path, data, domain.PrivateFilePerm); err != nil {
		recordErr := zerr.Wrap(err, domain.ErrSessionRecordFailed.Error())
		return zerr.With(recordErr, "environment_id", rec.EnvironmentID)
	}
	return nil
}

// ReleaseSession removes a session record. A record that is already gone
// is not an error.
func (s *Store) ReleaseSession(environmentID string) error {
	if err := removeIfExists(s.sessionPath(environmentID)); err != nil {
		recordErr := zerr.Wrap(err, domain.ErrSessionRecordFailed.Error())
		return zerr.With(recordErr, "environment_id", environmentID)
	}
	return nil
}

// liveSessions reads every session record and splits them into live records
// and the paths of stale ones, where stale means the recorded process is no
// longer running. Unreadable records count as stale.
func (s *Store) liveSessions() ([]domain.SessionRecord, []string, error) {
	entries, err := os.ReadDir(domain.SessionsPath(s.root))
	if err != nil {
		return nil, nil, zerr.Wrap(err, domain.ErrCollectFailed.Error())
	}

	var live []domain.SessionRecord
	var stale []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		path := filepath.Join(domain.SessionsPath(s.root), entry.Name())

		//nolint:gosec // session records live under the store root
		data, err := os.ReadFile(path)
		if err != nil {
			stale = append(stale, path)
			continue
		}

		var rec domain.SessionRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			stale = append(stale, path)
			continue
		}
		if !processAlive(rec.PID) {
			stale = append(stale, path)
			continue
		}
		live = append(live, rec)
	}
	return live, stale, nil
}

func (s *Store) sessionPath(environmentID string) string {
	return filepath.Join(domain.SessionsPath(s.root), environmentID+".json")
}
