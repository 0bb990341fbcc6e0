package export

import (
	"fmt"

	"igfollow/pkg/snapshot"
	"igfollow/pkg/storage"
)

// DefaultOutputPath is where the export command writes when no output is given
const DefaultOutputPath = "dist/scrape_data.json"

// PKs returns the pk of each collected record in arrival order.
// When limit is greater than zero only the first limit records are used.
// Records without a pk are skipped.
func PKs(s *snapshot.Snapshot, limit int) ([]string, error) {
	if s == nil {
		return nil, fmt.Errorf("export: nil snapshot")
	}

	users := s.Users
	if limit > 0 && len(users) > limit {
		users = users[:limit]
	}

	pks := make([]string, 0, len(users))
	for i, u := range users {
		view, err := u.View()
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		if view.PK == "" {
			continue
		}
		pks = append(pks, view.PK.String())
	}
	return pks, nil
}

// Write stores pks as a JSON array at path, replacing any existing file atomically
func Write(path string, pks []string) error {
	if pks == nil {
		pks = []string{}
	}
	if err := storage.WriteJSONAtomic(path, pks, 0644); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}
	return nil
}

// FromFile loads the snapshot at snapshotPath and writes its pks to outputPath.
// It returns the number of pks written.
func FromFile(snapshotPath, outputPath string, limit int) (int, error) {
	s, err := snapshot.Load(snapshotPath)
	if err != nil {
		return 0, err
	}
	pks, err := PKs(s, limit)
	if err != nil {
		return 0, err
	}
	if err := Write(outputPath, pks); err != nil {
		return 0, err
	}
	return len(pks), nil
}
