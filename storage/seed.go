package storage

import (
	_ "embed"
	"fmt"

	"github.com/bytedance/sonic"
)

//go:embed seed.json
var seedData []byte

// SeedSnapshot decodes the bundled demo data.
func SeedSnapshot() (Snapshot, error) {
	var s Snapshot
	if err := sonic.Unmarshal(seedData, &s); err != nil {
		return Snapshot{}, fmt.Errorf("decode seed data: %w", err)
	}
	return s, nil
}

// Seed replaces the repository state with the bundled demo data.
func (r *Repository) Seed() error {
	s, err := SeedSnapshot()
	if err != nil {
		return err
	}
	r.Import(s)
	return nil
}
