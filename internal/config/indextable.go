package config

import (
	"fmt"
	"os"

	"github.com/couchcryptid/air-quality-etl/internal/domain"
	"github.com/naoina/toml"
)

// indexTableFile is the TOML layout of a replacement index table:
//
//	[[band]]
//	low = 0.0
//	high = 49.0
//
// repeated once per band, least severe first. Bounds are floats.
type indexTableFile struct {
	Band []domain.Band `toml:"band"`
}

// LoadIndexTable reads and validates a six-band index table from a TOML file.
func LoadIndexTable(path string) (domain.IndexTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return domain.IndexTable{}, fmt.Errorf("open index table: %w", err)
	}
	defer f.Close()

	var file indexTableFile
	if err := toml.NewDecoder(f).Decode(&file); err != nil {
		return domain.IndexTable{}, fmt.Errorf("decode index table %s: %w", path, err)
	}

	if len(file.Band) != domain.BandCount {
		return domain.IndexTable{}, fmt.Errorf("index table %s: want %d bands, got %d", path, domain.BandCount, len(file.Band))
	}

	var table domain.IndexTable
	copy(table[:], file.Band)
	if err := table.Validate(); err != nil {
		return domain.IndexTable{}, fmt.Errorf("index table %s: %w", path, err)
	}
	return table, nil
}
