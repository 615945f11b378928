package terrain

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"os"

	"github.com/golang/snappy"
	"golang.org/x/exp/mmap"
)

// Flow model conditioning dominates batch start-up time, so built models are
// persisted as snappy-compressed gob sidecars next to the DEM and memory-
// mapped back in on later runs.

// SaveFlowModel writes the flow model to path as snappy-compressed gob.
func SaveFlowModel(fm *FlowModel, path string) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(fm); err != nil {
		return fmt.Errorf("encode flow model: %w", err)
	}
	compressed := snappy.Encode(nil, buf.Bytes())
	if err := os.WriteFile(path, compressed, 0o644); err != nil {
		return fmt.Errorf("write flow model cache: %w", err)
	}
	return nil
}

// LoadFlowModel reads a flow model cache written by SaveFlowModel through a
// memory-mapped reader and rebuilds the derived donor index.
func LoadFlowModel(path string) (*FlowModel, error) {
	r, err := mmap.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open flow model cache: %w", err)
	}
	defer r.Close()

	compressed := make([]byte, r.Len())
	if _, err := r.ReadAt(compressed, 0); err != nil {
		return nil, fmt.Errorf("read flow model cache: %w", err)
	}
	data, err := snappy.Decode(nil, compressed)
	if err != nil {
		return nil, fmt.Errorf("decompress flow model cache: %w", err)
	}

	var fm FlowModel
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&fm); err != nil {
		return nil, fmt.Errorf("decode flow model: %w", err)
	}
	if len(fm.Dir) < fm.Grid.NumCells() || len(fm.Acc) < fm.Grid.NumCells() {
		return nil, ErrShortGridData
	}
	fm.buildDonors()
	return &fm, nil
}

// LoadOrBuildFlowModel loads the cached flow model at cachePath if present,
// otherwise builds it from the DEM and writes the cache.
func LoadOrBuildFlowModel(dem *DEM, cachePath string) (*FlowModel, error) {
	if _, err := os.Stat(cachePath); err == nil {
		fm, err := LoadFlowModel(cachePath)
		if err == nil && fm.Grid == dem.Grid {
			return fm, nil
		}
		// A stale or corrupt cache is rebuilt, not fatal.
	}
	fm, err := BuildFlowModel(dem)
	if err != nil {
		return nil, err
	}
	if err := SaveFlowModel(fm, cachePath); err != nil {
		return nil, err
	}
	return fm, nil
}
