package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"MarketTimeMachine/internal/model"
)

// FileFetcher reads <Dir>/<scenario>.json.
type FileFetcher struct {
	Dir string
}

func NewFileFetcher(dir string) *FileFetcher {
	return &FileFetcher{Dir: dir}
}

func (f *FileFetcher) Name() string { return "file" }

func (f *FileFetcher) Fetch(_ context.Context, scenario string) (*model.Dataset, error) {
	if scenario == "" || strings.ContainsAny(scenario, `/\`) || strings.Contains(scenario, "..") {
		return nil, fmt.Errorf("invalid scenario id %q", scenario)
	}
	return ReadDatasetFile(filepath.Join(f.Dir, scenario+".json"), scenario)
}

// ReadDatasetFile decodes a dataset JSON file. An empty scenario id falls back
// to the file name without extension.
func ReadDatasetFile(path, scenario string) (*model.Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dataset: %w", err)
	}
	var ds model.Dataset
	if err := json.Unmarshal(data, &ds); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if scenario == "" {
		scenario = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	ds.Scenario = scenario
	ds.FetchedAt = time.Now()
	return &ds, nil
}
