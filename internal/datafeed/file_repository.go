package datafeed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	v1 "github.com/anomalab/datafeed/internal/api/v1"
)

// rawDatafeed is the on-disk YAML shape of a datafeed definition. Query
// and aggregations are nested YAML mappings converted to the JSON the
// config envelope carries.
type rawDatafeed struct {
	ID           string                 `yaml:"datafeed_id"`
	JobID        string                 `yaml:"job_id"`
	Indices      []string               `yaml:"indices"`
	TimeField    string                 `yaml:"time_field"`
	Query        map[string]interface{} `yaml:"query"`
	Aggregations map[string]interface{} `yaml:"aggregations"`
	QueryDelay   string                 `yaml:"query_delay"`
	Frequency    string                 `yaml:"frequency"`
	ScrollSize   int                    `yaml:"scroll_size"`
	Chunking     struct {
		Mode     string `yaml:"mode"`
		TimeSpan string `yaml:"time_span"`
	} `yaml:"chunking_config"`
}

// LoadDirectory reads every *.yaml datafeed definition in dir and
// registers it. Each file contains exactly one datafeed. A missing
// directory is valid (zero datafeeds defined on disk).
func (r *Registry) LoadDirectory(ctx context.Context, dir string) error {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("datafeed config dir: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("datafeed config path %q is not a directory", dir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("reading datafeed config dir: %w", err)
	}

	for _, e := range entries {
		if e.IsDir() || (!strings.HasSuffix(e.Name(), ".yaml") && !strings.HasSuffix(e.Name(), ".yml")) {
			continue
		}

		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading datafeed file %s: %w", path, err)
		}

		var raw rawDatafeed
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return fmt.Errorf("parsing datafeed file %s: %w", path, err)
		}
		if raw.JobID == "" {
			continue // skip empty / comment-only files
		}

		config, err := raw.toConfig()
		if err != nil {
			return fmt.Errorf("datafeed file %s: %w", path, err)
		}

		stored, err := r.Put(ctx, config)
		if err != nil {
			return fmt.Errorf("registering datafeed from %s: %w", path, err)
		}
		slog.Info("Loaded datafeed definition",
			"datafeed_id", stored.ID,
			"job_id", stored.JobID,
			"file", e.Name())
	}
	return nil
}

func (raw rawDatafeed) toConfig() (*v1.DatafeedConfig, error) {
	config := &v1.DatafeedConfig{
		ID:         raw.ID,
		JobID:      raw.JobID,
		Indices:    raw.Indices,
		TimeField:  raw.TimeField,
		QueryDelay: raw.QueryDelay,
		Frequency:  raw.Frequency,
		ScrollSize: raw.ScrollSize,
		Chunking: v1.ChunkingConfig{
			Mode:     raw.Chunking.Mode,
			TimeSpan: raw.Chunking.TimeSpan,
		},
	}

	if len(raw.Query) > 0 {
		queryJSON, err := json.Marshal(raw.Query)
		if err != nil {
			return nil, fmt.Errorf("query is not convertible to JSON: %w", err)
		}
		config.Query = queryJSON
	}
	if len(raw.Aggregations) > 0 {
		aggsJSON, err := json.Marshal(raw.Aggregations)
		if err != nil {
			return nil, fmt.Errorf("aggregations are not convertible to JSON: %w", err)
		}
		config.Aggregations = aggsJSON
	}
	return config, nil
}
