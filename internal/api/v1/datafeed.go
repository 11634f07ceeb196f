package v1

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/anomalab/datafeed/internal/core/aggs"
)

// Chunking modes. Auto derives the chunk span from the bucket span,
// manual uses the configured time span, off disables chunked extraction.
const (
	ChunkingAuto   = "auto"
	ChunkingManual = "manual"
	ChunkingOff    = "off"
)

// DatafeedConfig describes how documents are pulled from a search index
// and bucketed on time for an anomaly detection job. The Query and
// Aggregations fields carry the user's search-DSL JSON verbatim; they are
// parsed and validated by the datafeed service, not here.
type DatafeedConfig struct {
	// ID uniquely identifies the datafeed. Assigned by the registry when
	// the client leaves it empty.
	ID string `json:"datafeed_id"`

	// JobID names the anomaly detection job this datafeed drives.
	JobID string `json:"job_id"`

	// Indices are the index patterns searched for input documents.
	Indices []string `json:"indices"`

	// TimeField is the document field holding the event timestamp,
	// in epoch milliseconds.
	TimeField string `json:"time_field"`

	// Query restricts the searched documents. Raw search-DSL JSON;
	// empty means match_all.
	Query json.RawMessage `json:"query,omitempty"`

	// Aggregations is the aggregation tree bucketing documents on time.
	// Raw search-DSL JSON; empty means the feed extracts raw documents.
	Aggregations json.RawMessage `json:"aggregations,omitempty"`

	// QueryDelay is how far behind real time each search lags, to let
	// documents become searchable.
	QueryDelay string `json:"query_delay,omitempty"`

	// Frequency is the interval at which scheduled searches run.
	Frequency string `json:"frequency,omitempty"`

	// ScrollSize is the page size for unaggregated extraction.
	ScrollSize int `json:"scroll_size,omitempty"`

	// Chunking controls how large extraction ranges are split.
	Chunking ChunkingConfig `json:"chunking_config,omitempty"`

	CreatedAt time.Time `json:"created_at,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// ChunkingConfig controls splitting of long extraction ranges into
// smaller search windows.
type ChunkingConfig struct {
	Mode string `json:"mode,omitempty"`

	// TimeSpan is the chunk length for manual mode, e.g. "1h".
	TimeSpan string `json:"time_span,omitempty"`
}

// Validate checks the envelope fields. Aggregation-tree and interval
// validation is deeper than envelope shape and lives in the datafeed
// service.
func (d *DatafeedConfig) Validate() error {
	if strings.TrimSpace(d.JobID) == "" {
		return fmt.Errorf("job_id is required")
	}
	if len(d.Indices) == 0 {
		return fmt.Errorf("indices must not be empty")
	}
	for _, index := range d.Indices {
		if strings.TrimSpace(index) == "" {
			return fmt.Errorf("indices must not contain blank entries")
		}
	}
	if strings.TrimSpace(d.TimeField) == "" {
		return fmt.Errorf("time_field is required")
	}
	if d.ScrollSize < 0 {
		return fmt.Errorf("scroll_size must not be negative, got %d", d.ScrollSize)
	}

	if d.QueryDelay != "" {
		if _, err := aggs.ParseInterval(d.QueryDelay); err != nil {
			return fmt.Errorf("invalid query_delay: %w", err)
		}
	}
	if d.Frequency != "" {
		millis, err := aggs.ParseInterval(d.Frequency)
		if err != nil {
			return fmt.Errorf("invalid frequency: %w", err)
		}
		if millis == 0 {
			return fmt.Errorf("frequency must be positive, got %q", d.Frequency)
		}
	}

	switch d.Chunking.Mode {
	case "", ChunkingAuto, ChunkingOff:
		if d.Chunking.TimeSpan != "" {
			return fmt.Errorf("chunking_config.time_span requires manual mode")
		}
	case ChunkingManual:
		millis, err := aggs.ParseInterval(d.Chunking.TimeSpan)
		if err != nil {
			return fmt.Errorf("invalid chunking_config.time_span: %w", err)
		}
		if millis == 0 {
			return fmt.Errorf("chunking_config.time_span must be positive, got %q", d.Chunking.TimeSpan)
		}
	default:
		return fmt.Errorf("unsupported chunking_config.mode %q", d.Chunking.Mode)
	}

	return nil
}
