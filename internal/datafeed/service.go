package datafeed

import (
	"encoding/json"
	"time"

	elastic "github.com/olivere/elastic/v7"

	v1 "github.com/anomalab/datafeed/internal/api/v1"
	"github.com/anomalab/datafeed/internal/core/aggs"
	dferrors "github.com/anomalab/datafeed/internal/core/errors"
)

// autoChunkBuckets is the number of bucket spans an aggregated feed
// extracts per search when chunking is auto.
const autoChunkBuckets = 1000

// Defaults are applied to fields a datafeed config leaves unset.
type Defaults struct {
	ScrollSize int
	QueryDelay string
}

// Resolution is the outcome of validating a datafeed config: the
// extraction parameters derived from it.
type Resolution struct {
	// Aggregated reports whether the feed extracts aggregated buckets
	// rather than raw documents.
	Aggregated bool `json:"aggregated"`

	// BucketSpanMillis is the span of the time-bucketing aggregation.
	// Zero for unaggregated feeds.
	BucketSpanMillis int64 `json:"bucket_span_ms,omitempty"`

	// ChunkSpanMillis is the length of each extraction search window.
	// Zero means no fixed chunk span (chunking off, or sized dynamically
	// from the data for unaggregated feeds).
	ChunkSpanMillis int64 `json:"chunk_span_ms,omitempty"`

	// Frequency is the effective scheduled-search interval.
	Frequency string `json:"frequency"`

	// ScrollSize is the effective page size for unaggregated extraction.
	ScrollSize int `json:"scroll_size"`

	// QueryDelay is the effective lag behind real time.
	QueryDelay string `json:"query_delay"`
}

// Service validates datafeed configs and resolves extraction parameters.
// Stateless and safe for concurrent use.
type Service struct {
	defaults Defaults
}

func NewService(defaults Defaults) *Service {
	return &Service{defaults: defaults}
}

// Resolve validates config and derives its extraction parameters.
// Configuration problems surface as *errors.ConfigError.
func (s *Service) Resolve(config *v1.DatafeedConfig) (*Resolution, error) {
	if err := config.Validate(); err != nil {
		return nil, dferrors.NewConfigError("%v", err)
	}
	if len(config.Query) > 0 && !json.Valid(config.Query) {
		return nil, dferrors.NewConfigError("query is not valid JSON")
	}

	res := &Resolution{
		ScrollSize: config.ScrollSize,
		QueryDelay: config.QueryDelay,
		Frequency:  config.Frequency,
	}
	if res.ScrollSize == 0 {
		res.ScrollSize = s.defaults.ScrollSize
	}
	if res.QueryDelay == "" {
		res.QueryDelay = s.defaults.QueryDelay
	}

	if len(config.Aggregations) > 0 {
		nodes, err := aggs.ParseAggregations(config.Aggregations)
		if err != nil {
			return nil, err
		}
		bucket, err := aggs.DateBucketAggregation(nodes)
		if err != nil {
			return nil, err
		}
		span, err := aggs.IntervalMillis(bucket)
		if err != nil {
			return nil, err
		}
		if span <= 0 {
			return nil, dferrors.NewConfigError("aggregation interval must be positive")
		}
		res.Aggregated = true
		res.BucketSpanMillis = span
	}

	chunkSpan, err := resolveChunkSpan(config, res)
	if err != nil {
		return nil, err
	}
	res.ChunkSpanMillis = chunkSpan

	if res.Frequency == "" {
		res.Frequency = defaultFrequency(res.BucketSpanMillis).String()
	}

	return res, nil
}

// BuildSearchQuery returns the combined query for the extraction window
// [start, end) on the config's time field.
func (s *Service) BuildSearchQuery(config *v1.DatafeedConfig, start, end int64) (elastic.Query, error) {
	if len(config.Query) > 0 && !json.Valid(config.Query) {
		return nil, dferrors.NewConfigError("query is not valid JSON")
	}

	var userQuery elastic.Query
	if len(config.Query) > 0 {
		userQuery = elastic.NewRawStringQuery(string(config.Query))
	}
	return WrapInTimeRangeQuery(userQuery, config.TimeField, start, end), nil
}

func resolveChunkSpan(config *v1.DatafeedConfig, res *Resolution) (int64, error) {
	switch config.Chunking.Mode {
	case v1.ChunkingOff:
		return 0, nil
	case v1.ChunkingManual:
		span, err := aggs.ParseInterval(config.Chunking.TimeSpan)
		if err != nil {
			return 0, dferrors.NewConfigError("invalid chunking_config.time_span: %v", err)
		}
		if res.Aggregated && span%res.BucketSpanMillis != 0 {
			return 0, dferrors.NewConfigError(
				"chunking_config.time_span must be a multiple of the bucket span")
		}
		return span, nil
	default:
		// Auto: aggregated feeds chunk at a fixed count of bucket spans;
		// unaggregated feeds size chunks dynamically from the data.
		if res.Aggregated {
			return autoChunkBuckets * res.BucketSpanMillis, nil
		}
		return 0, nil
	}
}

// defaultFrequency derives the scheduled-search interval from the bucket
// span when the config does not set one. Short buckets search every
// minute; long buckets back off to at most an hour.
func defaultFrequency(bucketSpanMillis int64) time.Duration {
	bucketSpan := time.Duration(bucketSpanMillis) * time.Millisecond
	switch {
	case bucketSpan <= 2*time.Minute:
		return time.Minute
	case bucketSpan <= 20*time.Minute:
		return bucketSpan
	case bucketSpan <= 12*time.Hour:
		return 10 * time.Minute
	default:
		return time.Hour
	}
}
