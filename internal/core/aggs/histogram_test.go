package aggs

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	dferrors "github.com/anomalab/datafeed/internal/core/errors"
)

func requireConfigError(t *testing.T, err error, contains string) {
	t.Helper()
	var cfgErr *dferrors.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	require.Contains(t, err.Error(), contains)
}

func TestDateBucketAggregation(t *testing.T) {
	dateHist := &Node{Name: "buckets", Kind: KindDateHistogram, FixedInterval: "1h"}
	terms := func(name string, subAggs ...*Node) *Node {
		return &Node{Name: name, Kind: KindOther, SubAggs: subAggs}
	}

	tests := []struct {
		name        string
		nodes       []*Node
		want        *Node
		wantErrPart string
	}{
		{
			name:  "top level date histogram",
			nodes: []*Node{dateHist},
			want:  dateHist,
		},
		{
			name:  "date histogram nested under single wrapper",
			nodes: []*Node{terms("by_airline", dateHist)},
			want:  dateHist,
		},
		{
			name:  "date histogram nested two levels deep",
			nodes: []*Node{terms("outer", terms("inner", dateHist))},
			want:  dateHist,
		},
		{
			name:        "empty tree",
			nodes:       nil,
			wantErrPart: "require a date bucketing aggregation",
		},
		{
			name:        "two top level aggregations",
			nodes:       []*Node{dateHist, terms("by_airline")},
			wantErrPart: "no sibling aggregations allowed",
		},
		{
			name:        "wrapper with two children fails even when one buckets on time",
			nodes:       []*Node{terms("by_airline", dateHist, terms("by_route"))},
			wantErrPart: "no sibling aggregations allowed",
		},
		{
			name:        "exhausted tree",
			nodes:       []*Node{terms("outer", terms("inner"))},
			wantErrPart: "require a date bucketing aggregation",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := DateBucketAggregation(tc.nodes)
			if tc.wantErrPart != "" {
				requireConfigError(t, err, tc.wantErrPart)
				return
			}
			require.NoError(t, err)
			require.Same(t, tc.want, got)
		})
	}
}

func TestIsDateBucketAggregation(t *testing.T) {
	require.True(t, IsDateBucketAggregation(&Node{Kind: KindHistogram}))
	require.True(t, IsDateBucketAggregation(&Node{Kind: KindDateHistogram}))
	require.True(t, IsDateBucketAggregation(&Node{
		Kind: KindComposite,
		Sources: []ValueSource{
			{Name: "airline"},
			{Name: "ts", DateHistogram: true},
		},
	}))
	require.False(t, IsDateBucketAggregation(&Node{Kind: KindComposite, Sources: []ValueSource{{Name: "airline"}}}))
	require.False(t, IsDateBucketAggregation(&Node{Kind: KindOther}))
}

func TestDateHistogramSource(t *testing.T) {
	t.Run("returns first date histogram source", func(t *testing.T) {
		node := &Node{
			Kind: KindComposite,
			Sources: []ValueSource{
				{Name: "airline"},
				{Name: "ts", DateHistogram: true, FixedInterval: "30m"},
				{Name: "ts2", DateHistogram: true, FixedInterval: "1h"},
			},
		}
		src, err := DateHistogramSource(node)
		require.NoError(t, err)
		require.Equal(t, "ts", src.Name)
	})

	t.Run("no date histogram source", func(t *testing.T) {
		node := &Node{Kind: KindComposite, Sources: []ValueSource{{Name: "airline"}}}
		_, err := DateHistogramSource(node)
		requireConfigError(t, err, "require exactly one date_histogram value source")
	})
}

func TestIntervalMillis(t *testing.T) {
	tests := []struct {
		name        string
		node        *Node
		want        int64
		wantErrPart string
	}{
		{
			name: "histogram interval truncated to millis",
			node: &Node{Kind: KindHistogram, Interval: 300000.7},
			want: 300000,
		},
		{
			name: "date histogram fixed interval",
			node: &Node{Kind: KindDateHistogram, FixedInterval: "1h"},
			want: 3600000,
		},
		{
			name: "date histogram fixed interval in seconds",
			node: &Node{Kind: KindDateHistogram, FixedInterval: "90s"},
			want: 90000,
		},
		{
			name: "date histogram calendar interval",
			node: &Node{Kind: KindDateHistogram, CalendarInterval: "day"},
			want: 86400000,
		},
		{
			name: "date histogram with explicit UTC zone",
			node: &Node{Kind: KindDateHistogram, FixedInterval: "1h", TimeZone: "UTC"},
			want: 3600000,
		},
		{
			name: "date histogram with normalized UTC zone",
			node: &Node{Kind: KindDateHistogram, FixedInterval: "1h", TimeZone: "Etc/UTC"},
			want: 3600000,
		},
		{
			name:        "date histogram with non UTC zone",
			node:        &Node{Kind: KindDateHistogram, FixedInterval: "1h", TimeZone: "America/New_York"},
			wantErrPart: "time_zone must be UTC",
		},
		{
			name:        "non UTC zone rejected before interval inspection",
			node:        &Node{Kind: KindDateHistogram, CalendarInterval: "day", TimeZone: "Asia/Tokyo"},
			wantErrPart: "time_zone must be UTC",
		},
		{
			name:        "date histogram without interval",
			node:        &Node{Kind: KindDateHistogram},
			wantErrPart: "must specify an interval",
		},
		{
			name:        "date histogram with unparsable fixed interval",
			node:        &Node{Kind: KindDateHistogram, FixedInterval: "bananas"},
			wantErrPart: "invalid interval syntax",
		},
		{
			name: "composite delegates to its date histogram source",
			node: &Node{
				Kind: KindComposite,
				Sources: []ValueSource{
					{Name: "airline"},
					{Name: "ts", DateHistogram: true, FixedInterval: "30m"},
				},
			},
			want: 1800000,
		},
		{
			name: "composite source calendar interval",
			node: &Node{
				Kind:    KindComposite,
				Sources: []ValueSource{{Name: "ts", DateHistogram: true, CalendarInterval: "week"}},
			},
			want: 604800000,
		},
		{
			name: "composite source with non UTC zone",
			node: &Node{
				Kind:    KindComposite,
				Sources: []ValueSource{{Name: "ts", DateHistogram: true, FixedInterval: "1h", TimeZone: "Europe/Berlin"}},
			},
			wantErrPart: "time_zone must be UTC",
		},
		{
			name: "composite without date histogram source",
			node: &Node{
				Kind:    KindComposite,
				Sources: []ValueSource{{Name: "airline"}},
			},
			wantErrPart: "require exactly one date_histogram value source",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := IntervalMillis(tc.node)
			if tc.wantErrPart != "" {
				requireConfigError(t, err, tc.wantErrPart)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestIntervalMillis_UnrecognizedShape(t *testing.T) {
	_, err := IntervalMillis(&Node{Name: "by_airline", Kind: KindOther})

	var stateErr *dferrors.InvalidStateError
	require.ErrorAs(t, err, &stateErr)

	var cfgErr *dferrors.ConfigError
	require.False(t, errors.As(err, &cfgErr))
}

func TestCalendarIntervalMillis(t *testing.T) {
	tests := []struct {
		name        string
		text        string
		want        int64
		wantErrPart string
	}{
		{name: "week", text: "week", want: 604800000},
		{name: "1w", text: "1w", want: 604800000},
		{name: "day", text: "day", want: 86400000},
		{name: "1d", text: "1d", want: 86400000},
		{name: "hour", text: "hour", want: 3600000},
		{name: "1h", text: "1h", want: 3600000},
		{name: "minute", text: "minute", want: 60000},
		{name: "1m", text: "1m", want: 60000},
		{name: "second", text: "second", want: 1000},
		{name: "1s", text: "1s", want: 1000},
		{name: "literal duration", text: "90m", want: 5400000},
		{name: "literal days", text: "3d", want: 259200000},
		{name: "month rejected", text: "month", wantErrPart: "variable length"},
		{name: "1M rejected", text: "1M", wantErrPart: "variable length"},
		{name: "quarter rejected", text: "quarter", wantErrPart: "variable length"},
		{name: "1q rejected", text: "1q", wantErrPart: "variable length"},
		{name: "year rejected", text: "year", wantErrPart: "variable length"},
		{name: "1y rejected", text: "1y", wantErrPart: "variable length"},
		{name: "literal longer than a week rejected", text: "8d", wantErrPart: "variable length"},
		{name: "literal hours longer than a week rejected", text: "200h", wantErrPart: "variable length"},
		{name: "unparsable", text: "bananas", wantErrPart: "invalid interval syntax"},
		{name: "empty", text: "", wantErrPart: "invalid interval syntax"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := CalendarIntervalMillis(tc.text)
			if tc.wantErrPart != "" {
				requireConfigError(t, err, tc.wantErrPart)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}
