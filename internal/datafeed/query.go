// Package datafeed validates datafeed configurations and resolves them
// into the extraction parameters the search pipeline consumes: the bucket
// span of the time-bucketing aggregation, the chunking span, and the
// combined search query for an extraction window.
package datafeed

import (
	elastic "github.com/olivere/elastic/v7"
)

const epochMillisFormat = "epoch_millis"

// WrapInTimeRangeQuery combines a user query with a time range query:
// timeField >= start and timeField < end, both bounds in epoch millis.
// A nil userQuery matches all documents. start <= end is not checked
// here; the extraction scheduler that produces the window owns that
// invariant, and the search backend answers an inverted range with an
// empty result set.
func WrapInTimeRangeQuery(userQuery elastic.Query, timeField string, start, end int64) elastic.Query {
	if userQuery == nil {
		userQuery = elastic.NewMatchAllQuery()
	}
	timeQuery := elastic.NewRangeQuery(timeField).
		Gte(start).
		Lt(end).
		Format(epochMillisFormat)
	return elastic.NewBoolQuery().Filter(userQuery, timeQuery)
}
