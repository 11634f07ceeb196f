package aggs

import (
	"encoding/json"
	"sort"

	dferrors "github.com/anomalab/datafeed/internal/core/errors"
)

// histogramBody is the on-wire shape of a histogram aggregation body.
type histogramBody struct {
	Field    string  `json:"field"`
	Interval float64 `json:"interval"`
}

// dateHistogramBody is the on-wire shape shared by date_histogram
// aggregations and composite date_histogram value sources. The legacy
// "interval" spelling is still accepted and resolved to calendar or fixed
// depending on whether it names a symbolic calendar unit.
type dateHistogramBody struct {
	Field            string `json:"field"`
	FixedInterval    string `json:"fixed_interval"`
	CalendarInterval string `json:"calendar_interval"`
	Interval         string `json:"interval"`
	TimeZone         string `json:"time_zone"`
}

func (b dateHistogramBody) resolve() (fixed, calendar string) {
	fixed, calendar = b.FixedInterval, b.CalendarInterval
	if fixed == "" && calendar == "" && b.Interval != "" {
		if _, ok := calendarUnits[b.Interval]; ok {
			calendar = b.Interval
		} else {
			fixed = b.Interval
		}
	}
	return fixed, calendar
}

// compositeBody is the on-wire shape of a composite aggregation body.
// Each source is a single-key object mapping the source name to a
// single-key object mapping the source type to its body. Bodies stay raw
// here: only date_histogram sources are decoded further, so terms and
// histogram sources with non-string fields pass through untouched.
type compositeBody struct {
	Size    int                                     `json:"size"`
	Sources []map[string]map[string]json.RawMessage `json:"sources"`
}

// ParseAggregations builds the aggregation tree from the raw aggregations
// object of a datafeed configuration. Malformed JSON and malformed
// aggregation bodies surface as ConfigErrors; shape validation beyond that
// (bucketing rules, intervals) is left to DateBucketAggregation and
// IntervalMillis.
func ParseAggregations(raw []byte) ([]*Node, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	var byName map[string]json.RawMessage
	if err := json.Unmarshal(raw, &byName); err != nil {
		return nil, dferrors.NewConfigError("aggregations are not a valid JSON object: %v", err)
	}
	return parseLevel(byName)
}

func parseLevel(byName map[string]json.RawMessage) ([]*Node, error) {
	// Maps are unordered; sort names so errors and traversal are stable.
	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	sort.Strings(names)

	var nodes []*Node
	for _, name := range names {
		node, err := parseNode(name, byName[name])
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}
	return nodes, nil
}

func parseNode(name string, raw json.RawMessage) (*Node, error) {
	var body map[string]json.RawMessage
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, dferrors.NewConfigError("aggregation [%s] is not a valid JSON object: %v", name, err)
	}

	node := &Node{Name: name, Kind: KindOther}
	for key, val := range body {
		switch key {
		case "aggs", "aggregations":
			var children map[string]json.RawMessage
			if err := json.Unmarshal(val, &children); err != nil {
				return nil, dferrors.NewConfigError("sub-aggregations of [%s] are not a valid JSON object: %v", name, err)
			}
			subAggs, err := parseLevel(children)
			if err != nil {
				return nil, err
			}
			node.SubAggs = subAggs

		case "histogram":
			if err := node.setKind(KindHistogram); err != nil {
				return nil, err
			}
			var hist histogramBody
			if err := json.Unmarshal(val, &hist); err != nil {
				return nil, dferrors.NewConfigError("histogram aggregation [%s] is malformed: %v", name, err)
			}
			node.Interval = hist.Interval

		case "date_histogram":
			if err := node.setKind(KindDateHistogram); err != nil {
				return nil, err
			}
			var dh dateHistogramBody
			if err := json.Unmarshal(val, &dh); err != nil {
				return nil, dferrors.NewConfigError("date_histogram aggregation [%s] is malformed: %v", name, err)
			}
			node.FixedInterval, node.CalendarInterval = dh.resolve()
			node.TimeZone = dh.TimeZone

		case "composite":
			if err := node.setKind(KindComposite); err != nil {
				return nil, err
			}
			var comp compositeBody
			if err := json.Unmarshal(val, &comp); err != nil {
				return nil, dferrors.NewConfigError("composite aggregation [%s] is malformed: %v", name, err)
			}
			sources, err := parseCompositeSources(name, comp)
			if err != nil {
				return nil, err
			}
			node.Sources = sources

		case "meta":
			// Opaque metadata, irrelevant to bucketing.

		default:
			// Some other aggregation type (terms, max, avg, ...).
			// The node stays KindOther unless a bucketing key is present.
		}
	}
	return node, nil
}

// setKind rejects aggregations declaring more than one bucketing type
// under a single name.
func (n *Node) setKind(kind Kind) error {
	if n.Kind != KindOther {
		return dferrors.NewConfigError("aggregation [%s] declares more than one aggregation type", n.Name)
	}
	n.Kind = kind
	return nil
}

func parseCompositeSources(aggName string, comp compositeBody) ([]ValueSource, error) {
	var sources []ValueSource
	for _, entry := range comp.Sources {
		if len(entry) != 1 {
			return nil, dferrors.NewConfigError("composite aggregation [%s] has a malformed value source", aggName)
		}
		for srcName, byType := range entry {
			if len(byType) != 1 {
				return nil, dferrors.NewConfigError(
					"value source [%s] of composite aggregation [%s] must declare exactly one type", srcName, aggName)
			}
			src := ValueSource{Name: srcName}
			if raw, ok := byType["date_histogram"]; ok {
				var dh dateHistogramBody
				if err := json.Unmarshal(raw, &dh); err != nil {
					return nil, dferrors.NewConfigError(
						"date_histogram value source [%s] of composite aggregation [%s] is malformed: %v", srcName, aggName, err)
				}
				src.DateHistogram = true
				src.FixedInterval, src.CalendarInterval = dh.resolve()
				src.TimeZone = dh.TimeZone
			}
			sources = append(sources, src)
		}
	}
	return sources, nil
}
