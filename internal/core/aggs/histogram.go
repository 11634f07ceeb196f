package aggs

import (
	dferrors "github.com/anomalab/datafeed/internal/core/errors"
)

// DateBucketAggregation finds the single date bucketing aggregation in a
// user aggregation tree. At every level of the tree exactly one
// aggregation must be present: zero means no bucketing aggregation was
// configured, two or more means the bucketing aggregation would have
// siblings, which the extraction windowing cannot support. A level whose
// single aggregation is not itself a bucketing shape is descended into.
func DateBucketAggregation(nodes []*Node) (*Node, error) {
	if len(nodes) == 0 {
		return nil, dferrors.NewConfigError("aggregations require a date bucketing aggregation")
	}
	if len(nodes) != 1 {
		return nil, dferrors.NewConfigError("no sibling aggregations allowed alongside the date bucketing aggregation")
	}

	node := nodes[0]
	if IsDateBucketAggregation(node) {
		return node, nil
	}
	return DateBucketAggregation(node.SubAggs)
}

// IsDateBucketAggregation reports whether node buckets documents on time:
// a histogram, a date_histogram, or a composite with at least one
// date_histogram value source.
func IsDateBucketAggregation(node *Node) bool {
	switch node.Kind {
	case KindHistogram, KindDateHistogram:
		return true
	case KindComposite:
		for _, src := range node.Sources {
			if src.DateHistogram {
				return true
			}
		}
	}
	return false
}

// DateHistogramSource returns the first date_histogram value source of a
// composite aggregation, in declared order. Sources after the first
// date_histogram are ignored.
func DateHistogramSource(node *Node) (*ValueSource, error) {
	for i := range node.Sources {
		if node.Sources[i].DateHistogram {
			return &node.Sources[i], nil
		}
	}
	return nil, dferrors.NewConfigError("composite aggregations require exactly one date_histogram value source")
}

// IntervalMillis resolves the bucket span of a bucketing aggregation to
// milliseconds. The node must already have passed IsDateBucketAggregation;
// calling it on any other shape is an integration bug and surfaces as an
// InvalidStateError rather than a ConfigError.
func IntervalMillis(node *Node) (int64, error) {
	switch node.Kind {
	case KindHistogram:
		return int64(node.Interval), nil
	case KindDateHistogram:
		return validateAndResolve(dateSpecFromAgg(node))
	case KindComposite:
		src, err := DateHistogramSource(node)
		if err != nil {
			return 0, err
		}
		return validateAndResolve(dateSpecFromSource(src))
	default:
		return 0, dferrors.NewInvalidStateError("not a recognized histogram aggregation [%s]", node.Name)
	}
}

// dateSpec is the field set shared by a date_histogram aggregation and a
// composite date_histogram value source. Exactly one of agg/source is set.
type dateSpec struct {
	agg    *Node
	source *ValueSource
}

func dateSpecFromAgg(n *Node) dateSpec { return dateSpec{agg: n} }

func dateSpecFromSource(s *ValueSource) dateSpec { return dateSpec{source: s} }

func (s dateSpec) timeZone() string {
	if s.agg != nil {
		return s.agg.TimeZone
	}
	return s.source.TimeZone
}

func (s dateSpec) fixedInterval() string {
	if s.agg != nil {
		return s.agg.FixedInterval
	}
	return s.source.FixedInterval
}

func (s dateSpec) calendarInterval() string {
	if s.agg != nil {
		return s.agg.CalendarInterval
	}
	return s.source.CalendarInterval
}

func validateAndResolve(spec dateSpec) (int64, error) {
	if tz := spec.timeZone(); tz != "" && !isUTC(tz) {
		return 0, dferrors.NewConfigError("date_histogram time_zone must be UTC")
	}

	switch {
	case spec.calendarInterval() != "":
		return CalendarIntervalMillis(spec.calendarInterval())
	case spec.fixedInterval() != "":
		millis, err := ParseInterval(spec.fixedInterval())
		if err != nil {
			return 0, dferrors.NewConfigError("invalid interval syntax [%s]", spec.fixedInterval())
		}
		return millis, nil
	default:
		return 0, dferrors.NewConfigError("must specify an interval for date_histogram")
	}
}

// calendarUnit enumerates the symbolic calendar interval units.
type calendarUnit int

const (
	unitSecond calendarUnit = iota
	unitMinute
	unitHour
	unitDay
	unitWeek
	unitMonth
	unitQuarter
	unitYear
)

// calendarUnits maps the symbolic calendar interval spellings accepted in
// date_histogram configuration to their unit.
var calendarUnits = map[string]calendarUnit{
	"second": unitSecond, "1s": unitSecond,
	"minute": unitMinute, "1m": unitMinute,
	"hour": unitHour, "1h": unitHour,
	"day": unitDay, "1d": unitDay,
	"week": unitWeek, "1w": unitWeek,
	"month": unitMonth, "1M": unitMonth,
	"quarter": unitQuarter, "1q": unitQuarter,
	"year": unitYear, "1y": unitYear,
}

// CalendarIntervalMillis resolves a calendar interval to milliseconds.
// Units of a week or shorter have a fixed length; month, quarter, and
// year vary in length and are rejected regardless of multiplier, as is
// any resolved duration longer than a week.
func CalendarIntervalMillis(text string) (int64, error) {
	var millis int64
	if unit, ok := calendarUnits[text]; ok {
		switch unit {
		case unitWeek:
			millis = millisPerWeek
		case unitDay:
			millis = millisPerDay
		case unitHour:
			millis = millisPerHour
		case unitMinute:
			millis = millisPerMinute
		case unitSecond:
			millis = millisPerSecond
		case unitMonth, unitQuarter, unitYear:
			return 0, errCalendarIntervalTooLong(text)
		default:
			return 0, dferrors.NewInvalidStateError("unexpected calendar unit [%s]", text)
		}
	} else {
		var err error
		millis, err = ParseInterval(text)
		if err != nil {
			return 0, dferrors.NewConfigError("invalid interval syntax [%s]", text)
		}
	}

	if millis > millisPerWeek {
		return 0, errCalendarIntervalTooLong(text)
	}
	return millis, nil
}

func errCalendarIntervalTooLong(text string) *dferrors.ConfigError {
	return dferrors.NewConfigError(
		"date_histogram calendar interval [%s] is not accepted; periods longer than a week have variable length", text)
}
