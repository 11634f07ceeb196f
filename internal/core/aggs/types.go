// Package aggs models the aggregation tree of a datafeed configuration and
// validates its time-bucketing properties. A datafeed must bucket documents
// on a single histogram, date_histogram, or composite-with-date_histogram
// aggregation; this package locates that aggregation and resolves its
// bucket span to epoch milliseconds.
package aggs

// Kind enumerates the aggregation shapes the validator distinguishes.
// Every shape that is not a bucketing candidate collapses into KindOther.
type Kind int

const (
	KindOther Kind = iota
	KindHistogram
	KindDateHistogram
	KindComposite
)

// Node is one named aggregation in a user-supplied aggregation tree.
// Nodes are built once from configuration JSON and never mutated; the tree
// is strict parent-to-children ownership, so no cycles are possible.
type Node struct {
	Name string
	Kind Kind

	// Interval is the numeric bucket width of a histogram aggregation,
	// interpreted as milliseconds.
	Interval float64

	// Fixed/calendar interval and time zone of a date_histogram
	// aggregation. At most one of the intervals is set.
	FixedInterval    string
	CalendarInterval string
	TimeZone         string

	// Sources are the value sources of a composite aggregation, in
	// declared order.
	Sources []ValueSource

	// SubAggs are the child aggregations nested under this node.
	SubAggs []*Node
}

// ValueSource is one named value source of a composite aggregation.
type ValueSource struct {
	Name string

	// DateHistogram reports whether this is a date_histogram source.
	// The interval and time zone fields below are only meaningful then.
	DateHistogram bool

	FixedInterval    string
	CalendarInterval string
	TimeZone         string
}
