package model

import "time"

// Metric categories emitted by the aggregator.
const (
	MetricCategoryVolume       = "volume"
	MetricCategoryCompleteness = "completeness"
	MetricCategoryRecency      = "recency"
)

// Metric is one point in the append-only quality metrics time series.
// Rows are immutable once written; re-running a report appends new rows
// dated at the evaluation timestamp.
type Metric struct {
	MetricDate  time.Time `json:"metric_date"`
	MetricName  string    `json:"metric_name"`
	MetricValue float64   `json:"metric_value"`
	TargetValue float64   `json:"target_value"`
	Category    string    `json:"category"`
	Notes       string    `json:"notes,omitempty"`
}
