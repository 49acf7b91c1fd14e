// Package analytics aggregates per-paragraph edit activity and derives the
// read-only views used by the visualization feature.
//
// An Aggregator owns every ParagraphMetric for the lifetime of the process.
// Metrics are keyed by (document, paragraph), are created by the first recorded
// edit and are never evicted, so memory grows with the number of distinct
// paragraphs edited since start-up. They are independent of room membership and
// outlive the rooms that produced them.
//
// Example usage:
//
//	agg := analytics.NewAggregator()
//	agg.RecordEdit("doc1", "para_0", "u1")
//	agg.UpdateParagraphLength("doc1", "para_0", 120)
//
//	points := agg.VisualizationSnapshot("doc1")
//	summary, ok := agg.DocumentSummary("doc1")
//
// All methods are safe for concurrent use.
package analytics
