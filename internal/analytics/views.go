package analytics

import (
	"math"
	"time"
)

// Bucket is the activity class of a paragraph, derived from its edit count.
type Bucket string

const (
	BucketNeutral  Bucket = "neutral"
	BucketLow      Bucket = "low"
	BucketMedium   Bucket = "medium"
	BucketHigh     Bucket = "high"
	BucketCritical Bucket = "critical"
)

var bucketColors = map[Bucket]int{
	BucketNeutral:  0x666666,
	BucketLow:      0x00ff00,
	BucketMedium:   0xffff00,
	BucketHigh:     0xff9900,
	BucketCritical: 0xff0000,
}

const (
	maxSize      = 3.0
	sizeDivisor  = 50.0
	maxDepth     = 10.0
	depthDivisor = 100.0
	xSpacing     = 2
)

// BucketFor classifies an edit count: 0, <3, <10, <20, >=20.
func BucketFor(editCount int64) Bucket {
	switch {
	case editCount <= 0:
		return BucketNeutral
	case editCount < 3:
		return BucketLow
	case editCount < 10:
		return BucketMedium
	case editCount < 20:
		return BucketHigh
	default:
		return BucketCritical
	}
}

// Color returns the RGB display color of the bucket.
func (b Bucket) Color() int {
	return bucketColors[b]
}

// SizeFor scales content length linearly, saturating at 3.
func SizeFor(length int) float64 {
	return math.Min(float64(length)/sizeDivisor, maxSize)
}

// Point is one paragraph in the visualization snapshot.
type Point struct {
	ID          string    `json:"id"`
	X           int       `json:"x"`
	Y           int64     `json:"y"`
	Z           float64   `json:"z"`
	EditCount   int64     `json:"editCount"`
	EditorCount int       `json:"editorCount"`
	Length      int       `json:"textLength"`
	Color       int       `json:"color"`
	Bucket      Bucket    `json:"bucket"`
	Size        float64   `json:"size"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// Summary aggregates every paragraph of a document.
type Summary struct {
	DocumentID               string    `json:"documentId"`
	TotalParagraphs          int       `json:"totalParagraphs"`
	TotalEdits               int64     `json:"totalEdits"`
	UniqueEditors            int       `json:"uniqueEditors"`
	AverageEditsPerParagraph float64   `json:"averageEditsPerParagraph"`
	TotalLength              int       `json:"totalTextLength"`
	LastUpdated              time.Time `json:"lastUpdated"`
}

// VisualizationSnapshot returns one point per paragraph in first-seen order.
// Unknown documents yield an empty slice.
func (a *Aggregator) VisualizationSnapshot(documentID string) []Point {
	a.mutex.RLock()
	defer a.mutex.RUnlock()

	doc, ok := a.documents[documentID]
	if !ok {
		return []Point{}
	}

	points := make([]Point, 0, len(doc.order))
	for i, paragraphID := range doc.order {
		para := doc.paragraphs[paragraphID]
		bucket := BucketFor(para.editCount)

		points = append(points, Point{
			ID:          paragraphID,
			X:           i * xSpacing,
			Y:           para.editCount,
			Z:           math.Min(float64(para.length)/depthDivisor, maxDepth),
			EditCount:   para.editCount,
			EditorCount: len(para.editors),
			Length:      para.length,
			Color:       bucket.Color(),
			Bucket:      bucket,
			Size:        SizeFor(para.length),
			LastUpdated: para.lastUpdated,
		})
	}

	return points
}

// DocumentSummary aggregates a document's paragraphs. It reports false when the
// document has no recorded edits.
func (a *Aggregator) DocumentSummary(documentID string) (Summary, bool) {
	a.mutex.RLock()
	defer a.mutex.RUnlock()

	doc, ok := a.documents[documentID]
	if !ok || len(doc.paragraphs) == 0 {
		return Summary{}, false
	}

	summary := Summary{
		DocumentID:      documentID,
		TotalParagraphs: len(doc.paragraphs),
	}
	editors := make(map[string]struct{})

	for _, para := range doc.paragraphs {
		summary.TotalEdits += para.editCount
		summary.TotalLength += para.length
		for editor := range para.editors {
			editors[editor] = struct{}{}
		}
		if para.lastUpdated.After(summary.LastUpdated) {
			summary.LastUpdated = para.lastUpdated
		}
	}

	summary.UniqueEditors = len(editors)
	summary.AverageEditsPerParagraph = float64(summary.TotalEdits) / float64(summary.TotalParagraphs)

	return summary, true
}
