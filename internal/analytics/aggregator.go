package analytics

import (
	"sync"
	"time"
)

// ParagraphMetric is a copy of the statistics for one paragraph.
type ParagraphMetric struct {
	EditCount   int64     `json:"editCount"`
	EditorCount int       `json:"editorCount"`
	Length      int       `json:"textLength"`
	LastUpdated time.Time `json:"lastUpdated"`
}

type paragraphMetric struct {
	editCount   int64
	editors     map[string]struct{}
	length      int
	lastUpdated time.Time
}

func (p *paragraphMetric) snapshot() ParagraphMetric {
	return ParagraphMetric{
		EditCount:   p.editCount,
		EditorCount: len(p.editors),
		Length:      p.length,
		LastUpdated: p.lastUpdated,
	}
}

// documentMetrics keeps paragraphs in first-seen order.
type documentMetrics struct {
	order      []string
	paragraphs map[string]*paragraphMetric
}

type Aggregator struct {
	mutex     sync.RWMutex
	documents map[string]*documentMetrics
	now       func() time.Time
}

type Option func(*Aggregator)

// WithClock overrides the time source used for LastUpdated.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) {
		a.now = now
	}
}

func NewAggregator(opts ...Option) *Aggregator {
	a := &Aggregator{
		documents: make(map[string]*documentMetrics),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// RecordEdit counts one edit of the paragraph by userID.
func (a *Aggregator) RecordEdit(documentID, paragraphID, userID string) ParagraphMetric {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	doc, ok := a.documents[documentID]
	if !ok {
		doc = &documentMetrics{paragraphs: make(map[string]*paragraphMetric)}
		a.documents[documentID] = doc
	}

	para, ok := doc.paragraphs[paragraphID]
	if !ok {
		para = &paragraphMetric{editors: make(map[string]struct{})}
		doc.paragraphs[paragraphID] = para
		doc.order = append(doc.order, paragraphID)
	}

	para.editCount++
	para.editors[userID] = struct{}{}
	para.lastUpdated = a.now()

	return para.snapshot()
}

// UpdateParagraphLength overwrites the last-known content length. Paragraphs
// without a recorded edit are ignored.
func (a *Aggregator) UpdateParagraphLength(documentID, paragraphID string, length int) {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	doc, ok := a.documents[documentID]
	if !ok {
		return
	}
	if para, ok := doc.paragraphs[paragraphID]; ok {
		para.length = length
	}
}

// Paragraph returns the metric for one paragraph.
func (a *Aggregator) Paragraph(documentID, paragraphID string) (ParagraphMetric, bool) {
	a.mutex.RLock()
	defer a.mutex.RUnlock()

	doc, ok := a.documents[documentID]
	if !ok {
		return ParagraphMetric{}, false
	}
	para, ok := doc.paragraphs[paragraphID]
	if !ok {
		return ParagraphMetric{}, false
	}
	return para.snapshot(), true
}

// Documents returns how many documents have recorded edits.
func (a *Aggregator) Documents() int {
	a.mutex.RLock()
	defer a.mutex.RUnlock()
	return len(a.documents)
}
