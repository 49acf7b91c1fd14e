package analytics_test

import (
	"fmt"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/collab-sync/internal/analytics"
)

var _ = Describe("Aggregator", func() {
	var (
		agg   *analytics.Aggregator
		clock time.Time
	)

	BeforeEach(func() {
		clock = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
		agg = analytics.NewAggregator(analytics.WithClock(func() time.Time { return clock }))
	})

	Describe("RecordEdit", func() {
		It("should count edits and distinct editors", func() {
			agg.RecordEdit("doc1", "p1", "u1")
			metric := agg.RecordEdit("doc1", "p1", "u1")

			Expect(metric.EditCount).To(Equal(int64(2)))
			Expect(metric.EditorCount).To(Equal(1))
		})

		It("should add new editors to the set", func() {
			agg.RecordEdit("doc1", "p1", "u1")
			agg.RecordEdit("doc1", "p1", "u2")
			metric := agg.RecordEdit("doc1", "p1", "u1")

			Expect(metric.EditCount).To(Equal(int64(3)))
			Expect(metric.EditorCount).To(Equal(2))
		})

		It("should refresh the timestamp on every edit", func() {
			agg.RecordEdit("doc1", "p1", "u1")
			clock = clock.Add(time.Minute)
			agg.RecordEdit("doc1", "p1", "u1")

			metric, ok := agg.Paragraph("doc1", "p1")
			Expect(ok).To(BeTrue())
			Expect(metric.LastUpdated).To(Equal(clock))
		})

		It("should keep documents and paragraphs separate", func() {
			agg.RecordEdit("doc1", "p1", "u1")
			agg.RecordEdit("doc1", "p2", "u1")
			agg.RecordEdit("doc2", "p1", "u1")

			m, _ := agg.Paragraph("doc2", "p1")
			Expect(m.EditCount).To(Equal(int64(1)))
			Expect(agg.Documents()).To(Equal(2))
		})

		It("should not lose updates under concurrency", func() {
			var wg sync.WaitGroup
			for i := 0; i < 20; i++ {
				wg.Add(1)
				go func(i int) {
					defer GinkgoRecover()
					defer wg.Done()
					for j := 0; j < 50; j++ {
						agg.RecordEdit("doc1", "p1", fmt.Sprintf("u%d", i))
					}
				}(i)
			}
			wg.Wait()

			m, _ := agg.Paragraph("doc1", "p1")
			Expect(m.EditCount).To(Equal(int64(1000)))
			Expect(m.EditorCount).To(Equal(20))
		})
	})

	Describe("UpdateParagraphLength", func() {
		It("should overwrite the last-known length", func() {
			agg.RecordEdit("doc1", "p1", "u1")
			agg.UpdateParagraphLength("doc1", "p1", 120)
			agg.UpdateParagraphLength("doc1", "p1", 40)

			m, _ := agg.Paragraph("doc1", "p1")
			Expect(m.Length).To(Equal(40))
		})

		It("should ignore paragraphs without edits", func() {
			agg.UpdateParagraphLength("doc1", "p1", 120)

			_, ok := agg.Paragraph("doc1", "p1")
			Expect(ok).To(BeFalse())
			Expect(agg.Documents()).To(BeZero())
		})
	})

	Describe("VisualizationSnapshot", func() {
		It("should return an empty slice for unknown documents", func() {
			points := agg.VisualizationSnapshot("missing")
			Expect(points).NotTo(BeNil())
			Expect(points).To(BeEmpty())
		})

		It("should keep first-seen paragraph order", func() {
			agg.RecordEdit("doc1", "zeta", "u1")
			agg.RecordEdit("doc1", "alpha", "u1")
			for i := 0; i < 5; i++ {
				agg.RecordEdit("doc1", "mid", "u1")
			}
			agg.RecordEdit("doc1", "zeta", "u2")

			points := agg.VisualizationSnapshot("doc1")
			ids := make([]string, len(points))
			for i, p := range points {
				ids[i] = p.ID
			}
			Expect(ids).To(Equal([]string{"zeta", "alpha", "mid"}))
		})

		It("should derive every point attribute", func() {
			agg.RecordEdit("doc1", "p0", "u1")
			for i := 0; i < 4; i++ {
				agg.RecordEdit("doc1", "p1", fmt.Sprintf("u%d", i%2))
			}
			agg.UpdateParagraphLength("doc1", "p1", 250)

			points := agg.VisualizationSnapshot("doc1")
			Expect(points).To(HaveLen(2))

			Expect(points[1]).To(Equal(analytics.Point{
				ID:          "p1",
				X:           2,
				Y:           4,
				Z:           2.5,
				EditCount:   4,
				EditorCount: 2,
				Length:      250,
				Color:       0xffff00,
				Bucket:      analytics.BucketMedium,
				Size:        3,
				LastUpdated: clock,
			}))
			Expect(points[0].X).To(Equal(0))
			Expect(points[0].Size).To(BeZero())
		})

		It("should cap depth for very long paragraphs", func() {
			agg.RecordEdit("doc1", "p1", "u1")
			agg.UpdateParagraphLength("doc1", "p1", 100000)

			point := agg.VisualizationSnapshot("doc1")[0]
			Expect(point.Z).To(Equal(10.0))
			Expect(point.Size).To(Equal(3.0))
		})
	})

	Describe("DocumentSummary", func() {
		It("should report no data for unknown documents", func() {
			_, ok := agg.DocumentSummary("missing")
			Expect(ok).To(BeFalse())
		})

		It("should aggregate across paragraphs", func() {
			agg.RecordEdit("doc1", "p1", "u1")
			agg.RecordEdit("doc1", "p1", "u2")
			agg.RecordEdit("doc1", "p2", "u2")
			agg.RecordEdit("doc1", "p3", "u3")
			agg.UpdateParagraphLength("doc1", "p1", 10)
			agg.UpdateParagraphLength("doc1", "p2", 20)

			summary, ok := agg.DocumentSummary("doc1")
			Expect(ok).To(BeTrue())
			Expect(summary).To(Equal(analytics.Summary{
				DocumentID:               "doc1",
				TotalParagraphs:          3,
				TotalEdits:               4,
				UniqueEditors:            3,
				AverageEditsPerParagraph: 4.0 / 3.0,
				TotalLength:              30,
				LastUpdated:              clock,
			}))
		})
	})
})
