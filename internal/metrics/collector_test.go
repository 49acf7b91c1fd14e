package metrics_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/collab-sync/internal/metrics"
	"github.com/angeloszaimis/collab-sync/pkg/logger"
)

var _ = Describe("Collector", func() {
	var (
		collector *metrics.Collector
		ctx       context.Context
		cancel    context.CancelFunc
	)

	BeforeEach(func() {
		ctx, cancel = context.WithCancel(context.Background())
		collector = metrics.NewCollector(100, logger.Discard())
	})

	AfterEach(func() {
		cancel()
	})

	It("should process emitted events", func() {
		collector.Start(ctx)

		collector.Emit(metrics.Event{Type: metrics.EventConnectionOpened})
		collector.Emit(metrics.Event{Type: metrics.EventFrameReceived, FrameType: "text-update"})
		collector.Emit(metrics.Event{Type: metrics.EventBroadcast, Delivered: 2, Failed: 1})

		Eventually(func() int64 {
			return collector.Snapshot().DeliveryFailures
		}).Should(Equal(int64(1)))

		snap := collector.Snapshot()
		Expect(snap.ActiveConnections).To(Equal(int64(1)))
		Expect(snap.Frames["text-update"]).To(Equal(int64(1)))
		Expect(snap.Deliveries).To(Equal(int64(2)))
	})

	It("should drain queued events on cancellation", func() {
		for i := 0; i < 5; i++ {
			collector.Emit(metrics.Event{Type: metrics.EventFrameRejected})
		}

		collector.Start(ctx)
		cancel()

		Eventually(func() int64 {
			return collector.Snapshot().MalformedFrames
		}).Should(Equal(int64(5)))
	})

	It("should drop events instead of blocking when the buffer is full", func() {
		small := metrics.NewCollector(1, logger.Discard())

		done := make(chan struct{})
		go func() {
			defer close(done)
			for i := 0; i < 10; i++ {
				small.Emit(metrics.Event{Type: metrics.EventRelayFailed})
			}
		}()

		Eventually(done).Should(BeClosed())
	})

	It("should ignore events on a nil collector", func() {
		var nilCollector *metrics.Collector
		Expect(func() {
			nilCollector.Emit(metrics.Event{Type: metrics.EventConnectionOpened})
		}).NotTo(Panic())
	})

	Describe("Handler", func() {
		It("should serve counters and live state as JSON", func() {
			collector.Start(ctx)
			collector.Emit(metrics.Event{Type: metrics.EventConnectionOpened})
			Eventually(func() int64 {
				return collector.Snapshot().TotalConnections
			}).Should(Equal(int64(1)))

			handler := collector.Handler(map[string]metrics.StateFunc{
				"rooms": func() any { return 3 },
			})
			w := httptest.NewRecorder()
			handler(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Header().Get("Content-Type")).To(Equal("application/json"))

			var body map[string]any
			Expect(json.Unmarshal(w.Body.Bytes(), &body)).To(Succeed())
			Expect(body["total_connections"]).To(BeNumerically("==", 1))
			Expect(body["state"]).To(HaveKeyWithValue("rooms", BeNumerically("==", 3)))
		})
	})
})
