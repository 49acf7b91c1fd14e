package fanout_test

import (
	"context"
	"errors"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/collab-sync/internal/circuitbreaker"
	"github.com/angeloszaimis/collab-sync/internal/fanout"
	"github.com/angeloszaimis/collab-sync/internal/metrics"
	"github.com/angeloszaimis/collab-sync/internal/registry"
	"github.com/angeloszaimis/collab-sync/internal/registry/registrytest"
	"github.com/angeloszaimis/collab-sync/pkg/logger"
)

type published struct {
	documentID string
	payload    string
}

type fakeRelay struct {
	mu    sync.Mutex
	err   error
	calls []published
}

func (r *fakeRelay) Publish(_ context.Context, documentID string, payload []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, published{documentID, string(payload)})
	return r.err
}

func (r *fakeRelay) Calls() []published {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]published(nil), r.calls...)
}

var _ = Describe("Fanout", func() {
	var (
		reg     *registry.Registry
		f       *fanout.Fanout
		a, b, c *registrytest.Conn
		payload []byte
		ctx     context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		reg = registry.New()
		f = fanout.New(reg, logger.Discard())
		a = registrytest.NewConn("a")
		b = registrytest.NewConn("b")
		c = registrytest.NewConn("c")
		reg.Join(a, "doc1")
		reg.Join(b, "doc1")
		reg.Join(c, "doc1")
		payload = []byte(`{"type":"text-update","content":"hello"}`)
	})

	Describe("Broadcast", func() {
		It("should deliver to every member except the sender", func() {
			result := f.Broadcast(ctx, "doc1", a, payload)

			Expect(result).To(Equal(fanout.Result{Delivered: 2}))
			Expect(a.Sent()).To(BeEmpty())
			Expect(b.Sent()).To(Equal([][]byte{payload}))
			Expect(c.Sent()).To(Equal([][]byte{payload}))
		})

		It("should not deliver to other rooms", func() {
			d := registrytest.NewConn("d")
			reg.Join(d, "doc2")

			f.Broadcast(ctx, "doc1", a, payload)

			Expect(d.Sent()).To(BeEmpty())
		})

		It("should be a no-op for an absent room", func() {
			result := f.Broadcast(ctx, "missing", a, payload)
			Expect(result).To(Equal(fanout.Result{}))
		})

		It("should skip members whose transport is closed", func() {
			b.Close()

			result := f.Broadcast(ctx, "doc1", a, payload)

			Expect(result).To(Equal(fanout.Result{Delivered: 1, Skipped: 1}))
			Expect(c.Sent()).To(HaveLen(1))
		})

		It("should keep delivering after a member fails", func() {
			b.FailSends()

			result := f.Broadcast(ctx, "doc1", a, payload)

			Expect(result).To(Equal(fanout.Result{Delivered: 1, Failed: 1}))
			Expect(c.Sent()).To(Equal([][]byte{payload}))
			Expect(reg.Members("doc1")).To(HaveLen(3))
		})

		It("should report outcomes to the collector", func() {
			collector := metrics.NewCollector(10, logger.Discard())
			runCtx, cancel := context.WithCancel(context.Background())
			defer cancel()
			collector.Start(runCtx)

			b.FailSends()
			f = fanout.New(reg, logger.Discard(), fanout.WithCollector(collector))
			f.Broadcast(ctx, "doc1", a, payload)

			Eventually(func() int64 {
				return collector.Snapshot().Broadcasts
			}).Should(Equal(int64(1)))
			snap := collector.Snapshot()
			Expect(snap.Deliveries).To(Equal(int64(1)))
			Expect(snap.DeliveryFailures).To(Equal(int64(1)))
		})
	})

	Describe("DeliverRemote", func() {
		It("should deliver to every open member", func() {
			c.Close()

			result := f.DeliverRemote("doc1", payload)

			Expect(result).To(Equal(fanout.Result{Delivered: 2, Skipped: 1}))
			Expect(a.Sent()).To(HaveLen(1))
			Expect(b.Sent()).To(HaveLen(1))
		})
	})

	Describe("with a relay", func() {
		var relay *fakeRelay

		BeforeEach(func() {
			relay = &fakeRelay{}
		})

		It("should publish every broadcast", func() {
			f = fanout.New(reg, logger.Discard(), fanout.WithRelay(relay, circuitbreaker.New(3, time.Minute)))

			f.Broadcast(ctx, "doc1", a, payload)
			f.Broadcast(ctx, "empty-here", a, payload)

			Expect(relay.Calls()).To(Equal([]published{
				{"doc1", string(payload)},
				{"empty-here", string(payload)},
			}))
		})

		It("should not publish remote deliveries back", func() {
			f = fanout.New(reg, logger.Discard(), fanout.WithRelay(relay, nil))

			f.DeliverRemote("doc1", payload)

			Expect(relay.Calls()).To(BeEmpty())
		})

		It("should deliver locally even when the relay fails", func() {
			relay.err = errors.New("redis down")
			f = fanout.New(reg, logger.Discard(), fanout.WithRelay(relay, nil))

			result := f.Broadcast(ctx, "doc1", a, payload)

			Expect(result.Delivered).To(Equal(2))
		})

		It("should stop publishing once the breaker opens", func() {
			relay.err = errors.New("redis down")
			f = fanout.New(reg, logger.Discard(), fanout.WithRelay(relay, circuitbreaker.New(2, time.Hour)))

			for i := 0; i < 5; i++ {
				f.Broadcast(ctx, "doc1", a, payload)
			}

			Expect(relay.Calls()).To(HaveLen(2))
			Expect(b.Sent()).To(HaveLen(5))
		})
	})
})
