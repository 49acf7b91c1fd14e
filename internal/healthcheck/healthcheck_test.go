package healthcheck_test

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/collab-sync/internal/healthcheck"
	"github.com/angeloszaimis/collab-sync/pkg/logger"
)

var _ = Describe("Monitor", func() {
	var (
		monitor *healthcheck.Monitor
		failing atomic.Bool
		calls   atomic.Int32
		probe   healthcheck.Probe
	)

	BeforeEach(func() {
		monitor = healthcheck.NewMonitor()
		failing.Store(false)
		calls.Store(0)
		probe = healthcheck.Probe{
			Name: "redis",
			Ping: func(context.Context) error {
				calls.Add(1)
				if failing.Load() {
					return errors.New("connection refused")
				}
				return nil
			},
		}
	})

	It("should report no dependencies before any check", func() {
		Expect(monitor.Status()).To(BeEmpty())
		Expect(monitor.Healthy()).To(BeTrue())
	})

	It("should check immediately and record a healthy dependency", func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		go monitor.Run(ctx, probe, time.Hour, logger.Discard())

		Eventually(monitor.Status).Should(HaveKeyWithValue("redis",
			HaveField("Healthy", BeTrue())))
		Expect(monitor.Healthy()).To(BeTrue())
	})

	It("should follow a dependency going down and coming back", func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		failing.Store(true)
		go monitor.Run(ctx, probe, 20*time.Millisecond, logger.Discard())

		Eventually(monitor.Status).Should(HaveKeyWithValue("redis", And(
			HaveField("Healthy", BeFalse()),
			HaveField("Error", "connection refused"),
		)))
		Expect(monitor.Healthy()).To(BeFalse())

		failing.Store(false)
		Eventually(monitor.Healthy).Should(BeTrue())
	})

	It("should stop pinging when the context is cancelled", func() {
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})

		go func() {
			monitor.Run(ctx, probe, 10*time.Millisecond, logger.Discard())
			close(done)
		}()

		Eventually(calls.Load).Should(BeNumerically(">=", 2))
		cancel()
		Eventually(done).Should(BeClosed())

		stopped := calls.Load()
		Consistently(calls.Load, 50*time.Millisecond).Should(Equal(stopped))
	})
})
