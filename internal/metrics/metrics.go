package metrics

import (
	"sync"
	"time"
)

// Metrics holds the counters. It is safe for concurrent use.
type Metrics struct {
	mutex             sync.RWMutex
	connectionsOpened int64
	connectionsClosed int64
	frames            map[string]int64
	malformedFrames   int64
	broadcasts        int64
	deliveries        int64
	deliveryFailures  int64
	relayFailures     int64
	startTime         time.Time
}

type Snapshot struct {
	Uptime            time.Duration    `json:"uptime"`
	ActiveConnections int64            `json:"active_connections"`
	TotalConnections  int64            `json:"total_connections"`
	Frames            map[string]int64 `json:"frames"`
	MalformedFrames   int64            `json:"malformed_frames"`
	Broadcasts        int64            `json:"broadcasts"`
	Deliveries        int64            `json:"deliveries"`
	DeliveryFailures  int64            `json:"delivery_failures"`
	RelayFailures     int64            `json:"relay_failures"`
}

func NewMetrics() *Metrics {
	return &Metrics{
		frames:    make(map[string]int64),
		startTime: time.Now(),
	}
}

func (m *Metrics) ConnectionOpened() {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.connectionsOpened++
}

func (m *Metrics) ConnectionClosed() {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.connectionsClosed++
}

// UnknownFrameType counts frames whose type is not part of the protocol.
const UnknownFrameType = "unknown"

// maxFrameTypes caps the distinct keys of the frames counter.
const maxFrameTypes = 16

// FrameReceived counts a frame by type. Once maxFrameTypes kinds are tracked,
// new kinds are counted as UnknownFrameType.
func (m *Metrics) FrameReceived(frameType string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, seen := m.frames[frameType]; !seen && len(m.frames) >= maxFrameTypes {
		frameType = UnknownFrameType
	}
	m.frames[frameType]++
}

func (m *Metrics) FrameRejected() {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.malformedFrames++
}

func (m *Metrics) RecordBroadcast(delivered, failed int) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.broadcasts++
	m.deliveries += int64(delivered)
	m.deliveryFailures += int64(failed)
}

func (m *Metrics) RelayFailed() {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.relayFailures++
}

func (m *Metrics) Snapshot() Snapshot {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	frames := make(map[string]int64, len(m.frames))
	for frameType, count := range m.frames {
		frames[frameType] = count
	}

	return Snapshot{
		Uptime:            time.Since(m.startTime),
		ActiveConnections: m.connectionsOpened - m.connectionsClosed,
		TotalConnections:  m.connectionsOpened,
		Frames:            frames,
		MalformedFrames:   m.malformedFrames,
		Broadcasts:        m.broadcasts,
		Deliveries:        m.deliveries,
		DeliveryFailures:  m.deliveryFailures,
		RelayFailures:     m.relayFailures,
	}
}
