// Loadtest drives a collab-sync server with concurrent WebSocket editors and
// measures how long text updates take to reach the other members of a room.
//
// Usage:
//
//	go run ./scripts/loadtest -url ws://localhost:3001/ws -rooms 10 -clients 5 -updates 200
//	go run ./scripts/loadtest -rooms 50 -clients 20 -updates 100 -out summary.json
//
// Every client joins one room and sends its updates at the given interval.
// Each update is expected once by every other member, so a room of n
// clients should see updates*n*(n-1) deliveries.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"runtime"
	"slices"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

type textUpdate struct {
	Type        string `json:"type"`
	DocumentID  string `json:"documentId"`
	ParagraphID string `json:"paragraphId,omitempty"`
	UserID      string `json:"userId,omitempty"`
	Content     string `json:"content"`
}

type stats struct {
	mu        sync.Mutex
	latencies []time.Duration

	sent      atomic.Int64
	delivered atomic.Int64
	errors    atomic.Int64
}

func (s *stats) record(d time.Duration) {
	s.delivered.Add(1)
	s.mu.Lock()
	s.latencies = append(s.latencies, d)
	s.mu.Unlock()
}

type client struct {
	conn   *websocket.Conn
	room   string
	userID string
}

func main() {
	var (
		url      = flag.String("url", "ws://localhost:3001/ws", "WebSocket endpoint")
		rooms    = flag.Int("rooms", 10, "Number of documents")
		clients  = flag.Int("clients", 5, "Clients per document")
		updates  = flag.Int("updates", 100, "Text updates sent by each client")
		interval = flag.Duration("interval", 10*time.Millisecond, "Delay between a client's updates")
		settle   = flag.Duration("settle", 2*time.Second, "Time to wait for late deliveries")
		outJSON  = flag.String("out", "", "Write JSON summary to this file (optional)")
	)
	flag.Parse()

	st := &stats{}
	var all []*client

	for r := 0; r < *rooms; r++ {
		room := fmt.Sprintf("loadtest-%d", r)
		for c := 0; c < *clients; c++ {
			cl, err := connect(*url, room, fmt.Sprintf("user-%d-%d", r, c))
			if err != nil {
				fmt.Fprintf(os.Stderr, "failed to connect: %v\n", err)
				os.Exit(1)
			}
			all = append(all, cl)
		}
	}

	var readers sync.WaitGroup
	for _, cl := range all {
		readers.Add(1)
		go func() {
			defer readers.Done()
			read(cl, st)
		}()
	}

	testStart := time.Now()

	var writers sync.WaitGroup
	for i, cl := range all {
		writers.Add(1)
		go func() {
			defer writers.Done()
			write(cl, i, *updates, *interval, st)
		}()
	}
	writers.Wait()
	sendDuration := time.Since(testStart)

	time.Sleep(*settle)
	for _, cl := range all {
		_ = cl.conn.Close()
	}
	readers.Wait()

	expected := int64(*rooms) * int64(*updates) * int64(*clients) * int64(*clients-1)
	report := summarize(st, expected, sendDuration)
	report["url"] = *url
	report["rooms"] = *rooms
	report["clients_per_room"] = *clients
	report["updates_per_client"] = *updates

	fmt.Println("--- Fanout Load Test Summary ---")
	fmt.Printf("Target: %s  Rooms: %d  Clients/room: %d\n", *url, *rooms, *clients)
	fmt.Printf("Sent: %d  Delivered: %d/%d  Errors: %d\n",
		st.sent.Load(), st.delivered.Load(), expected, st.errors.Load())
	fmt.Printf("Send duration: %v  Throughput: %.2f updates/s\n",
		sendDuration, report["throughput_ups"])
	if lat, ok := report["latency_ms"].(map[string]float64); ok {
		fmt.Printf("Latency ms: p50=%.2f p90=%.2f p95=%.2f p99=%.2f max=%.2f\n",
			lat["p50"], lat["p90"], lat["p95"], lat["p99"], lat["max"])
	}
	fmt.Printf("\nGOMAXPROCS=%d  NumGoroutine=%d\n", runtime.GOMAXPROCS(0), runtime.NumGoroutine())

	if *outJSON != "" {
		f, err := os.Create(*outJSON)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to create json file: %v\n", err)
			os.Exit(1)
		}
		enc := json.NewEncoder(f)
		enc.SetIndent("", "  ")
		_ = enc.Encode(report)
		f.Close()
		fmt.Printf("\nWrote JSON summary to %s\n", *outJSON)
	}

	if st.errors.Load() > 0 || st.delivered.Load() < expected {
		os.Exit(2)
	}
}

func connect(url, room, userID string) (*client, error) {
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, err
	}

	join, _ := json.Marshal(map[string]string{
		"type":       "join-document",
		"documentId": room,
		"userId":     userID,
	})
	if err := conn.WriteMessage(websocket.TextMessage, join); err != nil {
		conn.Close()
		return nil, err
	}

	// joined-document
	if _, _, err := conn.ReadMessage(); err != nil {
		conn.Close()
		return nil, err
	}

	return &client{conn: conn, room: room, userID: userID}, nil
}

// write sends updates whose content carries the send time in nanoseconds.
// Writes happen only here, reads only in read, so no lock is needed.
func write(cl *client, index, updates int, interval time.Duration, st *stats) {
	for n := 0; n < updates; n++ {
		frame, _ := json.Marshal(textUpdate{
			Type:        "text-update",
			DocumentID:  cl.room,
			ParagraphID: fmt.Sprintf("p%d", n%20),
			UserID:      cl.userID,
			Content:     strconv.FormatInt(time.Now().UnixNano(), 10),
		})
		if err := cl.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			st.errors.Add(1)
			return
		}
		st.sent.Add(1)
		time.Sleep(interval)
	}
}

func read(cl *client, st *stats) {
	for {
		_, data, err := cl.conn.ReadMessage()
		if err != nil {
			return
		}

		var msg textUpdate
		if err := json.Unmarshal(data, &msg); err != nil || msg.Type != "text-update" {
			continue
		}
		sentAt, err := strconv.ParseInt(msg.Content, 10, 64)
		if err != nil {
			continue
		}
		st.record(time.Since(time.Unix(0, sentAt)))
	}
}

func summarize(st *stats, expected int64, sendDuration time.Duration) map[string]any {
	report := map[string]any{
		"sent":             st.sent.Load(),
		"delivered":        st.delivered.Load(),
		"expected":         expected,
		"errors":           st.errors.Load(),
		"send_duration_ms": sendDuration.Milliseconds(),
		"throughput_ups":   float64(st.sent.Load()) / sendDuration.Seconds(),
	}

	st.mu.Lock()
	tmp := slices.Clone(st.latencies)
	st.mu.Unlock()
	if len(tmp) == 0 {
		return report
	}
	slices.Sort(tmp)

	pick := func(p float64) float64 {
		return float64(tmp[int(float64(len(tmp)-1)*p)].Microseconds()) / 1000.0
	}
	report["latency_ms"] = map[string]float64{
		"p50": pick(0.50),
		"p90": pick(0.90),
		"p95": pick(0.95),
		"p99": pick(0.99),
		"max": pick(1.0),
	}
	return report
}
