package metrics

import (
	"encoding/json"
	"net/http"
)

// StateFunc contributes live gauges (room counts and the like) to the response.
type StateFunc func() any

type response struct {
	Snapshot
	State map[string]any `json:"state,omitempty"`
}

// Handler serves the counters and the named live state as JSON.
func (c *Collector) Handler(state map[string]StateFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := response{Snapshot: c.metrics.Snapshot()}
		if len(state) > 0 {
			resp.State = make(map[string]any, len(state))
			for name, fn := range state {
				resp.State[name] = fn()
			}
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}
}
