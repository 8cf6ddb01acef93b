package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/nanocl-project/nanocld/internal/errors"
)

// streamEvents serves one newline-delimited JSON stream per connection,
// fed directly from the event bus. The connection's lifetime is the
// subscription's lifetime; closing it unsubscribes.
func (a *API) streamEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, errors.Internal("streaming unsupported", nil))
		return
	}

	sub := a.bus.Subscribe()
	defer sub.Unsubscribe()

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.WriteHeader(http.StatusOK)

	enc := json.NewEncoder(w)
	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub.Events():
			if !ok {
				return
			}
			if err := enc.Encode(ev); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
