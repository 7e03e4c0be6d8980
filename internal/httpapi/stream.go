package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"fbms.app/internal/ids"
	"fbms.app/internal/obs"
	"fbms.app/internal/stream"
)

const defaultStreamHeartbeat = 10 * time.Second

// eventFilter narrows the feed to one item and/or one project.
type eventFilter struct {
	code      string
	projectID int64
}

func parseEventFilter(r *http.Request) (eventFilter, error) {
	q := r.URL.Query()
	f := eventFilter{code: strings.TrimSpace(q.Get("inventory_code"))}
	if raw := strings.TrimSpace(q.Get("proj_id")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return eventFilter{}, errors.New("proj_id must be a positive integer")
		}
		f.projectID = id
	}
	return f, nil
}

func (f eventFilter) match(evt stream.AssignmentEvent) bool {
	if f.code != "" && evt.InventoryCode != f.code {
		return false
	}
	return f.projectID == 0 || evt.ProjectID == f.projectID
}

// Stream serves committed assignments as Server-Sent Events. Each event
// carries a sortable id; a comment line keeps idle connections open. The
// server write timeout does not apply to the stream.
func (a *API) Stream(w http.ResponseWriter, r *http.Request) {
	if a.stream == nil {
		writeError(w, r, http.StatusServiceUnavailable, "streaming disabled")
		return
	}
	filter, err := parseEventFilter(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, r, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		obs.Logger().Warn().Err(err).Str("request_id", RequestIDFromContext(r.Context())).Msg("stream write deadline not cleared")
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	events := a.stream.Subscribe(r.Context())
	fmt.Fprint(w, ": subscribed\n\n")
	flusher.Flush()

	ticker := time.NewTicker(a.heartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case evt, open := <-events:
			if !open {
				return
			}
			if !filter.match(evt) {
				continue
			}
			payload, err := json.Marshal(evt)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "id: %s\nevent: assignment\ndata: %s\n\n", ids.New(), payload)
			flusher.Flush()
		}
	}
}
