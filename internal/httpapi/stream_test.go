package httpapi

import (
	"bufio"
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fbms.app/internal/stream"
)

func TestEventFilter(t *testing.T) {
	evt := stream.AssignmentEvent{InventoryCode: "INV1", ProjectID: 5}

	assert.True(t, eventFilter{}.match(evt))
	assert.True(t, eventFilter{code: "INV1", projectID: 5}.match(evt))
	assert.False(t, eventFilter{code: "INV2"}.match(evt))
	assert.False(t, eventFilter{projectID: 6}.match(evt))
}

func TestAssignmentEventsStream(t *testing.T) {
	f := newFixture(t)
	seedProjectAndItem(t, f)
	f.register("admin@example.com", "s3cret-pass", "admin")
	token := f.login("admin@example.com", "s3cret-pass")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+"/inventory/events?inventory_code=INV1", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := f.client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	require.Equal(t, ": subscribed\n", line)

	assign := f.do(http.MethodPut, "/inventory/assign/INV1", token, map[string]any{
		"proj_id": 5, "requested_quantity": 3, "description": "stream",
	})
	require.Equal(t, http.StatusOK, assign.StatusCode)
	assign.Body.Close()

	var data string
	for data == "" {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		if strings.HasPrefix(line, "data: ") {
			data = strings.TrimPrefix(line, "data: ")
		}
	}
	assert.Contains(t, data, `"inventory_code":"INV1"`)
	assert.Contains(t, data, `"available_quantity":7`)
}

func TestEventStreamRejectsBadFilter(t *testing.T) {
	f := newFixture(t)
	f.register("admin@example.com", "s3cret-pass", "admin")
	token := f.login("admin@example.com", "s3cret-pass")

	resp := f.do(http.MethodGet, "/inventory/events?proj_id=abc", token, nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAssignmentStreamOutlivesWriteTimeout(t *testing.T) {
	f := newServerFixture(t,
		func(o *Options) { o.StreamHeartbeat = 200 * time.Millisecond },
		func(s *http.Server) { s.WriteTimeout = 500 * time.Millisecond },
	)
	f.register("admin@example.com", "s3cret-pass", "admin")
	token := f.login("admin@example.com", "s3cret-pass")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+"/inventory/events", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := f.client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	require.Equal(t, ": subscribed\n", line)

	time.Sleep(1200 * time.Millisecond)
	f.stream.Publish(stream.AssignmentEvent{InventoryCode: "INV9", ProjectID: 3, Quantity: 1, Remaining: 4})

	var pings int
	var data string
	for data == "" {
		line, err := reader.ReadString('\n')
		require.NoError(t, err, "stream closed before the event arrived")
		switch {
		case line == ": ping\n":
			pings++
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		}
	}
	assert.Contains(t, data, `"inventory_code":"INV9"`)
	assert.Positive(t, pings)
}
