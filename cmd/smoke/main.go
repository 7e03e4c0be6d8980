package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"
)

// smoke drives a running API: login, assign one unit, then check the stock
// decreased and the cost breakdown recorded it.
func main() {
	log.SetFlags(0)
	base := envOr("FBMS_SMOKE_URL", "http://localhost:8080")
	email := os.Getenv("FBMS_SMOKE_EMAIL")
	password := os.Getenv("FBMS_SMOKE_PASSWORD")
	code := envOr("FBMS_SMOKE_ITEM", "INV1")
	projectID, err := strconv.ParseInt(envOr("FBMS_SMOKE_PROJECT", "1"), 10, 64)
	if err != nil {
		log.Fatalf("FBMS_SMOKE_PROJECT: %v", err)
	}
	if email == "" || password == "" {
		log.Fatal("FBMS_SMOKE_EMAIL and FBMS_SMOKE_PASSWORD are required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	c := &client{base: base, http: &http.Client{Timeout: 5 * time.Second}}

	var login struct {
		Token string `json:"token"`
	}
	if err := c.call(ctx, http.MethodPost, "/login", map[string]string{"email": email, "password": password}, &login); err != nil {
		log.Fatalf("login: %v", err)
	}
	c.token = login.Token

	type item struct {
		Available int64 `json:"available_quantity"`
	}
	var before item
	if err := c.call(ctx, http.MethodGet, "/inventory/"+code, nil, &before); err != nil {
		log.Fatalf("get item: %v", err)
	}
	if before.Available < 1 {
		log.Fatalf("item %s has no stock to assign", code)
	}

	var assigned struct {
		Available int64 `json:"available_quantity"`
	}
	body := map[string]any{"proj_id": projectID, "requested_quantity": 1, "description": "smoke test"}
	if err := c.call(ctx, http.MethodPut, "/inventory/assign/"+code, body, &assigned); err != nil {
		log.Fatalf("assign: %v", err)
	}
	if assigned.Available != before.Available-1 {
		log.Fatalf("stock not decremented: before=%d after=%d", before.Available, assigned.Available)
	}

	var cost struct {
		Lines []json.RawMessage `json:"cost_breakdown"`
		Total string            `json:"total_project_cost"`
	}
	if err := c.call(ctx, http.MethodGet, fmt.Sprintf("/costbreakdown/%d", projectID), nil, &cost); err != nil {
		log.Fatalf("cost breakdown: %v", err)
	}
	if len(cost.Lines) == 0 {
		log.Fatal("cost breakdown is empty after assignment")
	}

	fmt.Printf("smoke test passed: %s available=%d project=%d total_cost=%s\n", code, assigned.Available, projectID, cost.Total)
}

type client struct {
	base  string
	token string
	http  *http.Client
}

func (c *client) call(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%s %s: %s: %s", method, path, resp.Status, bytes.TrimSpace(msg))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
