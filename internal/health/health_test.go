package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func serve(t *testing.T, h *Handler, path string) (*http.Response, response) {
	t.Helper()
	mux := http.NewServeMux()
	h.Register(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	defer resp.Body.Close()
	var body response
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return resp, body
}

func TestHealthz_AlwaysOK(t *testing.T) {
	t.Parallel()
	resp, body := serve(t, New(), "/healthz")
	if resp.StatusCode != http.StatusOK || body.Status != "ok" {
		t.Errorf("status = %d body = %+v", resp.StatusCode, body)
	}
}

func TestReadyz_AllChecksPass(t *testing.T) {
	t.Parallel()
	h := New(
		Check{Name: "registry", Probe: func(context.Context) error { return nil }},
		Check{Name: "phrases", Probe: func(context.Context) error { return nil }},
	)
	resp, body := serve(t, h, "/readyz")
	if resp.StatusCode != http.StatusOK || body.Status != "ok" {
		t.Fatalf("status = %d body = %+v", resp.StatusCode, body)
	}
	if body.Checks["registry"] != "ok" || body.Checks["phrases"] != "ok" {
		t.Errorf("checks = %v", body.Checks)
	}
}

func TestReadyz_FailingCheck(t *testing.T) {
	t.Parallel()
	h := New(
		Check{Name: "registry", Probe: func(context.Context) error { return nil }},
		Check{Name: "phrases", Probe: func(context.Context) error { return errors.New("connection refused") }},
	)
	resp, body := serve(t, h, "/readyz")
	if resp.StatusCode != http.StatusServiceUnavailable || body.Status != "fail" {
		t.Fatalf("status = %d body = %+v", resp.StatusCode, body)
	}
	if body.Checks["phrases"] != "fail: connection refused" {
		t.Errorf("checks = %v", body.Checks)
	}
}
