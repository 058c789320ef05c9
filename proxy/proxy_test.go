package proxy

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHandler_AttachesSecretAndPassesThrough(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("x-proxy-secret"); got != "shh" {
			t.Errorf("secret not attached, got %q", got)
		}
		body, _ := io.ReadAll(r.Body)
		if !strings.Contains(string(body), "groupLink") {
			t.Errorf("body not forwarded: %s", body)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"restaurantName":"Taco Place"}`))
	}))
	defer upstream.Close()

	srv := httptest.NewServer(NewHandler(upstream.URL, "shh"))
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/proxy-validate-group-link", "application/json",
		strings.NewReader(`{"groupLink":"https://eats.uber.com/group/x","service":"UberEats"}`))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("unexpected status %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "Taco Place") {
		t.Errorf("upstream body lost: %s", body)
	}
}

func TestHandler_PreservesNoContent(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer upstream.Close()

	srv := httptest.NewServer(NewHandler(upstream.URL, "shh"))
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/proxy-validate-group-link", "application/json", strings.NewReader(`{}`))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("204 not preserved, got %d", resp.StatusCode)
	}
}

func TestHandler_PreservesServiceClosed(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"error":"Service is currently closed"}`))
	}))
	defer upstream.Close()

	srv := httptest.NewServer(NewHandler(upstream.URL, "shh"))
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/proxy-validate-group-link", "application/json", strings.NewReader(`{}`))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("503 not preserved, got %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "currently closed") {
		t.Errorf("503 body lost: %s", body)
	}
}

func TestHandler_RejectsWrongRoute(t *testing.T) {
	srv := httptest.NewServer(NewHandler("http://unused", "shh"))
	defer srv.Close()

	resp, _ := http.Get(srv.URL + "/api/other")
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}

	resp, _ = http.Get(srv.URL + "/api/proxy-validate-group-link")
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("expected 405 for GET, got %d", resp.StatusCode)
	}
}

func TestHandler_UpstreamDownIsBadGateway(t *testing.T) {
	srv := httptest.NewServer(NewHandler("http://127.0.0.1:1", "shh"))
	defer srv.Close()

	resp, _ := http.Post(srv.URL+"/api/proxy-validate-group-link", "application/json", strings.NewReader(`{}`))
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadGateway {
		t.Errorf("expected 502, got %d", resp.StatusCode)
	}
}

func TestHandler_Health(t *testing.T) {
	srv := httptest.NewServer(NewHandler("http://unused", "shh"))
	defer srv.Close()

	resp, _ := http.Get(srv.URL + "/health")
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
}
