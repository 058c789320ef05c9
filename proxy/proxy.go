// Package proxy is the shared-secret relay for group link validation.
// Clients call it without credentials for the validation service; the
// relay attaches x-proxy-secret on the way upstream and passes the
// response back byte for byte, preserving 204 and 503 semantics.
package proxy

import (
	"bytes"
	"io"
	"net/http"
	"time"

	"github.com/grubslash/client/logger"
)

const (
	validatePath      = "/api/proxy-validate-group-link"
	proxySecretHeader = "x-proxy-secret"

	maxBodySize = 1 << 20
)

// Handler relays validation requests to the upstream service.
type Handler struct {
	upstream   string
	secret     string
	httpClient *http.Client
}

func NewHandler(upstream, secret string) *Handler {
	return &Handler{
		upstream: upstream,
		secret:   secret,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/health" {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
		return
	}

	if r.URL.Path != validatePath {
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	log := logger.NewRequestLogger()

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodPost, h.upstream+validatePath, bytes.NewReader(body))
	if err != nil {
		log.Error("failed to build upstream request", "error", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(proxySecretHeader, h.secret)

	resp, err := h.httpClient.Do(req)
	if err != nil {
		log.Warn("upstream validation call failed", "error", err)
		http.Error(w, "Upstream unavailable", http.StatusBadGateway)
		return
	}
	defer resp.Body.Close()

	// Pass status and body through untouched; the client's handling of
	// 204 and 503 depends on seeing them verbatim.
	if ct := resp.Header.Get("Content-Type"); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	w.WriteHeader(resp.StatusCode)
	if _, err := io.Copy(w, resp.Body); err != nil {
		log.Debug("failed to stream upstream body", "error", err)
	}

	log.Info("validation relayed", "status", resp.StatusCode)
}
