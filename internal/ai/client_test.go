package ai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"wastewatch/pkg/types"
)

func newTestClient(url string, retries int) *Client {
	c := NewClient(ClientConfig{
		ClassifyURL:   url + "/classify",
		VerifyURL:     url + "/verify",
		TranscribeURL: url + "/transcribe",
		APIKey:        "test-key",
		Timeout:       2 * time.Second,
		MaxRetries:    retries,
	})
	c.backoff = time.Millisecond
	return c
}

func TestClassifySendsBase64AndDecodes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/classify" || r.Header.Get("Authorization") != "Bearer test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		var req classifyRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if raw, _ := base64.StdEncoding.DecodeString(req.ImageBase64); string(raw) != "jpeg-bytes" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte(`{"isWasteRelated":true,"topCategories":["e_waste","plastic"],"confidence":0.91,"description":"old monitors"}`))
	}))
	defer server.Close()

	got, err := newTestClient(server.URL, 0).Classify(context.Background(), []byte("jpeg-bytes"))
	if err != nil {
		t.Fatalf("expected success, got err=%v", err)
	}
	if !got.IsWasteRelated || len(got.TopCategories) != 2 || got.TopCategories[0] != "e_waste" {
		t.Fatalf("unexpected classification %+v", got)
	}
}

func TestClassifyRejectionIsNotAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"isWasteRelated":false,"confidence":0.2,"description":"a cat","rejectionReason":"no waste visible"}`))
	}))
	defer server.Close()

	got, err := newTestClient(server.URL, 0).Classify(context.Background(), []byte("x"))
	if err != nil {
		t.Fatalf("expected rejection as value, got err=%v", err)
	}
	if got.IsWasteRelated || got.RejectionReason == nil || got.TopCategories == nil {
		t.Fatalf("unexpected classification %+v", got)
	}
}

func TestVerifyRetriesOnServerError(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"isResolved":false,"message":"waste still visible"}`))
	}))
	defer server.Close()

	got, err := newTestClient(server.URL, 2).Verify(context.Background(), types.VerificationRequest{
		OriginalImage: "https://cdn/x.jpg",
		ProofImage:    "cHJvb2Y=",
	})
	if err != nil {
		t.Fatalf("expected success after retries, got err=%v", err)
	}
	if got.IsResolved || got.Message == nil || *got.Message != "waste still visible" {
		t.Fatalf("unexpected verification %+v", got)
	}
	if calls.Load() != 3 {
		t.Fatalf("expected 3 calls, got %d", calls.Load())
	}
}

func TestClientErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"bad image"}`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL, 3).Transcribe(context.Background(), []byte("audio"))
	if !errors.Is(err, types.ErrUpstream) {
		t.Fatalf("expected ErrUpstream, got %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected a single call, got %d", calls.Load())
	}
}

func TestTranscribeTrimsTranscript(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"transcript":"  garbage near the bus stop \n"}`))
	}))
	defer server.Close()

	got, err := newTestClient(server.URL, 0).Transcribe(context.Background(), []byte("audio"))
	if err != nil {
		t.Fatalf("expected success, got err=%v", err)
	}
	if got != "garbage near the bus stop" {
		t.Fatalf("unexpected transcript %q", got)
	}
}

func TestUnconfiguredEndpoint(t *testing.T) {
	c := NewClient(ClientConfig{})
	if _, err := c.Classify(context.Background(), []byte("x")); !errors.Is(err, ErrUnavailable) || !errors.Is(err, types.ErrUpstream) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestCancelDuringBackoffIsUpstreamError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		cancel()
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	c := newTestClient(server.URL, 3)
	c.backoff = time.Hour

	_, err := c.Classify(ctx, []byte("jpeg-bytes"))
	if !errors.Is(err, types.ErrUpstream) {
		t.Fatalf("expected upstream error, got %v", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled in chain, got %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("expected 1 call before cancellation, got %d", got)
	}
}
