package geocode

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestReverseParsesNominatim(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/reverse" || r.URL.Query().Get("format") != "jsonv2" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if r.Header.Get("User-Agent") != "wastewatch-test" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		_, _ = w.Write([]byte(`{"display_name":"12 MG Road, Shivajinagar, Bengaluru","address":{"neighbourhood":"Shivajinagar","city":"Bengaluru"}}`))
	}))
	defer server.Close()

	c := New(Config{BaseURL: server.URL, UserAgent: "wastewatch-test", DefaultLocality: "L", DefaultCity: "C"}, nil)
	got := c.Reverse(context.Background(), 12.97, 77.59)

	if got.Address != "12 MG Road, Shivajinagar, Bengaluru" || got.Locality != "Shivajinagar" || got.City != "Bengaluru" {
		t.Fatalf("unexpected place %+v", got)
	}
}

func TestReverseFallsBackToDefaults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	c := New(Config{BaseURL: server.URL, DefaultLocality: "Unknown locality", DefaultCity: "Unknown city"}, nil)
	got := c.Reverse(context.Background(), 1.5, -2.25)

	if got.Locality != "Unknown locality" || got.City != "Unknown city" {
		t.Fatalf("expected defaults, got %+v", got)
	}
	if got.Address != "1.500000, -2.250000" {
		t.Fatalf("expected coordinate address, got %q", got.Address)
	}
}

func TestReversePartialAddress(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"display_name":"Somewhere","address":{"town":"Hosur"}}`))
	}))
	defer server.Close()

	c := New(Config{BaseURL: server.URL, DefaultLocality: "Unknown locality", DefaultCity: "Unknown city", Timeout: time.Second}, nil)
	got := c.Reverse(context.Background(), 0, 0)

	if got.Locality != "Unknown locality" || got.City != "Hosur" {
		t.Fatalf("unexpected place %+v", got)
	}
}

func TestReverseWithoutEndpoint(t *testing.T) {
	got := New(Config{DefaultCity: "C"}, nil).Reverse(context.Background(), 0, 0)
	if got.City != "C" {
		t.Fatalf("expected default city, got %+v", got)
	}
}
