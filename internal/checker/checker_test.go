package checker

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/quietwire/linkcheck/internal/cache"
	"github.com/quietwire/linkcheck/internal/model"
)

// chainServer redirects /a -> /b -> /c and answers 200 on /c.
func chainServer(t *testing.T, hits *atomic.Int32) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/a", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Redirect(w, r, "/b", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/b", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Redirect(w, r, "/c", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/c", func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusOK)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

type recordedRequest struct {
	method string
	path   string
}

// TestCheckerRedirects tests redirect following and the redirect limit.
func TestCheckerRedirects(t *testing.T) {
	t.Parallel()

	t.Run("chain within limit resolves ok", func(t *testing.T) {
		t.Parallel()

		var hits atomic.Int32
		srv := chainServer(t, &hits)
		c := New(srv.Client(), WithMaxRedirects(5), WithPrivateRedirects())

		got := c.Check(context.Background(), srv.URL+"/a")
		if !got.OK {
			t.Fatalf("expected ok, got %+v", got)
		}
		if got.FinalURL != srv.URL+"/c" {
			t.Errorf("FinalURL = %q, expected %q", got.FinalURL, srv.URL+"/c")
		}
		if got.Code != http.StatusOK {
			t.Errorf("Code = %d, expected 200", got.Code)
		}
		if hits.Load() != 3 {
			t.Errorf("hits = %d, expected 3", hits.Load())
		}
	})

	t.Run("chain past limit is a redirect loop", func(t *testing.T) {
		t.Parallel()

		var hits atomic.Int32
		srv := chainServer(t, &hits)
		c := New(srv.Client(), WithMaxRedirects(1), WithPrivateRedirects())

		got := c.Check(context.Background(), srv.URL+"/a")
		if got.OK {
			t.Fatal("expected failure")
		}
		if got.Reason != model.ReasonRedirectLoop {
			t.Errorf("Reason = %q, expected %q", got.Reason, model.ReasonRedirectLoop)
		}
		if got.Code != 0 {
			t.Errorf("Code = %d, expected none", got.Code)
		}
		if got.FinalURL != srv.URL+"/c" {
			t.Errorf("FinalURL = %q, expected %q", got.FinalURL, srv.URL+"/c")
		}
	})

	t.Run("redirect to private host is refused", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "http://127.0.0.1:1/admin", http.StatusFound)
		}))
		t.Cleanup(srv.Close)

		got := New(srv.Client()).Check(context.Background(), srv.URL+"/")
		if got.Reason != model.ReasonPrivateHost {
			t.Errorf("Reason = %q, expected %q", got.Reason, model.ReasonPrivateHost)
		}
		if got.FinalURL != "http://127.0.0.1:1/admin" {
			t.Errorf("FinalURL = %q", got.FinalURL)
		}
	})
}

// TestCheckerMethodFallback tests the HEAD to GET downgrade.
func TestCheckerMethodFallback(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		headStatus int
		getStatus  int
		wantOK     bool
		wantReason string
		wantCalls  []string
	}{
		{
			name:       "HEAD 405 then GET 200",
			headStatus: http.StatusMethodNotAllowed,
			getStatus:  http.StatusOK,
			wantOK:     true,
			wantReason: model.ReasonOK,
			wantCalls:  []string{http.MethodHead, http.MethodGet},
		},
		{
			name:       "HEAD 501 then GET 404",
			headStatus: http.StatusNotImplemented,
			getStatus:  http.StatusNotFound,
			wantReason: "http_404",
			wantCalls:  []string{http.MethodHead, http.MethodGet},
		},
		{
			name:       "HEAD 404 is final",
			headStatus: http.StatusNotFound,
			getStatus:  http.StatusOK,
			wantReason: "http_404",
			wantCalls:  []string{http.MethodHead},
		},
		{
			name:       "HEAD 429 is final",
			headStatus: http.StatusTooManyRequests,
			getStatus:  http.StatusOK,
			wantReason: "http_429",
			wantCalls:  []string{http.MethodHead},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var (
				mu    sync.Mutex
				calls []recordedRequest
			)
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				mu.Lock()
				calls = append(calls, recordedRequest{method: r.Method, path: r.URL.Path})
				mu.Unlock()
				if r.Method == http.MethodHead {
					w.WriteHeader(tt.headStatus)
					return
				}
				w.WriteHeader(tt.getStatus)
			}))
			t.Cleanup(srv.Close)

			got := New(srv.Client()).Check(context.Background(), srv.URL+"/page")
			if got.OK != tt.wantOK || got.Reason != tt.wantReason {
				t.Errorf("got %+v, expected ok=%v reason=%q", got, tt.wantOK, tt.wantReason)
			}

			mu.Lock()
			defer mu.Unlock()
			if len(calls) != len(tt.wantCalls) {
				t.Fatalf("calls = %v, expected methods %v", calls, tt.wantCalls)
			}
			for i, m := range tt.wantCalls {
				if calls[i].method != m || calls[i].path != "/page" {
					t.Errorf("call %d = %+v, expected %s /page", i, calls[i], m)
				}
			}
		})
	}
}

// TestCheckerCache tests that fresh records avoid the network and stale
// records are refreshed.
func TestCheckerCache(t *testing.T) {
	t.Parallel()

	t.Run("fresh record avoids the network", func(t *testing.T) {
		t.Parallel()

		var hits atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			hits.Add(1)
		}))
		t.Cleanup(srv.Close)

		store := cache.New()
		cached := model.Outcome{Code: 404, FinalURL: srv.URL + "/gone", Reason: "http_404"}
		store.Put(srv.URL+"/gone", cached)

		got := New(srv.Client(), WithCache(store)).Check(context.Background(), srv.URL+"/gone")
		if got != cached {
			t.Errorf("got %+v, expected cached %+v", got, cached)
		}
		if hits.Load() != 0 {
			t.Errorf("expected no requests, got %d", hits.Load())
		}
	})

	t.Run("expired record is refetched and overwritten", func(t *testing.T) {
		t.Parallel()

		var hits atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			hits.Add(1)
		}))
		t.Cleanup(srv.Close)

		now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
		var mu sync.Mutex
		clock := func() time.Time {
			mu.Lock()
			defer mu.Unlock()
			return now
		}
		store := cache.New(cache.WithClock(clock), cache.WithMaxAge(time.Hour))
		store.Put(srv.URL+"/", model.Outcome{Reason: "timeout"})

		mu.Lock()
		now = now.Add(2 * time.Hour)
		mu.Unlock()

		got := New(srv.Client(), WithCache(store)).Check(context.Background(), srv.URL+"/")
		if !got.OK {
			t.Fatalf("expected ok after refetch, got %+v", got)
		}
		if hits.Load() != 1 {
			t.Errorf("hits = %d, expected 1", hits.Load())
		}
		rec, ok := store.Get(srv.URL + "/")
		if !ok || !rec.OK {
			t.Errorf("cache not overwritten: %+v ok=%v", rec, ok)
		}
	})

	t.Run("canceled check is not stored", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
		t.Cleanup(srv.Close)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		store := cache.New()
		got := New(srv.Client(), WithCache(store)).Check(ctx, srv.URL+"/")
		if got.Reason != model.ReasonCanceled {
			t.Errorf("Reason = %q, expected %q", got.Reason, model.ReasonCanceled)
		}
		if store.Len() != 0 {
			t.Errorf("expected empty cache, got %d records", store.Len())
		}
	})
}

// TestCheckerTransportFailures tests failure kinds from real transports.
func TestCheckerTransportFailures(t *testing.T) {
	t.Parallel()

	t.Run("connection refused", func(t *testing.T) {
		t.Parallel()

		ln, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			t.Fatal(err)
		}
		addr := ln.Addr().String()
		_ = ln.Close()

		got := New(nil).Check(context.Background(), "http://"+addr+"/")
		if got.Reason != model.ReasonConnectionRefused {
			t.Errorf("Reason = %q, expected %q", got.Reason, model.ReasonConnectionRefused)
		}
		if got.OK || got.Code != 0 || got.FinalURL != "" {
			t.Errorf("unexpected outcome %+v", got)
		}
	})

	t.Run("timeout", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(5 * time.Second):
			}
		}))
		t.Cleanup(srv.Close)

		client := srv.Client()
		client.Timeout = 50 * time.Millisecond

		got := New(client).Check(context.Background(), srv.URL+"/")
		if got.Reason != model.ReasonTimeout {
			t.Errorf("Reason = %q, expected %q", got.Reason, model.ReasonTimeout)
		}
	})

	t.Run("invalid url", func(t *testing.T) {
		t.Parallel()

		got := New(nil).Check(context.Background(), "http://[::1")
		if got.Reason != model.ReasonInvalidURL {
			t.Errorf("Reason = %q, expected %q", got.Reason, model.ReasonInvalidURL)
		}
	})
}

type countingRecorder struct {
	mu       sync.Mutex
	requests []string
	hits     int
	misses   int
}

func (r *countingRecorder) ObserveRequest(method string, _ int, _ string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests = append(r.requests, method)
}

func (r *countingRecorder) ObserveCache(hit bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if hit {
		r.hits++
	} else {
		r.misses++
	}
}

// TestCheckerRequests tests request headers and recorder callbacks.
func TestCheckerRequests(t *testing.T) {
	t.Parallel()

	var ua atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		ua.Store(r.UserAgent())
	}))
	t.Cleanup(srv.Close)

	rec := &countingRecorder{}
	c := New(srv.Client(), WithCache(cache.New()), WithRecorder(rec))

	c.Check(context.Background(), srv.URL+"/")
	c.Check(context.Background(), srv.URL+"/")

	if got, _ := ua.Load().(string); got != DefaultUserAgent {
		t.Errorf("User-Agent = %q, expected %q", got, DefaultUserAgent)
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.misses != 1 || rec.hits != 1 {
		t.Errorf("misses=%d hits=%d, expected 1 and 1", rec.misses, rec.hits)
	}
	if len(rec.requests) != 1 || rec.requests[0] != http.MethodHead {
		t.Errorf("requests = %v, expected [HEAD]", rec.requests)
	}
}
