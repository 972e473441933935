package resolver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve_NoRedirect(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<html>plain</html>"))
	}))
	defer server.Close()

	r := New()
	res := r.Resolve(context.Background(), server.URL)
	assert.Equal(t, server.URL, res.FinalURL)
	assert.Equal(t, []string{server.URL}, res.Chain)
}

func TestResolve_FollowsChain(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/a", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/b", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/b", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/c", http.StatusFound)
	})
	mux.HandleFunc("/c", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("done"))
	})

	r := New()
	res := r.Resolve(context.Background(), server.URL+"/a")
	assert.Equal(t, server.URL+"/c", res.FinalURL)
	assert.Equal(t, []string{server.URL + "/a", server.URL + "/b", server.URL + "/c"}, res.Chain)
}

func TestResolve_LoopTerminates(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/a", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/b", http.StatusFound)
	})
	mux.HandleFunc("/b", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/a", http.StatusFound)
	})

	r := New()
	res := r.Resolve(context.Background(), server.URL+"/a")
	assert.Equal(t, []string{server.URL + "/a", server.URL + "/b"}, res.Chain)
	assert.Equal(t, server.URL+"/b", res.FinalURL)
}

func TestResolve_MaxHops(t *testing.T) {
	var hops atomic.Int64
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		n := hops.Add(1)
		http.Redirect(w, r, "/"+string(rune('a'+n)), http.StatusFound)
	})

	r := New(WithMaxHops(3))
	res := r.Resolve(context.Background(), server.URL+"/start")
	assert.Len(t, res.Chain, 4) // start + 3 hops
}

func TestResolve_MetaRefresh(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/landing", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<meta http-equiv="refresh" content="0;url=` + server.URL + `/shop">`))
	})
	mux.HandleFunc("/shop", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<html>shop</html>"))
	})

	r := New()
	res := r.Resolve(context.Background(), server.URL+"/landing")
	assert.Equal(t, server.URL+"/shop", res.FinalURL)
}

func TestResolve_JSRedirect(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/landing", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<script>window.location = "` + server.URL + `/shop";</script>`))
	})
	mux.HandleFunc("/shop", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<html>shop</html>"))
	})

	r := New()
	res := r.Resolve(context.Background(), server.URL+"/landing")
	assert.Equal(t, server.URL+"/shop", res.FinalURL)
}

func TestResolve_NetworkFailureReturnsChainSoFar(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "http://127.0.0.1:1/unreachable", http.StatusFound)
	}))
	defer server.Close()

	r := New(WithTimeout(2 * time.Second))
	res := r.Resolve(context.Background(), server.URL)
	require.NotNil(t, res)
	assert.Equal(t, []string{server.URL, "http://127.0.0.1:1/unreachable"}, res.Chain)
	assert.Equal(t, "http://127.0.0.1:1/unreachable", res.FinalURL)
}

func TestResolve_RelativeLocation(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/a/b", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Location", "../c")
		w.WriteHeader(http.StatusMovedPermanently)
	})
	mux.HandleFunc("/c", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	r := New()
	res := r.Resolve(context.Background(), server.URL+"/a/b")
	assert.Equal(t, server.URL+"/c", res.FinalURL)
}
