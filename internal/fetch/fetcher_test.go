package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchAll_PreservesOrderRegardlessOfCompletion(t *testing.T) {
	// earlier images take longer, so they complete last
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n, _ := strconv.Atoi(strings.TrimPrefix(r.URL.Path, "/"))
		time.Sleep(time.Duration(5-n) * 10 * time.Millisecond)
		fmt.Fprintf(w, "image-%d", n)
	}))
	defer server.Close()

	var locators []string
	for i := 0; i < 5; i++ {
		locators = append(locators, fmt.Sprintf("%s/%d", server.URL, i))
	}

	results := NewFetcher(WithHTTPClient(server.Client()), WithConcurrency(5)).FetchAll(context.Background(), locators)

	require.Len(t, results, 5)
	for i, r := range results {
		assert.True(t, r.OK())
		assert.Equal(t, i, r.Index)
		assert.Equal(t, locators[i], r.Locator)
		assert.Equal(t, fmt.Sprintf("image-%d", i), string(r.Data))
	}
}

func TestFetchAll_PartialFailureDoesNotStopOthers(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/missing.png":
			http.NotFound(w, r)
		case "/empty.png":
			w.WriteHeader(http.StatusOK)
		default:
			w.Write([]byte("png"))
		}
	}))
	defer server.Close()

	locators := []string{server.URL + "/missing.png", server.URL + "/ok.png", server.URL + "/empty.png"}
	results := NewFetcher(WithHTTPClient(server.Client())).FetchAll(context.Background(), locators)

	require.Len(t, results, 3)

	require.False(t, results[0].OK())
	assert.Equal(t, http.StatusNotFound, results[0].Failure.StatusCode)
	assert.Equal(t, locators[0], results[0].Failure.Locator)
	assert.Contains(t, results[0].Failure.Error(), "404")

	assert.True(t, results[1].OK())
	assert.Equal(t, []byte("png"), results[1].Data)

	require.False(t, results[2].OK())
	assert.Equal(t, "empty body", results[2].Failure.Reason)

	failures := Failures(results)
	require.Len(t, failures, 2)
	assert.Equal(t, 0, failures[0].Index)
	assert.Equal(t, 2, failures[1].Index)
}

func TestFetchAll_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	locator := server.URL + "/gone.png"
	server.Close()

	results := NewFetcher().FetchAll(context.Background(), []string{locator, "::not a url"})

	require.Len(t, results, 2)
	for _, r := range results {
		require.False(t, r.OK())
		assert.Zero(t, r.Failure.StatusCode)
		assert.NotEmpty(t, r.Failure.Reason)
	}
}

func TestFetchAll_RespectsConcurrencyLimit(t *testing.T) {
	var inFlight, peak int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		w.Write([]byte("x"))
	}))
	defer server.Close()

	locators := make([]string, 6)
	for i := range locators {
		locators[i] = server.URL
	}

	results := NewFetcher(WithHTTPClient(server.Client()), WithConcurrency(1)).FetchAll(context.Background(), locators)

	assert.Len(t, results, 6)
	assert.Equal(t, int32(1), atomic.LoadInt32(&peak))
}

func TestFetchAll_Empty(t *testing.T) {
	results := NewFetcher().FetchAll(context.Background(), nil)
	assert.Empty(t, results)
	assert.Empty(t, Failures(results))
}
