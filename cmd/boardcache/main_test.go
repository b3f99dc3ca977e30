package main

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LavishGent/boardcache/internal/api/httpapi"
)

func fetchPage(t *testing.T, client *http.Client, url string) (int, httpapi.PageData) {
	t.Helper()
	resp, err := client.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()

	var page httpapi.PageData
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&page))
	return resp.StatusCode, page
}

func TestServeAnswersWhileFirstFetchIsInFlight(t *testing.T) {
	clearCredentialEnv(t)

	gate := make(chan struct{})
	entered := make(chan struct{}, 1)
	var once sync.Once
	release := func() { once.Do(func() { close(gate) }) }

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case entered <- struct{}{}:
		default:
		}
		<-gate
		_, _ = w.Write([]byte(leaderboard))
	}))
	defer upstream.Close()
	defer release()

	app, err := BuildApp(writeConfig(t, upstream.URL, "7", "cookie"))
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- serve(ctx, app, ln) }()

	select {
	case <-entered:
	case <-time.After(2 * time.Second):
		t.Fatal("first fetch never reached the upstream")
	}

	client := &http.Client{Timeout: 2 * time.Second}
	url := "http://" + ln.Addr().String() + "/api/leaderboard"

	status, page := fetchPage(t, client, url)
	assert.Equal(t, http.StatusServiceUnavailable, status)
	require.NotNil(t, page.Error)
	assert.Equal(t, httpapi.ErrorTypeNetwork, page.Error.Type)

	release()
	assert.Eventually(t, func() bool {
		status, _ := fetchPage(t, client, url)
		return status == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return after cancel")
	}
}
