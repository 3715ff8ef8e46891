package main

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newFeedServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, goodFeed)
	}))
	t.Cleanup(srv.Close)
	return srv
}
