package common

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostJSON(t *testing.T) {
	type req struct {
		A int `json:"a"`
	}
	type resp struct {
		B string `json:"b"`
	}

	t.Run("Success", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			var in req
			require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
			assert.Equal(t, 7, in.A)
			_, _ = w.Write([]byte(`{"b":"ok"}`))
		}))
		defer ts.Close()

		var out resp
		require.NoError(t, PostJSON(context.Background(), ts.Client(), ts.URL, req{A: 7}, &out))
		assert.Equal(t, "ok", out.B)
	})

	t.Run("Status Error", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "engine data missing", http.StatusInternalServerError)
		}))
		defer ts.Close()

		var out resp
		err := PostJSON(context.Background(), ts.Client(), ts.URL, req{}, &out)
		var se *StatusError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, http.StatusInternalServerError, se.StatusCode)
		assert.Equal(t, "engine data missing", se.Body)
	})

	t.Run("Bad JSON", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"b":`))
		}))
		defer ts.Close()

		var out resp
		assert.ErrorContains(t, PostJSON(context.Background(), ts.Client(), ts.URL, req{}, &out), "decode")
	})

	t.Run("Cancelled", func(t *testing.T) {
		release := make(chan struct{})
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// the request context is only cancelled on disconnect once the
			// body has been consumed
			_, _ = io.Copy(io.Discard, r.Body)
			select {
			case <-r.Context().Done():
			case <-release:
			}
		}))
		defer ts.Close()
		// runs before Close so the handler can never hold the server open
		defer close(release)

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		var out resp
		err := PostJSON(ctx, ts.Client(), ts.URL, req{}, &out)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}
