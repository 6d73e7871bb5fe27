package email

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostmarkTransport_SendsPascalCaseBodyAndToken(t *testing.T) {
	var (
		gotBody  map[string]string
		gotToken string
		gotPath  string
	)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotToken = r.Header.Get("X-Postmark-Server-Token")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	transport := NewPostmarkTransport(srv.URL, "server-token-123", time.Second)
	msg := Message{
		From:     "newsletter@example.com",
		To:       "subscriber@example.com",
		Subject:  "Issue #1",
		HTMLBody: "<p>hello</p>",
		TextBody: "hello",
	}

	err := transport.Send(context.Background(), msg)
	require.NoError(t, err)

	assert.Equal(t, "/email", gotPath)
	assert.Equal(t, "server-token-123", gotToken)
	assert.Equal(t, "newsletter@example.com", gotBody["From"])
	assert.Equal(t, "subscriber@example.com", gotBody["To"])
	assert.Equal(t, "Issue #1", gotBody["Subject"])
	assert.Equal(t, "<p>hello</p>", gotBody["HtmlBody"])
	assert.Equal(t, "hello", gotBody["TextBody"])
}

func TestPostmarkTransport_NonTwoXXIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	transport := NewPostmarkTransport(srv.URL, "token", time.Second)
	err := transport.Send(context.Background(), Message{From: "a@b.com", To: "c@d.com"})
	assert.Error(t, err)
}

func TestPostmarkTransport_2xxRangeIsSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	transport := NewPostmarkTransport(srv.URL, "token", time.Second)
	err := transport.Send(context.Background(), Message{From: "a@b.com", To: "c@d.com"})
	assert.NoError(t, err)
}

func TestPostmarkTransport_RequestTimeoutIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(50 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	transport := NewPostmarkTransport(srv.URL, "token", 5*time.Millisecond)
	err := transport.Send(context.Background(), Message{From: "a@b.com", To: "c@d.com"})
	assert.Error(t, err)
}
