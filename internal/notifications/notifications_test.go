package notifications

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTelegramNotifier_SendAlert(t *testing.T) {
	var gotPath, gotChat, gotText string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		gotPath = r.URL.Path
		gotChat = r.PostForm.Get("chat_id")
		gotText = r.PostForm.Get("text")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewTelegramNotifier("token123", "42").WithBaseURL(srv.URL + "/")
	require.NoError(t, n.SendAlert(context.Background(), LevelWarning, "reduce risk engaged"))

	assert.Equal(t, "/bottoken123/sendMessage", gotPath)
	assert.Equal(t, "42", gotChat)
	assert.Contains(t, gotText, "⚠️")
	assert.Contains(t, gotText, "reduce risk engaged")
}

func TestTelegramNotifier_Non200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	n := NewTelegramNotifier("bad", "42").WithBaseURL(srv.URL)
	err := n.SendAlert(context.Background(), LevelInfo, "hello")
	assert.ErrorContains(t, err, "401")
}
