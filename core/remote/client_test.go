package remote

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(Config{URL: srv.URL + "/", Key: "k", Secret: "s", PageLength: 500})
}

func TestClient_List(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/resource/Account", r.URL.Path)
		assert.Equal(t, "token k:s", r.Header.Get("Authorization"))
		assert.Equal(t, `["name","parent_account"]`, r.URL.Query().Get("fields"))
		assert.Equal(t, `[["company","=","ACME"]]`, r.URL.Query().Get("filters"))
		assert.Equal(t, "500", r.URL.Query().Get("limit_page_length"))

		_, _ = io.WriteString(w, `{"data":[{"name":"Assets","parent_account":null},{"name":"Cash","parent_account":"Assets"}]}`)
	})

	docs, err := client.List(context.Background(), []string{"name", "parent_account"}, [][]any{{"company", "=", "ACME"}})
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "Assets", docs[0]["name"])
	assert.Nil(t, docs[0]["parent_account"])
	assert.Equal(t, "Assets", docs[1]["parent_account"])
}

func TestClient_ListWithoutFilters(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.False(t, r.URL.Query().Has("filters"))
		_, _ = io.WriteString(w, `{"data":[]}`)
	})

	docs, err := client.List(context.Background(), []string{"name"}, nil)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestClient_Get(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/resource/Account/1000 - Assets":
			_, _ = io.WriteString(w, `{"data":{"name":"1000 - Assets","is_group":1}}`)
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"exc_type":"DoesNotExistError"}`)
		}
	})

	doc, err := client.Get(context.Background(), "1000 - Assets")
	require.NoError(t, err)
	assert.Equal(t, "1000 - Assets", doc["name"])
	assert.Equal(t, float64(1), doc["is_group"])

	doc, err = client.Get(context.Background(), "Missing")
	require.NoError(t, err)
	assert.Nil(t, doc)
}

func TestClient_InsertAndUpdate(t *testing.T) {
	var bodies []map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		bodies = append(bodies, body)

		switch r.Method {
		case http.MethodPost:
			assert.Equal(t, "/api/resource/Account", r.URL.Path)
			w.WriteHeader(http.StatusCreated)
			_, _ = io.WriteString(w, `{"data":{"name":"Cash - AC","account_name":"Cash"}}`)
		case http.MethodPut:
			assert.Equal(t, "/api/resource/Account/Cash - AC", r.URL.Path)
			_, _ = io.WriteString(w, `{"data":{"name":"Cash - AC","account_type":"Bank"}}`)
		default:
			t.Errorf("unexpected method %s", r.Method)
		}
	})

	created, err := client.Insert(context.Background(), Document{"account_name": "Cash", "is_group": 0})
	require.NoError(t, err)
	assert.Equal(t, "Cash - AC", created["name"])

	updated, err := client.Update(context.Background(), "Cash - AC", Document{"account_type": "Bank"})
	require.NoError(t, err)
	assert.Equal(t, "Bank", updated["account_type"])

	require.Len(t, bodies, 2)
	assert.Equal(t, "Cash", bodies[0]["account_name"])
	assert.Equal(t, map[string]any{"account_type": "Bank"}, bodies[1])
}

func TestClient_APIError(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		expected string
	}{
		{name: "exception", status: 417, body: `{"exception":"frappe.exceptions.ValidationError: bad parent"}`, expected: "frappe.exceptions.ValidationError: bad parent"},
		{name: "server messages", status: 409, body: `{"_server_messages":"[\"duplicate\"]"}`, expected: `["duplicate"]`},
		{name: "plain text", status: 500, body: " internal error \n", expected: "internal error"},
		{name: "empty", status: 403, body: "", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})

			_, err := client.Insert(context.Background(), Document{"account_name": "X"})
			require.Error(t, err)

			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, http.MethodPost, apiErr.Method)
			assert.Equal(t, tt.expected, apiErr.Message)
			assert.False(t, IsNotFound(err))
		})
	}
}

func TestClient_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	client := New(Config{URL: srv.URL})
	_, err := client.List(context.Background(), []string{"name"}, nil)
	require.Error(t, err)

	var transportErr *TransportError
	assert.True(t, errors.As(err, &transportErr))
	assert.Equal(t, http.MethodGet, transportErr.Method)
}

func TestClient_ContextCancelled(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := client.Get(ctx, "Cash")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClient_NoCredentialsNoHeader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, `{"data":{"name":"Cash"}}`)
	}))
	defer srv.Close()

	doc, err := New(Config{URL: srv.URL}).Get(context.Background(), "Cash")
	require.NoError(t, err)
	assert.Equal(t, "Cash", doc["name"])
}

func TestErrorMessage_Truncates(t *testing.T) {
	msg := errorMessage([]byte(strings.Repeat("x", maxMessageLength+10)))
	assert.Len(t, msg, maxMessageLength+3)
}
