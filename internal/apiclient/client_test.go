package apiclient

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestDoAttachesBearerToken(t *testing.T) {
	var got []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = append(got, r.Header.Get("Authorization"))
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	token := ""
	c := New(srv.URL, TokenFunc(func() string { return token }), WithLogger(zaptest.NewLogger(t)))

	require.NoError(t, c.Get(context.Background(), "/recipes/", nil, nil))
	token = "abc"
	require.NoError(t, c.Get(context.Background(), "/recipes/", nil, nil))
	token = ""
	require.NoError(t, c.Get(context.Background(), "/recipes/", nil, nil))

	assert.Equal(t, []string{"", "Bearer abc", ""}, got)
}

func TestDoBuildsURLAndDecodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/recipes/search/", r.URL.Path)
		assert.Equal(t, "pie", r.URL.Query().Get("query"))
		assert.Equal(t, http.MethodGet, r.Method)
		_, _ = w.Write([]byte(`{"count": 2}`))
	}))
	defer srv.Close()

	c := New(srv.URL+"/api/", nil)
	var out struct {
		Count int `json:"count"`
	}
	err := c.Get(context.Background(), "recipes/search/", map[string][]string{"query": {"pie"}}, &out)
	require.NoError(t, err)
	assert.Equal(t, 2, out.Count)
}

func TestDoSendsJSONBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		buf := new(bytes.Buffer)
		_, _ = buf.ReadFrom(r.Body)
		assert.JSONEq(t, `{"rating":4}`, buf.String())
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(srv.URL, nil)
	require.NoError(t, c.Post(context.Background(), "/recipes/1/rate/", map[string]int{"rating": 4}, nil))
}

func TestClassification(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		kind    error
		message string
	}{
		{"unauthorized", http.StatusUnauthorized, `{"detail":"Given token not valid"}`, ErrUnauthorized, MsgUnauthorized},
		{"forbidden", http.StatusForbidden, `{}`, ErrForbidden, MsgForbidden},
		{"not found", http.StatusNotFound, ``, ErrNotFound, MsgNotFound},
		{"server", http.StatusInternalServerError, `<html>oops</html>`, ErrServer, MsgServer},
		{"bad gateway", http.StatusBadGateway, ``, ErrServer, MsgServer},
		{"detail", http.StatusBadRequest, `{"message":"second","detail":"first"}`, ErrRequest, "first"},
		{"message", http.StatusBadRequest, `{"message":"use this"}`, ErrRequest, "use this"},
		{"field map", http.StatusBadRequest, `{"title":["This field is required."],"servings":["Too small."]}`, ErrRequest, "This field is required."},
		{"plain field", http.StatusBadRequest, `{"error":"Query parameter is required"}`, ErrRequest, "Query parameter is required"},
		{"no body", http.StatusConflict, ``, ErrRequest, "request failed with status code 409"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, tt.status, tt.body)
			err := New(srv.URL, nil).Get(context.Background(), "/x/", nil, nil)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.kind), "expected kind %v, got %v", tt.kind, err)
			assert.Equal(t, tt.message, err.Error())

			apiErr, ok := AsAPIError(err)
			require.True(t, ok)
			assert.Equal(t, tt.status, apiErr.StatusCode)
		})
	}
}

func TestClassificationKeepsFieldErrors(t *testing.T) {
	srv := newTestServer(t, http.StatusBadRequest, `{"username":["A user with that username already exists."],"email":"Enter a valid email address."}`)
	err := New(srv.URL, nil).Post(context.Background(), "/auth/register/", map[string]string{}, nil)

	apiErr, ok := AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, []string{"A user with that username already exists."}, apiErr.Fields["username"])
	assert.Equal(t, []string{"Enter a valid email address."}, apiErr.Fields["email"])
}

func TestNoResponseIsConnectivity(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	err := New(url, nil).Get(context.Background(), "/recipes/", nil, nil)
	require.Error(t, err)
	assert.True(t, IsConnectivity(err))
	assert.False(t, IsServer(err))
	assert.Equal(t, MsgConnectivity, err.Error())
}

func TestTimeoutIsConnectivity(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	err := New(srv.URL, nil, WithTimeout(50*time.Millisecond)).Get(context.Background(), "/recipes/", nil, nil)
	require.Error(t, err)
	assert.True(t, IsConnectivity(err))
}

func TestUndecodableBodyIsRequestError(t *testing.T) {
	srv := newTestServer(t, http.StatusOK, `not json`)
	var out map[string]any
	err := New(srv.URL, nil).Get(context.Background(), "/recipes/", nil, &out)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRequest)
}

func TestParseErrorBody(t *testing.T) {
	msg, fields := parseErrorBody([]byte(`"plain"`))
	assert.Equal(t, "plain", msg)
	assert.Nil(t, fields)

	msg, _ = parseErrorBody([]byte(`["first", "second"]`))
	assert.Equal(t, "first", msg)

	msg, fields = parseErrorBody([]byte(`{"non_field_errors":["Passwords differ"]}`))
	assert.Equal(t, "Passwords differ", msg)
	assert.Contains(t, fields, "non_field_errors")

	msg, fields = parseErrorBody([]byte(`garbage`))
	assert.Empty(t, msg)
	assert.Nil(t, fields)
}
