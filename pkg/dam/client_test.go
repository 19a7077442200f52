package dam

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func testClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	u, err := url.Parse(ts.URL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)

	c := NewClient(Config{
		Endpoint: &Endpoint{
			Host:      u.Hostname(),
			Port:      port,
			AssetAPI:  "/api/assets",
			AssetRoot: "/content/dam",
			Username:  "admin",
			Password:  "secret",
		},
	})
	return c, ts
}

func TestGet_Success(t *testing.T) {
	var gotUser, gotPass string
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser, gotPass, _ = r.BasicAuth()
		require.Equal(t, "/content/dam/a.txt", r.URL.Path)
		w.Write([]byte("hello"))
	}))

	body, size, err := c.Get(context.Background(), "/content/dam/a.txt")
	require.NoError(t, err)
	defer body.Close()

	data, err := io.ReadAll(body)
	require.NoError(t, err)
	require.Equal(t, "hello", string(data))
	require.Equal(t, int64(5), size)
	require.Equal(t, "admin", gotUser)
	require.Equal(t, "secret", gotPass)
}

func TestGet_NotFound(t *testing.T) {
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such node", http.StatusNotFound)
	}))

	_, _, err := c.Get(context.Background(), "/content/dam/missing.txt")
	require.Error(t, err)

	var se *StatusError
	require.ErrorAs(t, err, &se)
	require.Equal(t, http.StatusNotFound, se.StatusCode)
	require.Equal(t, "GET", se.Method)
}

func TestGet_TransportError(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	u, _ := url.Parse(ts.URL)
	port, _ := strconv.Atoi(u.Port())
	ts.Close() // nothing listening anymore

	c := NewClient(Config{Endpoint: &Endpoint{Host: u.Hostname(), Port: port}})

	_, _, err := c.Get(context.Background(), "/content/dam/a.txt")
	var te *TransportError
	require.ErrorAs(t, err, &te)
}

func TestGetJSON(t *testing.T) {
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/content/dam/a.txt.json", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"jcr:primaryType":"dam:Asset"}`))
	}))

	var v struct {
		PrimaryType string `json:"jcr:primaryType"`
	}
	err := c.GetJSON(context.Background(), "/content/dam/a.txt", &v)
	require.NoError(t, err)
	require.Equal(t, "dam:Asset", v.PrimaryType)
}

func TestCreateAsset_Success(t *testing.T) {
	var gotBody []byte
	var gotPath string
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusCreated)
	}))

	err := c.CreateAsset(context.Background(), "/content/dam/new.txt", strings.NewReader("data"), 4)
	require.NoError(t, err)
	require.Equal(t, "/api/assets/content/dam/new.txt", gotPath)
	require.Equal(t, "data", string(gotBody))
}

func TestCreateAsset_OutsideAssetTree(t *testing.T) {
	var calls atomic.Int32
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))

	err := c.CreateAsset(context.Background(), "/etc/passwd", strings.NewReader("x"), 1)
	require.ErrorIs(t, err, ErrNotSupported)
	require.Zero(t, calls.Load(), "no network call expected")
}

func TestDeleteAsset(t *testing.T) {
	var gotMethod, gotPath string
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
	}))

	err := c.DeleteAsset(context.Background(), "/content/dam/old.txt")
	require.NoError(t, err)
	require.Equal(t, http.MethodDelete, gotMethod)
	require.Equal(t, "/api/assets/content/dam/old.txt", gotPath)
}

func TestDeleteAsset_ServerError(t *testing.T) {
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	err := c.DeleteAsset(context.Background(), "/content/dam/old.txt")
	var se *StatusError
	require.ErrorAs(t, err, &se)
	require.Equal(t, http.StatusInternalServerError, se.StatusCode)
}

func TestDeleteAsset_OutsideAssetTree(t *testing.T) {
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no network call expected")
	}))

	err := c.DeleteAsset(context.Background(), "/apps/thing")
	require.ErrorIs(t, err, ErrNotSupported)
}

func TestIsRetryable(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"transport", &TransportError{Method: "GET", Path: "/x", Err: errors.New("refused")}, true},
		{"status 500", &StatusError{StatusCode: 500}, true},
		{"status 429", &StatusError{StatusCode: 429}, true},
		{"status 404", &StatusError{StatusCode: 404}, false},
		{"status 409", &StatusError{StatusCode: 409}, false},
		{"not supported", ErrNotSupported, false},
		{"plain", errors.New("boom"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, IsRetryable(tc.err))
		})
	}
}
