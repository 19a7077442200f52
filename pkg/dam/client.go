package dam

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/toyang/node-smb-server/internal/logging"
	"github.com/toyang/node-smb-server/internal/metrics"
)

// Client issues repository calls against a single Endpoint. It is stateless
// per call and safe for concurrent use. Retries are deliberately not done
// here; callers that want them wrap calls with pkg/retry.
type Client struct {
	endpoint   *Endpoint
	httpClient *http.Client
}

// Config holds client configuration.
type Config struct {
	Endpoint *Endpoint
	Timeout  time.Duration
}

// NewClient creates a repository client.
func NewClient(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &Client{
		endpoint: cfg.Endpoint,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout:   10 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				MaxIdleConns:        100,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
	}
}

// Endpoint returns the shared endpoint descriptor.
func (c *Client) Endpoint() *Endpoint {
	return c.endpoint
}

func (c *Client) applyAuth(req *http.Request) {
	if c.endpoint.Username != "" {
		req.SetBasicAuth(c.endpoint.Username, c.endpoint.Password)
	}
}

// Get retrieves the full content of the object at path. The caller owns the
// returned body and must close it. The second return is the Content-Length
// as reported by the server, or -1 when unknown.
func (c *Client) Get(ctx context.Context, path string) (io.ReadCloser, int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint.URL(path), nil)
	if err != nil {
		return nil, 0, &TransportError{Method: "GET", Path: path, Err: err}
	}
	c.applyAuth(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.RepositoryCall("get", "error")
		return nil, 0, &TransportError{Method: "GET", Path: path, Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		drain(resp.Body)
		metrics.RepositoryCall("get", strconv.Itoa(resp.StatusCode))
		return nil, 0, &StatusError{Method: "GET", Path: path, StatusCode: resp.StatusCode}
	}

	metrics.RepositoryCall("get", strconv.Itoa(resp.StatusCode))

	size := int64(-1)
	if cl := resp.Header.Get("Content-Length"); cl != "" {
		if n, err := strconv.ParseInt(cl, 10, 64); err == nil {
			size = n
		}
	}

	return resp.Body, size, nil
}

// GetJSON retrieves and decodes the JSON rendering of the node at path
// (the repository serves it at "{path}.json").
func (c *Client) GetJSON(ctx context.Context, path string, v interface{}) error {
	body, _, err := c.Get(ctx, path+".json")
	if err != nil {
		return err
	}
	defer body.Close()

	if err := json.NewDecoder(body).Decode(v); err != nil {
		return &TransportError{Method: "GET", Path: path + ".json", Err: err}
	}
	return nil
}

// CreateAsset uploads content as a new asset at path via the assets API.
// The repository replaces whole objects only, so content must be the
// complete byte stream.
func (c *Client) CreateAsset(ctx context.Context, path string, content io.Reader, size int64) error {
	if !c.endpoint.InAssetTree(path) {
		return ErrNotSupported
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint.AssetURL(path), content)
	if err != nil {
		return &TransportError{Method: "POST", Path: path, Err: err}
	}
	req.ContentLength = size
	req.Header.Set("Content-Type", "application/octet-stream")
	c.applyAuth(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.RepositoryCall("create", "error")
		return &TransportError{Method: "POST", Path: path, Err: err}
	}
	defer resp.Body.Close()
	drain(resp.Body)

	metrics.RepositoryCall("create", strconv.Itoa(resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Method: "POST", Path: path, StatusCode: resp.StatusCode}
	}

	metrics.AddBytesUploaded(size)
	logging.Debug("asset created", zap.String("path", path), zap.Int64("size", size))
	return nil
}

// DeleteAsset removes the asset at path via the assets API.
func (c *Client) DeleteAsset(ctx context.Context, path string) error {
	if !c.endpoint.InAssetTree(path) {
		return ErrNotSupported
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.endpoint.AssetURL(path), nil)
	if err != nil {
		return &TransportError{Method: "DELETE", Path: path, Err: err}
	}
	c.applyAuth(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.RepositoryCall("delete", "error")
		return &TransportError{Method: "DELETE", Path: path, Err: err}
	}
	defer resp.Body.Close()
	drain(resp.Body)

	metrics.RepositoryCall("delete", strconv.Itoa(resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Method: "DELETE", Path: path, StatusCode: resp.StatusCode}
	}

	logging.Debug("asset deleted", zap.String("path", path))
	return nil
}

// drain reads a response body to completion so the underlying connection
// can be reused, then closes it.
func drain(body io.ReadCloser) {
	io.Copy(io.Discard, body)
	body.Close()
}
