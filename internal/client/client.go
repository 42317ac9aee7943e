// Package client holds the HTTP clients services use to call their
// siblings.  Every call carries the caller's bearer credential unchanged
// and is bounded by the configured peer timeout.  Failures are translated
// back into the apperr taxonomy: transport errors, timeouts and 5xx
// answers become UpstreamUnavailable, 4xx answers keep the peer's code.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/juju/errors"

	"github.com/iliyamo/service-marketplace/internal/apperr"
)

// base is embedded by every peer client.
type base struct {
	peer       string
	baseURL    string
	HTTPClient *http.Client
}

func newBase(peer, baseURL string, timeout time.Duration) base {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return base{
		peer:       peer,
		baseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

// do sends one request and decodes a 2xx JSON answer into out (which may
// be nil).
func (b base) do(ctx context.Context, method, path, credential string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return errors.Annotate(err, "marshal request")
		}
		body = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, b.baseURL+path, body)
	if err != nil {
		return errors.Annotate(err, "build request")
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if credential != "" {
		req.Header.Set("Authorization", "Bearer "+credential)
	}

	resp, err := b.HTTPClient.Do(req)
	if err != nil {
		return apperr.Upstream(b.peer, err)
	}
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			slog.Error("failed to close response body", "peer", b.peer, "error", err)
		}
	}(resp.Body)

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return apperr.Upstream(b.peer, err)
	}
	if resp.StatusCode >= 500 {
		slog.Warn("peer returned error", "peer", b.peer, "path", path, "status", resp.StatusCode)
		return apperr.Upstream(b.peer, fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode))
	}
	if resp.StatusCode >= 400 {
		var e apperr.Body
		_ = json.Unmarshal(respBody, &e)
		if e.Message == "" {
			e.Message = http.StatusText(resp.StatusCode)
		}
		return apperr.FromStatus(resp.StatusCode, e.Error, e.Message)
	}
	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return apperr.Upstream(b.peer, errors.Annotate(err, "decode response"))
	}
	return nil
}
