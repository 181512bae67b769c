// Package backend contains the concrete solver adapters. Each one translates
// the canonical optimize request/response into the wire format of one remote
// backend and classifies its failures into the shared taxonomy.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	corebackend "github.com/gridpilot/gridpilot/core/backend"
)

// doJSON performs one JSON request/response exchange. Transport failures and
// timeouts come back as ConnectivityError, non-2xx statuses as plain errors
// for the caller to classify, undecodable bodies as ValidationError.
func doJSON(ctx context.Context, client *http.Client, name, method, url string, body, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, rd)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := client.Do(req)
	if err != nil {
		return corebackend.NewConnectivityError(name, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &httpStatusError{status: resp.StatusCode, body: string(b)}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return corebackend.NewValidationError("decode response", err)
	}
	return nil
}

// httpStatusError carries a non-2xx exchange for classification by the
// adapter.
type httpStatusError struct {
	status int
	body   string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("unexpected status code: %d, body: %s", e.status, e.body)
}
