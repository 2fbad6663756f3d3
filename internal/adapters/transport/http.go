// Package transport executes GraphQL POSTs over net/http.
package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/castlink/internal/core"
)

const (
	DefaultTimeout = 5 * time.Second
	maxBody        = 4 << 20
)

type HTTP struct {
	client *http.Client
}

var _ core.Transport = (*HTTP)(nil)

func NewHTTP(timeout time.Duration) *HTTP {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HTTP{client: &http.Client{Timeout: timeout}}
}

func (h *HTTP) Execute(ctx context.Context, req core.Request) core.Response {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, req.URL, bytes.NewReader(req.Body))
	if err != nil {
		return core.Response{Err: fmt.Errorf("build request: %w", err)}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	for _, line := range req.Headers {
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			log.Warn().Str("module", "adapters.transport").Str("header", name).Msg("skipping malformed header")
			continue
		}
		httpReq.Header.Add(strings.TrimSpace(name), strings.TrimSpace(value))
	}

	resp, err := h.client.Do(httpReq)
	if err != nil {
		return core.Response{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return core.Response{StatusCode: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}
	return core.Response{
		StatusCode: resp.StatusCode,
		Body:       body,
		Headers:    headerLines(resp.Header),
	}
}

// headerLines flattens h into "Name: value" lines, one per value, in a
// stable order.
func headerLines(h http.Header) []string {
	names := make([]string, 0, len(h))
	for name := range h {
		names = append(names, name)
	}
	sort.Strings(names)

	var lines []string
	for _, name := range names {
		for _, v := range h[name] {
			lines = append(lines, name+": "+v)
		}
	}
	return lines
}
