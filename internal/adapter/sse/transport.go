// Package sse implements the stream transport over HTTP server-sent events.
package sse

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"

	"github.com/couchcryptid/weather-stream-listener/internal/stream"
)

const (
	contentType = "text/event-stream"
	dataField   = "data:"

	initialBufSize = 64 * 1024
	maxLineSize    = 1024 * 1024
)

var (
	// ErrUnexpectedStatus is returned when the server answers with a non-200 status.
	ErrUnexpectedStatus = errors.New("unexpected response status")

	// ErrUnexpectedContentType is returned when the response is not an event stream.
	ErrUnexpectedContentType = errors.New("unexpected content type")
)

// Transport opens server-sent event streams with a plain HTTP GET.
// Only data fields are delivered; comments and the event, id and retry
// fields are ignored. Each data line is delivered on its own. Lines longer
// than 1 MiB are skipped and logged without dropping the connection.
type Transport struct {
	client *http.Client
	logger *slog.Logger
}

var _ stream.Transport = (*Transport)(nil)

// NewTransport creates a transport. The client must not set a Timeout, since
// it would cut long-lived streams; a nil client uses a default one.
func NewTransport(client *http.Client, logger *slog.Logger) *Transport {
	if client == nil {
		client = &http.Client{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Transport{client: client, logger: logger}
}

// Stream connects to endpoint and forwards data lines until the response body
// ends, reading fails or ctx is cancelled.
func (t *Transport) Stream(ctx context.Context, endpoint string, events stream.Events) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", contentType)
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("open stream: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}
	if mt, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type")); err != nil || mt != contentType {
		return fmt.Errorf("%w: %q", ErrUnexpectedContentType, resp.Header.Get("Content-Type"))
	}

	events.Opened()
	t.logger.Debug("event stream open", "endpoint", endpoint)

	reader := bufio.NewReaderSize(resp.Body, initialBufSize)
	for {
		line, oversized, err := readLine(reader, maxLineSize)
		switch {
		case oversized:
			t.logger.Warn("skipped oversized event stream line", "endpoint", endpoint, "limit_bytes", maxLineSize)
		case bytes.HasPrefix(line, []byte(dataField)):
			events.Message(string(line))
		}
		if err == nil {
			continue
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("read stream: %w", err)
	}
}

// readLine returns the next line without its LF or CRLF terminator. A line
// longer than limit is consumed to its end and reported as oversized with a
// nil body. err is io.EOF after the final line.
func readLine(r *bufio.Reader, limit int) (line []byte, oversized bool, err error) {
	for {
		chunk, readErr := r.ReadSlice('\n')
		if !oversized {
			line = append(line, chunk...)
			if len(bytes.TrimRight(line, "\r\n")) > limit {
				oversized, line = true, nil
			}
		}
		if errors.Is(readErr, bufio.ErrBufferFull) {
			continue
		}
		line = bytes.TrimSuffix(line, []byte("\n"))
		line = bytes.TrimSuffix(line, []byte("\r"))
		return line, oversized, readErr
	}
}
