package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"syscall"
	"time"
)

// FormField is one part of a multipart/form-data request body.
type FormField struct {
	Name     string
	Filename string
	Value    []byte
}

// ExecuteOptions carries the optional request body. JSON and Form are
// mutually exclusive; Form wins when both are set.
type ExecuteOptions struct {
	JSON any
	Form []FormField
}

// Execute performs a REST call against route and returns the decoded body:
// parsed JSON when the response says so, raw text otherwise. Only one
// request per bucket is in flight at a time; requests to different buckets
// proceed concurrently. The bucket lock is released on every exit path.
func (c *Client) Execute(ctx context.Context, route Route, opts *ExecuteOptions) (any, error) {
	data, _, release, err := c.request(ctx, route, opts)
	if release != nil {
		release()
	}
	return data, err
}

// ExecuteHeld is Execute with deferred lock release: on success the caller
// owns the bucket until it calls release, keeping the bucket held across a
// logically atomic multi-step operation. On error the lock is already
// released and release is nil.
func (c *Client) ExecuteHeld(ctx context.Context, route Route, opts *ExecuteOptions) (any, func(), error) {
	data, _, release, err := c.request(ctx, route, opts)
	return data, release, err
}

// executeJSON runs Execute and unmarshals the raw response body into out.
func (c *Client) executeJSON(ctx context.Context, route Route, opts *ExecuteOptions, out any) error {
	_, raw, release, err := c.request(ctx, route, opts)
	if release != nil {
		release()
	}
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(raw, out)
}

// request is the attempt loop. It returns the release function only on
// success; all error paths release the bucket before returning.
func (c *Client) request(ctx context.Context, route Route, opts *ExecuteOptions) (any, []byte, func(), error) {
	bucket := route.Bucket()
	url := c.baseURL + route.ResolvedPath()

	var jsonBody []byte
	if opts != nil && opts.JSON != nil && opts.Form == nil {
		var err error
		jsonBody, err = json.Marshal(opts.JSON)
		if err != nil {
			return nil, nil, nil, err
		}
	}

	// Wait out a global cooldown before taking the bucket lock.
	if err := c.global.wait(ctx); err != nil {
		return nil, nil, nil, err
	}

	release, err := c.buckets.acquire(ctx, bucket)
	if err != nil {
		return nil, nil, nil, err
	}

	var lastStatus int
	var lastData any

	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		req, err := c.newRequest(ctx, route.Method, url, jsonBody, opts)
		if err != nil {
			release()
			return nil, nil, nil, err
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			// Transient connection resets retry on the 5xx schedule.
			if isConnReset(err) && attempt < c.maxAttempts-1 {
				c.logger.Warn("connection reset by peer, retrying",
					"bucket", bucket,
					"attempt", attempt,
				)
				if serr := c.sleep(ctx, c.retryDelay(attempt)); serr != nil {
					release()
					return nil, nil, nil, serr
				}
				continue
			}
			release()
			return nil, nil, nil, err
		}

		raw, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			release()
			return nil, nil, nil, err
		}

		status := resp.StatusCode
		data := jsonOrText(resp.Header.Get("Content-Type"), raw)
		lastStatus, lastData = status, data

		switch {
		case status >= 200 && status < 300:
			return data, raw, release, nil

		case status == http.StatusTooManyRequests:
			body, ok := data.(map[string]any)
			if resp.Header.Get("Via") == "" || !ok {
				// A 429 without the service's rate-limit framing is an
				// edge/proxy block, not a retryable limit.
				release()
				return nil, nil, nil, &HTTPError{Status: status, Text: errorText(data)}
			}

			retryAfter, _ := body["retry_after"].(float64)
			isGlobal, _ := body["global"].(bool)
			delay := time.Duration(retryAfter * float64(c.backoffUnit))

			c.logger.Warn("rate limited",
				"bucket", bucket,
				"retry_after", retryAfter,
				"global", isGlobal,
			)

			if isGlobal {
				c.global.shut()
			}
			serr := c.sleep(ctx, delay)
			if isGlobal {
				c.global.release()
			}
			if serr != nil {
				release()
				return nil, nil, nil, serr
			}

		case status == http.StatusInternalServerError,
			status == http.StatusBadGateway,
			status == http.StatusGatewayTimeout:
			if err := c.sleep(ctx, c.retryDelay(attempt)); err != nil {
				release()
				return nil, nil, nil, err
			}

		default:
			release()
			return nil, nil, nil, newStatusError(status, data)
		}
	}

	release()

	if lastStatus >= 500 {
		return nil, nil, nil, &ServerError{HTTPError{Status: lastStatus, Text: errorText(lastData)}}
	}
	return nil, nil, nil, &HTTPError{Status: lastStatus, Text: errorText(lastData)}
}

// newRequest builds one attempt's request. Multipart bodies are rebuilt
// per attempt since they are consumed on send.
func (c *Client) newRequest(ctx context.Context, method, url string, jsonBody []byte, opts *ExecuteOptions) (*http.Request, error) {
	var body io.Reader
	contentType := ""

	switch {
	case opts != nil && opts.Form != nil:
		buf := &bytes.Buffer{}
		mw := multipart.NewWriter(buf)
		for _, field := range opts.Form {
			var (
				w   io.Writer
				err error
			)
			if field.Filename != "" {
				w, err = mw.CreateFormFile(field.Name, field.Filename)
			} else {
				w, err = mw.CreateFormField(field.Name)
			}
			if err != nil {
				return nil, err
			}
			if _, err := w.Write(field.Value); err != nil {
				return nil, err
			}
		}
		if err := mw.Close(); err != nil {
			return nil, err
		}
		body = buf
		contentType = mw.FormDataContentType()

	case jsonBody != nil:
		body = bytes.NewReader(jsonBody)
		contentType = "application/json"
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}

	req.Header.Set("User-Agent", c.userAgent)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token := c.Token(); !token.IsZero() {
		req.Header.Set(token.Header())
	}

	return req, nil
}

// retryDelay is the 5xx/connection-reset schedule: 1, 3, 5, 7 units.
func (c *Client) retryDelay(attempt int) time.Duration {
	return time.Duration(1+2*attempt) * c.backoffUnit
}

func (c *Client) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// jsonOrText decodes the body as JSON when the content type says so and
// falls back to raw text. Some edges strip the content type entirely.
func jsonOrText(contentType string, raw []byte) any {
	if strings.HasPrefix(contentType, "application/json") {
		var data any
		if err := json.Unmarshal(raw, &data); err == nil {
			return data
		}
	}
	return string(raw)
}

func isConnReset(err error) bool {
	return errors.Is(err, syscall.ECONNRESET)
}
