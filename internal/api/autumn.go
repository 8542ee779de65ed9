package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
)

// ErrFeatureDisabled is returned when the node does not advertise the
// requested feature endpoint.
var ErrFeatureDisabled = errors.New("api: feature disabled on this node")

// autumnURL returns the file-server base URL from the capability info.
func (c *Client) autumnURL() (string, error) {
	info := c.Info()
	if info == nil || !info.Features.Autumn.Enabled || info.Features.Autumn.URL == "" {
		return "", ErrFeatureDisabled
	}
	return info.Features.Autumn.URL, nil
}

// UploadFile uploads a file to Autumn under the given tag ("attachments",
// "avatars", ...) and returns the file ID to reference in later requests.
// Autumn lives on its own host and is not subject to bucket locking.
func (c *Client) UploadFile(ctx context.Context, tag, filename string, content io.Reader) (string, error) {
	base, err := c.autumnURL()
	if err != nil {
		return "", err
	}

	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(fw, content); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/"+tag, buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		var out struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(raw, &out); err != nil {
			return "", err
		}
		return out.ID, nil
	case resp.StatusCode >= 500:
		return "", &ServerError{HTTPError{Status: resp.StatusCode, Text: errorText(jsonOrText(resp.Header.Get("Content-Type"), raw))}}
	default:
		return "", &HTTPError{Status: resp.StatusCode, Text: errorText(jsonOrText(resp.Header.Get("Content-Type"), raw))}
	}
}

// FetchFile downloads a stored file by tag and ID.
func (c *Client) FetchFile(ctx context.Context, tag, id string) ([]byte, error) {
	base, err := c.autumnURL()
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/"+tag+"/"+id, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return io.ReadAll(resp.Body)
	case http.StatusNotFound:
		return nil, &NotFound{HTTPError{Status: resp.StatusCode, Text: "file not found"}}
	case http.StatusForbidden:
		return nil, &Forbidden{HTTPError{Status: resp.StatusCode, Text: "cannot retrieve file"}}
	default:
		return nil, &HTTPError{Status: resp.StatusCode, Text: "failed to get file"}
	}
}
