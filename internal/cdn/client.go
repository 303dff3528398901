// Package cdn implements the media CDN's HTTP API: authenticated uploads,
// folder listings and deletion by file handle.
package cdn

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// ErrUnexpectedStatus indicates the CDN answered with a status the client
// does not handle.
var ErrUnexpectedStatus = errors.New("cdn returned unexpected status")

const (
	listPageSize     = 100
	maxResponseBytes = 2 * 1024 * 1024
)

// File is one stored object as the CDN reports it. CreatedAt stays zero
// when the reported timestamp cannot be parsed.
type File struct {
	ID        string
	Name      string
	URL       string
	CreatedAt time.Time
}

// Client talks to an ImageKit-style media API. The private key doubles as
// the basic auth username with an empty password.
type Client struct {
	httpClient *http.Client
	apiBase    string
	uploadBase string
	privateKey string
}

// NewClient creates a CDN client. apiBase serves listings and deletions,
// uploadBase serves uploads.
func NewClient(apiBase, uploadBase, privateKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		apiBase:    strings.TrimRight(apiBase, "/"),
		uploadBase: strings.TrimRight(uploadBase, "/"),
		privateKey: privateKey,
	}
}

type uploadResponse struct {
	FileID string `json:"fileId"`
	Name   string `json:"name"`
	URL    string `json:"url"`
}

// Upload pushes a file into the given folder under its exact name and
// returns the permanent URL and the handle needed to delete it later.
func (c *Client) Upload(ctx context.Context, r io.Reader, name, folder string) (string, string, error) {
	body := &bytes.Buffer{}
	form := multipart.NewWriter(body)

	part, err := form.CreateFormFile("file", name)
	if err != nil {
		return "", "", fmt.Errorf("build upload form: %w", err)
	}

	if _, err := io.Copy(part, r); err != nil {
		return "", "", fmt.Errorf("copy upload payload: %w", err)
	}

	fields := map[string]string{
		"fileName":          name,
		"folder":            folder,
		"useUniqueFileName": "false",
	}
	for key, value := range fields {
		if err := form.WriteField(key, value); err != nil {
			return "", "", fmt.Errorf("build upload form: %w", err)
		}
	}

	if err := form.Close(); err != nil {
		return "", "", fmt.Errorf("build upload form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.uploadBase+"/api/v1/files/upload", body)
	if err != nil {
		return "", "", fmt.Errorf("build upload request: %w", err)
	}

	req.Header.Set("Content-Type", form.FormDataContentType())
	req.SetBasicAuth(c.privateKey, "")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("upload: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("%w: upload returned %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	var parsed uploadResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&parsed); err != nil {
		return "", "", fmt.Errorf("decode upload response: %w", err)
	}

	return parsed.URL, parsed.FileID, nil
}

type listEntry struct {
	FileID    string `json:"fileId"`
	Name      string `json:"name"`
	URL       string `json:"url"`
	CreatedAt string `json:"createdAt"`
}

// List returns every object stored in the folder, paging through the API
// until a short page signals the end.
func (c *Client) List(ctx context.Context, folder string) ([]File, error) {
	var files []File

	for skip := 0; ; skip += listPageSize {
		page, err := c.listPage(ctx, folder, skip)
		if err != nil {
			return nil, err
		}

		for _, entry := range page {
			file := File{ID: entry.FileID, Name: entry.Name, URL: entry.URL}
			if created, err := dateparse.ParseAny(entry.CreatedAt); err == nil {
				file.CreatedAt = created
			}

			files = append(files, file)
		}

		if len(page) < listPageSize {
			return files, nil
		}
	}
}

func (c *Client) listPage(ctx context.Context, folder string, skip int) ([]listEntry, error) {
	query := url.Values{}
	query.Set("path", folder)
	query.Set("limit", strconv.Itoa(listPageSize))
	query.Set("skip", strconv.Itoa(skip))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiBase+"/v1/files?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build list request: %w", err)
	}

	req.SetBasicAuth(c.privateKey, "")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: list returned %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	var page []listEntry
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&page); err != nil {
		return nil, fmt.Errorf("decode list response: %w", err)
	}

	return page, nil
}

// Delete removes an object by its file handle.
func (c *Client) Delete(ctx context.Context, fileID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.apiBase+"/v1/files/"+url.PathEscape(fileID), nil)
	if err != nil {
		return fmt.Errorf("build delete request: %w", err)
	}

	req.SetBasicAuth(c.privateKey, "")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("delete file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: delete returned %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	return nil
}
