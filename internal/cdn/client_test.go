package cdn

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestClientUpload(t *testing.T) {
	var gotUser, gotName, gotFolder, gotUnique, gotBody string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/v1/files/upload", r.URL.Path)

		gotUser, _, _ = r.BasicAuth()

		require.NoError(t, r.ParseMultipartForm(1<<20))
		gotName = r.FormValue("fileName")
		gotFolder = r.FormValue("folder")
		gotUnique = r.FormValue("useUniqueFileName")

		file, _, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()

		payload, err := io.ReadAll(file)
		require.NoError(t, err)
		gotBody = string(payload)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"fileId": "file-123",
			"name":   "cryptonews_42_1700000000.jpg",
			"url":    "https://ik.example.com/telegram/cryptonews_42_1700000000.jpg",
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, server.URL, "private_key", time.Second)

	url, fileID, err := client.Upload(context.Background(), strings.NewReader("jpeg-bytes"), "cryptonews_42_1700000000.jpg", "/telegram")
	require.NoError(t, err)
	require.Equal(t, "https://ik.example.com/telegram/cryptonews_42_1700000000.jpg", url)
	require.Equal(t, "file-123", fileID)

	require.Equal(t, "private_key", gotUser)
	require.Equal(t, "cryptonews_42_1700000000.jpg", gotName)
	require.Equal(t, "/telegram", gotFolder)
	require.Equal(t, "false", gotUnique)
	require.Equal(t, "jpeg-bytes", gotBody)
}

func TestClientUploadServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL, server.URL, "private_key", time.Second)

	_, _, err := client.Upload(context.Background(), strings.NewReader("data"), "a.jpg", "/telegram")
	require.ErrorIs(t, err, ErrUnexpectedStatus)
}

func TestClientListPaginates(t *testing.T) {
	var skips []string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/v1/files", r.URL.Path)
		require.Equal(t, "/telegram", r.URL.Query().Get("path"))

		skip := r.URL.Query().Get("skip")
		skips = append(skips, skip)

		w.Header().Set("Content-Type", "application/json")
		if skip == "0" {
			page := make([]map[string]string, listPageSize)
			for i := range page {
				page[i] = map[string]string{
					"fileId":    fmt.Sprintf("file-%d", i),
					"name":      fmt.Sprintf("cryptonews_%d_1700000000.jpg", i),
					"url":       fmt.Sprintf("https://ik.example.com/telegram/cryptonews_%d_1700000000.jpg", i),
					"createdAt": "2026-08-01T10:00:00.000Z",
				}
			}
			_ = json.NewEncoder(w).Encode(page)
			return
		}

		_ = json.NewEncoder(w).Encode([]map[string]string{
			{
				"fileId":    "file-last",
				"name":      "cryptonews_999_1700000000.jpg",
				"url":       "https://ik.example.com/telegram/cryptonews_999_1700000000.jpg",
				"createdAt": "not a timestamp",
			},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, server.URL, "private_key", time.Second)

	files, err := client.List(context.Background(), "/telegram")
	require.NoError(t, err)
	require.Len(t, files, listPageSize+1)
	require.Equal(t, []string{"0", "100"}, skips)

	require.Equal(t, "file-0", files[0].ID)
	require.Equal(t, time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC), files[0].CreatedAt.UTC())

	last := files[len(files)-1]
	require.Equal(t, "file-last", last.ID)
	require.True(t, last.CreatedAt.IsZero())
}

func TestClientListServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	client := NewClient(server.URL, server.URL, "private_key", time.Second)

	_, err := client.List(context.Background(), "/telegram")
	require.ErrorIs(t, err, ErrUnexpectedStatus)
}

func TestClientDelete(t *testing.T) {
	var gotPath, gotUser string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodDelete, r.Method)
		gotPath = r.URL.Path
		gotUser, _, _ = r.BasicAuth()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := NewClient(server.URL, server.URL, "private_key", time.Second)

	require.NoError(t, client.Delete(context.Background(), "file-123"))
	require.Equal(t, "/v1/files/file-123", gotPath)
	require.Equal(t, "private_key", gotUser)
}

func TestClientDeleteNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(server.URL, server.URL, "private_key", time.Second)

	err := client.Delete(context.Background(), "missing")
	require.ErrorIs(t, err, ErrUnexpectedStatus)
}
