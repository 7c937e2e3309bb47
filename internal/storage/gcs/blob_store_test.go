package gcs

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"cloud.google.com/go/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

func newTestStore(t *testing.T, handler http.Handler) *BlobStore {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := storage.NewClient(context.Background(), option.WithEndpoint(server.URL), option.WithoutAuthentication())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	store, err := New(client, Config{Bucket: "pages-bucket"})
	require.NoError(t, err)
	return store
}

func TestPutObjectUploads(t *testing.T) {
	t.Parallel()

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/b/pages-bucket/o")
		assert.Equal(t, "0", r.URL.Query().Get("ifGenerationMatch"))
		body, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		assert.Contains(t, string(body), "<html>salon</html>")
		fmt.Fprintln(w, `{"name":"biz-1/abc.html","bucket":"pages-bucket"}`)
	})
	store := newTestStore(t, handler)

	uri, err := store.PutObject(context.Background(), "biz-1/abc.html", "text/html", strings.NewReader("<html>salon</html>"))
	require.NoError(t, err)
	require.Equal(t, "gs://pages-bucket/biz-1/abc.html", uri)
}

func TestPutObjectExistingIsNotAnError(t *testing.T) {
	t.Parallel()

	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusPreconditionFailed)
		fmt.Fprintln(w, `{"error":{"code":412,"message":"conditionNotMet"}}`)
	})
	store := newTestStore(t, handler)

	uri, err := store.PutObject(context.Background(), "biz-1/abc.html", "text/html", strings.NewReader("x"))
	require.NoError(t, err)
	require.Equal(t, "gs://pages-bucket/biz-1/abc.html", uri)
}

func TestPutObjectForbidden(t *testing.T) {
	t.Parallel()

	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
	store := newTestStore(t, handler)

	_, err := store.PutObject(context.Background(), "biz-1/abc.html", "text/html", strings.NewReader("x"))
	require.Error(t, err)
}

func TestNewValidates(t *testing.T) {
	t.Parallel()

	_, err := New(nil, Config{Bucket: "b"})
	require.Error(t, err)

	_, err = (&BlobStore{}).PutObject(context.Background(), " ", "", strings.NewReader(""))
	require.Error(t, err)
}
