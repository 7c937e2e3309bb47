package onboarding_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/receptionist-onboarding/internal/crawler"
	"github.com/JakeFAU/receptionist-onboarding/internal/hash/sha256"
	"github.com/JakeFAU/receptionist-onboarding/internal/onboarding"
	memorypublisher "github.com/JakeFAU/receptionist-onboarding/internal/publisher/memory"
	memoryStorage "github.com/JakeFAU/receptionist-onboarding/internal/storage/memory"
)

func TestPageArchiveStoresContentAddressedHTML(t *testing.T) {
	t.Parallel()

	blobs := memoryStorage.NewBlobStore()
	hasher := sha256.New()
	archive := onboarding.NewPageArchive(blobs, hasher, "/pages/")

	page := crawler.Page{BusinessID: "biz-1", URL: "https://salon.cz/", HTML: "<html>Salon</html>"}
	require.NoError(t, archive.StorePage(context.Background(), page))
	require.NoError(t, archive.StorePage(context.Background(), page))

	digest, err := hasher.Hash([]byte(page.HTML))
	require.NoError(t, err)
	want := "pages/biz-1/" + digest + ".html"
	require.Equal(t, []string{want}, blobs.Paths())

	obj, ok := blobs.Get(want)
	require.True(t, ok)
	require.Equal(t, "text/html; charset=utf-8", obj.ContentType)
	require.Equal(t, page.HTML, string(obj.Data))
}

func TestPageArchiveUnknownBusinessNoPrefix(t *testing.T) {
	t.Parallel()

	blobs := memoryStorage.NewBlobStore()
	archive := onboarding.NewPageArchive(blobs, sha256.New(), "")
	require.NoError(t, archive.StorePage(context.Background(), crawler.Page{HTML: "x"}))

	paths := blobs.Paths()
	require.Len(t, paths, 1)
	require.Regexp(t, `^unknown/[0-9a-f]{32}\.html$`, paths[0])
}

func TestChunkPublisherPublishesEachChunk(t *testing.T) {
	t.Parallel()

	pub := memorypublisher.New()
	sink := onboarding.NewChunkPublisher(pub, "page-chunks")
	chunks := []crawler.Chunk{
		{BusinessID: "biz-1", URL: "https://salon.cz/", Index: 0, Text: "Dámský střih"},
		{BusinessID: "biz-1", URL: "https://salon.cz/", Index: 1, Text: "Pánský střih"},
	}
	require.NoError(t, sink.PublishChunks(context.Background(), chunks))

	msgs := pub.Messages("page-chunks")
	require.Len(t, msgs, 2)
	var got crawler.Chunk
	require.NoError(t, msgs[1].Decode(&got))
	require.Equal(t, chunks[1], got)
}

type failingPublisher struct{}

func (failingPublisher) Publish(context.Context, string, any) (string, error) {
	return "", errors.New("topic gone")
}

func TestChunkPublisherStopsOnError(t *testing.T) {
	t.Parallel()

	sink := onboarding.NewChunkPublisher(failingPublisher{}, "page-chunks")
	err := sink.PublishChunks(context.Background(), []crawler.Chunk{{URL: "https://salon.cz/", Index: 3}})
	require.Error(t, err)
	require.Contains(t, err.Error(), "publish chunk 3")
}
