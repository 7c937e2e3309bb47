package onboarding

import (
	"context"
	"fmt"
	"strings"

	"github.com/JakeFAU/receptionist-onboarding/internal/crawler"
)

const htmlContentType = "text/html; charset=utf-8"

// PageArchive stores the rendered HTML of each crawled page in a BlobStore.
type PageArchive struct {
	blobs  BlobStore
	hasher Hasher
	prefix string
}

// NewPageArchive returns a crawler.PageSink backed by blobs.
func NewPageArchive(blobs BlobStore, hasher Hasher, prefix string) *PageArchive {
	return &PageArchive{blobs: blobs, hasher: hasher, prefix: prefix}
}

// StorePage implements crawler.PageSink.
func (a *PageArchive) StorePage(ctx context.Context, page crawler.Page) error {
	hash, err := a.hasher.Hash([]byte(page.HTML))
	if err != nil {
		return fmt.Errorf("hash body: %w", err)
	}
	if _, err := a.blobs.PutObject(ctx, a.blobPath(page.BusinessID, hash), htmlContentType, strings.NewReader(page.HTML)); err != nil {
		return fmt.Errorf("put object: %w", err)
	}
	return nil
}

func (a *PageArchive) blobPath(businessID, hash string) string {
	if businessID == "" {
		businessID = "unknown"
	}
	prefix := strings.Trim(a.prefix, "/")
	if prefix == "" {
		return fmt.Sprintf("%s/%s.html", businessID, hash)
	}
	return fmt.Sprintf("%s/%s/%s.html", prefix, businessID, hash)
}

// ChunkPublisher forwards page text chunks to a Publisher topic, one message per chunk.
type ChunkPublisher struct {
	publisher Publisher
	topic     string
}

// NewChunkPublisher returns a crawler.ChunkSink backed by publisher.
func NewChunkPublisher(publisher Publisher, topic string) *ChunkPublisher {
	return &ChunkPublisher{publisher: publisher, topic: topic}
}

// PublishChunks implements crawler.ChunkSink.
func (p *ChunkPublisher) PublishChunks(ctx context.Context, chunks []crawler.Chunk) error {
	for _, chunk := range chunks {
		if _, err := p.publisher.Publish(ctx, p.topic, chunk); err != nil {
			return fmt.Errorf("publish chunk %d of %s: %w", chunk.Index, chunk.URL, err)
		}
	}
	return nil
}
