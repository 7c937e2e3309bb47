package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/receptionist-onboarding/internal/crawler"
)

func TestPublisherStoresMessages(t *testing.T) {
	t.Parallel()

	pub := New()
	id1, err := pub.Publish(context.Background(), "chunks", crawler.Chunk{URL: "https://salon.cz", Index: 0, Text: "Vítejte"})
	require.NoError(t, err)
	require.Equal(t, "memory-1", id1)
	id2, err := pub.Publish(context.Background(), "other", "payload")
	require.NoError(t, err)
	require.Equal(t, "memory-2", id2)

	require.Len(t, pub.Messages(""), 2)
	msgs := pub.Messages("chunks")
	require.Len(t, msgs, 1)

	var chunk crawler.Chunk
	require.NoError(t, msgs[0].Decode(&chunk))
	require.Equal(t, "Vítejte", chunk.Text)

	msgs[0].Topic = "modified"
	require.Equal(t, "chunks", pub.Messages("")[0].Topic)
}

func TestPublisherRejectsUnmarshalable(t *testing.T) {
	t.Parallel()

	_, err := New().Publish(context.Background(), "t", func() {})
	require.Error(t, err)
	require.Empty(t, New().Messages(""))
}
