package embedding

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docchat/internal/logger"
)

type fakeClient struct {
	calls int
	fail  bool
}

func (f *fakeClient) CreateEmbedding(_ context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if f.fail {
		return nil, errors.New("provider unavailable")
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{float32(len(texts[i])), 1, 2}
	}
	return out, nil
}

func TestGateway(t *testing.T) {
	t.Run("ShouldEmbedAllTextsInOneBatch", func(t *testing.T) {
		client := &fakeClient{}
		gw, err := New(client, 3, 32, logger.Nop())
		require.NoError(t, err)
		vectors := gw.Embed(context.Background(), []string{"alpha", "beta", "gamma"})
		require.Len(t, vectors, 3)
		assert.Equal(t, 1, client.calls)
		assert.False(t, IsZero(vectors[0]))
	})

	t.Run("ShouldDegradeToZeroVectorsOnProviderFailure", func(t *testing.T) {
		gw, err := New(&fakeClient{fail: true}, 5, 32, logger.Nop())
		require.NoError(t, err)
		vectors := gw.Embed(context.Background(), []string{"a", "b"})
		require.Len(t, vectors, 2)
		for _, v := range vectors {
			assert.Len(t, v, 5)
			assert.True(t, IsZero(v))
		}
	})

	t.Run("ShouldDegradeSingleEmbedOnFailure", func(t *testing.T) {
		gw, err := New(&fakeClient{fail: true}, 4, 32, logger.Nop())
		require.NoError(t, err)
		v := gw.EmbedOne(context.Background(), "question")
		assert.Len(t, v, 4)
		assert.True(t, IsZero(v))
	})

	t.Run("ShouldReturnNilForEmptyInput", func(t *testing.T) {
		gw, err := New(&fakeClient{}, 3, 32, logger.Nop())
		require.NoError(t, err)
		assert.Nil(t, gw.Embed(context.Background(), nil))
	})
}
