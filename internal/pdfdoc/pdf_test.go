package pdfdoc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPageRanges(t *testing.T) {
	chunks := PageRanges(5, 2)
	require.Len(t, chunks, 3)
	assert.Equal(t, "1-2", chunks[0].Pages)
	assert.Equal(t, "3-4", chunks[1].Pages)
	assert.Equal(t, "5", chunks[2].Pages)
	assert.Equal(t, 2, chunks[2].Index)
	assert.Equal(t, 5, chunks[2].FirstPage)
	assert.Equal(t, 5, chunks[2].LastPage)
}

func TestPageRangesSinglePagePerChunk(t *testing.T) {
	chunks := PageRanges(3, 1)
	require.Len(t, chunks, 3)
	for i, c := range chunks {
		assert.Equal(t, i, c.Index)
		assert.Equal(t, i+1, c.FirstPage)
		assert.Equal(t, i+1, c.LastPage)
	}
}

func TestPageRangesDegenerate(t *testing.T) {
	assert.Nil(t, PageRanges(0, 2))
	// non-positive chunk size falls back to one page per chunk
	assert.Len(t, PageRanges(2, 0), 2)
}
