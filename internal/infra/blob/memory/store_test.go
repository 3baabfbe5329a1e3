package memory

import (
	"bytes"
	"clinicadmin/internal/blob/core"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadataIsCopied(t *testing.T) {
	s := New()
	md := map[string]string{"entity": "forms"}
	_, err := s.Put(context.Background(), "forms/1.csv", bytes.NewBufferString("x"), core.PutOptions{Metadata: md})
	require.NoError(t, err)
	md["entity"] = "changed"

	list, err := s.List(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "forms", list[0].Metadata["entity"])
	list[0].Metadata["entity"] = "again"

	info, _, err := s.Get(context.Background(), "forms/1.csv")
	require.NoError(t, err)
	assert.Equal(t, "forms", info.Metadata["entity"])
	assert.NotEmpty(t, info.ETag)
}
