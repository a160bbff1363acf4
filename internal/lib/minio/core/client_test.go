package minio

import (
	"context"
	"strings"
	"testing"

	"home_compare/internal/config"
	"home_compare/internal/lib/logger/handlers/slogdiscard"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient_Disabled(t *testing.T) {
	c, err := NewClient(context.Background(), config.MinioConfig{Enabled: false}, slogdiscard.NewDiscardLogger(), nil)
	require.NoError(t, err)
	assert.False(t, c.IsEnabled())

	_, err = c.UploadImage(context.Background(), uuid.New(), Image{Filename: "a.jpg", Body: strings.NewReader("x"), Size: 1})
	assert.ErrorIs(t, err, ErrDisabled)
}

func TestObjectName(t *testing.T) {
	id := uuid.MustParse("6f1c1f4e-4a55-4c57-9d7c-2b9a0a0f3c11")

	name := ObjectName(id, "Living Room.JPG")
	assert.True(t, strings.HasPrefix(name, "properties/"+id.String()+"/"))
	assert.True(t, strings.HasSuffix(name, ".jpg"))

	assert.NotEqual(t, ObjectName(id, "a.png"), ObjectName(id, "a.png"))

	noExt := ObjectName(id, "../../etc/passwd")
	assert.False(t, strings.Contains(noExt, ".."))
	assert.Equal(t, 2, strings.Count(noExt, "/"))
}
