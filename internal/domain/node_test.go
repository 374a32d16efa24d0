package domain

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNodeID_Deterministic(t *testing.T) {
	a := NodeID("/site/src/pages/index.md")
	b := NodeID("/site/src/pages/index.md")
	c := NodeID("/site/src/pages/other.md")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)

	parsed, err := uuid.Parse(a)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(5), parsed.Version())
}

func TestContentDigest_Deterministic(t *testing.T) {
	assert.Equal(t, ContentDigest("adobe/aio"), ContentDigest("adobe/aio"))
	assert.NotEqual(t, ContentDigest("adobe/aio"), ContentDigest("adobe/aio-docs"))
	assert.Len(t, ContentDigest("adobe/aio"), 16)
}

func TestNewRepositoryNode(t *testing.T) {
	node := NewRepositoryNode("adobe", "aio", "main", "/site")

	assert.Equal(t, "adobe/aio", node.Repository)
	assert.Equal(t, NodeID("adobe/aio"), node.ID)
	assert.Equal(t, RepositoryNodeType, node.Internal.Type)
	assert.Equal(t, ContentDigest("adobe/aio"), node.Internal.ContentDigest)
	assert.Equal(t, "main", node.Branch)
	assert.Equal(t, "/site", node.Root)
}

func TestNewPageContributorsNode_NilContributorsSerializeAsEmptyList(t *testing.T) {
	node := NewPageContributorsNode("/site/src/pages/index.md", nil)

	assert.Equal(t, NodeID("/site/src/pages/index.md"), node.ID)
	assert.Equal(t, PageContributorsNodeType, node.Internal.Type)

	data, err := json.Marshal(node)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"contributors":[]`)
}
