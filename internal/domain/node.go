// Package domain contains the node records written for the site generator
// and the functions that give them a stable identity.
package domain

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
)

// PluginName seeds the namespace every node id is derived from.
const PluginName = "github-contributors"

// Node types registered with the site generator.
const (
	RepositoryNodeType       = "Github"
	PageContributorsNodeType = "GithubContributors"
)

var nodeNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte(PluginName))

// Contributor is one historical editor of a page.
type Contributor struct {
	Date      string `json:"date"`
	Login     string `json:"login"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatarUrl"`
}

// Internal carries the bookkeeping fields the data layer expects on every node.
type Internal struct {
	Type          string `json:"type"`
	ContentDigest string `json:"contentDigest"`
}

// RepositoryNode records which repository and branch the contributors were read from.
type RepositoryNode struct {
	ID         string   `json:"id"`
	Repository string   `json:"repository"`
	Branch     string   `json:"branch"`
	Root       string   `json:"root"`
	Internal   Internal `json:"internal"`
}

// PageContributorsNode associates a discovered page with its contributors.
type PageContributorsNode struct {
	ID           string        `json:"id"`
	Path         string        `json:"path"`
	Contributors []Contributor `json:"contributors"`
	Internal     Internal      `json:"internal"`
}

// RepositorySlug joins owner and name the way GitHub displays them.
func RepositorySlug(owner, name string) string {
	return fmt.Sprintf("%s/%s", owner, name)
}

// NewRepositoryNode builds the node for owner/name. Its identity depends only
// on the repository coordinates.
func NewRepositoryNode(owner, name, branch, root string) *RepositoryNode {
	slug := RepositorySlug(owner, name)
	return &RepositoryNode{
		ID:         NodeID(slug),
		Repository: slug,
		Branch:     branch,
		Root:       root,
		Internal: Internal{
			Type:          RepositoryNodeType,
			ContentDigest: ContentDigest(slug),
		},
	}
}

// NewPageContributorsNode builds the node for a page. A nil contributor list
// is stored as an empty one.
func NewPageContributorsNode(path string, contributors []Contributor) *PageContributorsNode {
	if contributors == nil {
		contributors = []Contributor{}
	}
	return &PageContributorsNode{
		ID:           NodeID(path),
		Path:         path,
		Contributors: contributors,
		Internal: Internal{
			Type:          PageContributorsNodeType,
			ContentDigest: ContentDigest(path),
		},
	}
}

// NodeID returns a name-based UUID for input.
func NodeID(input string) string {
	return uuid.NewSHA1(nodeNamespace, []byte(input)).String()
}

// ContentDigest returns a short hex digest of input.
func ContentDigest(input string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(input))
}
