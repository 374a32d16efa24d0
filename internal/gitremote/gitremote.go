// Package gitremote reads the GitHub coordinates of a local checkout.
package gitremote

import (
	"strings"

	"emperror.dev/errors"
	giturls "github.com/chainguard-dev/git-urls"
	"github.com/go-git/go-git/v5"
)

// DefaultRemote is the remote consulted when none is given.
const DefaultRemote = "origin"

// Detect returns the owner and name of the repository that remote points at,
// for the git checkout containing dir.
func Detect(dir, remote string) (owner, name string, err error) {
	if remote == "" {
		remote = DefaultRemote
	}
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return "", "", errors.WrapIff(err, "failed to open git repository at %q", dir)
	}
	r, err := repo.Remote(remote)
	if err != nil {
		return "", "", errors.WrapIff(err, "failed to read remote %q", remote)
	}
	urls := r.Config().URLs
	if len(urls) == 0 || urls[0] == "" {
		return "", "", errors.Errorf("remote %q has no URL", remote)
	}
	return ParseSlug(urls[0])
}

// ParseSlug extracts owner and name from any URL form git accepts
// (https, ssh, scp-like).
func ParseSlug(remoteURL string) (owner, name string, err error) {
	u, err := giturls.Parse(remoteURL)
	if err != nil {
		return "", "", errors.WrapIff(err, "failed to parse remote url %q", remoteURL)
	}
	slug := strings.TrimSuffix(u.Path, ".git")
	slug = strings.Trim(slug, "/")
	owner, name, ok := strings.Cut(slug, "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return "", "", errors.Errorf(
			"unable to parse repository slug (expected <owner>/<repo>): %q",
			slug,
		)
	}
	return owner, name, nil
}
