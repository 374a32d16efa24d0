package gateway

import (
	"net/http"
	"strings"

	"emperror.dev/errors"
	"github.com/google/go-github/v62/github"
)

// IsUnauthorized returns true if err was caused by GitHub rejecting the token.
func IsUnauthorized(err error) bool {
	if err == nil {
		return false
	}
	var restErr *github.ErrorResponse
	if errors.As(err, &restErr) && restErr.Response != nil {
		return restErr.Response.StatusCode == http.StatusUnauthorized
	}
	// The GraphQL client doesn't export typed errors, only the status line
	// in the message.
	return strings.Contains(err.Error(), "status code: 401")
}
