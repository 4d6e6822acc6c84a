// internal/security/security.go
package security

import (
	"fmt"
	"net/url"

	"github.com/google/uuid"
)

// QuoteLinkType is the type discriminator carried by every public quote
// link; the external read view uses it to pick the right quote family.
const QuoteLinkType = "heritage"

// GenerateAccessToken mints the opaque credential granting read access to
// one quote's rendered view. Every save issues a fresh one.
func GenerateAccessToken() string {
	return uuid.NewString()
}

// PublicLink builds the shareable read-only URL for an access token.
func PublicLink(baseURL, token string) string {
	if baseURL == "" {
		baseURL = "http://localhost:8501"
	}
	return fmt.Sprintf("%s/?token=%s&type=%s", baseURL, url.QueryEscape(token), QuoteLinkType)
}
