package domain

import (
	"strings"
	"time"
)

// AuthMethod identifies how a marketplace platform is connected.
type AuthMethod string

const (
	// AuthMethodOAuth connects via a provider-hosted authorization redirect;
	// the app never sees the user's password.
	AuthMethodOAuth AuthMethod = "oauth"

	// AuthMethodCredentials connects by submitting account credentials to the
	// backend for encrypted storage and automated use.
	AuthMethodCredentials AuthMethod = "credentials"
)

// Well-known platform IDs. The catalog is the source of truth; these exist for
// tests and log readability only.
const (
	PlatformFacebook   = "facebook"
	PlatformEbay       = "ebay"
	PlatformOfferUp    = "offerup"
	PlatformCraigslist = "craigslist"
)

// CredentialField describes one field a credentials-method platform requires.
// Sensitive fields are never logged and are masked in API snapshots.
type CredentialField struct {
	Name      string `json:"name"`
	Sensitive bool   `json:"sensitive"`
}

// SensitiveFieldName reports whether a credential field name should be treated
// as secret when the catalog does not say otherwise.
func SensitiveFieldName(name string) bool {
	n := strings.ToLower(name)
	for _, marker := range []string{"password", "secret", "token", "pin"} {
		if strings.Contains(n, marker) {
			return true
		}
	}
	return false
}

// PlatformDescriptor is the static per-platform metadata loaded from the
// backend catalog. Immutable within a session once loaded.
type PlatformDescriptor struct {
	ID                       string            `json:"id"`
	DisplayName              string            `json:"display_name"`
	AuthMethod               AuthMethod        `json:"auth_method"`
	RequiredCredentialFields []CredentialField `json:"required_credential_fields,omitempty"`
	Description              string            `json:"description,omitempty"`
	Features                 []string          `json:"features,omitempty"`
	SecurityNote             string            `json:"security_note,omitempty"`
	Instructions             string            `json:"instructions,omitempty"`
}

// ConnectedPlatform is a server-confirmed connection record. At most one
// exists per platform per user; the client de-duplicates defensively when
// reconciling.
type ConnectedPlatform struct {
	PlatformID   string    `json:"platform_id"`
	ConnectedAt  time.Time `json:"connected_at"`
	AccountLabel string    `json:"account_label,omitempty"`
}
