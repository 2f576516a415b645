package backend

import (
	"time"

	"github.com/crosspostme/crosspost-agent/internal/domain"
)

// SupportedPlatform is one entry of the backend catalog response.
type SupportedPlatform struct {
	Name              string   `json:"name"`
	Description       string   `json:"description,omitempty"`
	Features          []string `json:"features,omitempty"`
	Note              string   `json:"note,omitempty"`
	OAuthAvailable    bool     `json:"oauth_available"`
	CredentialsNeeded []string `json:"credentials_needed,omitempty"`
	Instructions      string   `json:"instructions,omitempty"`
	SecurityNote      string   `json:"security_note,omitempty"`
}

// supportedResponse is the envelope of GET /api/platforms/supported.
type supportedResponse struct {
	Platforms map[string]SupportedPlatform `json:"platforms"`
	Total     int                          `json:"total"`
}

// ConnectedRecord is one entry of GET /api/platforms/connected.
type ConnectedRecord struct {
	Platform    string    `json:"platform"`
	ConnectedAt time.Time `json:"connected_at"`
	UserInfo    struct {
		Name string `json:"name,omitempty"`
	} `json:"user_info,omitempty"`
}

// ToDomain converts a backend record to the domain connected-platform record.
func (r ConnectedRecord) ToDomain() domain.ConnectedPlatform {
	return domain.ConnectedPlatform{
		PlatformID:   r.Platform,
		ConnectedAt:  r.ConnectedAt,
		AccountLabel: r.UserInfo.Name,
	}
}

// InitiateRequest is the body of POST /api/platforms/connect.
type InitiateRequest struct {
	Platform    string `json:"platform"`
	RedirectURI string `json:"redirect_uri"`
}

// InitiateResponse is the backend's answer to a connection initiation. The
// method field decides the flow branch: "oauth" carries auth_url, and
// "credentials" carries the field list the user must fill in.
type InitiateResponse struct {
	Method            string   `json:"method"`
	AuthURL           string   `json:"auth_url,omitempty"`
	CredentialsNeeded []string `json:"credentials_needed,omitempty"`
	Instructions      string   `json:"instructions,omitempty"`
	SecurityNote      string   `json:"security_note,omitempty"`
}

// CredentialsRequest is the body of POST /api/platforms/{platform}/credentials.
type CredentialsRequest struct {
	Platform    string            `json:"platform"`
	Credentials map[string]string `json:"credentials"`
}

// messageResponse is the generic {"message": ...} success envelope.
type messageResponse struct {
	Message string `json:"message"`
}

// errorResponse covers the backend's error body variants.
type errorResponse struct {
	Detail     string `json:"detail,omitempty"`
	Error      string `json:"error,omitempty"`
	ErrorClass string `json:"error_class,omitempty"`
}

// Connection flow method values returned by the backend.
const (
	MethodOAuth       = "oauth"
	MethodCredentials = "credentials"
)
