package kanboard

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// DefaultAuthHeader is the header carrying credentials unless Config
// overrides it. Only this header gets the "Basic " scheme prefix.
const DefaultAuthHeader = "Authorization"

var validate = validator.New(validator.WithRequiredStructEnabled())

// Config holds connection settings. The env tags let callers fill it with
// cleanenv; the client itself never reads the environment.
type Config struct {
	URL      string `env:"KANBOARD_URL" validate:"required,url"`
	Username string `env:"KANBOARD_USERNAME" env-default:"jsonrpc" validate:"required"`
	Password string `env:"KANBOARD_PASSWORD" validate:"required"`

	// AuthHeader names the credential header. Kanboard behind some web
	// servers needs a custom one, e.g. X-API-Auth.
	AuthHeader string `env:"KANBOARD_AUTH_HEADER" env-default:"Authorization"`

	// CAFile is a PEM bundle replacing the system roots.
	CAFile                   string `env:"KANBOARD_CA_FILE" validate:"omitempty,file"`
	InsecureSkipVerify       bool   `env:"KANBOARD_INSECURE_SKIP_VERIFY"`
	SkipHostnameVerification bool   `env:"KANBOARD_SKIP_HOSTNAME_VERIFICATION"`

	// HTTPUsername and HTTPPassword are sent as HTTP basic auth when
	// AuthHeader is custom, for a web server guarding Kanboard with its own
	// login. They are ignored with the default Authorization header.
	HTTPUsername string `env:"KANBOARD_HTTP_USERNAME"`
	HTTPPassword string `env:"KANBOARD_HTTP_PASSWORD"`

	// ProxyURL routes requests through an HTTP proxy. Without it the
	// HTTP_PROXY and HTTPS_PROXY environment variables apply.
	ProxyURL string `env:"KANBOARD_PROXY_URL" validate:"omitempty,url"`

	UserAgent string        `env:"KANBOARD_USER_AGENT"`
	Timeout   time.Duration `env:"KANBOARD_TIMEOUT" validate:"gte=0"`
}

// Validate checks required fields and formats.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

func (c Config) withDefaults() Config {
	c.AuthHeader = strings.TrimSpace(c.AuthHeader)
	if c.AuthHeader == "" {
		c.AuthHeader = DefaultAuthHeader
	}
	return c
}

// sendsHTTPBasicAuth reports whether requests carry HTTPUsername and
// HTTPPassword in the Authorization header.
func (c Config) sendsHTTPBasicAuth() bool {
	return c.HTTPUsername != "" && !c.usesDefaultAuthHeader()
}

// usesDefaultAuthHeader compares canonical forms, so "authorization" counts.
func (c Config) usesDefaultAuthHeader() bool {
	return http.CanonicalHeaderKey(c.AuthHeader) == DefaultAuthHeader
}
