package config

import "strings"

// HTTPConfig contains the Coordinator Service's HTTP listener
// configuration.
type HTTPConfig struct {
	// Addr is the address the coordinator binds its HTTP listener to.
	Addr string `env:"HTTP_ADDR" envDefault:":8080"`

	// AdminToken, when non-empty, gates /manage and /quitquitquit behind
	// a bearer-token check compared in constant time. Leave empty to run
	// those routes open, as the original implementation did.
	AdminToken string `env:"HTTP_ADMIN_TOKEN" envDefault:""`
}

// Sanitize trims whitespace noise from environment-sourced values.
func (c *HTTPConfig) Sanitize() {
	c.Addr = strings.TrimSpace(c.Addr)
	if c.Addr == "" {
		c.Addr = ":8080"
	}
	c.AdminToken = strings.TrimSpace(c.AdminToken)
}

// RequiresAuth reports whether the admin token guard is active.
func (c *HTTPConfig) RequiresAuth() bool {
	return c.AdminToken != ""
}
