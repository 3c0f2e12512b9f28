// Package credentials resolves venue API credentials from the environment.
package credentials

import "os"

// Credentials holds an API key pair for one venue
type Credentials struct {
	APIKey    string
	APISecret string
}

// Configured reports whether both parts of the key pair are present
func (c Credentials) Configured() bool {
	return c.APIKey != "" && c.APISecret != ""
}

// FromEnv reads <PREFIX>_API_KEY and <PREFIX>_API_SECRET. Absent
// variables produce empty fields; callers degrade gracefully rather
// than fail (deposit/withdraw checks report closed).
func FromEnv(prefix string) Credentials {
	return Credentials{
		APIKey:    os.Getenv(prefix + "_API_KEY"),
		APISecret: os.Getenv(prefix + "_API_SECRET"),
	}
}
