package config

import "os"

const (
	// DefaultTimeoutMs is the per-request timeout when none is configured.
	DefaultTimeoutMs = 30000

	// DefaultReqresAPIKey is the public key reqres.in hands out for its free tier.
	DefaultReqresAPIKey = "reqres-free-v1"
)

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Targets: map[string]Target{
			"reqres": {
				BaseURL: "https://reqres.in",
				Headers: map[string]string{"x-api-key": reqresAPIKey()},
			},
			"catfact": {
				BaseURL: "https://catfact.ninja",
			},
		},
		Timeout:         DefaultTimeoutMs,
		FollowRedirects: BoolPtr(true),
		MaxRedirects:    10,
		ValidateSSL:     BoolPtr(true),
		Builtin:         BoolPtr(true),
		Reporters:       []string{"console"},
		Bail:            BoolPtr(false),
		Verbose:         BoolPtr(false),
		NoColor:         BoolPtr(false),
	}
}

func reqresAPIKey() string {
	if key := os.Getenv("REQRES_API_KEY"); key != "" {
		return key
	}
	return DefaultReqresAPIKey
}
