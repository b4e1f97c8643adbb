package config

// APIConfig controls the HTTP API served next to /metrics on
// metrics.prometheus_addr.
type APIConfig struct {
	// Token is required as a bearer token on cycle endpoints when set.
	Token string `json:"token"`
	// Disabled leaves only /metrics and /healthz on the server.
	Disabled bool `json:"disabled"`
}
