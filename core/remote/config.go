package remote

// Config holds the connection settings for one remote store.
type Config struct {
	// URL is the base address of the site (e.g. https://erp.example.com).
	URL string `mapstructure:"url" default:""`
	// Key is the API key half of the token credential.
	Key string `mapstructure:"key" default:""`
	// Secret is the API secret half of the token credential.
	Secret string `mapstructure:"secret" default:""`
	// DocType is the resource collection the client works on.
	DocType string `mapstructure:"doctype" default:"Account"`
	// TimeoutSeconds bounds every request.
	TimeoutSeconds int `mapstructure:"timeout_seconds" default:"30"`
	// PageLength is the limit_page_length sent on listings.
	PageLength int `mapstructure:"page_length" default:"10000"`
}
