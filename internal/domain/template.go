package domain

// Template is an entry of the landing page template registry.
type Template struct {
	Name           string `json:"name" yaml:"name"`
	Label          string `json:"label" yaml:"label"`
	RequiresFtpURL bool   `json:"requires_ftp_url" yaml:"requires_ftp_url"`
}
