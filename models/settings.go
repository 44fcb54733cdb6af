package models

import (
	"time"
)

// SiteSetting is a single key/value pair of public site configuration
type SiteSetting struct {
	Key       string     `json:"key"`
	Value     string     `json:"value"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

// DefaultSiteSettings returns the values used when a key has never been stored
func DefaultSiteSettings() map[string]string {
	return map[string]string{
		"company_name":     "Heritage Life Agency",
		"phone_number":     "(555) 010-2024",
		"contact_email":    "info@heritagelife.example",
		"office_address":   "100 Main Street, Suite 200",
		"office_hours":     "Mon-Fri 9:00-17:00",
		"hero_title":       "Protect what matters most",
		"hero_subtitle":    "Term, whole and final-expense coverage from licensed agents.",
		"quote_disclaimer": "Quotes are estimates and subject to underwriting approval.",
	}
}
