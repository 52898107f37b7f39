package redis

import "strconv"

const (
	// KeyPrefixPage namespaces rendered landing pages
	KeyPrefixPage = "landing:page:"
	// KeyPrefixPreview namespaces unsaved session previews
	KeyPrefixPreview = "landing:preview:"
)

// PageKey namespaces a landing page cache key (ex: landing_page.42).
func PageKey(key string) string {
	return KeyPrefixPage + key
}

// PreviewKey returns the key of a session draft for one resource.
func PreviewKey(sessionID string, resourceID int64) string {
	return KeyPrefixPreview + sessionID + ":" + strconv.FormatInt(resourceID, 10)
}
