package domain

import (
	"strconv"
	"strings"
)

const draftPrefix = "draft-"

// CanonicalPath is /{doi_prefix}/{slug} for pages with a DOI and
// /draft-{resource_id}/{slug} otherwise.
func CanonicalPath(p *LandingPage) string {
	if p.HasIdentifier() {
		return "/" + *p.DoiPrefix + "/" + p.Slug
	}
	return "/" + draftPrefix + strconv.FormatInt(p.ResourceID, 10) + "/" + p.Slug
}

// PreviewPath is the canonical path carrying the preview token.
func PreviewPath(p *LandingPage) string {
	return CanonicalPath(p) + "?preview=" + p.PreviewToken
}

// URLBuilder turns canonical paths into absolute URLs.
type URLBuilder struct {
	BaseURL string // ex: https://dataservices.gfz.de (no trailing slash)
}

func NewURLBuilder(baseURL string) URLBuilder {
	return URLBuilder{BaseURL: strings.TrimRight(baseURL, "/")}
}

func (b URLBuilder) PublicURL(p *LandingPage) string {
	return b.BaseURL + CanonicalPath(p)
}

func (b URLBuilder) PreviewURL(p *LandingPage) string {
	return b.BaseURL + PreviewPath(p)
}

// ParseIdentifierPath splits "/10.5880/GFZ.2024.001/my-slug" into the DOI
// ("10.5880/GFZ.2024.001") and the slug ("my-slug"). The DOI suffix may
// itself contain slashes; the slug is always the last segment.
func ParseIdentifierPath(path string) (doi, slug string, ok bool) {
	path = strings.Trim(path, "/")
	if !strings.HasPrefix(path, "10.") {
		return "", "", false
	}

	i := strings.LastIndexByte(path, '/')
	if i <= 0 || i == len(path)-1 {
		return "", "", false
	}
	doi, slug = path[:i], path[i+1:]

	prefix, suffix, found := strings.Cut(doi, "/")
	if !found || suffix == "" || !isRegistrantCode(prefix[len("10."):]) {
		return "", "", false
	}
	return doi, slug, true
}

// isRegistrantCode accepts "5880" and dotted sub-registrants like "1000.100".
func isRegistrantCode(s string) bool {
	if s == "" {
		return false
	}
	for _, part := range strings.Split(s, ".") {
		if part == "" {
			return false
		}
		for _, r := range part {
			if r < '0' || r > '9' {
				return false
			}
		}
	}
	return true
}
