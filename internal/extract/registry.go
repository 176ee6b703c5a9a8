package extract

import (
	"net/url"
	"strings"

	"tenniswire/internal/ports"
)

// Registry maps host patterns to extractors. Site-specific extractors match
// first; unknown hosts fall back to the generic extractor.
type Registry struct {
	byHost  map[string]ports.Extractor
	generic ports.Extractor
}

// NewRegistry builds a registry around the given fallback extractor.
func NewRegistry(generic ports.Extractor) *Registry {
	return &Registry{
		byHost:  map[string]ports.Extractor{},
		generic: generic,
	}
}

// Register binds a host suffix (e.g. "atptour.com") to an extractor.
func (r *Registry) Register(hostSuffix string, extractor ports.Extractor) {
	r.byHost[strings.ToLower(hostSuffix)] = extractor
}

// Resolve returns the extractor responsible for articleURL.
func (r *Registry) Resolve(articleURL string) ports.Extractor {
	u, err := url.Parse(articleURL)
	if err != nil {
		return r.generic
	}
	host := strings.ToLower(u.Hostname())

	for suffix, extractor := range r.byHost {
		if host == suffix || strings.HasSuffix(host, "."+suffix) {
			return extractor
		}
	}
	return r.generic
}
