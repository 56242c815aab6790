package services

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// ServiceEndpoint is the resolved address of a sibling service.
type ServiceEndpoint struct {
	Name    string `json:"name"`
	BaseURL string `json:"base_url"`
}

// ServiceDirectory is the immutable set of sibling service endpoints,
// resolved once at startup from configuration.
type ServiceDirectory struct {
	endpoints map[string]ServiceEndpoint
}

// NewServiceDirectory validates the configured endpoints. Every URL must be
// absolute http or https.
func NewServiceDirectory(raw map[string]string) (*ServiceDirectory, error) {
	d := &ServiceDirectory{endpoints: make(map[string]ServiceEndpoint, len(raw))}
	for name, rawURL := range raw {
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("service directory: empty service name")
		}
		u, err := url.Parse(strings.TrimSpace(rawURL))
		if err != nil {
			return nil, fmt.Errorf("service directory: %s: %w", name, err)
		}
		if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return nil, fmt.Errorf("service directory: %s: %q is not an absolute http(s) url", name, rawURL)
		}
		d.endpoints[name] = ServiceEndpoint{Name: name, BaseURL: strings.TrimRight(u.String(), "/")}
	}
	return d, nil
}

// Lookup returns the base URL of a named service.
func (d *ServiceDirectory) Lookup(name string) (string, bool) {
	ep, ok := d.endpoints[name]
	return ep.BaseURL, ok
}

// URL joins a path onto a named service's base URL.
func (d *ServiceDirectory) URL(name, path string) (string, error) {
	base, ok := d.Lookup(name)
	if !ok {
		return "", fmt.Errorf("service directory: unknown service %q", name)
	}
	return base + "/" + strings.TrimLeft(path, "/"), nil
}

// Endpoints lists all services ordered by name.
func (d *ServiceDirectory) Endpoints() []ServiceEndpoint {
	out := make([]ServiceEndpoint, 0, len(d.endpoints))
	for _, ep := range d.endpoints {
		out = append(out, ep)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
