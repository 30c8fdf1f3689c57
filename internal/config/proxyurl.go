package config

import (
	"errors"
	"fmt"
	"net/url"

	"gopkg.in/yaml.v3"
)

var (
	ErrProxyURLNotScalar      = errors.New("upstream proxy must be a single URL")
	ErrUnsupportedProxyScheme = errors.New("unsupported upstream proxy scheme")
	ErrProxyURLMissingHost    = errors.New("upstream proxy URL has no host")
)

// ProxyURL is the address of the proxy live requests are forwarded through.
// Only schemes understood by net/http's transport are accepted.
type ProxyURL struct {
	URL *url.URL
}

func (p *ProxyURL) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("%w, line %d", ErrProxyURLNotScalar, node.Line)
	}

	parsed, err := url.Parse(node.Value)
	if err != nil {
		return err
	}

	switch parsed.Scheme {
	case "http", "https", "socks5", "socks5h":
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedProxyScheme, parsed.Scheme)
	}
	if parsed.Host == "" {
		return fmt.Errorf("%w: %s", ErrProxyURLMissingHost, node.Value)
	}

	p.URL = parsed
	return nil
}

// MarshalYAML hides credentials, the rendered config is shown on the admin
// interface.
func (p ProxyURL) MarshalYAML() (any, error) {
	if p.URL == nil {
		return nil, nil
	}
	return p.URL.Redacted(), nil
}
