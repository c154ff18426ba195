package security

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// ValidateEndpointURL checks that an outbound endpoint URL (the model
// service) points somewhere sane before the first request is made.
//
// Private ranges are always accepted: model services normally live inside
// the cluster network. Link-local addresses (cloud metadata) and the
// unspecified address are always rejected. In strict mode, loopback targets
// are rejected too, since "localhost" inside a production container almost
// never means what the operator intended. Both IP literals and DNS-resolved
// addresses are checked.
func ValidateEndpointURL(rawURL string, strict bool) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL format")
	}

	switch u.Scheme {
	case "http", "https":
	default:
		return fmt.Errorf("URL scheme must be http or https")
	}

	host := u.Hostname()
	if host == "" {
		return fmt.Errorf("URL must have a host")
	}

	for _, b := range []string{"metadata.google.internal", "metadata.google"} {
		if strings.EqualFold(host, b) {
			return fmt.Errorf("URL host %q is not allowed", host)
		}
	}
	if strict && strings.EqualFold(host, "localhost") {
		return fmt.Errorf("URL host %q is not allowed", host)
	}

	if ip := net.ParseIP(host); ip != nil {
		return checkEndpointIP(ip, strict)
	}

	ips, err := net.LookupHost(host)
	if err != nil {
		return fmt.Errorf("cannot resolve URL host: %s", host)
	}
	for _, raw := range ips {
		resolved := net.ParseIP(raw)
		if resolved == nil {
			continue
		}
		if err := checkEndpointIP(resolved, strict); err != nil {
			return fmt.Errorf("URL host %q resolves to blocked address: %v", host, err)
		}
	}

	return nil
}

func checkEndpointIP(ip net.IP, strict bool) error {
	switch {
	case ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast():
		return fmt.Errorf("link-local addresses are not allowed")
	case ip.IsUnspecified():
		return fmt.Errorf("unspecified addresses are not allowed")
	case strict && ip.IsLoopback():
		return fmt.Errorf("loopback addresses are not allowed")
	}
	return nil
}
