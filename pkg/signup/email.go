package signup

import (
	"context"
	"net"
	"net/mail"
	"strings"
)

// MXLookup reports whether domain publishes mail exchangers.
type MXLookup func(ctx context.Context, domain string) bool

// LookupMX resolves MX records with the default resolver.
func LookupMX(ctx context.Context, domain string) bool {
	records, err := net.DefaultResolver.LookupMX(ctx, domain)
	return err == nil && len(records) > 0
}

// ValidEmail reports whether raw is a bare, well formed address.
func ValidEmail(raw string) bool {
	addr, err := mail.ParseAddress(raw)
	if err != nil || addr.Address != raw || addr.Name != "" {
		return false
	}
	_, domain, ok := strings.Cut(raw, "@")
	return ok && strings.Contains(domain, ".") && !strings.HasSuffix(domain, ".")
}

func emailDomain(raw string) string {
	if i := strings.LastIndex(raw, "@"); i >= 0 {
		return raw[i+1:]
	}
	return ""
}
