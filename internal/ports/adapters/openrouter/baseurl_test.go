package openrouter

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateBaseURL(t *testing.T) {
	tests := []struct {
		name         string
		baseURL      string
		allowedHosts []string
		want         string
	}{
		{name: "empty means default", baseURL: ""},
		{name: "public host", baseURL: "https://openrouter.ai/"},
		{name: "api host", baseURL: "https://API.openrouter.ai"},
		{name: "relative", baseURL: "openrouter.ai", want: "absolute URL with host is required"},
		{name: "plain http", baseURL: "http://openrouter.ai", want: "https is required"},
		{name: "userinfo", baseURL: "https://u:p@openrouter.ai", want: "userinfo is not allowed"},
		{name: "fragment", baseURL: "https://openrouter.ai#x", want: "query and fragment are not allowed"},
		{name: "unlisted host", baseURL: "https://evil.example", want: "not in openrouter.allowed_hosts / OPENROUTER_ALLOWED_HOSTS"},
		{name: "listed proxy with port", baseURL: "https://proxy.internal:8443", allowedHosts: []string{"https://Proxy.Internal:8443/"}},
		{name: "allow-list replaces defaults", baseURL: "https://openrouter.ai", allowedHosts: []string{"proxy.internal"}, want: "not in openrouter.allowed_hosts"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateBaseURL(tt.baseURL, tt.allowedHosts)
			if tt.want == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, ErrBaseURL) {
				t.Fatalf("expected ErrBaseURL, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.want) || !strings.Contains(err.Error(), "openrouter.base_url / OPENROUTER_BASE_URL") {
				t.Fatalf("error %q does not name %q and both sources", err, tt.want)
			}
		})
	}
}

func TestNormalizeAllowedHosts_DefaultWhenEmpty(t *testing.T) {
	out := normalizeAllowedHosts([]string{" ", "https://", "http://"})
	if len(out) != len(defaultAllowedHosts) {
		t.Fatalf("expected default allowed hosts, got %v", out)
	}
}
