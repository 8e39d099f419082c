package ratelimit

import (
	"net/http/httptest"
	"testing"
)

func TestConfigMatch(t *testing.T) {
	c := NewConfig(Limits{WritePerMin: 120, ReadPerMin: 6000, EvalPerMin: 30000})
	defer c.Close()

	tests := []struct {
		name   string
		method string
		path   string
		want   string // tier name, "" means unlimited
	}{
		{"health is unlimited", "GET", "/api/health", ""},
		{"create layer is write", "POST", "/api/v1/layers", "write"},
		{"patch layer is write", "PATCH", "/api/v1/layers/abc", "write"},
		{"delete item is write", "DELETE", "/api/v1/items/abc", "write"},
		{"list layers is read", "GET", "/api/v1/layers", "read"},
		{"tree is read", "GET", "/api/v1/layers/tree", "read"},
		{"visibility gets its own tier", "POST", "/api/v1/surveys/s1/visibility", "eval"},
		{"options is unmatched", "OPTIONS", "/api/v1/layers", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tier := c.Match(tt.method, tt.path)
			if tt.want == "" {
				if tier != nil {
					t.Fatalf("Match(%s %s) = %q, want nil", tt.method, tt.path, tier.Name)
				}
				return
			}
			if tier == nil {
				t.Fatalf("Match(%s %s) = nil, want %q", tt.method, tt.path, tt.want)
			}
			if tier.Name != tt.want {
				t.Errorf("Match(%s %s) = %q, want %q", tt.method, tt.path, tier.Name, tt.want)
			}
		})
	}
}

func TestConfigZeroDisablesTier(t *testing.T) {
	c := NewConfig(Limits{WritePerMin: 0, ReadPerMin: 100})
	defer c.Close()

	if tier := c.Match("POST", "/api/v1/layers"); tier != nil {
		t.Errorf("write tier should be disabled, got %q", tier.Name)
	}
	if tier := c.Match("GET", "/api/v1/layers"); tier == nil {
		t.Error("read tier should be active")
	}
}

func TestBuildKey(t *testing.T) {
	if got := BuildKey("1.2.3.4", "write"); got != "ip:1.2.3.4:write" {
		t.Errorf("BuildKey = %q", got)
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{"remote addr with port", "10.0.0.1:1234", nil, "10.0.0.1"},
		{"ipv6 remote addr", "[::1]:8080", nil, "::1"},
		{"x-forwarded-for single", "10.0.0.1:1234", map[string]string{"X-Forwarded-For": "203.0.113.7"}, "203.0.113.7"},
		{"x-forwarded-for chain takes leftmost", "10.0.0.1:1234", map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.2"}, "203.0.113.7"},
		{"x-real-ip fallback", "10.0.0.1:1234", map[string]string{"X-Real-IP": "203.0.113.9"}, "203.0.113.9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			r.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			if got := ClientIP(r); got != tt.want {
				t.Errorf("ClientIP = %q, want %q", got, tt.want)
			}
		})
	}
}
