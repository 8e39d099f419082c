// Defines rate limit tiers and routing rules.

package ratelimit

import (
	"strings"
	"time"
)

// Tier defines a rate limit tier. A tier with a nil Limiter is unlimited.
type Tier struct {
	Name    string
	Limiter *Limiter
}

// Config holds rate limiters for different tiers. All tiers are keyed by
// client IP; there is no authenticated identity in this service.
type Config struct {
	Write Tier // authoring mutations
	Read  Tier // reads
	Eval  Tier // visibility evaluation during delivery
}

// Limits are the per-tier request budgets in requests per minute.
// 0 disables limiting for that tier.
type Limits struct {
	WritePerMin int
	ReadPerMin  int
	EvalPerMin  int
}

// NewConfig creates rate limiters from per-minute budgets. Burst is a
// fraction of the window budget so short spikes pass but sustained abuse
// does not.
func NewConfig(limits Limits) *Config {
	return &Config{
		Write: newTier("write", limits.WritePerMin),
		Read:  newTier("read", limits.ReadPerMin),
		Eval:  newTier("eval", limits.EvalPerMin),
	}
}

func newTier(name string, perMin int) Tier {
	if perMin <= 0 {
		return Tier{Name: name}
	}
	burst := max(perMin/6, 1)
	return Tier{Name: name, Limiter: NewLimiter(perMin, time.Minute, burst)}
}

// Match returns the tier for a request, or nil when it is not rate limited.
func (c *Config) Match(method, path string) *Tier {
	// Skip health check
	if path == "/api/health" {
		return nil
	}

	// Visibility evaluation is a read issued on every answer change; it gets
	// its own budget even though it uses POST.
	if method == "POST" && strings.HasSuffix(path, "/visibility") {
		return tierOrNil(&c.Eval)
	}

	switch method {
	case "POST", "PUT", "PATCH", "DELETE":
		return tierOrNil(&c.Write)
	case "GET":
		return tierOrNil(&c.Read)
	default:
		return nil
	}
}

func tierOrNil(t *Tier) *Tier {
	if t.Limiter == nil {
		return nil
	}
	return t
}

// Close stops all limiter cleanup goroutines.
func (c *Config) Close() {
	for _, t := range []*Tier{&c.Write, &c.Read, &c.Eval} {
		if t.Limiter != nil {
			t.Limiter.Close()
		}
	}
}

// BuildKey creates a rate limit bucket key from the client identifier and tier name.
func BuildKey(identifier, tierName string) string {
	return "ip:" + identifier + ":" + tierName
}
