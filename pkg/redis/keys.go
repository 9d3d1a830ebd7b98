package redis

import "strings"

// Every key lives under bk:<kind>:... so one Redis can be shared with other apps.
const keyNamespace = "bk"

const (
	kindIdempotency = "idempotency"
	kindCounter     = "counter"
	kindCart        = "cart"
	kindLock        = "lock"
	kindRateLimit   = "ratelimit"
)

func (c *Client) IdempotencyKey(scope, id string) string {
	return joinKey(kindIdempotency, scope, id)
}

func (c *Client) CounterKey(name string) string {
	return joinKey(kindCounter, name)
}

// CartKey is the cart for an identity kind ("user" or "guest") and id.
func (c *Client) CartKey(kind, id string) string {
	return joinKey(kindCart, kind, id)
}

// CartPattern is the SCAN match for every cart of one identity kind.
func (c *Client) CartPattern(kind string) string {
	return joinKey(kindCart, kind, "*")
}

func (c *Client) LockKey(name string) string {
	return joinKey(kindLock, name)
}

// RateLimitKey names a fixed-window request counter.
func (c *Client) RateLimitKey(policy, scope, id string) string {
	return joinKey(kindRateLimit, policy, scope, id)
}

// joinKey drops blank segments.
func joinKey(parts ...string) string {
	var b strings.Builder
	b.WriteString(keyNamespace)
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		b.WriteByte(':')
		b.WriteString(part)
	}
	return b.String()
}
