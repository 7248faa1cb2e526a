package redis

import "strings"

const keyNamespace = "sd"

// IdempotencyKey namespaces a stored response by route scope and client key.
func (c *Client) IdempotencyKey(scope, id string) string {
	return buildKey("idempotency", scope, id)
}

// LockKey namespaces a distributed lock.
func (c *Client) LockKey(name string) string {
	return buildKey("lock", name)
}

// CacheKey namespaces a cached read model; empty parts are skipped.
func (c *Client) CacheKey(parts ...string) string {
	return buildKey(append([]string{"cache"}, parts...)...)
}

func windowKey(scope string) string {
	return buildKey("rate_limit", scope)
}

func buildKey(parts ...string) string {
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
