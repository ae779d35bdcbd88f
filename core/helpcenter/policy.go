package helpcenter

import (
	"sort"
	"strconv"
	"strings"

	"log/slog"

	"helpcenterbot/core/logger"
)

// AuthorizationPolicy is the fixed allow-list of administrator identities.
// It is injected into the Service at construction and consulted
// independently at every entry point that mutates protected state.
type AuthorizationPolicy struct {
	admins map[int64]struct{}
}

// NewPolicy builds a policy from explicit ids.
func NewPolicy(ids ...int64) AuthorizationPolicy {
	admins := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if id != 0 {
			admins[id] = struct{}{}
		}
	}
	return AuthorizationPolicy{admins: admins}
}

// ParsePolicy builds a policy from a comma-separated id list. Malformed
// entries are skipped with a warning; an empty result is valid (no admin
// will ever be authorized).
func ParsePolicy(raw string) AuthorizationPolicy {
	admins := make(map[int64]struct{})
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil || id == 0 {
			if logger.SVC != nil {
				logger.SVC.Warn("invalid admin id skipped",
					slog.String("event", "policy.parse"),
					slog.String("payload", logger.SanitizeLimit(part, 64)),
				)
			}
			continue
		}
		admins[id] = struct{}{}
	}
	return AuthorizationPolicy{admins: admins}
}

// IsAdmin reports whether the identity is allow-listed.
func (p AuthorizationPolicy) IsAdmin(id int64) bool {
	_, ok := p.admins[id]
	return ok
}

// Admins returns the allow-listed identities in ascending order.
func (p AuthorizationPolicy) Admins() []int64 {
	ids := make([]int64, 0, len(p.admins))
	for id := range p.admins {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Size returns the number of allow-listed identities.
func (p AuthorizationPolicy) Size() int {
	return len(p.admins)
}
