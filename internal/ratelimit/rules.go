package ratelimit

import (
	"sync"
	"time"

	"github.com/floramarket/florabot/pkg/config"
)

// Rules wraps the configured per-user limit and its exemptions. A config
// reload may swap the limits while turns are in flight, so access is guarded.
type Rules struct {
	mu     sync.RWMutex
	config config.LimitsConfig
}

// NewRules constructs rate limiting rules from configuration settings.
func NewRules(cfg config.LimitsConfig) *Rules {
	return &Rules{config: cfg}
}

// Update swaps in a freshly loaded limits configuration.
func (r *Rules) Update(cfg config.LimitsConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.config = cfg
}

// Enabled reports whether rate limiting should run at all.
func (r *Rules) Enabled() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.config.Enabled && r.config.PerUser > 0 && r.config.Window > 0
}

// IsWhitelisted returns true if the userID bypasses rate limits.
func (r *Rules) IsWhitelisted(userID int64) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, id := range r.config.Whitelist {
		if id == userID {
			return true
		}
	}
	return false
}

// PerUser returns how many turns one user may run inside the window.
func (r *Rules) PerUser() (int, time.Duration) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.config.PerUser, r.config.Window
}
