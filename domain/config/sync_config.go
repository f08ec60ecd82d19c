package config

import "time"

// SyncConfig holds the timing and limit rules of the collaboration engine
type SyncConfig struct {
	// Presence liveness
	HeartbeatInterval time.Duration
	PresenceTTL       time.Duration
	SweepInterval     time.Duration

	// Advisory locks
	LockLease time.Duration

	// Transport limits
	MaxMessageBytes      int64
	MaxMessagesPerMinute int
	ConnectionSendBuffer int

	// Feature flags
	SerializeProjectWrites bool
	RefreshRoleOnHeartbeat bool
}

// DefaultSyncConfig returns the default engine configuration
func DefaultSyncConfig() *SyncConfig {
	return &SyncConfig{
		HeartbeatInterval: 30 * time.Second,
		PresenceTTL:       60 * time.Second,
		SweepInterval:     60 * time.Second,

		LockLease: 30 * time.Second,

		MaxMessageBytes:      512 * 1024,
		MaxMessagesPerMinute: 0,
		ConnectionSendBuffer: 256,

		SerializeProjectWrites: false,
		RefreshRoleOnHeartbeat: true,
	}
}

// IsStale reports whether a heartbeat observed at last is too old at now.
func (c *SyncConfig) IsStale(last, now time.Time) bool {
	return now.Sub(last) >= c.PresenceTTL
}

// LockExpiry returns the expiry of a lease acquired at acquiredAt.
func (c *SyncConfig) LockExpiry(acquiredAt time.Time) time.Time {
	return acquiredAt.Add(c.LockLease)
}
