package models

import (
	"time"

	"github.com/google/uuid"
)

// APIKey authenticates CLI and API callers when JOBPILOT_REQUIRE_AUTH is set.
// The raw key is printed once by `jobpilot keys create`; only its bcrypt hash
// and lookup prefix are stored. A revoked key never authenticates again.
type APIKey struct {
	ID         uuid.UUID  `db:"id"           json:"id"`
	Name       string     `db:"name"         json:"name"`
	KeyHash    string     `db:"key_hash"     json:"-"`
	KeyPrefix  string     `db:"key_prefix"   json:"keyPrefix"`
	Scopes     []string   `db:"scopes"       json:"scopes"`
	LastUsedAt *time.Time `db:"last_used_at" json:"lastUsedAt,omitempty"`
	RevokedAt  *time.Time `db:"revoked_at"   json:"revokedAt,omitempty"`
	CreatedAt  time.Time  `db:"created_at"   json:"createdAt"`
	UpdatedAt  time.Time  `db:"updated_at"   json:"updatedAt"`
}

// Active reports whether the key may still authenticate.
func (k *APIKey) Active() bool {
	return k.RevokedAt == nil
}
