package sqlstore

import (
	"strings"
	"time"

	"github.com/goliatone/go-login-bridge/core"
	"github.com/uptrace/bun"
)

type accountLinkRecord struct {
	bun.BaseModel `bun:"table:bridge_account_links,alias:bal"`

	ID          string    `bun:"id,pk"`
	UserID      string    `bun:"user_id,notnull"`
	ProviderID  string    `bun:"provider_id,notnull"`
	ProfileID   string    `bun:"profile_id,notnull"`
	ProfileName string    `bun:"profile_name,notnull"`
	CreatedAt   time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt   time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

func (r *accountLinkRecord) toDomain() core.LinkedAccount {
	if r == nil {
		return core.LinkedAccount{}
	}
	return core.LinkedAccount{
		ID:          r.ID,
		UserID:      r.UserID,
		ProviderID:  r.ProviderID,
		ProfileID:   r.ProfileID,
		ProfileName: r.ProfileName,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

func newAccountLinkRecord(link core.LinkedAccount, now time.Time) *accountLinkRecord {
	return &accountLinkRecord{
		ID:          strings.TrimSpace(link.ID),
		UserID:      strings.TrimSpace(link.UserID),
		ProviderID:  strings.TrimSpace(link.ProviderID),
		ProfileID:   strings.TrimSpace(link.ProfileID),
		ProfileName: strings.TrimSpace(link.ProfileName),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
