package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-login-bridge/core"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// AccountLinkStore is the bun-backed implementation of core.AccountLinkStore.
// One row per local user and provider pair; a repeat login for the same user
// overwrites the federated profile in place.
type AccountLinkStore struct {
	db   *bun.DB
	repo repository.Repository[*accountLinkRecord]
}

func NewAccountLinkStore(db *bun.DB) (*AccountLinkStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*accountLinkRecord](db, accountLinkHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid account link repository wiring: %w", err)
		}
	}
	return &AccountLinkStore{
		db:   db,
		repo: repo,
	}, nil
}

func (s *AccountLinkStore) Upsert(ctx context.Context, link core.LinkedAccount) (core.LinkedAccount, error) {
	if s == nil || s.db == nil || s.repo == nil {
		return core.LinkedAccount{}, fmt.Errorf("sqlstore: account link store is not configured")
	}
	link.UserID = strings.TrimSpace(link.UserID)
	link.ProviderID = strings.TrimSpace(link.ProviderID)
	link.ProfileID = strings.TrimSpace(link.ProfileID)
	link.ProfileName = strings.TrimSpace(link.ProfileName)
	if link.UserID == "" {
		return core.LinkedAccount{}, fmt.Errorf("sqlstore: user id is required")
	}
	if link.ProviderID == "" {
		return core.LinkedAccount{}, fmt.Errorf("sqlstore: provider id is required")
	}
	if link.ProfileID == "" {
		return core.LinkedAccount{}, fmt.Errorf("sqlstore: profile id is required")
	}

	now := time.Now().UTC()
	var out core.LinkedAccount
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		record, err := findAccountLinkTx(ctx, tx, link.UserID, link.ProviderID)
		if err != nil {
			return err
		}
		if record == nil {
			record = newAccountLinkRecord(link, now)
			record.ID = uuid.NewString()
			if _, insertErr := tx.NewInsert().Model(record).Exec(ctx); insertErr != nil {
				return insertErr
			}
			out = record.toDomain()
			return nil
		}

		record.ProfileID = link.ProfileID
		record.ProfileName = link.ProfileName
		record.UpdatedAt = now
		if _, updateErr := tx.NewUpdate().
			Model(record).
			Where("id = ?", record.ID).
			Exec(ctx); updateErr != nil {
			return updateErr
		}
		out = record.toDomain()
		return nil
	})
	if err != nil {
		return core.LinkedAccount{}, err
	}
	return out, nil
}

func (s *AccountLinkStore) FindByUser(ctx context.Context, userID string) (core.LinkedAccount, error) {
	if s == nil || s.repo == nil {
		return core.LinkedAccount{}, fmt.Errorf("sqlstore: account link store is not configured")
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return core.LinkedAccount{}, fmt.Errorf("sqlstore: user id is required")
	}

	records, _, err := s.repo.List(ctx,
		repository.SelectBy("user_id", "=", userID),
		repository.OrderBy("updated_at DESC"),
	)
	if err != nil {
		return core.LinkedAccount{}, err
	}
	if len(records) == 0 {
		return core.LinkedAccount{}, accountLinkNotFound(userID)
	}
	return records[0].toDomain(), nil
}

func (s *AccountLinkStore) DeleteByUser(ctx context.Context, userID string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: account link store is not configured")
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return fmt.Errorf("sqlstore: user id is required")
	}
	_, err := s.db.NewDelete().
		Model((*accountLinkRecord)(nil)).
		Where("user_id = ?", userID).
		Exec(ctx)
	return err
}

// IsAccountLinkNotFound reports whether err marks an account link miss, so
// callers can tell "never linked" apart from storage failures.
func IsAccountLinkNotFound(err error) bool {
	var richErr *goerrors.Error
	return goerrors.As(err, &richErr) && richErr.Category == goerrors.CategoryNotFound
}

func accountLinkNotFound(userID string) error {
	return goerrors.New("sqlstore: account link not found", goerrors.CategoryNotFound).
		WithTextCode(core.BridgeErrorSessionNotFound).
		WithMetadata(map[string]any{"user_id": userID})
}

func findAccountLinkTx(
	ctx context.Context,
	tx bun.Tx,
	userID string,
	providerID string,
) (*accountLinkRecord, error) {
	record := &accountLinkRecord{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.user_id = ?", userID).
		Where("?TableAlias.provider_id = ?", providerID).
		OrderExpr("?TableAlias.updated_at DESC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return record, nil
}
