package query

import (
	"context"
	"strings"

	"github.com/goliatone/go-login-bridge/core"
)

// LoginReader is the slice of the bridge service the query handlers need.
type LoginReader interface {
	BeginLogin(ctx context.Context, correlationID string) (core.AuthorizationInit, error)
}

type BeginLoginQuery struct {
	reader LoginReader
}

func NewBeginLoginQuery(reader LoginReader) *BeginLoginQuery {
	return &BeginLoginQuery{reader: reader}
}

func (q *BeginLoginQuery) Query(ctx context.Context, msg BeginLoginMessage) (core.AuthorizationInit, error) {
	if q == nil || q.reader == nil {
		return core.AuthorizationInit{}, queryDependencyError("query: login reader is required")
	}
	if err := msg.Validate(); err != nil {
		return core.AuthorizationInit{}, err
	}
	return q.reader.BeginLogin(ctx, strings.TrimSpace(msg.CorrelationID))
}

type FindAccountLinkQuery struct {
	links core.AccountLinkStore
}

func NewFindAccountLinkQuery(links core.AccountLinkStore) *FindAccountLinkQuery {
	return &FindAccountLinkQuery{links: links}
}

func (q *FindAccountLinkQuery) Query(ctx context.Context, msg FindAccountLinkMessage) (core.LinkedAccount, error) {
	if q == nil || q.links == nil {
		return core.LinkedAccount{}, queryDependencyError("query: account link store is required")
	}
	if err := msg.Validate(); err != nil {
		return core.LinkedAccount{}, err
	}
	return q.links.FindByUser(ctx, strings.TrimSpace(msg.UserID))
}
