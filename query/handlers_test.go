package query

import (
	"context"
	"fmt"
	"testing"

	"github.com/goliatone/go-login-bridge/core"
)

type stubReader struct {
	init   core.AuthorizationInit
	err    error
	lastID string
}

func (s *stubReader) BeginLogin(_ context.Context, correlationID string) (core.AuthorizationInit, error) {
	s.lastID = correlationID
	return s.init, s.err
}

type stubLinkStore struct {
	link core.LinkedAccount
	err  error
}

func (s *stubLinkStore) Upsert(_ context.Context, link core.LinkedAccount) (core.LinkedAccount, error) {
	return link, nil
}

func (s *stubLinkStore) FindByUser(_ context.Context, userID string) (core.LinkedAccount, error) {
	if s.err != nil {
		return core.LinkedAccount{}, s.err
	}
	if s.link.UserID != userID {
		return core.LinkedAccount{}, fmt.Errorf("query: no link for %s", userID)
	}
	return s.link, nil
}

func (s *stubLinkStore) DeleteByUser(context.Context, string) error { return nil }

func TestBeginLoginQuery_Query(t *testing.T) {
	reader := &stubReader{init: core.AuthorizationInit{URL: "https://login.example.com/a"}}
	q := NewBeginLoginQuery(reader)

	out, err := q.Query(context.Background(), BeginLoginMessage{CorrelationID: " valid_state_value_1 "})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if reader.lastID != "valid_state_value_1" {
		t.Fatalf("expected trimmed correlation id, got %q", reader.lastID)
	}
	if out.URL != "https://login.example.com/a" {
		t.Fatalf("unexpected authorize url %q", out.URL)
	}
}

func TestBeginLoginQuery_ValidatesMessage(t *testing.T) {
	q := NewBeginLoginQuery(&stubReader{})
	if _, err := q.Query(context.Background(), BeginLoginMessage{}); err == nil {
		t.Fatalf("expected empty correlation id to be rejected")
	}
}

func TestBeginLoginQuery_RequiresReader(t *testing.T) {
	q := NewBeginLoginQuery(nil)
	if _, err := q.Query(context.Background(), BeginLoginMessage{CorrelationID: "valid_state_value_1"}); err == nil {
		t.Fatalf("expected dependency error")
	}
}

func TestFindAccountLinkQuery_Query(t *testing.T) {
	store := &stubLinkStore{link: core.LinkedAccount{UserID: "user-9", ProviderID: "microsoft", ProfileID: "abc123"}}
	q := NewFindAccountLinkQuery(store)

	out, err := q.Query(context.Background(), FindAccountLinkMessage{UserID: "user-9"})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if out.ProfileID != "abc123" {
		t.Fatalf("unexpected profile id %q", out.ProfileID)
	}
}

func TestFindAccountLinkQuery_ValidatesUserID(t *testing.T) {
	q := NewFindAccountLinkQuery(&stubLinkStore{})
	if _, err := q.Query(context.Background(), FindAccountLinkMessage{}); err == nil {
		t.Fatalf("expected empty user id to be rejected")
	}
}

func TestMessagesDeclareStableTypes(t *testing.T) {
	if (BeginLoginMessage{}).Type() != TypeBeginLogin {
		t.Fatalf("unexpected begin login message type")
	}
	if (FindAccountLinkMessage{}).Type() != TypeFindAccountLink {
		t.Fatalf("unexpected find link message type")
	}
}
