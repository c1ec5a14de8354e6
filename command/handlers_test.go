package command

import (
	"context"
	"fmt"
	"testing"

	"github.com/goliatone/go-login-bridge/core"
)

type stubService struct {
	callbackResult core.CallbackResult
	callbackErr    error
	sweepCount     int
	sweepErr       error

	lastCode  string
	lastState string
	sweeps    int
}

func (s *stubService) HandleCallback(_ context.Context, code, state string) (core.CallbackResult, error) {
	s.lastCode = code
	s.lastState = state
	return s.callbackResult, s.callbackErr
}

func (s *stubService) SweepSessions(context.Context) (int, error) {
	s.sweeps++
	return s.sweepCount, s.sweepErr
}

type stubLinkStore struct {
	deleted []string
	err     error
}

func (s *stubLinkStore) Upsert(_ context.Context, link core.LinkedAccount) (core.LinkedAccount, error) {
	return link, nil
}

func (s *stubLinkStore) FindByUser(context.Context, string) (core.LinkedAccount, error) {
	return core.LinkedAccount{}, fmt.Errorf("command: not implemented")
}

func (s *stubLinkStore) DeleteByUser(_ context.Context, userID string) error {
	if s.err != nil {
		return s.err
	}
	s.deleted = append(s.deleted, userID)
	return nil
}

func TestCompleteCallbackCommand_Execute(t *testing.T) {
	service := &stubService{callbackResult: core.CallbackResult{Status: core.CallbackStatusSuccess, Delivered: true}}
	cmd := NewCompleteCallbackCommand(service)

	msg := CompleteCallbackMessage{Code: " auth-code-1 ", State: "valid_state_value_1"}
	if err := cmd.Execute(context.Background(), msg); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if service.lastCode != "auth-code-1" {
		t.Fatalf("expected trimmed code, got %q", service.lastCode)
	}
	if service.lastState != "valid_state_value_1" {
		t.Fatalf("unexpected state %q", service.lastState)
	}
}

func TestCompleteCallbackCommand_ValidatesMessage(t *testing.T) {
	cmd := NewCompleteCallbackCommand(&stubService{})
	if err := cmd.Execute(context.Background(), CompleteCallbackMessage{State: "valid_state_value_1"}); err == nil {
		t.Fatalf("expected missing code to be rejected")
	}
	if err := cmd.Execute(context.Background(), CompleteCallbackMessage{Code: "auth-code-1"}); err == nil {
		t.Fatalf("expected missing state to be rejected")
	}
}

func TestCompleteCallbackCommand_RequiresService(t *testing.T) {
	cmd := NewCompleteCallbackCommand(nil)
	msg := CompleteCallbackMessage{Code: "auth-code-1", State: "valid_state_value_1"}
	if err := cmd.Execute(context.Background(), msg); err == nil {
		t.Fatalf("expected dependency error")
	}
}

func TestSweepSessionsCommand_Execute(t *testing.T) {
	service := &stubService{sweepCount: 3}
	cmd := NewSweepSessionsCommand(service)
	if err := cmd.Execute(context.Background(), SweepSessionsMessage{}); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if service.sweeps != 1 {
		t.Fatalf("expected one sweep, got %d", service.sweeps)
	}
}

func TestSweepSessionsCommand_PropagatesError(t *testing.T) {
	service := &stubService{sweepErr: fmt.Errorf("sweep down")}
	cmd := NewSweepSessionsCommand(service)
	if err := cmd.Execute(context.Background(), SweepSessionsMessage{}); err == nil {
		t.Fatalf("expected sweep error to propagate")
	}
}

func TestUnlinkAccountCommand_Execute(t *testing.T) {
	store := &stubLinkStore{}
	cmd := NewUnlinkAccountCommand(store)
	if err := cmd.Execute(context.Background(), UnlinkAccountMessage{UserID: " user-9 "}); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(store.deleted) != 1 || store.deleted[0] != "user-9" {
		t.Fatalf("expected trimmed user id deleted, got %v", store.deleted)
	}
}

func TestUnlinkAccountCommand_ValidatesUserID(t *testing.T) {
	cmd := NewUnlinkAccountCommand(&stubLinkStore{})
	if err := cmd.Execute(context.Background(), UnlinkAccountMessage{}); err == nil {
		t.Fatalf("expected empty user id to be rejected")
	}
}

func TestMessagesDeclareStableTypes(t *testing.T) {
	if (CompleteCallbackMessage{}).Type() != TypeCompleteCallback {
		t.Fatalf("unexpected callback message type")
	}
	if (SweepSessionsMessage{}).Type() != TypeSweepSessions {
		t.Fatalf("unexpected sweep message type")
	}
	if (UnlinkAccountMessage{}).Type() != TypeUnlinkAccount {
		t.Fatalf("unexpected unlink message type")
	}
}
