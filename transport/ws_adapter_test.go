package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/goliatone/go-login-bridge/core"
	"golang.org/x/net/websocket"
)

type staticAuthorizer struct {
	owner string
	err   error
}

func (a staticAuthorizer) Authenticate(context.Context, string) (string, error) {
	if a.err != nil {
		return "", a.err
	}
	return a.owner, nil
}

func dialSocket(t *testing.T, server *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + RouteSocket + query
	conn, err := websocket.Dial(wsURL, "", server.URL)
	if err != nil {
		t.Fatalf("dial socket: %v", err)
	}
	return conn
}

func receiveText(t *testing.T, conn *websocket.Conn) string {
	t.Helper()
	var message string
	if err := websocket.Message.Receive(conn, &message); err != nil {
		t.Fatalf("receive: %v", err)
	}
	return message
}

func stateFromHello(t *testing.T, hello string) string {
	t.Helper()
	var init core.AuthorizationInit
	if err := json.Unmarshal([]byte(hello), &init); err != nil {
		t.Fatalf("unmarshal hello: %v", err)
	}
	parsed, err := url.Parse(init.URL)
	if err != nil {
		t.Fatalf("parse authorize url: %v", err)
	}
	state := parsed.Query().Get("state")
	if state == "" {
		t.Fatalf("expected state in authorize url %q", init.URL)
	}
	return state
}

func TestWSAdapter_HelloThenTerminalDelivery(t *testing.T) {
	service := newTestService(t, nil)
	adapter, err := NewWSAdapter(service, nil)
	if err != nil {
		t.Fatalf("new ws adapter: %v", err)
	}
	mux := http.NewServeMux()
	adapter.Mount(mux)
	server := httptest.NewServer(mux)
	defer server.Close()

	conn := dialSocket(t, server, "")
	defer conn.Close()

	hello := receiveText(t, conn)
	state := stateFromHello(t, hello)

	result, err := service.HandleCallback(context.Background(), "auth-code-1", state)
	if err != nil {
		t.Fatalf("handle callback: %v", err)
	}
	if !result.Delivered {
		t.Fatalf("expected delivery to the live socket")
	}

	payload := receiveText(t, conn)
	if !strings.Contains(payload, "abc123") {
		t.Fatalf("expected profile in terminal payload, got %q", payload)
	}

	var after string
	if err := websocket.Message.Receive(conn, &after); err == nil {
		t.Fatalf("expected connection to close after terminal delivery, got %q", after)
	}
}

func TestWSAdapter_DisconnectReleasesRegistryEntry(t *testing.T) {
	service := newTestService(t, nil)
	adapter, err := NewWSAdapter(service, nil)
	if err != nil {
		t.Fatalf("new ws adapter: %v", err)
	}
	mux := http.NewServeMux()
	adapter.Mount(mux)
	server := httptest.NewServer(mux)
	defer server.Close()

	conn := dialSocket(t, server, "")
	receiveText(t, conn) // hello
	if service.Registry().Len() != 1 {
		t.Fatalf("expected one live registry entry, got %d", service.Registry().Len())
	}

	if err := conn.Close(); err != nil {
		t.Fatalf("close connection: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for service.Registry().Len() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("registry entry was not released after disconnect")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestWSAdapter_AuthorizerBindsOwner(t *testing.T) {
	service := newTestService(t, nil)
	adapter, err := NewWSAdapter(service, staticAuthorizer{owner: "user-42"})
	if err != nil {
		t.Fatalf("new ws adapter: %v", err)
	}
	mux := http.NewServeMux()
	adapter.Mount(mux)
	server := httptest.NewServer(mux)
	defer server.Close()

	conn := dialSocket(t, server, "?token=launcher-token")
	defer conn.Close()

	hello := receiveText(t, conn)
	state := stateFromHello(t, hello)

	owner, ok := service.Registry().Owner(state)
	if !ok || owner != "user-42" {
		t.Fatalf("expected owner user-42 bound to session, got %q ok=%v", owner, ok)
	}
}

func TestWSAdapter_AuthorizerFailureRejectsUpgrade(t *testing.T) {
	service := newTestService(t, nil)
	adapter, err := NewWSAdapter(service, staticAuthorizer{err: fmt.Errorf("bad token")})
	if err != nil {
		t.Fatalf("new ws adapter: %v", err)
	}
	mux := http.NewServeMux()
	adapter.Mount(mux)
	server := httptest.NewServer(mux)
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + RouteSocket + "?token=bad"
	if _, err := websocket.Dial(wsURL, "", server.URL); err == nil {
		t.Fatalf("expected dial with bad token to fail")
	}
	if service.Registry().Len() != 0 {
		t.Fatalf("expected no registry entry after rejected upgrade")
	}
}

func TestNewWSAdapter_RequiresService(t *testing.T) {
	if _, err := NewWSAdapter(nil, nil); err == nil {
		t.Fatalf("expected nil service to be rejected")
	}
}
