package transport

import (
	"context"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-login-bridge/core"
	"golang.org/x/net/websocket"
)

// SocketAuthorizer resolves the connecting user from a bearer credential.
// Connection authentication belongs to the host application; the bridge only
// needs the resulting user id so the account link can be attributed.
type SocketAuthorizer interface {
	Authenticate(ctx context.Context, token string) (string, error)
}

// WSAdapter owns the socket accept path: it upgrades the connection, attaches
// it to the registry, and pumps registry messages out until terminal delivery
// or disconnect.
type WSAdapter struct {
	service    *core.Service
	authorizer SocketAuthorizer
}

func NewWSAdapter(service *core.Service, authorizer SocketAuthorizer) (*WSAdapter, error) {
	if service == nil {
		return nil, transportError(
			"transport: ws adapter requires a service",
			goerrors.CategoryInternal,
			http.StatusInternalServerError,
			nil,
		)
	}
	return &WSAdapter{service: service, authorizer: authorizer}, nil
}

func (a *WSAdapter) Mount(mux *http.ServeMux) {
	mux.Handle(RouteSocket, a.Handler())
}

func (a *WSAdapter) Handler() http.Handler {
	wsHandler := websocket.Handler(a.serveConn)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		owner := ""
		if a.authorizer != nil {
			token := bearerToken(r)
			if token != "" {
				resolved, err := a.authorizer.Authenticate(r.Context(), token)
				if err != nil {
					http.Error(w, "authentication required", http.StatusUnauthorized)
					return
				}
				owner = strings.TrimSpace(resolved)
			}
		}

		ctx := context.WithValue(r.Context(), socketOwnerContextKey{}, owner)
		wsHandler.ServeHTTP(w, r.WithContext(ctx))
	})
}

type socketOwnerContextKey struct{}

func (a *WSAdapter) serveConn(conn *websocket.Conn) {
	defer func() {
		_ = conn.Close()
	}()

	ctx := context.Background()
	owner := ""
	if request := conn.Request(); request != nil {
		ctx = request.Context()
		if resolved, ok := ctx.Value(socketOwnerContextKey{}).(string); ok {
			owner = resolved
		}
	}

	session, err := a.service.AttachSocket(ctx, core.AttachOptions{Owner: owner})
	if err != nil {
		return
	}

	// Discard inbound frames; their only signal is the read error marking
	// disconnection, which releases the registry entry and unblocks the pump.
	go func() {
		var discard string
		for {
			if recvErr := websocket.Message.Receive(conn, &discard); recvErr != nil {
				a.service.ReleaseSocket(session.ID)
				return
			}
		}
	}()

	for msg := range session.Receive {
		switch msg.Kind {
		case core.SocketMessageText:
			if sendErr := websocket.Message.Send(conn, msg.Payload); sendErr != nil {
				a.service.ReleaseSocket(session.ID)
				return
			}
		case core.SocketMessageClose:
			return
		}
	}
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	if token := strings.TrimSpace(r.URL.Query().Get("token")); token != "" {
		return token
	}
	return ""
}
