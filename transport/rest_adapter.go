package transport

import (
	"encoding/json"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-login-bridge/core"
)

const (
	RouteInit     = "/bridge/init"
	RouteCallback = "/bridge/callback"
	RouteSocket   = "/bridge/ws"
)

// RESTAdapter serves the init and callback routes. Construct it with the
// bridge service and mount Handler on the host server's mux.
type RESTAdapter struct {
	service *core.Service
}

func NewRESTAdapter(service *core.Service) (*RESTAdapter, error) {
	if service == nil {
		return nil, transportError(
			"transport: rest adapter requires a service",
			goerrors.CategoryInternal,
			http.StatusInternalServerError,
			nil,
		)
	}
	return &RESTAdapter{service: service}, nil
}

// Handler returns the adapter's routes on a fresh mux. The socket route is
// registered separately by the WSAdapter so deployments can keep the upgrade
// path behind their own middleware.
func (a *RESTAdapter) Handler() http.Handler {
	mux := http.NewServeMux()
	a.Mount(mux)
	return mux
}

func (a *RESTAdapter) Mount(mux *http.ServeMux) {
	mux.HandleFunc(RouteInit, a.handleInit)
	mux.HandleFunc(RouteCallback, a.handleCallback)
}

// handleInit answers with a 307 to the provider authorize URL plus a JSON
// body carrying the same URL for callers that do not follow redirects.
func (a *RESTAdapter) handleInit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := strings.TrimSpace(r.URL.Query().Get("id"))
	init, err := a.service.BeginLogin(r.Context(), id)
	if err != nil {
		writeErrorPage(w, err)
		return
	}

	w.Header().Set("Location", init.URL)
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusTemporaryRedirect)
	_ = json.NewEncoder(w).Encode(init)
}

// handleCallback triggers the orchestrator. Whatever the delivery outcome,
// the browser only ever sees a generic page.
func (a *RESTAdapter) handleCallback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	query := r.URL.Query()
	code := strings.TrimSpace(query.Get("code"))
	state := strings.TrimSpace(query.Get("state"))

	if _, err := a.service.HandleCallback(r.Context(), code, state); err != nil {
		writeErrorPage(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(confirmationPage))
}

func writeErrorPage(w http.ResponseWriter, err error) {
	status := http.StatusBadRequest
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) && richErr.Code != 0 {
		status = richErr.Code
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(errorPage))
}
