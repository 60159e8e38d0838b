// Package httpapi exposes the portal's REST API.
package httpapi

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	app "github.com/egov-platform/citizen-services/internal/app"
	"github.com/egov-platform/citizen-services/internal/app/metrics"
	"github.com/egov-platform/citizen-services/internal/errors"
)

// handler bundles HTTP endpoints for the application services.
type handler struct {
	app   *app.Application
	audit *auditLog
}

// NewHandler returns a router exposing the REST API. The caller is expected
// to wrap it with the auth middleware; signup, login, refresh, health and
// metrics must be on the skip list. auditFile, when non-empty, mirrors the
// request audit trail to a JSON-lines file.
func NewHandler(application *app.Application, auditFile string) http.Handler {
	var sink auditSink
	if auditFile != "" {
		sink = newFileSink(auditFile)
	}
	h := &handler{app: application, audit: newAuditLog(0, sink)}

	r := mux.NewRouter()

	r.HandleFunc("/users/signup", h.signup).Methods(http.MethodPost)
	r.HandleFunc("/users/login", h.login).Methods(http.MethodPost)
	r.HandleFunc("/users/token/refresh", h.refresh).Methods(http.MethodGet)
	r.HandleFunc("/users/change-password", h.changePassword).Methods(http.MethodPost)
	r.HandleFunc("/users/me", h.deleteAccount).Methods(http.MethodDelete)

	r.HandleFunc("/agencies", h.listAgencies).Methods(http.MethodGet)
	r.HandleFunc("/services", h.listServices).Methods(http.MethodGet)
	r.HandleFunc("/services/{id}", h.getService).Methods(http.MethodGet)

	r.HandleFunc("/service-requests", h.listRequests).Methods(http.MethodGet)
	r.HandleFunc("/service-requests", h.createRequest).Methods(http.MethodPost)
	r.HandleFunc("/service-requests/{id}", h.getRequest).Methods(http.MethodGet)
	r.HandleFunc("/service-requests/{id}", h.updateRequest).Methods(http.MethodPut)
	r.HandleFunc("/service-requests/{id}", h.deleteRequest).Methods(http.MethodDelete)
	r.HandleFunc("/service-requests/{id}/pay", h.payRequest).Methods(http.MethodPost)

	for _, path := range []string{"/bank-account", "/credit-card"} {
		r.HandleFunc(path, h.getInstrument).Methods(http.MethodGet)
		r.HandleFunc(path, h.createInstrument).Methods(http.MethodPost)
		r.HandleFunc(path, h.updateInstrument).Methods(http.MethodPut)
		r.HandleFunc(path, h.deleteInstrument).Methods(http.MethodDelete)
	}

	r.HandleFunc("/appointments", h.listAppointments).Methods(http.MethodGet)
	r.HandleFunc("/appointments", h.createAppointment).Methods(http.MethodPost)
	r.HandleFunc("/appointments/{id}", h.getAppointment).Methods(http.MethodGet)
	r.HandleFunc("/appointments/{id}", h.deleteAppointment).Methods(http.MethodDelete)

	r.HandleFunc("/documents", h.listDocuments).Methods(http.MethodGet)
	r.HandleFunc("/documents", h.createDocument).Methods(http.MethodPost)
	r.HandleFunc("/documents/{id}", h.deleteDocument).Methods(http.MethodDelete)

	r.HandleFunc("/fines", h.listFines).Methods(http.MethodGet)
	r.HandleFunc("/fines/pay", h.payFines).Methods(http.MethodPost)

	r.HandleFunc("/health", h.health).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		writeError(w, errors.NotFound("route"))
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusMethodNotAllowed)
	})

	return h.audit.middleware(stripTrailingSlash(r))
}

// stripTrailingSlash makes routes trailing-slash tolerant without redirects.
func stripTrailingSlash(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(r.URL.Path) > 1 && strings.HasSuffix(r.URL.Path, "/") {
			r.URL.Path = strings.TrimRight(r.URL.Path, "/")
		}
		next.ServeHTTP(w, r)
	})
}

func pathVar(r *http.Request, name string) string {
	return mux.Vars(r)[name]
}

func decodeJSON(body io.ReadCloser, dst interface{}) error {
	defer body.Close()
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		return errors.Validation("invalid JSON body")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	message := "internal server error"
	if serviceErr := errors.GetServiceError(err); serviceErr != nil {
		status = serviceErr.HTTPStatus
		message = serviceErr.Message
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
