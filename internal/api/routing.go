package api

import (
	"net/http"

	"github.com/gorilla/mux"
)

func (a *API) Router() http.Handler {
	r := mux.NewRouter()
	r.Use(a.recoverer, a.requestLogger)
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeDetail(w, http.StatusNotFound, detailNotFound)
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeDetail(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	r.HandleFunc("/health", a.Health()).Methods(http.MethodGet)
	r.HandleFunc("/info", a.Info()).Methods(http.MethodGet)
	r.Handle("/metrics", a.metricsHandler()).Methods(http.MethodGet)

	// credential exchange is the only unauthenticated API route
	r.HandleFunc("/api/v1/auth/token", a.IssueToken()).Methods(http.MethodPost)

	v1 := r.PathPrefix("/api/v1").Subrouter()
	v1.Use(a.requireClient)
	// mux skips subrouter middleware when nothing matches, so the fallbacks
	// authenticate on their own
	v1.NotFoundHandler = a.requireClient(r.NotFoundHandler)
	v1.MethodNotAllowedHandler = a.requireClient(r.MethodNotAllowedHandler)
	v1.HandleFunc("/auth/me", a.Me()).Methods(http.MethodGet)
	v1.HandleFunc("/items", a.ListItems()).Methods(http.MethodGet)
	v1.HandleFunc("/items", a.CreateItem()).Methods(http.MethodPost)
	v1.HandleFunc("/items/{id:[0-9]+}", a.GetItem()).Methods(http.MethodGet)
	v1.HandleFunc("/items/{id:[0-9]+}", a.UpdateItem()).Methods(http.MethodPut, http.MethodPatch)
	v1.HandleFunc("/items/{id:[0-9]+}", a.DeleteItem()).Methods(http.MethodDelete)
	v1.HandleFunc("/users", a.ListUsers()).Methods(http.MethodGet)
	v1.HandleFunc("/users", a.CreateUser()).Methods(http.MethodPost)
	v1.HandleFunc("/users/{id:[0-9]+}", a.GetUser()).Methods(http.MethodGet)
	v1.HandleFunc("/users/{id:[0-9]+}", a.UpdateUser()).Methods(http.MethodPut, http.MethodPatch)
	v1.HandleFunc("/users/{id:[0-9]+}", a.DeleteUser()).Methods(http.MethodDelete)

	admin := r.PathPrefix("/admin/client-apps").Subrouter()
	admin.Use(a.requireOperator)
	admin.HandleFunc("", a.ListClientApps()).Methods(http.MethodGet)
	admin.HandleFunc("", a.CreateClientApp()).Methods(http.MethodPost)
	admin.HandleFunc("/{id:[0-9]+}", a.GetClientApp()).Methods(http.MethodGet)
	admin.HandleFunc("/{id:[0-9]+}", a.UpdateClientApp()).Methods(http.MethodPut, http.MethodPatch)
	admin.HandleFunc("/{id:[0-9]+}", a.DeleteClientApp()).Methods(http.MethodDelete)
	admin.HandleFunc("/{id:[0-9]+}/toggle", a.ToggleClientApp()).Methods(http.MethodPost)
	admin.HandleFunc("/{id:[0-9]+}/regenerate-secret", a.RegenerateSecret()).Methods(http.MethodPost)

	return r
}
