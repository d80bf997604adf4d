package api

import (
	"net/http"
	"strconv"
	"time"

	"git.sr.ht/~jakintosh/apigate/internal/service"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

type ClientAppResponse struct {
	ID          int64  `json:"id"`
	AppID       string `json:"app_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	IsActive    bool   `json:"is_active"`
	CreatedBy   string `json:"created_by"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

// ClientAppSecretResponse is returned only when a secret is minted. The
// secret cannot be retrieved again.
type ClientAppSecretResponse struct {
	ClientAppResponse
	AppSecret string `json:"app_secret"`
}

type ClientAppListResponse struct {
	ClientApps []ClientAppResponse `json:"client_apps"`
	Offset     int                 `json:"offset"`
	Count      int                 `json:"count"`
}

type CreateClientAppRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	IsActive    *bool  `json:"is_active"`
}

type UpdateClientAppRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	IsActive    *bool   `json:"is_active"`
}

func toClientAppResponse(app *service.ClientApp) ClientAppResponse {
	return ClientAppResponse{
		ID:          app.ID,
		AppID:       app.AppID,
		Name:        app.Name,
		Description: app.Description,
		IsActive:    app.Active,
		CreatedBy:   app.CreatedBy,
		CreatedAt:   app.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:   app.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func (a *API) ListClientApps() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		offset, limit, ok := pageParams(w, r)
		if !ok {
			return
		}

		apps, err := a.service.ListClientApps(r.Context(), offset, limit)
		if err != nil {
			a.writeError(w, r, err)
			return
		}

		response := ClientAppListResponse{
			ClientApps: make([]ClientAppResponse, 0, len(apps)),
			Offset:     offset,
			Count:      len(apps),
		}
		for _, app := range apps {
			response.ClientApps = append(response.ClientApps, toClientAppResponse(app))
		}
		returnJson(&response, w)
	}
}

func (a *API) CreateClientApp() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := CreateClientAppRequest{}
		if ok := decodeRequest(&req, w, r, a.log); !ok {
			return
		}
		active := true
		if req.IsActive != nil {
			active = *req.IsActive
		}
		operator, _ := OperatorFromContext(r.Context())

		creds, err := a.service.CreateClientApp(r.Context(), operator, req.Name, req.Description, active)
		if err != nil {
			a.writeError(w, r, err)
			return
		}

		a.log.Info("client app created",
			zap.String("app_id", creds.App.AppID),
			zap.String("operator", operator),
		)
		response := ClientAppSecretResponse{
			ClientAppResponse: toClientAppResponse(creds.App),
			AppSecret:         creds.Secret,
		}
		w.Header().Set("Cache-Control", "no-store")
		returnJsonStatus(http.StatusCreated, &response, w)
	}
}

func (a *API) GetClientApp() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}

		app, err := a.service.GetClientApp(r.Context(), id)
		if err != nil {
			a.writeError(w, r, err)
			return
		}
		response := toClientAppResponse(app)
		returnJson(&response, w)
	}
}

func (a *API) UpdateClientApp() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		req := UpdateClientAppRequest{}
		if ok := decodeRequest(&req, w, r, a.log); !ok {
			return
		}

		app, err := a.service.UpdateClientApp(r.Context(), id, service.ClientAppUpdate{
			Name:        req.Name,
			Description: req.Description,
			Active:      req.IsActive,
		})
		if err != nil {
			a.writeError(w, r, err)
			return
		}
		response := toClientAppResponse(app)
		returnJson(&response, w)
	}
}

func (a *API) ToggleClientApp() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}

		app, err := a.service.ToggleClientApp(r.Context(), id)
		if err != nil {
			a.writeError(w, r, err)
			return
		}

		a.log.Info("client app toggled",
			zap.String("app_id", app.AppID),
			zap.Bool("active", app.Active),
		)
		response := toClientAppResponse(app)
		returnJson(&response, w)
	}
}

func (a *API) RegenerateSecret() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}

		creds, err := a.service.RegenerateSecret(r.Context(), id)
		if err != nil {
			a.writeError(w, r, err)
			return
		}

		a.log.Info("client app secret regenerated", zap.String("app_id", creds.App.AppID))
		response := ClientAppSecretResponse{
			ClientAppResponse: toClientAppResponse(creds.App),
			AppSecret:         creds.Secret,
		}
		w.Header().Set("Cache-Control", "no-store")
		returnJson(&response, w)
	}
}

func (a *API) DeleteClientApp() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}

		if err := a.service.DeleteClientApp(r.Context(), id); err != nil {
			a.writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeDetail(w, http.StatusNotFound, detailNotFound)
		return 0, false
	}
	return id, true
}

// pageParams reads offset (or its alias skip) and limit from the query.
func pageParams(w http.ResponseWriter, r *http.Request) (int, int, bool) {
	query := r.URL.Query()
	values := [2]int{}
	for i, key := range []string{"offset", "limit"} {
		raw := query.Get(key)
		if raw == "" && key == "offset" && query.Has("skip") {
			key = "skip"
			raw = query.Get(key)
		}
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeDetail(w, http.StatusUnprocessableEntity, key+" must be a non-negative integer")
			return 0, 0, false
		}
		values[i] = n
	}
	return values[0], values[1], true
}

// pageNumber is the 1-based page that offset falls on.
func pageNumber(offset int, limit int) int {
	if limit <= 0 {
		return 1
	}
	return offset/limit + 1
}
