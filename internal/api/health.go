package api

import (
	"net/http"

	"go.uber.org/zap"
)

const appName = "apigate"

type HealthResponse struct {
	Status string `json:"status"`
}

type InfoResponse struct {
	AppName string `json:"app_name"`
	Version string `json:"version"`
}

func (a *API) Info() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		returnJson(InfoResponse{AppName: appName, Version: a.version}, w)
	}
}

func (a *API) Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if a.ready != nil {
			if err := a.ready(); err != nil {
				a.log.Warn("health check failed", zap.Error(err))
				returnJsonStatus(http.StatusServiceUnavailable, HealthResponse{Status: "unavailable"}, w)
				return
			}
		}
		returnJson(HealthResponse{Status: "ok"}, w)
	}
}
