package api

import (
	"net/http"
	"time"

	"git.sr.ht/~jakintosh/apigate/internal/service"
)

type ItemResponse struct {
	ID          int64              `json:"id"`
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Price       float64            `json:"price"`
	Status      service.ItemStatus `json:"status"`
	CreatedBy   string             `json:"created_by"`
	CreatedAt   string             `json:"created_at"`
	UpdatedAt   string             `json:"updated_at"`
}

type ItemListResponse struct {
	Items []ItemResponse `json:"items"`
	Total int            `json:"total"`
	Page  int            `json:"page"`
	Size  int            `json:"size"`
}

type CreateItemRequest struct {
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Price       float64             `json:"price"`
	Status      *service.ItemStatus `json:"status"`
}

type UpdateItemRequest struct {
	Name        *string             `json:"name"`
	Description *string             `json:"description"`
	Price       *float64            `json:"price"`
	Status      *service.ItemStatus `json:"status"`
}

func toItemResponse(item *service.Item) ItemResponse {
	return ItemResponse{
		ID:          item.ID,
		Name:        item.Name,
		Description: item.Description,
		Price:       item.Price,
		Status:      item.Status,
		CreatedBy:   item.CreatedBy,
		CreatedAt:   item.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:   item.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func (a *API) ListItems() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		offset, limit, ok := pageParams(w, r)
		if !ok {
			return
		}
		filter := service.ItemFilter{Offset: offset, Limit: limit}
		if raw := r.URL.Query().Get("status"); raw != "" {
			status, err := service.ParseItemStatus(raw)
			if err != nil {
				a.writeError(w, r, err)
				return
			}
			filter.Status = &status
		}

		page, err := a.service.ListItems(r.Context(), filter)
		if err != nil {
			a.writeError(w, r, err)
			return
		}

		response := ItemListResponse{
			Items: make([]ItemResponse, 0, len(page.Items)),
			Total: page.Total,
			Page:  pageNumber(page.Offset, page.Limit),
			Size:  len(page.Items),
		}
		for _, item := range page.Items {
			response.Items = append(response.Items, toItemResponse(item))
		}
		returnJson(&response, w)
	}
}

func (a *API) CreateItem() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		client, ok := ClientFromContext(r.Context())
		if !ok {
			writeDetail(w, http.StatusUnauthorized, detailBearerRequired)
			return
		}
		req := CreateItemRequest{}
		if ok := decodeRequest(&req, w, r, a.log); !ok {
			return
		}
		status := service.ItemStatusActive
		if req.Status != nil {
			status = *req.Status
		}

		item, err := a.service.CreateItem(r.Context(), client, req.Name, req.Description, req.Price, status)
		if err != nil {
			a.writeError(w, r, err)
			return
		}
		response := toItemResponse(item)
		returnJsonStatus(http.StatusCreated, &response, w)
	}
}

func (a *API) GetItem() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}

		item, err := a.service.GetItem(r.Context(), id)
		if err != nil {
			a.writeError(w, r, err)
			return
		}
		response := toItemResponse(item)
		returnJson(&response, w)
	}
}

func (a *API) UpdateItem() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		req := UpdateItemRequest{}
		if ok := decodeRequest(&req, w, r, a.log); !ok {
			return
		}

		item, err := a.service.UpdateItem(r.Context(), id, service.ItemUpdate{
			Name:        req.Name,
			Description: req.Description,
			Price:       req.Price,
			Status:      req.Status,
		})
		if err != nil {
			a.writeError(w, r, err)
			return
		}
		response := toItemResponse(item)
		returnJson(&response, w)
	}
}

func (a *API) DeleteItem() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}

		if err := a.service.DeleteItem(r.Context(), id); err != nil {
			a.writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
