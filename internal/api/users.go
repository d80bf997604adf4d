package api

import (
	"net/http"
	"time"

	"git.sr.ht/~jakintosh/apigate/internal/service"
)

// UserResponse never carries the password hash.
type UserResponse struct {
	ID        int64            `json:"id"`
	Username  string           `json:"username"`
	Email     string           `json:"email"`
	FullName  string           `json:"full_name"`
	Role      service.UserRole `json:"role"`
	IsActive  bool             `json:"is_active"`
	CreatedAt string           `json:"created_at"`
	UpdatedAt string           `json:"updated_at"`
}

type UserListResponse struct {
	Users []UserResponse `json:"users"`
	Total int            `json:"total"`
	Page  int            `json:"page"`
	Size  int            `json:"size"`
}

type CreateUserRequest struct {
	Username string            `json:"username"`
	Email    string            `json:"email"`
	FullName string            `json:"full_name"`
	Password string            `json:"password"`
	Role     *service.UserRole `json:"role"`
	IsActive *bool             `json:"is_active"`
}

type UpdateUserRequest struct {
	Username *string           `json:"username"`
	Email    *string           `json:"email"`
	FullName *string           `json:"full_name"`
	Password *string           `json:"password"`
	Role     *service.UserRole `json:"role"`
	IsActive *bool             `json:"is_active"`
}

func toUserResponse(user *service.User) UserResponse {
	return UserResponse{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		FullName:  user.FullName,
		Role:      user.Role,
		IsActive:  user.Active,
		CreatedAt: user.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: user.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func (a *API) ListUsers() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		offset, limit, ok := pageParams(w, r)
		if !ok {
			return
		}

		page, err := a.service.ListUsers(r.Context(), offset, limit)
		if err != nil {
			a.writeError(w, r, err)
			return
		}

		response := UserListResponse{
			Users: make([]UserResponse, 0, len(page.Users)),
			Total: page.Total,
			Page:  pageNumber(page.Offset, page.Limit),
			Size:  len(page.Users),
		}
		for _, user := range page.Users {
			response.Users = append(response.Users, toUserResponse(user))
		}
		returnJson(&response, w)
	}
}

func (a *API) CreateUser() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := CreateUserRequest{}
		if ok := decodeRequest(&req, w, r, a.log); !ok {
			return
		}
		input := service.NewUser{
			Username: req.Username,
			Email:    req.Email,
			FullName: req.FullName,
			Password: req.Password,
			Role:     service.UserRoleUser,
			Active:   true,
		}
		if req.Role != nil {
			input.Role = *req.Role
		}
		if req.IsActive != nil {
			input.Active = *req.IsActive
		}

		user, err := a.service.CreateUser(r.Context(), input)
		if err != nil {
			a.writeError(w, r, err)
			return
		}
		response := toUserResponse(user)
		returnJsonStatus(http.StatusCreated, &response, w)
	}
}

func (a *API) GetUser() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}

		user, err := a.service.GetUser(r.Context(), id)
		if err != nil {
			a.writeError(w, r, err)
			return
		}
		response := toUserResponse(user)
		returnJson(&response, w)
	}
}

func (a *API) UpdateUser() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		req := UpdateUserRequest{}
		if ok := decodeRequest(&req, w, r, a.log); !ok {
			return
		}

		user, err := a.service.UpdateUser(r.Context(), id, service.UserUpdate{
			Username: req.Username,
			Email:    req.Email,
			FullName: req.FullName,
			Role:     req.Role,
			Active:   req.IsActive,
			Password: req.Password,
		})
		if err != nil {
			a.writeError(w, r, err)
			return
		}
		response := toUserResponse(user)
		returnJson(&response, w)
	}
}

func (a *API) DeleteUser() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}

		if err := a.service.DeleteUser(r.Context(), id); err != nil {
			a.writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
