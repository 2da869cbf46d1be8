package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/danielfabbri/logzone-api/internal/errs"
	"github.com/danielfabbri/logzone-api/internal/model"
	"github.com/danielfabbri/logzone-api/internal/repo"
)

type createUserRequest struct {
	Email       string     `json:"email"`
	Name        string     `json:"name"`
	PhoneNumber string     `json:"phoneNumber"`
	Password    string     `json:"password"`
	Role        string     `json:"role"`
	Company     string     `json:"company"`
	BirthDay    *time.Time `json:"birthDay"`
	Avatar      string     `json:"avatar"`
}

func (req *createUserRequest) validate() error {
	switch {
	case req.Email == "" || !strings.Contains(req.Email, "@"):
		return &errs.ValidationError{Field: "email", Detail: "must be a valid address"}
	case req.Name == "":
		return &errs.ValidationError{Field: "name", Detail: "must not be empty"}
	}
	return nil
}

func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := req.validate(); err != nil {
		h.writeError(w, r, err)
		return
	}

	u, err := h.users.Create(r.Context(), &model.User{
		Email:       req.Email,
		Name:        req.Name,
		PhoneNumber: req.PhoneNumber,
		Password:    req.Password,
		Role:        req.Role,
		Company:     req.Company,
		BirthDay:    req.BirthDay,
		Avatar:      req.Avatar,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, u)
}

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	limit := parseInt(r.URL.Query().Get("limit"), 50)
	skip := parseInt(r.URL.Query().Get("skip"), 0)

	items, err := h.users.List(r.Context(), limit, skip)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	total, err := h.users.Count(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if items == nil {
		items = []model.User{}
	}
	writeList(w, items, len(items), total)
}

func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	u, err := h.users.GetByID(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, u)
}

type updateUserRequest struct {
	Email       *string    `json:"email"`
	Name        *string    `json:"name"`
	PhoneNumber *string    `json:"phoneNumber"`
	Password    *string    `json:"password"`
	Role        *string    `json:"role"`
	Company     *string    `json:"company"`
	BirthDay    *time.Time `json:"birthDay"`
	Avatar      *string    `json:"avatar"`
}

func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var req updateUserRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if req.Email != nil && !strings.Contains(*req.Email, "@") {
		h.writeError(w, r, &errs.ValidationError{Field: "email", Detail: "must be a valid address"})
		return
	}

	u, err := h.users.UpdateByID(r.Context(), id, repo.UserPatch{
		Email:       req.Email,
		Name:        req.Name,
		PhoneNumber: req.PhoneNumber,
		Password:    req.Password,
		Role:        req.Role,
		Company:     req.Company,
		BirthDay:    req.BirthDay,
		Avatar:      req.Avatar,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, u)
}

func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.users.DeleteByID(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "user deleted"})
}
