package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/usermanager/internal/model"
)

// maxRequestBodyBytes はユーザー作成・更新リクエストのボディ上限。
const maxRequestBodyBytes = 1 << 20

// UserServiceInterface はユーザーハンドラーが必要とするサービスインターフェース。
type UserServiceInterface interface {
	// List は全ユーザーをストアの自然順で返す。
	List(ctx context.Context) ([]model.User, error)
	// Create はユーザーを作成し、IDが採番されたレコードを返す。
	Create(ctx context.Context, in model.UserInput) (*model.User, error)
	// Update は指定IDのユーザーの3フィールドを置き換える。
	Update(ctx context.Context, id string, in model.UserInput) (*model.UpdateResult, error)
	// Delete は指定IDのユーザーを削除する。
	Delete(ctx context.Context, id string) (*model.DeleteResult, error)
}

// UserHandler はユーザー管理のHTTPハンドラー。
type UserHandler struct {
	service UserServiceInterface
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(service UserServiceInterface) *UserHandler {
	return &UserHandler{
		service: service,
	}
}

// userRequest はユーザー作成・更新リクエストのボディ。
// 未知のフィールドは無視し、欠けたフィールドはゼロ値になる。
type userRequest struct {
	Name  string    `json:"name"`
	Email string    `json:"email"`
	Age   model.Age `json:"age"`
}

func (req userRequest) toInput() model.UserInput {
	return model.UserInput{Name: req.Name, Email: req.Email, Age: req.Age}
}

// decodeUserRequest はリクエストボディをuserRequestにデコードする。
// 空のボディは空オブジェクトとして扱い、JSON値の後に続くデータは拒否する。
func decodeUserRequest(w http.ResponseWriter, r *http.Request) (userRequest, *model.APIError) {
	var req userRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes))
	if err := dec.Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			return userRequest{}, nil
		}
		return userRequest{}, bodyError(err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		if err == nil {
			err = errors.New("unexpected data after JSON value")
		}
		return userRequest{}, bodyError(err)
	}
	return req, nil
}

func bodyError(err error) *model.APIError {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return model.NewRequestBodyTooLargeError(tooLarge.Limit)
	}
	return model.NewInvalidRequestBodyError(err.Error())
}

// ListUsers は全ユーザーを返す。
// GET /api/users
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.List(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, users)
}

// CreateUser はユーザーを作成し、作成されたレコードを返す。
// POST /api/users
func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	req, apiErr := decodeUserRequest(w, r)
	if apiErr != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}

	created, err := h.service.Create(r.Context(), req.toInput())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

// UpdateUser は指定IDのユーザーのname、email、ageを置き換え、ストアの更新結果を返す。
// PUT /api/users/{id}
func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	req, apiErr := decodeUserRequest(w, r)
	if apiErr != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}

	result, err := h.service.Update(r.Context(), id, req.toInput())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// DeleteUser は指定IDのユーザーを削除し、ストアの削除結果を返す。
// DELETE /api/users/{id}
func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	result, err := h.service.Delete(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// SetupUserRoutes はユーザー管理関連のルーティングを設定したchi.Routerを返す。
func SetupUserRoutes(service UserServiceInterface) http.Handler {
	r := chi.NewRouter()
	mountUserRoutes(r, NewUserHandler(service))
	return r
}

func mountUserRoutes(r chi.Router, h *UserHandler) {
	r.Route("/api/users", func(r chi.Router) {
		r.Get("/", h.ListUsers)
		r.Post("/", h.CreateUser)

		r.Route("/{id}", func(r chi.Router) {
			r.Put("/", h.UpdateUser)
			r.Delete("/", h.DeleteUser)
		})
	})
}
