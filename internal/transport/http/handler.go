package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"ordertracker/internal/mirror"
	"ordertracker/internal/model"
	"ordertracker/internal/repository"
	"ordertracker/internal/service"
	"ordertracker/internal/status"
)

// ProductService задаёт интерфейс бизнес-логики для HTTP-слоя
// Методы соответствуют операциям жизненного цикла товара
type ProductService interface {
	Create(ctx context.Context, form model.ProductForm) (*model.Product, error)
	Get(ctx context.Context, id string) (*model.Product, error)
	List(ctx context.Context, field, search string) ([]model.Product, error)
	UpdateObservation(ctx context.Context, id string, observation *string) (*model.Product, error)
	UpdateDeliveryDate(ctx context.Context, id, deliveryDate string) (*model.Product, error)
	ToggleDelivered(ctx context.Context, id string) (*model.Product, error)
	SoftDelete(ctx context.Context, id string) (*model.Product, error)
	Restore(ctx context.Context, id string) (*model.Product, error)
}

// Handler содержит зависимости и реализует HTTP-эндпоинты для операций с товарами
type Handler struct {
	srv ProductService
}

// NewHandler создаёт новый HTTP Handler
func NewHandler(srv ProductService) *Handler {
	return &Handler{srv: srv}
}

// RegisterRoutes регистрирует маршруты API
func (h *Handler) RegisterRoutes(r *mux.Router) {
	// Эндпоинты для проверки здоровья и готовности сервиса
	r.HandleFunc("/healthz", h.Healthz).Methods("GET")
	r.HandleFunc("/readyz", h.Readyz).Methods("GET")
	r.HandleFunc("/product/create", h.Create).Methods("POST")
	r.HandleFunc("/product/get", h.Get).Methods("GET")
	r.HandleFunc("/products/list", h.List).Methods("GET")
	r.HandleFunc("/product/observation", h.UpdateObservation).Methods("PATCH")
	r.HandleFunc("/product/delivery-date", h.UpdateDeliveryDate).Methods("PATCH")
	r.HandleFunc("/product/delivered", h.ToggleDelivered).Methods("PATCH")
	r.HandleFunc("/product/remove", h.Remove).Methods("DELETE")
	r.HandleFunc("/product/restore", h.Restore).Methods("PATCH")
}

// ErrorResponse модель ошибки API
type ErrorResponse struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details"`
}

func writeError(w http.ResponseWriter, status int, resp ErrorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// writeServiceError транслирует ошибку сервиса в HTTP-статус:
// неизвестный id — 404, ошибки валидации и состояния — 400, остальное — 500
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, ErrorResponse{3, "errors.common.notFound", map[string]interface{}{}})
	case errors.Is(err, repository.ErrInvalidSearchField),
		errors.Is(err, repository.ErrAlreadyDeleted),
		errors.Is(err, repository.ErrNotDeleted),
		errors.Is(err, status.ErrInvalidDate),
		errors.Is(err, service.ErrMissingField):
		writeError(w, http.StatusBadRequest, ErrorResponse{1, err.Error(), map[string]interface{}{}})
	default:
		writeError(w, http.StatusInternalServerError, ErrorResponse{1, err.Error(), map[string]interface{}{}})
	}
}

// Create обрабатывает POST /product/create
// 1. Декодирует тело запроса в форму товара
// 2. Вызывает метод сервиса Create (валидация полей и даты происходит там)
// 3. При успехе возвращает JSON созданной записи
// При ошибке данные формы остаются у клиента, состояние не меняется
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var form model.ProductForm
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponse{1, "invalid request body", map[string]interface{}{}})
		return
	}
	product, err := h.srv.Create(r.Context(), form)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, product)
}

// Get обрабатывает GET /product/get
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, ErrorResponse{1, "invalid id", map[string]interface{}{}})
		return
	}
	product, err := h.srv.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, product)
}

// List обрабатывает GET /products/list
// 1. Читает параметры field и search (поиск подстроки по одному полю)
// 2. Читает опциональный параметр view (фильтр отображения, по умолчанию all,
//    поэтому удалённые записи скрыты, пока их не запросили явно)
// 3. Возвращает JSON с массивом products и числом записей
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	field := r.URL.Query().Get("field")
	if field == "" {
		field = "product_name"
	}
	search := r.URL.Query().Get("search")
	view := mirror.ViewAll
	if v := r.URL.Query().Get("view"); v != "" {
		view = mirror.View(v)
		if !mirror.ValidView(view) {
			writeError(w, http.StatusBadRequest, ErrorResponse{1, "invalid view", map[string]interface{}{}})
			return
		}
	}
	products, err := h.srv.List(r.Context(), field, search)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	filtered := mirror.FilterByView(view, products)
	resp := struct {
		Total    int             `json:"total"`
		Products []model.Product `json:"products"`
	}{Total: len(filtered), Products: filtered}
	writeJSON(w, resp)
}

// UpdateObservation обрабатывает PATCH /product/observation
// Тело запроса содержит поле observation, текст не валидируется
func (h *Handler) UpdateObservation(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, ErrorResponse{1, "invalid id", map[string]interface{}{}})
		return
	}
	var req struct {
		Observation *string `json:"observation"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponse{1, "invalid request body", map[string]interface{}{}})
		return
	}
	product, err := h.srv.UpdateObservation(r.Context(), id, req.Observation)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, product)
}

// UpdateDeliveryDate обрабатывает PATCH /product/delivery-date
// Тело запроса содержит поле deliveryDate в формате YYYY-MM-DD
// Статус пересчитывается сервисом и пишется вместе с датой
func (h *Handler) UpdateDeliveryDate(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, ErrorResponse{1, "invalid id", map[string]interface{}{}})
		return
	}
	var req struct {
		DeliveryDate string `json:"deliveryDate"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponse{1, "invalid request body", map[string]interface{}{}})
		return
	}
	product, err := h.srv.UpdateDeliveryDate(r.Context(), id, req.DeliveryDate)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, product)
}

// ToggleDelivered обрабатывает PATCH /product/delivered — переключение флага доставки
func (h *Handler) ToggleDelivered(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, ErrorResponse{1, "invalid id", map[string]interface{}{}})
		return
	}
	product, err := h.srv.ToggleDelivered(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, product)
}

// Remove обрабатывает DELETE /product/remove — логическое удаление
// Требует параметр confirm=true: подтверждение обязано произойти до
// выполнения необратимого для интерфейса действия
func (h *Handler) Remove(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, ErrorResponse{1, "invalid id", map[string]interface{}{}})
		return
	}
	if r.URL.Query().Get("confirm") != "true" {
		writeError(w, http.StatusBadRequest, ErrorResponse{1, "removal requires confirm=true", map[string]interface{}{}})
		return
	}
	product, err := h.srv.SoftDelete(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, product)
}

// Restore обрабатывает PATCH /product/restore — восстановление удалённой записи
func (h *Handler) Restore(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, ErrorResponse{1, "invalid id", map[string]interface{}{}})
		return
	}
	product, err := h.srv.Restore(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, product)
}

// Healthz возвращает статус работы сервиса
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// Readyz возвращает готовность сервиса
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ready"}`))
}

// parseID извлекает непустой идентификатор записи из query parameters
func parseID(r *http.Request) (string, bool) {
	id := r.URL.Query().Get("id")
	return id, id != ""
}
