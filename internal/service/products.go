package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"ordertracker/internal/model"
	"ordertracker/internal/status"
)

// Repo определяет интерфейс репозитория для операций с товарами
// Реализация может быть на основе базы данных Postgres
type Repo interface {
	CreateProduct(ctx context.Context, form model.ProductForm, st model.Status) (*model.Product, error)
	GetProduct(ctx context.Context, id string) (*model.Product, error)
	ListProducts(ctx context.Context, field, search string) ([]model.Product, error)
	UpdateObservation(ctx context.Context, id string, observation *string) (*model.Product, error)
	UpdateDeliveryDate(ctx context.Context, id, date string, st model.Status) (*model.Product, error)
	SetDelivered(ctx context.Context, id string, delivered bool, st model.Status) (*model.Product, error)
	SoftDeleteProduct(ctx context.Context, id string, deletedAt time.Time) (*model.Product, error)
	RestoreProduct(ctx context.Context, id string, st model.Status) (*model.Product, error)
}

// Cache определяет интерфейс кэширования результатов чтения (Redis)
type Cache interface {
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, error)
	Invalidate(ctx context.Context, key string) error
}

// Notifier определяет интерфейс публикации событий изменения коллекции (NATS)
// Опубликованная запись служит одновременно событием аудита и сигналом
// «коллекция изменилась» для подписанных клиентов
type Notifier interface {
	PublishChange(data []byte) error
}

// ErrMissingField возвращается при отсутствии обязательного поля формы
var ErrMissingField = errors.New("missing required field")

// cacheTTL задаёт время жизни записей в кэше, по умолчанию 1 минута или из REDIS_TTL
var cacheTTL = time.Minute

func init() {
	if v := os.Getenv("REDIS_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cacheTTL = d
		}
	}
}

// ProductService реализует бизнес-логику жизненного цикла товара:
// - валидация входных данных
// - вычисление статуса через пакет status при каждой значимой записи
// - вызовы репозитория
// - кэширование чтений и инвалидирование при изменениях
// - публикация события изменения после каждой успешной мутации
// Текущее время берётся из поля now, чтобы тесты были детерминированными
type ProductService struct {
	repo     Repo
	cache    Cache
	notifier Notifier
	now      func() time.Time
}

// NewProductService создаёт новый сервис товаров
func NewProductService(r Repo, c Cache, n Notifier) *ProductService {
	return &ProductService{repo: r, cache: c, notifier: n, now: time.Now}
}

// validateForm проверяет обязательные поля формы создания
// Примечание (observation) — единственное необязательное поле
func validateForm(form model.ProductForm) error {
	required := []struct {
		name  string
		value string
	}{
		{"product_code", form.ProductCode},
		{"product_name", form.ProductName},
		{"request_code", form.RequestCode},
		{"order_number", form.OrderNumber},
		{"department", form.Department},
		{"delivery_date", form.DeliveryDate},
	}
	for _, f := range required {
		if f.value == "" {
			return fmt.Errorf("%w: %s", ErrMissingField, f.name)
		}
	}
	return nil
}

// Create создаёт новый товар:
// 1. Валидирует обязательные поля и дату поставки
// 2. Вычисляет начальный статус из даты поставки при delivered=false
// 3. Вставляет запись через репозиторий
// 4. Инвалидирует кэш и публикует событие изменения
func (s *ProductService) Create(ctx context.Context, form model.ProductForm) (*model.Product, error) {
	if err := validateForm(form); err != nil {
		return nil, err
	}
	date, err := status.ParseDeliveryDate(form.DeliveryDate)
	if err != nil {
		return nil, err
	}
	st := status.Derive(date, false, s.now())
	product, err := s.repo.CreateProduct(ctx, form, st)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, product.ID)
	s.publish(product)
	return product, nil
}

// Get возвращает товар по id:
// 1. Пытается получить из кэша Redis
// 2. При промахе кэша запрашивает из репозитория и кэширует результат
func (s *ProductService) Get(ctx context.Context, id string) (*model.Product, error) {
	key := "product:" + id
	if bytes, err := s.cache.Get(ctx, key); err == nil {
		var p model.Product
		_ = json.Unmarshal(bytes, &p)
		return &p, nil
	}
	product, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	data, _ := json.Marshal(product)
	_ = s.cache.Set(ctx, key, data, cacheTTL)
	return product, nil
}

// List возвращает товары по активному поисковому запросу
// Кэшируется только полный список без поиска: поисковые выборки
// произвольны и всегда идут в репозиторий
func (s *ProductService) List(ctx context.Context, field, search string) ([]model.Product, error) {
	if search != "" {
		return s.repo.ListProducts(ctx, field, search)
	}
	if bytes, err := s.cache.Get(ctx, "products:list"); err == nil {
		var products []model.Product
		_ = json.Unmarshal(bytes, &products)
		return products, nil
	}
	products, err := s.repo.ListProducts(ctx, field, search)
	if err != nil {
		return nil, err
	}
	data, _ := json.Marshal(products)
	_ = s.cache.Set(ctx, "products:list", data, cacheTTL)
	return products, nil
}

// UpdateObservation обновляет примечание товара, текст не валидируется
func (s *ProductService) UpdateObservation(ctx context.Context, id string, observation *string) (*model.Product, error) {
	product, err := s.repo.UpdateObservation(ctx, id, observation)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, id)
	s.publish(product)
	return product, nil
}

// UpdateDeliveryDate записывает новую дату поставки и пересчитанный статус:
// 1. Валидирует дату
// 2. Читает запись, чтобы учесть текущий флаг доставки
// 3. Пересчитывает статус и пишет дату вместе со статусом одним изменением
// Для логически удалённой записи статус остаётся deleted, дата сохраняется,
// актуальный статус будет вычислен при восстановлении
func (s *ProductService) UpdateDeliveryDate(ctx context.Context, id, deliveryDate string) (*model.Product, error) {
	date, err := status.ParseDeliveryDate(deliveryDate)
	if err != nil {
		return nil, err
	}
	current, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	st := status.Derive(date, current.IsDelivered, s.now())
	if current.Status == model.StatusDeleted {
		st = model.StatusDeleted
	}
	product, err := s.repo.UpdateDeliveryDate(ctx, id, deliveryDate, st)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, id)
	s.publish(product)
	return product, nil
}

// ToggleDelivered переключает флаг доставки и пересчитывает статус
// из сохранённой даты поставки и нового значения флага
func (s *ProductService) ToggleDelivered(ctx context.Context, id string) (*model.Product, error) {
	current, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	date, err := status.ParseDeliveryDate(current.DeliveryDate)
	if err != nil {
		return nil, fmt.Errorf("stored delivery date is not parseable: %w", err)
	}
	delivered := !current.IsDelivered
	st := status.Derive(date, delivered, s.now())
	if current.Status == model.StatusDeleted {
		// удаление имеет приоритет в хранилище, флаг сохраняется под ним
		st = model.StatusDeleted
	}
	product, err := s.repo.SetDelivered(ctx, id, delivered, st)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, id)
	s.publish(product)
	return product, nil
}

// SoftDelete помечает товар удалённым: статус deleted и отметка текущего времени
// Подтверждение пользователя обязано произойти до вызова (см. транспортный слой)
func (s *ProductService) SoftDelete(ctx context.Context, id string) (*model.Product, error) {
	product, err := s.repo.SoftDeleteProduct(ctx, id, s.now())
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, id)
	s.publish(product)
	return product, nil
}

// Restore восстанавливает логически удалённый товар:
// 1. Читает запись и пересчитывает статус из сохранённой даты и флага
//    на текущую дату (статус до удаления не переиспользуется)
// 2. Снимает отметку удаления
func (s *ProductService) Restore(ctx context.Context, id string) (*model.Product, error) {
	current, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	date, err := status.ParseDeliveryDate(current.DeliveryDate)
	if err != nil {
		return nil, fmt.Errorf("stored delivery date is not parseable: %w", err)
	}
	st := status.Derive(date, current.IsDelivered, s.now())
	product, err := s.repo.RestoreProduct(ctx, id, st)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, id)
	s.publish(product)
	return product, nil
}

// invalidate удаляет из кэша список и конкретный товар
func (s *ProductService) invalidate(ctx context.Context, id string) {
	_ = s.cache.Invalidate(ctx, "products:list")
	_ = s.cache.Invalidate(ctx, "product:"+id)
}

// publish отправляет изменённую запись как событие изменения коллекции
// Ошибка публикации не отменяет уже выполненную мутацию и только логируется
func (s *ProductService) publish(product *model.Product) {
	data, _ := json.Marshal(product)
	if err := s.notifier.PublishChange(data); err != nil {
		log.Printf("failed to publish change event for product %s: %v", product.ID, err)
	}
}
