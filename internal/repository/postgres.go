package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"ordertracker/internal/model"
)

// ErrNotFound возвращается при отсутствии записи
var ErrNotFound = errors.New("record not found")

// ErrInvalidSearchField возвращается при поиске по неизвестному полю
var ErrInvalidSearchField = errors.New("invalid search field")

// ErrAlreadyDeleted возвращается при попытке удалить уже удалённую запись
var ErrAlreadyDeleted = errors.New("record already deleted")

// ErrNotDeleted возвращается при попытке восстановить неудалённую запись
var ErrNotDeleted = errors.New("record is not deleted")

// searchColumns содержит допустимые поля поиска и их SQL-выражения
// Дата поставки сравнивается в строковом виде, а не как диапазон дат,
// поэтому все выражения приводятся к тексту
var searchColumns = map[string]string{
	"product_name":  "product_name",
	"order_number":  "order_number",
	"request_code":  "request_code",
	"delivery_date": "delivery_date::text",
}

// productColumns — список колонок для выборки записи товара
const productColumns = `id, product_code, product_name, request_code, order_number, department,
		delivery_date::text, observation, created_at, status, is_delivered, deleted_at`

// ProductRepository реализует доступ к таблице products
type ProductRepository struct {
	db *sql.DB
}

// NewProductRepository создает новый репозиторий товаров
func NewProductRepository(db *sql.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// scanProduct читает одну запись товара из строки результата
func scanProduct(row interface {
	Scan(dest ...interface{}) error
}) (*model.Product, error) {
	var p model.Product
	err := row.Scan(&p.ID, &p.ProductCode, &p.ProductName, &p.RequestCode, &p.OrderNumber,
		&p.Department, &p.DeliveryDate, &p.Observation, &p.CreatedAt, &p.Status,
		&p.IsDelivered, &p.DeletedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// CreateProduct добавляет новый товар в таблицу products
// Статус вычисляется вызывающей стороной, id и created_at назначает БД
func (r *ProductRepository) CreateProduct(ctx context.Context, form model.ProductForm, st model.Status) (*model.Product, error) {
	query := `INSERT INTO products(product_code, product_name, request_code, order_number, department, delivery_date, observation, status)
		VALUES($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, is_delivered`
	var id string
	var createdAt time.Time
	var isDelivered bool
	err := r.db.QueryRowContext(ctx, query,
		form.ProductCode, form.ProductName, form.RequestCode, form.OrderNumber,
		form.Department, form.DeliveryDate, form.Observation, st).
		Scan(&id, &createdAt, &isDelivered)
	if err != nil {
		return nil, fmt.Errorf("failed to insert product: %w", err)
	}
	return &model.Product{
		ID:           id,
		ProductCode:  form.ProductCode,
		ProductName:  form.ProductName,
		RequestCode:  form.RequestCode,
		OrderNumber:  form.OrderNumber,
		Department:   form.Department,
		DeliveryDate: form.DeliveryDate,
		Observation:  form.Observation,
		CreatedAt:    createdAt,
		Status:       st,
		IsDelivered:  isDelivered,
	}, nil
}

// GetProduct возвращает товар по id
func (r *ProductRepository) GetProduct(ctx context.Context, id string) (*model.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id=$1`
	p, err := scanProduct(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return p, nil
}

// ListProducts возвращает товары, отсортированные по времени создания по убыванию
// При непустом search добавляется регистронезависимый поиск подстроки по
// одному из допустимых полей (ILIKE), иначе возвращаются все записи
func (r *ProductRepository) ListProducts(ctx context.Context, field, search string) ([]model.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products`
	var args []interface{}
	if search != "" {
		col, ok := searchColumns[field]
		if !ok {
			return nil, ErrInvalidSearchField
		}
		query += ` WHERE ` + col + ` ILIKE $1`
		args = append(args, "%"+search+"%")
	}
	query += ` ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select products: %w", err)
	}
	defer rows.Close()
	var products []model.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate products: %w", err)
	}
	return products, nil
}

// UpdateObservation обновляет примечание товара
func (r *ProductRepository) UpdateObservation(ctx context.Context, id string, observation *string) (*model.Product, error) {
	return r.mutate(ctx, id, func(p *model.Product) error {
		p.Observation = observation
		return nil
	}, `UPDATE products SET observation=$1 WHERE id=$2`, observation)
}

// UpdateDeliveryDate записывает новую дату поставки и пересчитанный статус одним UPDATE
func (r *ProductRepository) UpdateDeliveryDate(ctx context.Context, id, date string, st model.Status) (*model.Product, error) {
	return r.mutate(ctx, id, func(p *model.Product) error {
		p.DeliveryDate = date
		p.Status = st
		return nil
	}, `UPDATE products SET delivery_date=$1, status=$2 WHERE id=$3`, date, st)
}

// SetDelivered записывает флаг доставки и пересчитанный статус
func (r *ProductRepository) SetDelivered(ctx context.Context, id string, delivered bool, st model.Status) (*model.Product, error) {
	return r.mutate(ctx, id, func(p *model.Product) error {
		p.IsDelivered = delivered
		p.Status = st
		return nil
	}, `UPDATE products SET is_delivered=$1, status=$2 WHERE id=$3`, delivered, st)
}

// SoftDeleteProduct помечает запись удалённой: статус deleted и отметка времени
// Дата поставки и флаг доставки не меняются, запись остаётся в таблице
func (r *ProductRepository) SoftDeleteProduct(ctx context.Context, id string, deletedAt time.Time) (*model.Product, error) {
	return r.mutate(ctx, id, func(p *model.Product) error {
		if p.Status == model.StatusDeleted {
			return ErrAlreadyDeleted
		}
		p.Status = model.StatusDeleted
		p.DeletedAt = &deletedAt
		return nil
	}, `UPDATE products SET status=$1, deleted_at=$2 WHERE id=$3`, model.StatusDeleted, deletedAt)
}

// RestoreProduct снимает отметку удаления и записывает пересчитанный статус
func (r *ProductRepository) RestoreProduct(ctx context.Context, id string, st model.Status) (*model.Product, error) {
	return r.mutate(ctx, id, func(p *model.Product) error {
		if p.Status != model.StatusDeleted {
			return ErrNotDeleted
		}
		p.Status = st
		p.DeletedAt = nil
		return nil
	}, `UPDATE products SET status=$1, deleted_at=NULL WHERE id=$2`, st)
}

// mutate выполняет изменение одной записи в транзакции с блокировкой:
// 1. выборка записи с FOR UPDATE
// 2. проверка состояния и применение изменения к локальной копии (apply)
// 3. UPDATE по переданному запросу, id подставляется последним аргументом
// Возвращает запись в её новом виде
func (r *ProductRepository) mutate(ctx context.Context, id string, apply func(*model.Product) error, query string, args ...interface{}) (*model.Product, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()
	// выборка с блокировкой
	selectQuery := `SELECT ` + productColumns + ` FROM products WHERE id=$1 FOR UPDATE`
	p, err := scanProduct(tx.QueryRowContext(ctx, selectQuery, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to select product for update: %w", err)
	}
	if err := apply(p); err != nil {
		return nil, err
	}
	args = append(args, id)
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("failed to update product: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return p, nil
}
