package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"ordertracker/internal/model"
)

// newMock создает mock базы данных и репозиторий поверх неё
func newMock(t *testing.T) (*ProductRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	return NewProductRepository(db), mock, func() { db.Close() }
}

// productRows возвращает набор колонок выборки товара
func productRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "product_code", "product_name", "request_code", "order_number",
		"department", "delivery_date", "observation", "created_at", "status",
		"is_delivered", "deleted_at",
	})
}

var testCreatedAt = time.Date(2025, time.May, 20, 10, 0, 0, 0, time.UTC)

// addProduct добавляет строку товара в набор
func addProduct(rows *sqlmock.Rows, id string, st model.Status, deletedAt interface{}) *sqlmock.Rows {
	return rows.AddRow(id, "PC-1", "Hex bolt", "RQ-1", "ORD-1", "Maintenance",
		"2025-06-04", nil, testCreatedAt, string(st), false, deletedAt)
}

const selectQuery = `SELECT ` + productColumns + ` FROM products WHERE id=$1`
const selectForUpdateQuery = selectQuery + ` FOR UPDATE`

// TestCreateProduct проверяет вставку товара: id, created_at и is_delivered
// назначает база, остальные поля берутся из формы
func TestCreateProduct(t *testing.T) {
	repo, mock, cleanup := newMock(t)
	defer cleanup()
	form := model.ProductForm{
		ProductCode: "PC-1", ProductName: "Hex bolt", RequestCode: "RQ-1",
		OrderNumber: "ORD-1", Department: "Maintenance", DeliveryDate: "2025-06-04",
	}
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO products(product_code, product_name, request_code, order_number, department, delivery_date, observation, status)`)).
		WithArgs("PC-1", "Hex bolt", "RQ-1", "ORD-1", "Maintenance", "2025-06-04", nil, string(model.StatusUpcoming)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "is_delivered"}).
			AddRow("id-1", testCreatedAt, false))

	p, err := repo.CreateProduct(context.Background(), form, model.StatusUpcoming)
	if err != nil {
		t.Fatalf("CreateProduct failed: %v", err)
	}
	if p.ID != "id-1" || p.Status != model.StatusUpcoming || !p.CreatedAt.Equal(testCreatedAt) {
		t.Fatalf("unexpected product: %+v", p)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

// TestGetProduct проверяет выборку по id и отображение sql.ErrNoRows в ErrNotFound
func TestGetProduct(t *testing.T) {
	repo, mock, cleanup := newMock(t)
	defer cleanup()
	mock.ExpectQuery(regexp.QuoteMeta(selectQuery)).
		WithArgs("id-1").
		WillReturnRows(addProduct(productRows(), "id-1", model.StatusUpcoming, nil))

	p, err := repo.GetProduct(context.Background(), "id-1")
	if err != nil {
		t.Fatalf("GetProduct failed: %v", err)
	}
	if p.ProductName != "Hex bolt" || p.Status != model.StatusUpcoming || p.DeletedAt != nil {
		t.Fatalf("unexpected product: %+v", p)
	}

	mock.ExpectQuery(regexp.QuoteMeta(selectQuery)).
		WithArgs("missing").
		WillReturnRows(productRows())
	if _, err := repo.GetProduct(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

// TestListProducts проверяет выборку всех записей с сортировкой по created_at
func TestListProducts(t *testing.T) {
	repo, mock, cleanup := newMock(t)
	defer cleanup()
	rows := addProduct(productRows(), "id-1", model.StatusUpcoming, nil)
	rows = addProduct(rows, "id-2", model.StatusDeleted, testCreatedAt)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT ` + productColumns + ` FROM products ORDER BY created_at DESC`)).
		WillReturnRows(rows)

	products, err := repo.ListProducts(context.Background(), "product_name", "")
	if err != nil {
		t.Fatalf("ListProducts failed: %v", err)
	}
	if len(products) != 2 || products[1].DeletedAt == nil {
		t.Fatalf("unexpected products: %+v", products)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

// TestListProducts_Search проверяет поиск подстроки по допустимому полю
func TestListProducts_Search(t *testing.T) {
	repo, mock, cleanup := newMock(t)
	defer cleanup()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT ` + productColumns + ` FROM products WHERE delivery_date::text ILIKE $1 ORDER BY created_at DESC`)).
		WithArgs("%2025-06%").
		WillReturnRows(addProduct(productRows(), "id-1", model.StatusUpcoming, nil))

	products, err := repo.ListProducts(context.Background(), "delivery_date", "2025-06")
	if err != nil {
		t.Fatalf("ListProducts search failed: %v", err)
	}
	if len(products) != 1 {
		t.Fatalf("expected 1 product, got %d", len(products))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

// TestListProducts_InvalidField проверяет отказ при поиске по неизвестному полю
func TestListProducts_InvalidField(t *testing.T) {
	repo, _, cleanup := newMock(t)
	defer cleanup()
	if _, err := repo.ListProducts(context.Background(), "status", "on_time"); !errors.Is(err, ErrInvalidSearchField) {
		t.Fatalf("expected ErrInvalidSearchField, got %v", err)
	}
}

// TestUpdateObservation проверяет транзакционное обновление примечания
func TestUpdateObservation(t *testing.T) {
	repo, mock, cleanup := newMock(t)
	defer cleanup()
	obs := "checked at warehouse"
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(selectForUpdateQuery)).
		WithArgs("id-1").
		WillReturnRows(addProduct(productRows(), "id-1", model.StatusUpcoming, nil))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE products SET observation=$1 WHERE id=$2`)).
		WithArgs(obs, "id-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	p, err := repo.UpdateObservation(context.Background(), "id-1", &obs)
	if err != nil {
		t.Fatalf("UpdateObservation failed: %v", err)
	}
	if p.Observation == nil || *p.Observation != obs {
		t.Fatalf("observation not applied: %+v", p)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

// TestUpdateDeliveryDate проверяет запись даты и статуса одним UPDATE
func TestUpdateDeliveryDate(t *testing.T) {
	repo, mock, cleanup := newMock(t)
	defer cleanup()
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(selectForUpdateQuery)).
		WithArgs("id-1").
		WillReturnRows(addProduct(productRows(), "id-1", model.StatusUpcoming, nil))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE products SET delivery_date=$1, status=$2 WHERE id=$3`)).
		WithArgs("2025-08-01", string(model.StatusOnTime), "id-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	p, err := repo.UpdateDeliveryDate(context.Background(), "id-1", "2025-08-01", model.StatusOnTime)
	if err != nil {
		t.Fatalf("UpdateDeliveryDate failed: %v", err)
	}
	if p.DeliveryDate != "2025-08-01" || p.Status != model.StatusOnTime {
		t.Fatalf("unexpected product: %+v", p)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

// TestSetDelivered проверяет запись флага доставки вместе со статусом
func TestSetDelivered(t *testing.T) {
	repo, mock, cleanup := newMock(t)
	defer cleanup()
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(selectForUpdateQuery)).
		WithArgs("id-1").
		WillReturnRows(addProduct(productRows(), "id-1", model.StatusUpcoming, nil))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE products SET is_delivered=$1, status=$2 WHERE id=$3`)).
		WithArgs(true, string(model.StatusDelivered), "id-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	p, err := repo.SetDelivered(context.Background(), "id-1", true, model.StatusDelivered)
	if err != nil {
		t.Fatalf("SetDelivered failed: %v", err)
	}
	if !p.IsDelivered || p.Status != model.StatusDelivered {
		t.Fatalf("unexpected product: %+v", p)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

// TestSoftDeleteProduct проверяет пометку удаления и отказ при повторном удалении
func TestSoftDeleteProduct(t *testing.T) {
	repo, mock, cleanup := newMock(t)
	defer cleanup()
	deletedAt := time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(selectForUpdateQuery)).
		WithArgs("id-1").
		WillReturnRows(addProduct(productRows(), "id-1", model.StatusUpcoming, nil))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE products SET status=$1, deleted_at=$2 WHERE id=$3`)).
		WithArgs(string(model.StatusDeleted), deletedAt, "id-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	p, err := repo.SoftDeleteProduct(context.Background(), "id-1", deletedAt)
	if err != nil {
		t.Fatalf("SoftDeleteProduct failed: %v", err)
	}
	if p.Status != model.StatusDeleted || p.DeletedAt == nil || !p.DeletedAt.Equal(deletedAt) {
		t.Fatalf("unexpected product: %+v", p)
	}

	// повторное удаление: запись уже помечена, UPDATE не выполняется
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(selectForUpdateQuery)).
		WithArgs("id-1").
		WillReturnRows(addProduct(productRows(), "id-1", model.StatusDeleted, deletedAt))
	mock.ExpectRollback()
	if _, err := repo.SoftDeleteProduct(context.Background(), "id-1", deletedAt); !errors.Is(err, ErrAlreadyDeleted) {
		t.Fatalf("expected ErrAlreadyDeleted, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

// TestRestoreProduct проверяет снятие отметки удаления и отказ для неудалённой записи
func TestRestoreProduct(t *testing.T) {
	repo, mock, cleanup := newMock(t)
	defer cleanup()
	deletedAt := time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(selectForUpdateQuery)).
		WithArgs("id-1").
		WillReturnRows(addProduct(productRows(), "id-1", model.StatusDeleted, deletedAt))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE products SET status=$1, deleted_at=NULL WHERE id=$2`)).
		WithArgs(string(model.StatusUpcoming), "id-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	p, err := repo.RestoreProduct(context.Background(), "id-1", model.StatusUpcoming)
	if err != nil {
		t.Fatalf("RestoreProduct failed: %v", err)
	}
	if p.Status != model.StatusUpcoming || p.DeletedAt != nil {
		t.Fatalf("unexpected product: %+v", p)
	}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(selectForUpdateQuery)).
		WithArgs("id-1").
		WillReturnRows(addProduct(productRows(), "id-1", model.StatusUpcoming, nil))
	mock.ExpectRollback()
	if _, err := repo.RestoreProduct(context.Background(), "id-1", model.StatusUpcoming); !errors.Is(err, ErrNotDeleted) {
		t.Fatalf("expected ErrNotDeleted, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

// TestMutate_NotFound проверяет ErrNotFound при изменении отсутствующей записи
func TestMutate_NotFound(t *testing.T) {
	repo, mock, cleanup := newMock(t)
	defer cleanup()
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(selectForUpdateQuery)).
		WithArgs("missing").
		WillReturnRows(productRows())
	mock.ExpectRollback()

	if _, err := repo.SetDelivered(context.Background(), "missing", true, model.StatusDelivered); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}
