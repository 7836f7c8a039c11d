package repository

import (
	"context"
	"database/sql"
	"log"
	"time"

	"ordertracker/internal/model"
)

// EventRepository реализует пакетную запись событий изменения товаров в ClickHouse
type EventRepository struct {
	db *sql.DB
}

// NewEventRepository создаёт новый репозиторий событий для ClickHouse
func NewEventRepository(db *sql.DB) *EventRepository {
	return &EventRepository{db: db}
}

// BatchInsertEvents записывает пакет событий в таблицу product_events
// Событие содержит снимок записи товара и время приёма события
func (r *EventRepository) BatchInsertEvents(ctx context.Context, events []model.Product) error {
	// начинаем 'транзакцию' для batch insert (clickhouse-go собирает блок при PrepareContext)
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	log.Printf("Начало пакетной вставки %d событий в ClickHouse", len(events))
	query := `INSERT INTO product_events (Id, ProductCode, ProductName, RequestCode, OrderNumber, Department, DeliveryDate, Observation, Status, IsDelivered, Deleted, EventTime) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer func() { _ = stmt.Close() }()
	// выполняем ExecContext для каждой записи; драйвер соберёт весь пакет
	for _, e := range events {
		obs := ""
		if e.Observation != nil {
			obs = *e.Observation
		}
		_, err := stmt.ExecContext(ctx,
			e.ID, e.ProductCode, e.ProductName, e.RequestCode, e.OrderNumber,
			e.Department, e.DeliveryDate, obs, string(e.Status),
			boolToUInt8(e.IsDelivered), boolToUInt8(e.DeletedAt != nil),
			time.Now(),
		)
		if err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	log.Printf("Успешно вставлено %d событий в ClickHouse", len(events))
	return nil
}

// boolToUInt8 конвертирует bool в UInt8 (0/1)
func boolToUInt8(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
