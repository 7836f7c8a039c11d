package consumer

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"ordertracker/internal/model"
)

// Repo описывает интерфейс репозитория ClickHouse для пакетной записи событий
type Repo interface {
	BatchInsertEvents(ctx context.Context, events []model.Product) error
}

// Consumer буферизует события изменения товаров и отправляет их пакетно в ClickHouse
// batchSize определяет макс. количество событий до отправки
// mutex защищает доступ к буферу events
type Consumer struct {
	repo      Repo
	batchSize int
	events    []model.Product
	mu        sync.Mutex
}

// NewConsumer создаёт Consumer с указанным репозиторием и размером пакета
func NewConsumer(repo Repo, batchSize int) *Consumer {
	return &Consumer{repo: repo, batchSize: batchSize, events: make([]model.Product, 0, batchSize)}
}

// HandleMessage обрабатывает сообщение из NATS: парсит JSON снимка товара,
// добавляет событие в буфер и при достижении batchSize отправляет в ClickHouse
func (c *Consumer) HandleMessage(ctx context.Context, data []byte) error {
	var p model.Product
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	log.Printf("Получено событие изменения товара %s (status=%s)", p.ID, p.Status)
	c.mu.Lock()
	c.events = append(c.events, p)
	// если достигли batchSize, сбрасываем буфер
	if len(c.events) >= c.batchSize {
		eventsCopy := make([]model.Product, len(c.events))
		copy(eventsCopy, c.events)
		c.events = c.events[:0]
		c.mu.Unlock()
		return c.repo.BatchInsertEvents(ctx, eventsCopy)
	}
	c.mu.Unlock()
	return nil
}

// Flush отправляет все накопленные события, если они есть
func (c *Consumer) Flush(ctx context.Context) error {
	c.mu.Lock()
	if len(c.events) == 0 {
		c.mu.Unlock()
		return nil
	}
	eventsCopy := make([]model.Product, len(c.events))
	copy(eventsCopy, c.events)
	c.events = c.events[:0]
	c.mu.Unlock()
	return c.repo.BatchInsertEvents(ctx, eventsCopy)
}
