// Пакет mirror содержит клиентское зеркало коллекции товаров:
// локальную копию результатов активного поискового запроса,
// обновляемую целиком при каждом сигнале изменения коллекции
package mirror

import (
	"context"
	"sync"

	"ordertracker/internal/model"
)

// Loader определяет интерфейс загрузки товаров из удалённого хранилища
// Реализация — репозиторий Postgres или любой другой источник записей
type Loader interface {
	ListProducts(ctx context.Context, field, search string) ([]model.Product, error)
}

// Mirror хранит локальное зеркало коллекции и параметры активного запроса
// Все изменения состояния проходят через Load и Refresh, доступ защищён мьютексом
// Зеркало не вносит локальных правок: каждая мутация на сервере приводит
// к полной перезагрузке по сигналу изменения
type Mirror struct {
	loader Loader

	mu       sync.Mutex
	products []model.Product
	field    string
	search   string
	view     View
}

// NewMirror создаёт пустое зеркало с фильтром отображения all
func NewMirror(loader Loader) *Mirror {
	return &Mirror{loader: loader, view: ViewAll}
}

// Load загружает товары по новому поисковому запросу и целиком замещает зеркало
// При ошибке загрузки прежнее содержимое зеркала сохраняется без изменений,
// новые параметры запроса не запоминаются
func (m *Mirror) Load(ctx context.Context, field, search string) error {
	products, err := m.loader.ListProducts(ctx, field, search)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.products = products
	m.field = field
	m.search = search
	m.mu.Unlock()
	return nil
}

// Refresh повторяет загрузку с текущими параметрами запроса
// Вызывается обработчиком сигнала «коллекция изменилась»
func (m *Mirror) Refresh(ctx context.Context) error {
	m.mu.Lock()
	field, search := m.field, m.search
	m.mu.Unlock()
	return m.Load(ctx, field, search)
}

// SetView выбирает фильтр отображения, применяемый к зеркалу при чтении
func (m *Mirror) SetView(v View) {
	m.mu.Lock()
	m.view = v
	m.mu.Unlock()
}

// Items возвращает копию записей зеркала, попадающих под активный фильтр
// Фильтрация выполняется локально поверх загруженной выборки
func (m *Mirror) Items() []model.Product {
	m.mu.Lock()
	defer m.mu.Unlock()
	return FilterByView(m.view, m.products)
}

// Len возвращает полный размер зеркала без учёта фильтра отображения
func (m *Mirror) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.products)
}
