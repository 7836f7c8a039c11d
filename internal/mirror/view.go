package mirror

import "ordertracker/internal/model"

// View представляет выбранный пользователем фильтр отображения
type View string

// Возможные значения фильтра отображения
const (
	ViewAll       View = "all"
	ViewOnTime    View = "on_time"
	ViewUpcoming  View = "upcoming"
	ViewDelayed   View = "delayed"
	ViewDelivered View = "delivered"
	ViewDeleted   View = "deleted"
)

// ValidView проверяет, что значение фильтра входит в набор допустимых
func ValidView(v View) bool {
	switch v {
	case ViewAll, ViewOnTime, ViewUpcoming, ViewDelayed, ViewDelivered, ViewDeleted:
		return true
	}
	return false
}

// MatchesView возвращает true, если запись попадает под фильтр отображения:
// deleted выбирает только логически удалённые записи,
// all — все записи кроме удалённых,
// остальные значения — точное совпадение статуса
func MatchesView(v View, p model.Product) bool {
	switch v {
	case ViewDeleted:
		return p.Status == model.StatusDeleted
	case ViewAll:
		return p.Status != model.StatusDeleted
	default:
		return p.Status == model.Status(v)
	}
}

// FilterByView возвращает записи, попадающие под фильтр отображения
// Исходный срез не изменяется
func FilterByView(v View, products []model.Product) []model.Product {
	filtered := make([]model.Product, 0, len(products))
	for _, p := range products {
		if MatchesView(v, p) {
			filtered = append(filtered, p)
		}
	}
	return filtered
}
