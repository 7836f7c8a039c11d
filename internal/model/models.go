package model

import "time"

// Status представляет статус поставки товара (колонка status)
// Значение deleted присваивается только операцией логического удаления,
// остальные значения выводятся из даты поставки и флага is_delivered
type Status string

// Возможные значения статуса поставки
const (
	StatusOnTime    Status = "on_time"   // до поставки больше 10 дней
	StatusUpcoming  Status = "upcoming"  // до поставки от 0 до 10 дней включительно
	StatusDelayed   Status = "delayed"   // дата поставки уже прошла
	StatusDelivered Status = "delivered" // товар отмечен как доставленный
	StatusDeleted   Status = "deleted"   // запись логически удалена
)

// Product представляет сущность товара в заказе (таблица products)
// Имена в тегах db и json совпадают с полями на границе хранилища
// и не должны меняться для совместимости
type Product struct {
	ID           string     `db:"id" json:"id"`
	ProductCode  string     `db:"product_code" json:"product_code"`
	ProductName  string     `db:"product_name" json:"product_name"`
	RequestCode  string     `db:"request_code" json:"request_code"`
	OrderNumber  string     `db:"order_number" json:"order_number"`
	Department   string     `db:"department" json:"department"`
	DeliveryDate string     `db:"delivery_date" json:"delivery_date"`
	Observation  *string    `db:"observation" json:"observation,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	Status       Status     `db:"status" json:"status"`
	IsDelivered  bool       `db:"is_delivered" json:"is_delivered"`
	DeletedAt    *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
}

// ProductForm представляет данные формы создания товара
// Поля id, created_at, status, is_delivered и deleted_at назначаются системой
type ProductForm struct {
	ProductCode  string  `json:"product_code"`
	ProductName  string  `json:"product_name"`
	RequestCode  string  `json:"request_code"`
	OrderNumber  string  `json:"order_number"`
	Department   string  `json:"department"`
	DeliveryDate string  `json:"delivery_date"`
	Observation  *string `json:"observation,omitempty"`
}
