// Пакет status вычисляет статус поставки из даты и флага доставки
package status

import (
	"errors"
	"fmt"
	"time"

	"ordertracker/internal/model"
)

// DateLayout задаёт формат даты поставки на границе хранилища (ISO, без времени)
const DateLayout = "2006-01-02"

// ErrInvalidDate возвращается при неразбираемой дате поставки
var ErrInvalidDate = errors.New("invalid delivery date")

// upcomingWindowDays задаёт окно в днях, в пределах которого поставка считается приближающейся
const upcomingWindowDays = 10

// Derive вычисляет статус поставки по дате и флагу доставки
// Текущая дата передаётся явно, чтобы результат был детерминирован в тестах
// Функция чистая и никогда не возвращает StatusDeleted — логическое удаление
// назначается отдельной операцией
// Правила:
// 1. delivered=true — статус delivered независимо от даты
// 2. дата уже прошла — delayed
// 3. до даты не больше 10 дней (включительно) — upcoming
// 4. иначе — on_time
func Derive(deliveryDate time.Time, delivered bool, today time.Time) model.Status {
	if delivered {
		return model.StatusDelivered
	}
	days := daysBetween(today, deliveryDate)
	switch {
	case days < 0:
		return model.StatusDelayed
	case days <= upcomingWindowDays:
		return model.StatusUpcoming
	default:
		return model.StatusOnTime
	}
}

// ParseDeliveryDate разбирает дату поставки из строкового вида YYYY-MM-DD
// Невалидная дата должна отсеиваться здесь, до вызова Derive
func ParseDeliveryDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return d, nil
}

// daysBetween возвращает число целых календарных дней от from до to
// Сравниваются только даты, время суток отбрасывается, чтобы избежать
// ошибок на границе полуночи
func daysBetween(from, to time.Time) int {
	f := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	t := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int(t.Sub(f).Hours() / 24)
}
