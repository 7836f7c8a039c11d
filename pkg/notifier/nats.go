// Пакет notifier публикует события изменения коллекции товаров в NATS
// Одно и то же событие служит записью аудита для консьюмера и сигналом
// «коллекция изменилась» для клиентов, которые перечитывают выборку целиком
package notifier

// Conn определяет минимальный интерфейс NATS-подключения
// Реализация — *nats.Conn; Publish возвращает ошибку при неудаче публикации
type Conn interface {
	Publish(subject string, data []byte) error
}

// NATSNotifier хранит Conn и тему subject для публикации событий
type NATSNotifier struct {
	conn    Conn
	subject string
}

// NewNotifier создаёт новый NATSNotifier, связывая Conn и subject
func NewNotifier(conn Conn, subject string) *NATSNotifier {
	return &NATSNotifier{conn: conn, subject: subject}
}

// PublishChange отправляет сериализованную запись товара в указанный subject
func (n *NATSNotifier) PublishChange(data []byte) error {
	return n.conn.Publish(n.subject, data)
}
