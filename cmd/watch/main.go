// Команда watch показывает живое зеркало коллекции товаров в терминале:
// загружает выборку по заданному поиску, подписывается на сигнал изменения
// коллекции и при каждом сигнале перечитывает выборку и перерисовывает таблицу
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	_ "github.com/lib/pq"
	"github.com/nats-io/nats.go"

	"ordertracker/internal/mirror"
	"ordertracker/internal/repository"
)

func main() {
	// читаем переменные окружения
	dbHost := os.Getenv("DB_HOST")
	dbPort := os.Getenv("DB_PORT")
	dbUser := os.Getenv("DB_USER")
	dbPassword := os.Getenv("DB_PASSWORD")
	dbName := os.Getenv("DB_NAME")
	if dbName == "" {
		dbName = "appdb"
	}
	natsURL := os.Getenv("NATS_URL")
	subject := os.Getenv("NATS_SUBJECT")
	if subject == "" {
		subject = "products"
	}
	// параметры активного запроса и фильтра отображения
	view := mirror.View(os.Getenv("WATCH_VIEW"))
	if view == "" {
		view = mirror.ViewAll
	}
	if !mirror.ValidView(view) {
		log.Fatalf("invalid WATCH_VIEW: %s", view)
	}
	field := os.Getenv("WATCH_FIELD")
	if field == "" {
		field = "product_name"
	}
	search := os.Getenv("WATCH_SEARCH")

	// подключаем Postgres
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", dbUser, dbPassword, dbHost, dbPort, dbName)
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		log.Fatalf("failed to connect to Postgres: %v", err)
	}
	defer func() { _ = db.Close() }()
	if err := db.Ping(); err != nil {
		log.Fatalf("failed to ping Postgres: %v", err)
	}

	// создаём зеркало поверх репозитория
	repo := repository.NewProductRepository(db)
	mr := mirror.NewMirror(repo)
	mr.SetView(view)
	ctx := context.Background()
	if err := mr.Load(ctx, field, search); err != nil {
		log.Fatalf("failed to load products: %v", err)
	}
	render(mr)

	// подключаем NATS и подписываемся на сигнал изменения коллекции
	// payload события не используется: зеркало перечитывает выборку целиком
	nc, err := nats.Connect(natsURL)
	if err != nil {
		log.Fatalf("failed to connect to NATS: %v", err)
	}
	defer nc.Close()
	sub, err := nc.Subscribe(subject, func(_ *nats.Msg) {
		if err := mr.Refresh(ctx); err != nil {
			// зеркало осталось в последнем успешном состоянии
			log.Printf("failed to refresh products: %v", err)
			return
		}
		render(mr)
	})
	if err != nil {
		log.Fatalf("failed to subscribe to subject %s: %v", subject, err)
	}

	// Ждём сигнала завершения
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	// перестаём реагировать на сигналы изменения, запросы в полёте не отменяются
	if err := sub.Unsubscribe(); err != nil {
		log.Printf("failed to unsubscribe: %v", err)
	}
}

// render печатает отфильтрованное содержимое зеркала таблицей
func render(mr *mirror.Mirror) {
	items := mr.Items()
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "STATUS\tCODE\tNAME\tREQUEST\tORDER\tDEPARTMENT\tDELIVERY\tOBSERVATION")
	for _, p := range items {
		obs := ""
		if p.Observation != nil {
			obs = *p.Observation
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			p.Status, p.ProductCode, p.ProductName, p.RequestCode,
			p.OrderNumber, p.Department, p.DeliveryDate, obs)
	}
	_ = w.Flush()
	fmt.Printf("-- %d of %d items --\n", len(items), mr.Len())
}
