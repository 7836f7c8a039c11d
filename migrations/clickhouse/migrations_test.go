// Пакет clickhouse_test содержит интеграционные тесты для проверки SQL-миграций ClickHouse
package clickhouse_test

import (
	"database/sql"                          // пакет взаимодействия с базой данных через стандартный интерфейс
	_ "github.com/ClickHouse/clickhouse-go" // ClickHouse драйвер, регистрируется анонимным импортом
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/clickhouse"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/stretchr/testify/require" // библиотека утверждений для тестов
	"os"
	"testing"
)

// TestClickhouseMigrations проверяет, что SQL-миграции для ClickHouse выполняются корректно
func TestClickhouseMigrations(t *testing.T) {
	env := os.Getenv("CLICKHOUSE_TEST_DSN")
	if env == "" {
		t.Skip("CLICKHOUSE_TEST_DSN env var not set; skipping ClickHouse migration tests")
	}
	dsn := env

	// Открываем соединение с ClickHouse
	db, err := sql.Open("clickhouse", dsn)
	require.NoError(t, err, "ошибка при открытии соединения с ClickHouse")
	defer func() {
		require.NoError(t, db.Close(), "ошибка при закрытии соединения с ClickHouse")
	}()

	// Откат предыдущих миграций и применение новых через golang-migrate
	drv, err := clickhouse.WithInstance(db, &clickhouse.Config{})
	require.NoError(t, err, "failed to create ClickHouse migrate driver")
	m, err := migrate.NewWithDatabaseInstance(
		"file://.", "clickhouse", drv,
	)
	require.NoError(t, err, "failed to create ClickHouse migrate instance")
	// сначала откатываем все
	_ = m.Down()
	// применяем up-миграции
	require.NoError(t, m.Up(), "failed to apply ClickHouse migrations")

	// ------------------------- Проверка существования таблицы -------------------------
	var existsTable int
	err = db.QueryRow(
		"SELECT count() FROM system.tables WHERE database=currentDatabase() AND name='product_events'",
	).Scan(&existsTable)
	require.NoError(t, err)
	require.Equal(t, 1, existsTable, "product_events должна существовать после migrate Up")

	// ------------------------- Проверка структуры таблицы -------------------------
	expected := map[string]string{
		"Id":           "String",
		"ProductCode":  "String",
		"ProductName":  "String",
		"RequestCode":  "String",
		"OrderNumber":  "String",
		"Department":   "String",
		"DeliveryDate": "String",
		"Observation":  "String",
		"Status":       "String",
		"IsDelivered":  "UInt8",
		"Deleted":      "UInt8",
		"EventTime":    "DateTime",
	}

	rows, err := db.Query(
		"SELECT name, type FROM system.columns WHERE database = currentDatabase() AND table = 'product_events'",
	)
	require.NoError(t, err, "ошибка при получении описания колонок таблицы product_events")
	defer rows.Close()

	colsFound := make(map[string]string)
	for rows.Next() {
		var name, ctype string
		require.NoError(t, rows.Scan(&name, &ctype), "ошибка при сканировании строки system.columns")
		colsFound[name] = ctype
	}
	require.NoError(t, rows.Err(), "ошибка после обхода всех строк system.columns")

	for col, typ := range expected {
		actual, ok := colsFound[col]
		require.True(t, ok, "колонка %s должна присутствовать в таблице product_events", col)
		require.Equal(t, typ, actual, "тип колонки %s должен быть %s, получен %s", col, typ, actual)
	}

	// ------------------------- Проверка типа движка таблицы -------------------------
	var engine string
	err = db.QueryRow(
		"SELECT engine FROM system.tables WHERE database=currentDatabase() AND name='product_events'",
	).Scan(&engine)
	require.NoError(t, err, "ошибка при получении типа движка таблицы product_events")
	require.Equal(t, "MergeTree", engine, "движок таблицы product_events должен быть MergeTree")

	// ------------------------- Проверка отката -------------------------
	require.NoError(t, m.Steps(-1), "failed to rollback ClickHouse migrations")
	err = db.QueryRow(
		"SELECT count() FROM system.tables WHERE database=currentDatabase() AND name='product_events'",
	).Scan(&existsTable)
	require.NoError(t, err)
	require.Equal(t, 0, existsTable, "product_events должна быть удалена после migrate Down")
}
