package repository

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/testerwork/backend/internal/db"
	"github.com/testerwork/backend/internal/models"
)

// Расчётная логика живёт в SQL-транзакциях, поэтому тесты этого пакета
// ходят в настоящий Postgres. База берётся из TEST_DATABASE_URL; без неё
// тесты пропускаются. Каждый тест начинает с пустых таблиц.
func testDB(t *testing.T) *sqlx.DB {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL не задан, интеграционные тесты пропущены")
	}

	ctx := context.Background()
	conn, err := db.NewPostgres(ctx, dsn)
	if err != nil {
		t.Fatalf("подключение к тестовой базе: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	if err := db.RunMigrations(ctx, conn, "../../migrations"); err != nil {
		t.Fatalf("миграции: %v", err)
	}

	if _, err := conn.ExecContext(ctx, `
		TRUNCATE users, sessions, wallets, transactions, deposit_negotiations,
			jobs, applications, listings, market_orders, download_tokens,
			referral_rewards CASCADE
	`); err != nil {
		t.Fatalf("очистка таблиц: %v", err)
	}

	return conn
}

func seedUser(t *testing.T, conn *sqlx.DB, role string) uuid.UUID {
	t.Helper()

	suffix := uuid.NewString()[:8]
	var id uuid.UUID
	if err := conn.Get(&id, `
		INSERT INTO users (email, username, password_hash, role, referral_code)
		VALUES ($1, $2, 'x', $3, $4)
		RETURNING id
	`, suffix+"@example.com", "user_"+suffix, role, "ref_"+suffix); err != nil {
		t.Fatalf("создание пользователя: %v", err)
	}
	return id
}

func fundWallet(t *testing.T, conn *sqlx.DB, userID uuid.UUID, role string, amount float64) {
	t.Helper()

	wallets := NewWalletRepository(conn)
	if _, err := wallets.Credit(context.Background(), userID, role, amount,
		models.TransactionTypeDeposit, "пополнение для теста", models.TransactionMetadata{}); err != nil {
		t.Fatalf("пополнение кошелька: %v", err)
	}
}

func countTransactions(t *testing.T, conn *sqlx.DB, userID uuid.UUID, txType string) int {
	t.Helper()

	var n int
	if err := conn.Get(&n, `
		SELECT COUNT(*) FROM transactions WHERE user_id = $1 AND type = $2
	`, userID, txType); err != nil {
		t.Fatalf("подсчёт операций: %v", err)
	}
	return n
}

func getWallet(t *testing.T, conn *sqlx.DB, userID uuid.UUID, role string) *models.Wallet {
	t.Helper()

	wallet, err := NewWalletRepository(conn).GetWallet(context.Background(), userID, role)
	if err != nil {
		t.Fatalf("чтение кошелька: %v", err)
	}
	return wallet
}
