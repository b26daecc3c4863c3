package storage

import (
	"context"
	"os"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lucra-chat/internal/config"
	"github.com/lucra-chat/internal/intent"
	"github.com/lucra-chat/internal/models"
	"github.com/lucra-chat/internal/types"
)

// testPostgres connects to a local database with migrations applied, or skips
func testPostgres(t *testing.T) *PostgresDB {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	cfg := &config.PostgresConfig{
		Host:           envOr("TEST_POSTGRES_HOST", "localhost"),
		Port:           "5432",
		Database:       "lucra_test",
		User:           "lucra",
		Password:       envOr("TEST_POSTGRES_PASSWORD", "lucra_dev_password"),
		SSLMode:        "disable",
		MaxConnections: 4,
	}

	db, err := NewPostgresDB(context.Background(), cfg)
	if err != nil {
		t.Skipf("Skipping test - Postgres not available: %v", err)
	}
	if err := RunMigrations(cfg.URL(), "../../migrations/postgres"); err != nil {
		db.Close()
		t.Skipf("Skipping test - migrations failed: %v", err)
	}
	t.Cleanup(db.Close)
	return db
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func TestPostgresDB_Ping(t *testing.T) {
	db := testPostgres(t)
	assert.NoError(t, db.Ping(testContext(t)))
	assert.NotNil(t, db.Pool())
}

func TestUserRepository_GetByWalletPicksOldest(t *testing.T) {
	db := testPostgres(t)
	ctx := testContext(t)
	repo := NewUserRepository(db)

	wallet := "0xABCDEF" + randomSuffix()
	first := &models.User{WalletAddress: wallet, WalletType: types.WalletEVM}
	require.NoError(t, repo.Create(ctx, first))
	dup := &models.User{WalletAddress: wallet}
	require.NoError(t, repo.Create(ctx, dup))

	got, err := repo.GetByWallet(ctx, wallet)
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)
	assert.Equal(t, first.WalletAddress, got.WalletAddress)
	assert.Equal(t, types.WalletEVM, got.WalletType)

	require.NoError(t, repo.MarkVerified(ctx, first.ID))
	got, err = repo.GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.True(t, got.IsVerified)

	_, err = repo.GetByWallet(ctx, "0xnobody"+randomSuffix())
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = repo.GetByID(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTransactionRepository_RoundTrip(t *testing.T) {
	db := testPostgres(t)
	ctx := testContext(t)

	user := &models.User{WalletAddress: "0xtx" + randomSuffix()}
	require.NoError(t, NewUserRepository(db).Create(ctx, user))

	conv := &models.Conversation{UserID: user.ID, Title: "split dinner"}
	require.NoError(t, NewConversationRepository(db).Create(ctx, conv))

	parsed := intent.Parse("split 0.3 with @bob @carol equally for dinner")
	tx := models.NewPendingTransaction(user.ID, &conv.ID, parsed)

	repo := NewTransactionRepository(db)
	require.NoError(t, repo.Create(ctx, tx))

	got, err := repo.GetByID(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, types.TxStatusPending, got.Status)
	assert.True(t, decimal.RequireFromString("0.3").Equal(got.Amount.Decimal))
	assert.Equal(t, []string{"bob", "carol"}, got.Recipients)
	require.NotNil(t, got.SplitType)
	assert.Equal(t, intent.SplitEqual, *got.SplitType)

	hash := "0xdeadbeef"
	updated, err := repo.Update(ctx, tx.ID, models.TransactionUpdate{TxHash: &hash, Status: types.TxStatusSubmitted})
	require.NoError(t, err)
	assert.Equal(t, hash, *updated.TxHash)
	assert.Equal(t, types.TxStatusSubmitted, updated.Status)

	list, err := repo.ListByUser(ctx, user.ID, 10)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = repo.Update(ctx, "00000000-0000-0000-0000-000000000000", models.TransactionUpdate{Status: types.TxStatusFailed})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestChatMessageRepository_Chronological(t *testing.T) {
	db := testPostgres(t)
	ctx := testContext(t)

	user := &models.User{WalletAddress: "0xmsg" + randomSuffix()}
	require.NoError(t, NewUserRepository(db).Create(ctx, user))
	conv := &models.Conversation{UserID: user.ID, Title: "hello"}
	require.NoError(t, NewConversationRepository(db).Create(ctx, conv))

	repo := NewChatMessageRepository(db)
	require.NoError(t, repo.Create(ctx, &models.ChatMessage{ConversationID: conv.ID, UserID: user.ID, Message: "hi", IsUser: true}))
	require.NoError(t, repo.Create(ctx, &models.ChatMessage{
		ConversationID: conv.ID, UserID: user.ID, Message: "hello!", Metadata: []byte(`{"intent":"conversation"}`),
	}))

	msgs, err := repo.ListByConversation(ctx, conv.ID, 50)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.True(t, msgs[0].IsUser)
	assert.False(t, msgs[1].IsUser)
	assert.JSONEq(t, `{"intent":"conversation"}`, string(msgs[1].Metadata))
}

func TestWalletSignatureRepository_RejectsReuse(t *testing.T) {
	db := testPostgres(t)
	ctx := testContext(t)

	user := &models.User{WalletAddress: "0xsig" + randomSuffix()}
	require.NoError(t, NewUserRepository(db).Create(ctx, user))

	repo := NewWalletSignatureRepository(db)
	sig := &models.WalletSignature{UserID: user.ID, WalletAddress: user.WalletAddress, Message: "m", Signature: "0xsig" + randomSuffix()}
	require.NoError(t, repo.Create(ctx, sig))

	exists, err := repo.Exists(ctx, sig.Signature)
	require.NoError(t, err)
	assert.True(t, exists)

	again := *sig
	again.ID = ""
	assert.ErrorIs(t, repo.Create(ctx, &again), ErrSignatureUsed)
}
