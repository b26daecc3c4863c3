package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lucra-chat/internal/adapter"
	apperrors "github.com/lucra-chat/internal/errors"
	"github.com/lucra-chat/internal/intent"
	"github.com/lucra-chat/internal/types"
	"github.com/lucra-chat/internal/wallet"
)

func statusOf(err error) int {
	return apperrors.GetHTTPStatusCode(err)
}

func TestUserService_EnsureUser(t *testing.T) {
	ts := newTestServices(nil, nil)
	ctx := context.Background()

	first, err := ts.users.EnsureUser(ctx, testWallet, "")
	require.NoError(t, err)
	assert.Equal(t, types.WalletEVM, first.WalletType)

	again, err := ts.users.EnsureUser(ctx, "  "+testWallet+" ", types.WalletEVM)
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
	assert.Len(t, ts.db.users, 1)

	_, err = ts.users.EnsureUser(ctx, "", "")
	assert.Equal(t, 400, statusOf(err))

	_, err = ts.users.GetByWallet(ctx, "0x0000000000000000000000000000000000000001")
	assert.Equal(t, 404, statusOf(err))
}

func TestUserService_UpdatesKnownWalletType(t *testing.T) {
	ts := newTestServices(nil, nil)
	ctx := context.Background()

	user, err := ts.users.EnsureUser(ctx, "alice.eth", "")
	require.NoError(t, err)
	assert.Equal(t, types.WalletUnknown, user.WalletType)

	user, err = ts.users.EnsureUser(ctx, "alice.eth", types.WalletSolana)
	require.NoError(t, err)
	assert.Equal(t, types.WalletSolana, user.WalletType)
	assert.Equal(t, types.WalletSolana, ts.db.users[0].WalletType)

	user, err = ts.users.EnsureUser(ctx, "alice.eth", types.WalletUnknown)
	require.NoError(t, err)
	assert.Equal(t, types.WalletSolana, user.WalletType)
}

func TestConversationService_Lifecycle(t *testing.T) {
	ts := newTestServices(nil, nil)
	ctx := context.Background()

	older, err := ts.conversations.Create(ctx, testWallet, "")
	require.NoError(t, err)
	assert.Equal(t, defaultConversationTitle, older.Title)

	newer, err := ts.conversations.Create(ctx, testWallet, "Trip to Lisbon")
	require.NoError(t, err)

	_, err = ts.conversations.AppendMessage(ctx, AppendMessageInput{
		ConversationID: older.ID,
		WalletAddress:  testWallet,
		Message:        "first",
		IsUser:         true,
	})
	require.NoError(t, err)
	_, err = ts.conversations.AppendMessage(ctx, AppendMessageInput{
		ConversationID: older.ID,
		WalletAddress:  testWallet,
		Message:        "second",
		Metadata:       []byte(`{"intent":"unknown"}`),
	})
	require.NoError(t, err)

	list, err := ts.conversations.List(ctx, testWallet)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, older.ID, list[0].ID, "touched conversation sorts first")
	assert.Equal(t, newer.ID, list[1].ID)

	msgs, err := ts.conversations.Messages(ctx, older.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "first", msgs[0].Message)
	assert.Equal(t, "second", msgs[1].Message)
	assert.JSONEq(t, `{"intent":"unknown"}`, string(msgs[1].Metadata))
}

func TestConversationService_Errors(t *testing.T) {
	ts := newTestServices(nil, nil)
	ctx := context.Background()

	_, err := ts.conversations.Messages(ctx, "missing")
	assert.Equal(t, 404, statusOf(err))

	_, err = ts.conversations.Messages(ctx, "")
	assert.Equal(t, 400, statusOf(err))

	conv, err := ts.conversations.Create(ctx, testWallet, "x")
	require.NoError(t, err)

	_, err = ts.conversations.AppendMessage(ctx, AppendMessageInput{ConversationID: conv.ID, WalletAddress: testWallet})
	assert.Equal(t, 400, statusOf(err))

	_, err = ts.conversations.AppendMessage(ctx, AppendMessageInput{
		ConversationID: conv.ID, WalletAddress: testWallet, Message: "m", Metadata: []byte("{oops"),
	})
	assert.Equal(t, 400, statusOf(err))

	list, err := ts.conversations.List(ctx, "0x0000000000000000000000000000000000000002")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestTransactionService_StoreRejectsNonTransactional(t *testing.T) {
	ts := newTestServices(nil, nil)
	ctx := context.Background()

	_, err := ts.transactions.Store(ctx, StoreTransactionInput{WalletAddress: testWallet, Intent: intent.Parse("check balance")})
	assert.Equal(t, 400, statusOf(err))

	_, err = ts.transactions.Store(ctx, StoreTransactionInput{WalletAddress: testWallet})
	assert.Equal(t, 400, statusOf(err))

	tx, err := ts.transactions.Store(ctx, StoreTransactionInput{
		WalletAddress:  testWallet,
		ConversationID: "c-1",
		Intent:         intent.Parse("send 3 to @zoe"),
	})
	require.NoError(t, err)
	assert.Equal(t, types.TxStatusPending, tx.Status)
	require.NotNil(t, tx.ConversationID)
	assert.Equal(t, "c-1", *tx.ConversationID)

	list, err := ts.transactions.List(ctx, testWallet)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestTransactionService_Update(t *testing.T) {
	hash := "0x" + strings.Repeat("ab", 32)

	tests := []struct {
		name       string
		chain      *stubChain
		in         UpdateTransactionInput
		wantStatus types.TransactionStatus
		wantFlush  bool
	}{
		{
			name:       "hash without status is submitted",
			in:         UpdateTransactionInput{TxHash: &hash},
			wantStatus: types.TxStatusSubmitted,
		},
		{
			name:       "explicit status",
			in:         UpdateTransactionInput{Status: types.TxStatusFailed},
			wantStatus: types.TxStatusFailed,
		},
		{
			name:       "receipt confirms",
			chain:      &stubChain{status: types.TxStatusConfirmed},
			in:         UpdateTransactionInput{TxHash: &hash, Status: types.TxStatusSubmitted},
			wantStatus: types.TxStatusConfirmed,
			wantFlush:  true,
		},
		{
			name:       "receipt lookup failure keeps reported status",
			chain:      &stubChain{statusErr: errors.New("rpc down")},
			in:         UpdateTransactionInput{TxHash: &hash, Status: types.TxStatusSubmitted},
			wantStatus: types.TxStatusSubmitted,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			balances := newMemBalances()
			ts := newTestServices(tt.chain, balances)
			ctx := context.Background()

			stored, err := ts.transactions.Store(ctx, StoreTransactionInput{
				WalletAddress: testWallet,
				Intent:        intent.Parse("send 1 to @bob"),
			})
			require.NoError(t, err)

			updated, err := ts.transactions.Update(ctx, stored.ID, tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, updated.Status)
			if tt.in.TxHash != nil {
				require.NotNil(t, updated.TxHash)
				assert.Equal(t, hash, *updated.TxHash)
			}
			assert.Equal(t, tt.wantFlush, len(balances.invalidated) == 1)
		})
	}
}

func TestTransactionService_UpdateErrors(t *testing.T) {
	ts := newTestServices(&stubChain{statusErr: adapter.ErrInvalidTxHash}, newMemBalances())
	ctx := context.Background()

	_, err := ts.transactions.Update(ctx, "missing", UpdateTransactionInput{Status: types.TxStatusConfirmed})
	assert.Equal(t, 404, statusOf(err))

	_, err = ts.transactions.Update(ctx, "missing", UpdateTransactionInput{Status: "mined"})
	assert.Equal(t, 400, statusOf(err))

	_, err = ts.transactions.Update(ctx, "missing", UpdateTransactionInput{})
	assert.Equal(t, 400, statusOf(err))

	bad := "0x1"
	_, err = ts.transactions.Update(ctx, "missing", UpdateTransactionInput{TxHash: &bad})
	assert.Equal(t, 400, statusOf(err))
}

func TestBalanceService(t *testing.T) {
	ctx := context.Background()

	_, err := NewBalanceService(nil, nil).GetBalance(ctx, testWallet)
	assert.Equal(t, 503, statusOf(err))

	chain := &stubChain{balance: &types.ChainBalance{Chain: types.ChainBase, NativeBalance: "1000000000000000000", Formatted: "1", Symbol: "ETH"}}
	balances := newMemBalances()
	svc := NewBalanceService(chain, balances)

	_, err = svc.GetBalance(ctx, "0x123")
	assert.Equal(t, 400, statusOf(err))

	b, err := svc.GetBalance(ctx, testWallet)
	require.NoError(t, err)
	assert.Equal(t, "1", b.Formatted)

	_, err = svc.GetBalance(ctx, testWallet)
	require.NoError(t, err)
	assert.Equal(t, 1, chain.balanceCalls, "second lookup served from cache")

	failing := NewBalanceService(&stubChain{balanceErr: errors.New("rpc down")}, nil)
	_, err = failing.GetBalance(ctx, testWallet)
	assert.Equal(t, 502, statusOf(err))
}

func TestAnalyticsService(t *testing.T) {
	ctx := context.Background()

	_, err := NewAnalyticsService(nil).IntentCounts(ctx, 7)
	assert.Equal(t, 503, statusOf(err))

	events := &memEvents{}
	svc := NewAnalyticsService(events)
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	_, err = svc.IntentCounts(ctx, 0)
	assert.Equal(t, 400, statusOf(err))

	ts := newTestServices(nil, nil)
	ts.events = events
	chat := ts.chat(nil)
	for _, text := range []string{"send 1 to @a", "send 2 to @b", "hello"} {
		_, err := chat.HandleMessage(ctx, ChatRequest{Messages: userTurn(text)})
		require.NoError(t, err)
	}

	counts, err := svc.IntentCounts(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, now.AddDate(0, 0, -7), events.since)

	byIntent := map[string]uint64{}
	for _, c := range counts {
		byIntent[c.Intent] += c.Count
	}
	assert.Equal(t, map[string]uint64{"send": 2, "conversation": 1}, byIntent)
}

func signLogin(t *testing.T, ts int64) (address, signature string) {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	address = crypto.PubkeyToAddress(key.PublicKey).Hex()

	sig, err := crypto.Sign(accounts.TextHash([]byte(wallet.LoginMessage(address, ts))), key)
	require.NoError(t, err)
	sig[crypto.RecoveryIDOffset] += 27
	return address, hexutil.Encode(sig)
}

func TestWalletService_Verify(t *testing.T) {
	ts := newTestServices(nil, nil)
	now := time.Unix(1_700_000_000, 0)
	issuer := wallet.NewTokenIssuer("secret", time.Hour)
	svc := NewWalletService(memSignatures{ts.db}, ts.users, issuer, time.Hour, 5*time.Minute)
	svc.now = func() time.Time { return now }
	ctx := context.Background()

	address, sig := signLogin(t, now.Unix()-60)
	res, err := svc.Verify(ctx, VerifyInput{Address: address, Timestamp: now.Unix() - 60, Signature: sig})
	require.NoError(t, err)

	assert.NotEmpty(t, res.Token)
	assert.True(t, res.User.IsVerified)
	assert.Equal(t, types.WalletEVM, res.User.WalletType)
	assert.True(t, ts.db.users[0].IsVerified)
	assert.Len(t, ts.db.signatures, 1)

	_, err = svc.Verify(ctx, VerifyInput{Address: address, Timestamp: now.Unix() - 60, Signature: sig})
	assert.Equal(t, 401, statusOf(err), "replayed signature")
}

func TestWalletService_VerifyRejectsReencodedSignature(t *testing.T) {
	ts := newTestServices(nil, nil)
	now := time.Unix(1_700_000_000, 0)
	svc := NewWalletService(memSignatures{ts.db}, ts.users, wallet.NewTokenIssuer("secret", time.Hour), time.Hour, 5*time.Minute)
	svc.now = func() time.Time { return now }
	ctx := context.Background()

	signedAt := now.Unix() - 60
	address, sig := signLogin(t, signedAt)
	_, err := svc.Verify(ctx, VerifyInput{Address: address, Timestamp: signedAt, Signature: sig})
	require.NoError(t, err)

	raw, err := hexutil.Decode(sig)
	require.NoError(t, err)
	raw[crypto.RecoveryIDOffset] -= 27

	for _, variant := range []string{
		strings.TrimPrefix(sig, "0x"),
		"0x" + strings.ToUpper(sig[2:]),
		hexutil.Encode(raw),
	} {
		res, err := svc.Verify(ctx, VerifyInput{Address: address, Timestamp: signedAt, Signature: variant})
		assert.Equal(t, 401, statusOf(err), "variant %s", variant)
		assert.Nil(t, res)
	}
	assert.Len(t, ts.db.signatures, 1)
	assert.Contains(t, ts.db.signatures, sig)
}

func TestWalletService_VerifyRejects(t *testing.T) {
	ts := newTestServices(nil, nil)
	now := time.Unix(1_700_000_000, 0)
	svc := NewWalletService(memSignatures{ts.db}, ts.users, wallet.NewTokenIssuer("secret", time.Hour), time.Hour, 5*time.Minute)
	svc.now = func() time.Time { return now }
	ctx := context.Background()

	stale := now.Unix() - 2*3600
	address, sig := signLogin(t, stale)
	_, err := svc.Verify(ctx, VerifyInput{Address: address, Timestamp: stale, Signature: sig})
	assert.Equal(t, 401, statusOf(err), "expired")

	fresh := now.Unix()
	address, sig = signLogin(t, fresh)
	_, err = svc.Verify(ctx, VerifyInput{Address: address, Timestamp: fresh + 1, Signature: sig})
	assert.Equal(t, 401, statusOf(err), "timestamp mismatch")

	_, err = svc.Verify(ctx, VerifyInput{Address: "nope", Timestamp: fresh, Signature: "00"})
	assert.Equal(t, 400, statusOf(err))

	_, err = svc.Verify(ctx, VerifyInput{Address: address, Timestamp: fresh})
	assert.Equal(t, 400, statusOf(err))

	assert.Empty(t, ts.db.users)
}
