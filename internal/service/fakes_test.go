package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lucra-chat/internal/intent"
	"github.com/lucra-chat/internal/models"
	"github.com/lucra-chat/internal/storage"
	"github.com/lucra-chat/internal/types"
)

// memDB is an in-memory stand-in for the Postgres repositories
type memDB struct {
	mu            sync.Mutex
	clock         time.Time
	users         []*models.User
	conversations map[string]*models.Conversation
	messages      []*models.ChatMessage
	transactions  map[string]*models.Transaction
	signatures    map[string]*models.WalletSignature

	failMessages     bool
	failTransactions bool
}

func newMemDB() *memDB {
	return &memDB{
		clock:         time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		conversations: make(map[string]*models.Conversation),
		transactions:  make(map[string]*models.Transaction),
		signatures:    make(map[string]*models.WalletSignature),
	}
}

func (m *memDB) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

type memUsers struct{ db *memDB }

func (s memUsers) Create(ctx context.Context, user *models.User) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	user.ID = uuid.NewString()
	user.CreatedAt = s.db.tick()
	user.UpdatedAt = user.CreatedAt
	stored := *user
	s.db.users = append(s.db.users, &stored)
	return nil
}

func (s memUsers) GetByID(ctx context.Context, id string) (*models.User, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, u := range s.db.users {
		if u.ID == id {
			cp := *u
			return &cp, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (s memUsers) GetByWallet(ctx context.Context, walletAddress string) (*models.User, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, u := range s.db.users {
		if u.WalletAddress == walletAddress {
			cp := *u
			return &cp, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (s memUsers) UpdateWalletType(ctx context.Context, id string, walletType types.WalletType) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, u := range s.db.users {
		if u.ID == id {
			u.WalletType = walletType
			return nil
		}
	}
	return storage.ErrNotFound
}

func (s memUsers) MarkVerified(ctx context.Context, id string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, u := range s.db.users {
		if u.ID == id {
			u.IsVerified = true
			return nil
		}
	}
	return storage.ErrNotFound
}

type memConversations struct{ db *memDB }

func (s memConversations) Create(ctx context.Context, conv *models.Conversation) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	conv.ID = uuid.NewString()
	conv.CreatedAt = s.db.tick()
	conv.UpdatedAt = conv.CreatedAt
	stored := *conv
	s.db.conversations[conv.ID] = &stored
	return nil
}

func (s memConversations) GetByID(ctx context.Context, id string) (*models.Conversation, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	conv, ok := s.db.conversations[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *conv
	return &cp, nil
}

func (s memConversations) ListByUser(ctx context.Context, userID string, limit int) ([]*models.Conversation, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	out := []*models.Conversation{}
	for _, conv := range s.db.conversations {
		if conv.UserID == userID {
			cp := *conv
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s memConversations) Touch(ctx context.Context, id string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	conv, ok := s.db.conversations[id]
	if !ok {
		return storage.ErrNotFound
	}
	conv.UpdatedAt = s.db.tick()
	return nil
}

type memMessages struct{ db *memDB }

func (s memMessages) Create(ctx context.Context, msg *models.ChatMessage) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if s.db.failMessages {
		return errors.New("chat_history unavailable")
	}
	msg.ID = uuid.NewString()
	msg.CreatedAt = s.db.tick()
	stored := *msg
	s.db.messages = append(s.db.messages, &stored)
	return nil
}

func (s memMessages) ListByConversation(ctx context.Context, conversationID string, limit int) ([]*models.ChatMessage, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	out := []*models.ChatMessage{}
	for _, msg := range s.db.messages {
		if msg.ConversationID == conversationID && len(out) < limit {
			cp := *msg
			out = append(out, &cp)
		}
	}
	return out, nil
}

type memTransactions struct{ db *memDB }

func (s memTransactions) Create(ctx context.Context, tx *models.Transaction) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if s.db.failTransactions {
		return errors.New("transactions unavailable")
	}
	tx.ID = uuid.NewString()
	tx.CreatedAt = s.db.tick()
	tx.UpdatedAt = tx.CreatedAt
	stored := *tx
	s.db.transactions[tx.ID] = &stored
	return nil
}

func (s memTransactions) GetByID(ctx context.Context, id string) (*models.Transaction, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	tx, ok := s.db.transactions[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *tx
	return &cp, nil
}

func (s memTransactions) Update(ctx context.Context, id string, update models.TransactionUpdate) (*models.Transaction, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	tx, ok := s.db.transactions[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	if update.TxHash != nil {
		hash := *update.TxHash
		tx.TxHash = &hash
	}
	tx.Status = update.Status
	tx.UpdatedAt = s.db.tick()
	cp := *tx
	return &cp, nil
}

func (s memTransactions) ListByUser(ctx context.Context, userID string, limit int) ([]*models.Transaction, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	out := []*models.Transaction{}
	for _, tx := range s.db.transactions {
		if tx.UserID == userID {
			cp := *tx
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type memSignatures struct{ db *memDB }

func (s memSignatures) Exists(ctx context.Context, signature string) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	_, ok := s.db.signatures[signature]
	return ok, nil
}

func (s memSignatures) Create(ctx context.Context, sig *models.WalletSignature) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.signatures[sig.Signature]; ok {
		return storage.ErrSignatureUsed
	}
	sig.ID = uuid.NewString()
	sig.CreatedAt = s.db.tick()
	stored := *sig
	s.db.signatures[sig.Signature] = &stored
	return nil
}

type memEvents struct {
	mu     sync.Mutex
	events []*models.IntentEvent
	since  time.Time
	err    error
}

func (s *memEvents) Insert(ctx context.Context, event *models.IntentEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, event)
	return nil
}

func (s *memEvents) CountByIntent(ctx context.Context, since time.Time) ([]*models.IntentCount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.since = since
	counts := map[[2]string]uint64{}
	for _, e := range s.events {
		counts[[2]string{e.Intent, string(e.Source)}]++
	}
	out := []*models.IntentCount{}
	for k, n := range counts {
		out = append(out, &models.IntentCount{Intent: k[0], Source: k[1], Count: n})
	}
	return out, nil
}

// stubExtractor plays the hosted model
type stubExtractor struct {
	intent   *intent.Intent
	err      error
	reply    string
	replyErr error
	calls    int
}

func (s *stubExtractor) ExtractIntent(ctx context.Context, text string) (*intent.Intent, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.intent, nil
}

func (s *stubExtractor) Reply(ctx context.Context, text string) (string, error) {
	if s.replyErr != nil {
		return "", s.replyErr
	}
	return s.reply, nil
}

// stubChain is a ChainAdapter with canned answers
type stubChain struct {
	balance      *types.ChainBalance
	balanceErr   error
	balanceCalls int
	status       types.TransactionStatus
	statusErr    error
}

func (c *stubChain) GetBalance(ctx context.Context, address string) (*types.ChainBalance, error) {
	c.balanceCalls++
	if c.balanceErr != nil {
		return nil, c.balanceErr
	}
	b := *c.balance
	b.Address = address
	return &b, nil
}

func (c *stubChain) GetTransactionStatus(ctx context.Context, txHash string) (types.TransactionStatus, error) {
	return c.status, c.statusErr
}

func (c *stubChain) ValidateAddress(address string) bool {
	return len(address) == 42
}

func (c *stubChain) GetChainID() types.ChainID { return types.ChainBase }

// memBalances is an in-memory BalanceCache
type memBalances struct {
	entries     map[string]*types.ChainBalance
	invalidated []string
}

func newMemBalances() *memBalances {
	return &memBalances{entries: make(map[string]*types.ChainBalance)}
}

func (c *memBalances) GetBalance(ctx context.Context, chain types.ChainID, address string) (*types.ChainBalance, bool, error) {
	b, ok := c.entries[string(chain)+":"+address]
	return b, ok, nil
}

func (c *memBalances) SetBalance(ctx context.Context, balance *types.ChainBalance) error {
	c.entries[string(balance.Chain)+":"+balance.Address] = balance
	return nil
}

func (c *memBalances) InvalidateBalance(ctx context.Context, chain types.ChainID, address string) error {
	key := string(chain) + ":" + address
	delete(c.entries, key)
	c.invalidated = append(c.invalidated, key)
	return nil
}

type testServices struct {
	db            *memDB
	events        *memEvents
	users         *UserService
	conversations *ConversationService
	transactions  *TransactionService
}

func newTestServices(chain *stubChain, balances *memBalances) *testServices {
	db := newMemDB()
	users := NewUserService(memUsers{db}, nil)
	ts := &testServices{
		db:            db,
		events:        &memEvents{},
		users:         users,
		conversations: NewConversationService(memConversations{db}, memMessages{db}, users),
	}
	if chain != nil && balances != nil {
		ts.transactions = NewTransactionService(memTransactions{db}, users, chain, balances)
	} else {
		ts.transactions = NewTransactionService(memTransactions{db}, users, nil, nil)
	}
	return ts
}

func (ts *testServices) chat(extractor IntentExtractor) *ChatService {
	return NewChatService(extractor, ts.users, ts.conversations, ts.transactions, ts.events)
}
