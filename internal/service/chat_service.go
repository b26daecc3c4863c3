package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/lucra-chat/internal/intent"
	"github.com/lucra-chat/internal/logging"
	"github.com/lucra-chat/internal/models"
	"github.com/lucra-chat/internal/types"
	"github.com/lucra-chat/internal/wallet"
)

// ChatTurn is one message of the client-side transcript
type ChatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is an incoming chat message with its transcript
type ChatRequest struct {
	Messages       []ChatTurn `json:"messages"`
	WalletAddress  string     `json:"walletAddress"`
	ConversationID string     `json:"conversationId"`
}

// ChatResponse is the assistant's answer
type ChatResponse struct {
	Reply          string
	Intent         *intent.Intent
	Source         types.IntentSource
	ConversationID string
}

// ChatService classifies chat messages, answers them and records the exchange
type ChatService struct {
	extractor     IntentExtractor
	users         *UserService
	conversations *ConversationService
	transactions  *TransactionService
	events        IntentEventStore
	now           func() time.Time
}

// NewChatService creates a chat service. extractor and events may be nil.
func NewChatService(
	extractor IntentExtractor,
	users *UserService,
	conversations *ConversationService,
	transactions *TransactionService,
	events IntentEventStore,
) *ChatService {
	return &ChatService{
		extractor:     extractor,
		users:         users,
		conversations: conversations,
		transactions:  transactions,
		events:        events,
		now:           time.Now,
	}
}

// HandleMessage answers the last user message of req.
//
// Classification and persistence failures never fail the request: the
// fallback parser replaces the model and writes are logged and skipped.
func (s *ChatService) HandleMessage(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	text := lastUserMessage(req.Messages)
	if text == "" {
		return nil, invalidInput("messages", "must contain a user message")
	}

	log := logging.FromContext(ctx)
	if req.WalletAddress != "" {
		log = log.WithField("wallet", req.WalletAddress)
		ctx = logging.WithLogger(ctx, log)
	}

	parsed, source := s.classify(ctx, text)
	resp := &ChatResponse{
		Reply:          s.reply(ctx, text, parsed),
		Intent:         parsed,
		Source:         source,
		ConversationID: req.ConversationID,
	}

	if req.WalletAddress != "" {
		resp.ConversationID = s.persist(ctx, req, text, resp)
	}
	s.recordEvent(ctx, req.WalletAddress, resp)

	log.WithFields(map[string]interface{}{
		"intent": parsed.Kind,
		"source": source,
	}).Info("chat message handled")
	return resp, nil
}

func (s *ChatService) classify(ctx context.Context, text string) (*intent.Intent, types.IntentSource) {
	if s.extractor != nil {
		parsed, err := s.extractor.ExtractIntent(ctx, text)
		if err == nil {
			return parsed, types.SourceLLM
		}
		logging.FromContext(ctx).WithError(err).Warn("intent extraction failed, using fallback parser")
	}
	return intent.Parse(text), types.SourceFallback
}

func (s *ChatService) reply(ctx context.Context, text string, parsed *intent.Intent) string {
	if parsed.Kind != intent.KindConversation || s.extractor == nil {
		return renderReply(parsed)
	}

	reply, err := s.extractor.Reply(ctx, text)
	if err != nil {
		logging.FromContext(ctx).WithError(err).Warn("conversational reply failed")
		return apologyReply
	}
	return reply
}

// persist writes the exchange and returns the conversation id used
func (s *ChatService) persist(ctx context.Context, req ChatRequest, text string, resp *ChatResponse) string {
	log := logging.FromContext(ctx)

	userID, err := s.users.EnsureUserID(ctx, req.WalletAddress)
	if err != nil {
		log.WithError(err).Error("failed to ensure user")
		return req.ConversationID
	}

	conversationID := req.ConversationID
	conv, err := s.conversations.Ensure(ctx, userID, req.ConversationID, text)
	if err != nil {
		log.WithError(err).Error("failed to ensure conversation")
	} else {
		conversationID = conv.ID
		s.appendMessages(ctx, conv.ID, userID, text, resp)
	}

	if resp.Intent.Kind.IsTransactional() {
		var convRef *string
		if conv != nil {
			convRef = &conv.ID
		}
		if _, err := s.transactions.create(ctx, userID, convRef, resp.Intent); err != nil {
			log.WithError(err).Error("failed to store pending transaction")
		}
	}

	return conversationID
}

func (s *ChatService) appendMessages(ctx context.Context, conversationID, userID, text string, resp *ChatResponse) {
	log := logging.FromContext(ctx).WithField("conversationId", conversationID)

	if _, err := s.conversations.appendMessage(ctx, conversationID, userID, text, true, nil); err != nil {
		log.WithError(err).Error("failed to store user message")
	}

	metadata, err := json.Marshal(map[string]interface{}{
		"intent": resp.Intent,
		"source": resp.Source,
	})
	if err != nil {
		log.WithError(err).Warn("failed to encode message metadata")
		metadata = nil
	}
	if _, err := s.conversations.appendMessage(ctx, conversationID, userID, resp.Reply, false, metadata); err != nil {
		log.WithError(err).Error("failed to store assistant message")
	}
}

func (s *ChatService) recordEvent(ctx context.Context, walletAddress string, resp *ChatResponse) {
	if s.events == nil {
		return
	}

	event := &models.IntentEvent{
		EventTime:      s.now().UTC(),
		WalletAddress:  wallet.NormalizeAddress(walletAddress),
		ConversationID: resp.ConversationID,
		Intent:         string(resp.Intent.Kind),
		Source:         resp.Source,
		Token:          resp.Intent.Token,
		RecipientCount: uint16(min(len(resp.Intent.Recipients), 65535)),
	}
	if resp.Intent.Amount != nil {
		event.Amount = resp.Intent.Amount.InexactFloat64()
	}

	if err := s.events.Insert(ctx, event); err != nil {
		logging.FromContext(ctx).WithError(err).Warn("failed to record intent event")
	}
}

func lastUserMessage(turns []ChatTurn) string {
	for i := len(turns) - 1; i >= 0; i-- {
		if strings.EqualFold(turns[i].Role, "user") {
			if text := strings.TrimSpace(turns[i].Content); text != "" {
				return text
			}
		}
	}
	return ""
}
