// Package intent defines the structured intent record extracted from a chat
// message and the rule-based parser used when the hosted model is unavailable.
package intent

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// Kind is the classified user goal of a message
type Kind string

const (
	KindSend               Kind = "send"
	KindSplit              Kind = "split"
	KindCheckBalance       Kind = "check_balance"
	KindTransactionHistory Kind = "transaction_history"
	KindChatHistory        Kind = "chat_history"
	KindHistory            Kind = "history"
	KindConversation       Kind = "conversation"
	KindUnknown            Kind = "unknown"
)

// Kinds lists every intent kind in declaration order
var Kinds = []Kind{
	KindSend,
	KindSplit,
	KindCheckBalance,
	KindTransactionHistory,
	KindChatHistory,
	KindHistory,
	KindConversation,
	KindUnknown,
}

// IsValid reports whether k is a known intent kind
func (k Kind) IsValid() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// IsTransactional reports whether the intent produces a pending transaction
func (k Kind) IsTransactional() bool {
	return k == KindSend || k == KindSplit
}

// SplitType describes how a split amount is divided among recipients
type SplitType string

const (
	SplitEqual      SplitType = "equal"
	SplitPercentage SplitType = "percentage"
	SplitCustom     SplitType = "custom"
)

// IsValid reports whether s is a known split type
func (s SplitType) IsValid() bool {
	switch s {
	case SplitEqual, SplitPercentage, SplitCustom:
		return true
	}
	return false
}

// DefaultToken is used whenever a message does not name a token
const DefaultToken = "ETH"

// Amount is a decimal that serializes as a bare JSON number.
// Decoding accepts both numbers and quoted strings.
type Amount struct {
	decimal.Decimal
}

// NewAmount wraps a decimal value
func NewAmount(d decimal.Decimal) *Amount {
	return &Amount{Decimal: d}
}

// MarshalJSON writes the amount as a JSON number
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.Decimal.String()), nil
}

// Intent is the structured record produced for each incoming message.
// Amount, SplitType, Note and Query are null when absent; Recipients is
// always a (possibly empty) list.
type Intent struct {
	Kind             Kind       `json:"intent"`
	Amount           *Amount    `json:"amount"`
	Token            string     `json:"token"`
	Recipients       []string   `json:"recipients"`
	SplitType        *SplitType `json:"split_type"`
	Note             *string    `json:"note"`
	IsConversational bool       `json:"isConversational"`
	Query            *string    `json:"query,omitempty"`
}

// newIntent returns an intent of the given kind with every optional field empty
func newIntent(kind Kind) *Intent {
	return &Intent{
		Kind:       kind,
		Token:      DefaultToken,
		Recipients: []string{},
	}
}

// Normalize fills defaults and canonicalizes fields of an intent that came
// from outside the fallback parser (the model, a client request).
func (i *Intent) Normalize() {
	i.Kind = Kind(strings.ToLower(strings.TrimSpace(string(i.Kind))))
	if !i.Kind.IsValid() {
		i.Kind = KindUnknown
	}

	i.Token = strings.ToUpper(strings.TrimSpace(i.Token))
	if i.Token == "" {
		i.Token = DefaultToken
	}

	recipients := make([]string, 0, len(i.Recipients))
	for _, r := range i.Recipients {
		r = strings.TrimPrefix(strings.TrimSpace(r), "@")
		if r != "" {
			recipients = append(recipients, r)
		}
	}
	i.Recipients = recipients

	if i.SplitType != nil && !i.SplitType.IsValid() {
		i.SplitType = nil
	}
	if i.Note != nil && strings.TrimSpace(*i.Note) == "" {
		i.Note = nil
	}
	i.IsConversational = i.Kind == KindConversation
}

// JSON returns the compact JSON encoding of the intent
func (i *Intent) JSON() string {
	data, err := json.Marshal(i)
	if err != nil {
		return `{"intent":"unknown"}`
	}
	return string(data)
}

// AmountString returns the amount as text, or "" when absent
func (i *Intent) AmountString() string {
	if i.Amount == nil {
		return ""
	}
	return i.Amount.String()
}
