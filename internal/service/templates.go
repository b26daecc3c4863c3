package service

import (
	"fmt"
	"strings"

	"github.com/lucra-chat/internal/intent"
)

// BalanceSentinel is replaced by the client with the wallet's balance
const BalanceSentinel = "{{BALANCE}}"

const (
	greetingReply = "Hi! I'm Lucra, your wallet assistant. I can send or split payments " +
		"(try \"Send 10 ETH to @alice\"), check your balance and show your transaction history."
	apologyReply = "Sorry, I couldn't come up with an answer right now. " +
		"You can still send, split, check your balance or view your history."
	unknownReply = "I'm not sure what you'd like to do. Try \"Send 10 ETH to @alice\", " +
		"\"Split 60 equally between @bob and @carol\", \"What's my balance\" or \"Show my history\"."
	balanceReply            = "Your current balance is " + BalanceSentinel + "."
	transactionHistoryReply = "Here are your recent transactions."
	chatHistoryReply        = "Here are your previous conversations."
	historyReply            = "Here is your recent activity."
)

// renderReply returns the fixed reply for a classified intent. Conversation
// replies are written by the model when one is configured; see ChatService.
func renderReply(in *intent.Intent) string {
	switch in.Kind {
	case intent.KindSend:
		return withNote(fmt.Sprintf("Ready to send %s to %s. Please confirm the transaction in your wallet.",
			amountPhrase(in), recipientPhrase(in.Recipients)), in.Note)
	case intent.KindSplit:
		return withNote(fmt.Sprintf("Ready to split %s%s between %s. Please confirm the transaction in your wallet.",
			amountPhrase(in), splitPhrase(in.SplitType), recipientPhrase(in.Recipients)), in.Note)
	case intent.KindCheckBalance:
		return balanceReply
	case intent.KindTransactionHistory:
		return transactionHistoryReply
	case intent.KindChatHistory:
		return chatHistoryReply
	case intent.KindHistory:
		return historyReply
	case intent.KindConversation:
		return greetingReply
	default:
		return unknownReply
	}
}

func amountPhrase(in *intent.Intent) string {
	if in.Amount == nil {
		return "an amount of " + in.Token
	}
	return in.AmountString() + " " + in.Token
}

func recipientPhrase(recipients []string) string {
	if len(recipients) == 0 {
		return "your recipients"
	}
	handles := make([]string, len(recipients))
	for i, r := range recipients {
		handles[i] = "@" + r
	}
	if len(handles) == 1 {
		return handles[0]
	}
	return strings.Join(handles[:len(handles)-1], ", ") + " and " + handles[len(handles)-1]
}

func splitPhrase(splitType *intent.SplitType) string {
	if splitType == nil {
		return ""
	}
	switch *splitType {
	case intent.SplitEqual:
		return " equally"
	case intent.SplitPercentage:
		return " by percentage"
	default:
		return " in custom shares"
	}
}

func withNote(reply string, note *string) string {
	if note == nil {
		return reply
	}
	return fmt.Sprintf("%s Note: %s", reply, *note)
}
