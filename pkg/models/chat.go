package models

// Chat message senders.
const (
	SenderUser = "user"
	SenderBot  = "bot"
)

// ChatMessage is a single turn in a conversation.
type ChatMessage struct {
	Sender string `json:"sender"`
	Text   string `json:"text"`
}

// AppendFragment folds one streamed reply fragment into a conversation.
// If the conversation ends with a bot message the fragment is concatenated
// onto it; otherwise a new bot message is started. Fragments must be applied
// in arrival order. The input slice is not mutated.
func AppendFragment(conversation []ChatMessage, fragment string) []ChatMessage {
	n := len(conversation)
	if n > 0 && conversation[n-1].Sender == SenderBot {
		out := make([]ChatMessage, n)
		copy(out, conversation)
		out[n-1].Text += fragment
		return out
	}
	out := make([]ChatMessage, n, n+1)
	copy(out, conversation)
	return append(out, ChatMessage{Sender: SenderBot, Text: fragment})
}
