package types

// Position is a zero-indexed line/character location in a document.
type Position struct {
	Line      int
	Character int
}

// Range is a half-open span between two positions.
type Range struct {
	Start Position
	End   Position
}

// TriggerKind describes how a completion trigger was initiated.
type TriggerKind int

const (
	// TriggerInvoke is an explicit user invocation (keybinding, command).
	TriggerInvoke TriggerKind = iota
	// TriggerAutomatic fires as the user types.
	TriggerAutomatic
)

// String returns the string representation of a TriggerKind.
func (k TriggerKind) String() string {
	switch k {
	case TriggerInvoke:
		return "invoke"
	case TriggerAutomatic:
		return "automatic"
	default:
		return "unknown"
	}
}

// SelectedCompletionInfo describes the entry currently highlighted in the
// host's suggestion widget. Its presence suppresses inline completions: the
// widget selection takes precedence over ghost text.
type SelectedCompletionInfo struct {
	Text  string
	Range Range
}

// InlineCompletionContext carries the host-supplied trigger metadata.
type InlineCompletionContext struct {
	TriggerKind            TriggerKind
	SelectedCompletionInfo *SelectedCompletionInfo
}

// InlineCompletionItem is a single proposed insertion. Range spans from the
// trigger cursor to the end of the current line so the accepted text merges
// with any trailing same-line suffix.
type InlineCompletionItem struct {
	InsertText string
	Range      Range
}

// Speaker identifies the author of a prompt message.
type Speaker string

const (
	SpeakerHuman     Speaker = "Human"
	SpeakerAssistant Speaker = "Assistant"
)

// Message is a single turn of the completion prompt.
type Message struct {
	Speaker Speaker
	Text    string
}

// CompletionParams is the request sent to the external completions client.
type CompletionParams struct {
	Model         string
	Messages      []Message
	StopSequences []string
	MaxTokens     int
	Temperature   float64
	TopK          int
}

// CompletionResponse is the raw result of one model request.
type CompletionResponse struct {
	Completion string
	StopReason string
}
