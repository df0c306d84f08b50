package generator

import "time"

// Fragment is one incrementally delivered piece of generated text.
type Fragment struct {
	Text string
}

// TurnKind tells which operation produced a Turn.
type TurnKind string

const (
	TurnStory    TurnKind = "story"
	TurnRevision TurnKind = "revision"
	TurnEdit     TurnKind = "edit"
)

// Turn records one accepted change of the narrative buffer.
type Turn struct {
	Kind        TurnKind  `json:"kind"`
	Instruction string    `json:"instruction,omitempty"`
	Story       string    `json:"story"`
	CreatedAt   time.Time `json:"created_at"`
}

// Narration is the synthesized audio of a finished story.
type Narration struct {
	Title string
	// Samples holds base64 encoded 16-bit mono PCM at 24000 Hz.
	Samples string
}

// Snapshot is a read-only copy of a session's state.
type Snapshot struct {
	ID          string `json:"id"`
	Phase       Phase  `json:"phase"`
	Premise     string `json:"premise"`
	Story       string `json:"story"`
	Instruction string `json:"instruction"`
	Error       string `json:"error,omitempty"`
	History     []Turn `json:"history"`
}

// Busy reports whether an operation currently owns the session.
func (s Snapshot) Busy() bool {
	return s.Phase != PhaseIdle
}

// Title returns the display title of the story.
func (s Snapshot) Title() string {
	return TitleOf(s.Story)
}
