package generator

import "encoding/json"

// Phase is the operation that currently owns a session.
type Phase int

const (
	// PhaseIdle means no operation is running; the story may be read, edited or exported.
	PhaseIdle Phase = iota
	// PhaseGeneratingIdea is a one-shot premise request.
	PhaseGeneratingIdea
	// PhaseGeneratingStory streams a new story into the buffer.
	PhaseGeneratingStory
	// PhaseRevising streams a rewritten story into the buffer.
	PhaseRevising
	// PhaseGeneratingAudio synthesizes the finished story. The buffer is only read.
	PhaseGeneratingAudio
)

// String returns the human-readable name of the phase.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseGeneratingIdea:
		return "generating_idea"
	case PhaseGeneratingStory:
		return "generating_story"
	case PhaseRevising:
		return "revising"
	case PhaseGeneratingAudio:
		return "generating_audio"
	default:
		return "unknown"
	}
}

func (p Phase) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}
