package generator

import (
	"context"
	"errors"
	"io"
	"iter"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
)

// fakeLLM replays canned fragments and records the prompts it receives.
type fakeLLM struct {
	mu        sync.Mutex
	idea      string
	ideaErr   error
	fragments []string
	streamErr error
	prompts   []Prompt
}

func (f *fakeLLM) record(p Prompt) {
	f.mu.Lock()
	f.prompts = append(f.prompts, p)
	f.mu.Unlock()
}

func (f *fakeLLM) Complete(_ context.Context, p Prompt) (string, error) {
	f.record(p)
	return f.idea, f.ideaErr
}

func (f *fakeLLM) Stream(_ context.Context, p Prompt) iter.Seq2[Fragment, error] {
	f.record(p)
	return func(yield func(Fragment, error) bool) {
		for _, text := range f.fragments {
			if !yield(Fragment{Text: text}, nil) {
				return
			}
		}
		if f.streamErr != nil {
			yield(Fragment{}, f.streamErr)
		}
	}
}

type fakeNarrator struct {
	samples string
	err     error
	text    string
}

func (n *fakeNarrator) Synthesize(_ context.Context, text string) (string, error) {
	n.text = text
	return n.samples, n.err
}

func newTestSession(t *testing.T, llm LLMClient, narrator Narrator) *Session {
	t.Helper()
	agent, err := NewAgent(llm)
	if err != nil {
		t.Fatalf("NewAgent error: %v", err)
	}
	return NewSession("test", agent, narrator, log.New(io.Discard))
}

func TestSession_BeginGeneration_AppendsInArrivalOrder(t *testing.T) {
	llm := &fakeLLM{fragments: []string{"El ", "detective ", "llegó."}}
	sess := newTestSession(t, llm, nil)

	var snaps []Snapshot
	cancel := sess.Subscribe(func(s Snapshot) { snaps = append(snaps, s) })
	defer cancel()

	if err := sess.BeginGeneration(context.Background(), "Un detective en un pueblo"); err != nil {
		t.Fatalf("BeginGeneration error: %v", err)
	}

	got := sess.Snapshot()
	if got.Story != "El detective llegó." {
		t.Errorf("story = %q; want %q", got.Story, "El detective llegó.")
	}
	if got.Phase != PhaseIdle {
		t.Errorf("phase = %v; want idle", got.Phase)
	}
	if got.Premise != "Un detective en un pueblo" {
		t.Errorf("premise = %q", got.Premise)
	}
	if len(got.History) != 1 || got.History[0].Kind != TurnStory {
		t.Errorf("history = %+v; want one story turn", got.History)
	}

	wantStories := []string{"", "El ", "El detective ", "El detective llegó.", "El detective llegó."}
	if len(snaps) != len(wantStories) {
		t.Fatalf("got %d snapshots; want %d", len(snaps), len(wantStories))
	}
	for i, want := range wantStories {
		if snaps[i].Story != want {
			t.Errorf("snapshot %d story = %q; want %q", i, snaps[i].Story, want)
		}
	}
	if snaps[0].Phase != PhaseGeneratingStory {
		t.Errorf("first phase = %v; want generating_story", snaps[0].Phase)
	}
	if last := snaps[len(snaps)-1]; last.Phase != PhaseIdle {
		t.Errorf("last phase = %v; want idle", last.Phase)
	}
}

func TestSession_BeginGeneration_BlankPremise(t *testing.T) {
	for _, premise := range []string{"", "   ", "\n\t"} {
		llm := &fakeLLM{fragments: []string{"nunca"}}
		sess := newTestSession(t, llm, nil)
		if err := sess.Edit("Historia previa"); err != nil {
			t.Fatalf("Edit error: %v", err)
		}
		before := sess.Snapshot()

		err := sess.BeginGeneration(context.Background(), premise)
		if !errors.Is(err, ErrValidation) {
			t.Errorf("BeginGeneration(%q) error = %v; want ErrValidation", premise, err)
		}
		after := sess.Snapshot()
		if after.Story != before.Story || after.Premise != before.Premise || after.Error != "" {
			t.Errorf("state changed after validation failure: %+v", after)
		}
		if len(llm.prompts) != 0 {
			t.Errorf("provider called %d times; want 0", len(llm.prompts))
		}
	}
}

func TestSession_BeginGeneration_StreamError(t *testing.T) {
	llm := &fakeLLM{fragments: []string{"Había ", "una "}, streamErr: errors.New("connection reset")}
	sess := newTestSession(t, llm, nil)
	if err := sess.Edit("Historia vieja"); err != nil {
		t.Fatalf("Edit error: %v", err)
	}

	err := sess.BeginGeneration(context.Background(), "premisa")
	if !errors.Is(err, ErrGeneration) {
		t.Fatalf("error = %v; want ErrGeneration", err)
	}
	got := sess.Snapshot()
	if got.Story != "" {
		t.Errorf("story = %q; want empty", got.Story)
	}
	if got.Phase != PhaseIdle {
		t.Errorf("phase = %v; want idle", got.Phase)
	}
	if got.Error == "" {
		t.Error("expected error message to be flagged")
	}
}

func TestSession_BeginGeneration_ClearsPendingError(t *testing.T) {
	llm := &fakeLLM{streamErr: errors.New("boom")}
	sess := newTestSession(t, llm, nil)
	_ = sess.BeginGeneration(context.Background(), "premisa")
	if sess.Snapshot().Error == "" {
		t.Fatal("expected error after failed generation")
	}

	llm.streamErr = nil
	llm.fragments = []string{"Título\n", "cuerpo"}
	if err := sess.BeginGeneration(context.Background(), "premisa"); err != nil {
		t.Fatalf("BeginGeneration error: %v", err)
	}
	if got := sess.Snapshot(); got.Error != "" {
		t.Errorf("error = %q; want cleared", got.Error)
	}
}

func TestSession_BeginRevision_FailureRestoresStory(t *testing.T) {
	llm := &fakeLLM{streamErr: errors.New("upstream unavailable")}
	sess := newTestSession(t, llm, nil)
	if err := sess.Edit("Historia original"); err != nil {
		t.Fatalf("Edit error: %v", err)
	}

	var sawCleared bool
	cancel := sess.Subscribe(func(s Snapshot) {
		if s.Phase == PhaseRevising && s.Story == "" && s.Instruction == "Haz el final más feliz" {
			sawCleared = true
		}
	})
	defer cancel()

	err := sess.BeginRevision(context.Background(), "Haz el final más feliz")
	if !errors.Is(err, ErrRevision) {
		t.Fatalf("error = %v; want ErrRevision", err)
	}
	got := sess.Snapshot()
	if got.Story != "Historia original" {
		t.Errorf("story = %q; want %q", got.Story, "Historia original")
	}
	if got.Instruction != "" {
		t.Errorf("instruction = %q; want empty", got.Instruction)
	}
	if got.Error == "" {
		t.Error("expected error message to be flagged")
	}
	if got.Phase != PhaseIdle {
		t.Errorf("phase = %v; want idle", got.Phase)
	}
	if !sawCleared {
		t.Error("observers never saw the cleared buffer while revising")
	}
}

func TestSession_BeginRevision_PartialFailureRestoresStory(t *testing.T) {
	llm := &fakeLLM{fragments: []string{"Versión ", "a medias"}, streamErr: errors.New("timeout")}
	sess := newTestSession(t, llm, nil)
	_ = sess.Edit("Historia original")

	if err := sess.BeginRevision(context.Background(), "Cambia el final"); !errors.Is(err, ErrRevision) {
		t.Fatalf("error = %v; want ErrRevision", err)
	}
	if got := sess.Snapshot().Story; got != "Historia original" {
		t.Errorf("story = %q; want restored", got)
	}
}

func TestSession_BeginRevision_Success(t *testing.T) {
	llm := &fakeLLM{fragments: []string{"Final feliz\n", "Todos ", "sonrieron."}}
	sess := newTestSession(t, llm, nil)
	_ = sess.Edit("Final triste\nNadie sonrió.")

	if err := sess.BeginRevision(context.Background(), "Haz el final más feliz"); err != nil {
		t.Fatalf("BeginRevision error: %v", err)
	}
	got := sess.Snapshot()
	if got.Story != "Final feliz\nTodos sonrieron." {
		t.Errorf("story = %q", got.Story)
	}
	if got.Instruction != "" {
		t.Errorf("instruction = %q; want empty", got.Instruction)
	}
	last := got.History[len(got.History)-1]
	if last.Kind != TurnRevision || last.Instruction != "Haz el final más feliz" {
		t.Errorf("last turn = %+v", last)
	}

	if len(llm.prompts) != 1 {
		t.Fatalf("prompts = %d; want 1", len(llm.prompts))
	}
	user := llm.prompts[0].User
	if !strings.Contains(user, "Final triste\nNadie sonrió.") || !strings.Contains(user, "Haz el final más feliz") {
		t.Errorf("revision prompt missing story or instruction: %q", user)
	}
}

func TestSession_BeginRevision_Validation(t *testing.T) {
	llm := &fakeLLM{fragments: []string{"x"}}
	sess := newTestSession(t, llm, nil)

	if err := sess.BeginRevision(context.Background(), "Cambia algo"); !errors.Is(err, ErrValidation) {
		t.Errorf("empty story: error = %v; want ErrValidation", err)
	}
	_ = sess.Edit("Historia")
	for _, instruction := range []string{"", "  "} {
		if err := sess.BeginRevision(context.Background(), instruction); !errors.Is(err, ErrValidation) {
			t.Errorf("instruction %q: error = %v; want ErrValidation", instruction, err)
		}
	}
	if got := sess.Snapshot(); got.Story != "Historia" || got.Phase != PhaseIdle {
		t.Errorf("state changed: %+v", got)
	}
	if len(llm.prompts) != 0 {
		t.Errorf("provider called %d times; want 0", len(llm.prompts))
	}
}

func TestSession_BeginRevision_EmptyRewriteRestores(t *testing.T) {
	llm := &fakeLLM{fragments: []string{"  ", "\n"}}
	sess := newTestSession(t, llm, nil)
	_ = sess.Edit("Historia original")

	if err := sess.BeginRevision(context.Background(), "Acórtalo"); !errors.Is(err, ErrRevision) {
		t.Fatalf("error = %v; want ErrRevision", err)
	}
	if got := sess.Snapshot().Story; got != "Historia original" {
		t.Errorf("story = %q; want restored", got)
	}
}

// gatedLLM holds its stream open until release is closed.
type gatedLLM struct {
	started chan struct{}
	release chan struct{}
}

func (g *gatedLLM) Complete(context.Context, Prompt) (string, error) { return "", nil }

func (g *gatedLLM) Stream(context.Context, Prompt) iter.Seq2[Fragment, error] {
	return func(yield func(Fragment, error) bool) {
		if !yield(Fragment{Text: "Parte "}, nil) {
			return
		}
		close(g.started)
		<-g.release
		yield(Fragment{Text: "final."}, nil)
	}
}

func TestSession_SingleWriter(t *testing.T) {
	llm := &gatedLLM{started: make(chan struct{}), release: make(chan struct{})}
	sess := newTestSession(t, llm, &fakeNarrator{samples: "AAAA"})
	ctx := context.Background()

	done := make(chan error, 1)
	go func() { done <- sess.BeginGeneration(ctx, "premisa") }()
	<-llm.started

	if err := sess.BeginGeneration(ctx, "otra"); !errors.Is(err, ErrBusy) {
		t.Errorf("second generation error = %v; want ErrBusy", err)
	}
	if err := sess.BeginRevision(ctx, "cambia"); !errors.Is(err, ErrBusy) {
		t.Errorf("revision error = %v; want ErrBusy", err)
	}
	if _, err := sess.GenerateAudio(ctx); !errors.Is(err, ErrBusy) {
		t.Errorf("audio error = %v; want ErrBusy", err)
	}
	if err := sess.Edit("manual"); !errors.Is(err, ErrBusy) {
		t.Errorf("edit error = %v; want ErrBusy", err)
	}
	if got := sess.Snapshot(); got.Phase != PhaseGeneratingStory || got.Story != "Parte " {
		t.Errorf("in-flight snapshot = %+v", got)
	}

	close(llm.release)
	if err := <-done; err != nil {
		t.Fatalf("BeginGeneration error: %v", err)
	}
	if got := sess.Snapshot().Story; got != "Parte final." {
		t.Errorf("story = %q; want %q", got, "Parte final.")
	}
}

// A subscriber that is slow on one snapshot must not see later changes first.
func TestSession_SubscribersSeeChangesInOrder(t *testing.T) {
	llm := &fakeLLM{fragments: []string{"El Faro\n", "La luz se apagó."}}
	sess := newTestSession(t, llm, nil)
	ctx := context.Background()

	stalled := make(chan struct{})
	resume := make(chan struct{})
	var (
		once sync.Once
		mu   sync.Mutex
		seen []Snapshot
	)
	cancel := sess.Subscribe(func(snap Snapshot) {
		if snap.Phase == PhaseIdle && len(snap.History) == 1 {
			once.Do(func() {
				close(stalled)
				<-resume
			})
		}
		mu.Lock()
		seen = append(seen, snap)
		mu.Unlock()
	})
	defer cancel()

	genDone := make(chan error, 1)
	go func() { genDone <- sess.BeginGeneration(ctx, "premisa") }()
	<-stalled

	revDone := make(chan error, 1)
	go func() { revDone <- sess.BeginRevision(ctx, "más corto") }()
	time.Sleep(50 * time.Millisecond)
	close(resume)

	if err := <-genDone; err != nil {
		t.Fatalf("BeginGeneration error: %v", err)
	}
	if err := <-revDone; err != nil {
		t.Fatalf("BeginRevision error: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	generated, revising := -1, -1
	for i, snap := range seen {
		if snap.Phase == PhaseIdle && len(snap.History) == 1 && generated < 0 {
			generated = i
		}
		if snap.Phase == PhaseRevising && revising < 0 {
			revising = i
		}
	}
	if generated < 0 || revising < 0 || generated > revising {
		t.Fatalf("generation idle at %d, revision start at %d", generated, revising)
	}
	last := seen[len(seen)-1]
	if last.Phase != PhaseIdle || len(last.History) != 2 {
		t.Errorf("last snapshot = %+v; want idle after the revision", last)
	}
}

func TestSession_StreamIgnoresCallerCancellation(t *testing.T) {
	llm := &fakeLLM{fragments: []string{"Uno ", "dos."}}
	sess := newTestSession(t, llm, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := sess.BeginGeneration(ctx, "premisa"); err != nil {
		t.Fatalf("BeginGeneration error: %v", err)
	}
	if got := sess.Snapshot().Story; got != "Uno dos." {
		t.Errorf("story = %q", got)
	}
}

func TestSession_GenerateIdea(t *testing.T) {
	llm := &fakeLLM{idea: "  \"Un faro que ilumina el pasado.\"\n"}
	sess := newTestSession(t, llm, nil)
	_ = sess.Edit("Historia anterior")

	idea, err := sess.GenerateIdea(context.Background())
	if err != nil {
		t.Fatalf("GenerateIdea error: %v", err)
	}
	if idea != "Un faro que ilumina el pasado." {
		t.Errorf("idea = %q", idea)
	}
	got := sess.Snapshot()
	if got.Premise != idea {
		t.Errorf("premise = %q; want %q", got.Premise, idea)
	}
	if got.Story != "" {
		t.Errorf("story = %q; want cleared", got.Story)
	}
}

func TestSession_GenerateIdea_Failure(t *testing.T) {
	llm := &fakeLLM{ideaErr: errors.New("quota exceeded")}
	sess := newTestSession(t, llm, nil)
	_ = sess.SetPremise("mi idea")

	_, err := sess.GenerateIdea(context.Background())
	if !errors.Is(err, ErrIdea) {
		t.Fatalf("error = %v; want ErrIdea", err)
	}
	got := sess.Snapshot()
	if got.Premise != "mi idea" {
		t.Errorf("premise = %q; want unchanged", got.Premise)
	}
	if got.Error != UserMessage(err) {
		t.Errorf("error message = %q", got.Error)
	}
}

func TestSession_GenerateAudio(t *testing.T) {
	narrator := &fakeNarrator{samples: "AAECAw=="}
	sess := newTestSession(t, &fakeLLM{}, narrator)
	_ = sess.Edit("  El faro \nLa luz giraba.")

	n, err := sess.GenerateAudio(context.Background())
	if err != nil {
		t.Fatalf("GenerateAudio error: %v", err)
	}
	if n.Title != "El faro" {
		t.Errorf("title = %q; want %q", n.Title, "El faro")
	}
	if n.Samples != "AAECAw==" {
		t.Errorf("samples = %q", n.Samples)
	}
	if narrator.text != "La luz giraba." {
		t.Errorf("narrated text = %q; want body only", narrator.text)
	}
	if got := sess.Snapshot(); got.Story != "  El faro \nLa luz giraba." || got.Phase != PhaseIdle {
		t.Errorf("state after audio = %+v", got)
	}
}

func TestSession_GenerateAudio_MissingPayload(t *testing.T) {
	sess := newTestSession(t, &fakeLLM{}, &fakeNarrator{})
	_ = sess.Edit("Título\nCuerpo")

	_, err := sess.GenerateAudio(context.Background())
	if !errors.Is(err, ErrAudio) {
		t.Fatalf("error = %v; want ErrAudio", err)
	}
	if sess.Snapshot().Error == "" {
		t.Error("expected error message to be flagged")
	}
}

func TestSession_GenerateAudio_NoStory(t *testing.T) {
	narrator := &fakeNarrator{samples: "AAAA"}
	sess := newTestSession(t, &fakeLLM{}, narrator)

	if _, err := sess.GenerateAudio(context.Background()); !errors.Is(err, ErrValidation) {
		t.Errorf("error = %v; want ErrValidation", err)
	}
	if narrator.text != "" {
		t.Error("narrator should not be called")
	}
}

func TestSession_Unsubscribe(t *testing.T) {
	sess := newTestSession(t, &fakeLLM{}, nil)
	var calls int
	cancel := sess.Subscribe(func(Snapshot) { calls++ })
	_ = sess.Edit("uno")
	cancel()
	cancel()
	_ = sess.Edit("dos")
	if calls != 1 {
		t.Errorf("calls = %d; want 1", calls)
	}
}

func TestSession_Watch(t *testing.T) {
	sess := newTestSession(t, &fakeLLM{}, nil)
	_ = sess.Edit("uno")

	var got []string
	cancel := sess.Watch(func(snap Snapshot) { got = append(got, snap.Story) })
	defer cancel()
	_ = sess.Edit("dos")

	if strings.Join(got, "|") != "uno|dos" {
		t.Errorf("stories = %q; want current then change", got)
	}
}
