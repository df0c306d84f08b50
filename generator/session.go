package generator

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// Session 持有一个故事的生成/修订状态，是故事文本的唯一写入者。
//
// At most one operation owns the session at a time. Starting another one
// while the phase is not PhaseIdle fails with ErrBusy and changes nothing.
// Operations run until the provider stream is exhausted or fails; the
// caller's cancellation is not propagated, and timeouts are left to the
// provider clients.
type Session struct {
	ID string

	agent    *Agent
	narrator Narrator
	logger   *log.Logger

	// notifyMu is held from a change through its delivery so subscribers
	// see snapshots in the order the changes were made.
	notifyMu sync.Mutex

	mu      sync.Mutex
	state   state
	subs    map[int]func(Snapshot)
	nextSub int
}

type state struct {
	phase       Phase
	premise     string
	story       string
	instruction string
	errMsg      string
	history     []Turn
}

// NewSession 创建 session，尚未生成故事。narrator may be nil when audio export is not needed.
func NewSession(id string, agent *Agent, narrator Narrator, logger *log.Logger) *Session {
	if logger == nil {
		logger = log.Default()
	}
	return &Session{
		ID:       id,
		agent:    agent,
		narrator: narrator,
		logger:   logger.With("session", id),
		subs:     make(map[int]func(Snapshot)),
	}
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe registers fn to receive a snapshot after every state change,
// in the order the changes happen. fn runs on the goroutine performing the
// operation and must not block or start another operation on the session.
// The returned func removes the subscription.
func (s *Session) Subscribe(fn func(Snapshot)) (cancel func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

// Watch subscribes fn and first hands it the current snapshot, ordered with
// respect to concurrent changes.
func (s *Session) Watch(fn func(Snapshot)) (cancel func()) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()
	cancel = s.Subscribe(fn)
	fn(s.Snapshot())
	return cancel
}

func (s *Session) snapshotLocked() Snapshot {
	history := make([]Turn, len(s.state.history))
	copy(history, s.state.history)
	return Snapshot{
		ID:          s.ID,
		Phase:       s.state.phase,
		Premise:     s.state.premise,
		Story:       s.state.story,
		Instruction: s.state.instruction,
		Error:       s.state.errMsg,
		History:     history,
	}
}

// transition applies fn under the lock. When fn fails nothing is published.
func (s *Session) transition(fn func(st *state) error) error {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	if err := fn(&s.state); err != nil {
		s.mu.Unlock()
		return err
	}
	snap := s.snapshotLocked()
	subs := make([]func(Snapshot), 0, len(s.subs))
	for _, sub := range s.subs {
		subs = append(subs, sub)
	}
	s.mu.Unlock()

	for _, sub := range subs {
		sub(snap)
	}
	return nil
}

// acquire moves an idle session into phase and applies fn.
func (s *Session) acquire(phase Phase, fn func(st *state) error) error {
	return s.transition(func(st *state) error {
		if st.phase != PhaseIdle {
			return ErrBusy
		}
		if fn != nil {
			if err := fn(st); err != nil {
				return err
			}
		}
		st.phase = phase
		st.errMsg = ""
		return nil
	})
}

// release returns the session to idle, recording err for the user.
func (s *Session) release(err error, fn func(st *state)) {
	_ = s.transition(func(st *state) error {
		if fn != nil {
			fn(st)
		}
		st.phase = PhaseIdle
		st.errMsg = UserMessage(err)
		return nil
	})
}

// consume appends every fragment to the story in arrival order.
func (s *Session) consume(stream iter.Seq2[Fragment, error]) error {
	for frag, err := range stream {
		if err != nil {
			return err
		}
		if frag.Text == "" {
			continue
		}
		_ = s.transition(func(st *state) error {
			st.story += frag.Text
			return nil
		})
	}
	return nil
}

// SetPremise replaces the premise while idle.
func (s *Session) SetPremise(premise string) error {
	return s.transition(func(st *state) error {
		if st.phase != PhaseIdle {
			return ErrBusy
		}
		st.premise = premise
		return nil
	})
}

// Edit replaces the story with text typed by the user while idle.
func (s *Session) Edit(story string) error {
	return s.transition(func(st *state) error {
		if st.phase != PhaseIdle {
			return ErrBusy
		}
		st.story = story
		st.errMsg = ""
		st.history = append(st.history, Turn{Kind: TurnEdit, Story: story, CreatedAt: time.Now()})
		return nil
	})
}

// GenerateIdea asks the agent for a premise. Like starting over, it clears the story.
func (s *Session) GenerateIdea(ctx context.Context) (string, error) {
	if err := s.acquire(PhaseGeneratingIdea, func(st *state) error {
		st.story = ""
		return nil
	}); err != nil {
		return "", err
	}
	s.logger.Info("generating idea")

	idea, err := s.agent.Idea(context.WithoutCancel(ctx))
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrIdea, err)
		s.logger.Error("idea failed", "err", err)
		s.release(err, nil)
		return "", err
	}
	s.release(nil, func(st *state) {
		st.premise = idea
	})
	return idea, nil
}

// BeginGeneration streams a new story for premise into the cleared buffer.
// On failure the buffer is left empty. A stream that ends without any
// non-blank text counts as a failure and returns ErrGeneration.
func (s *Session) BeginGeneration(ctx context.Context, premise string) error {
	if strings.TrimSpace(premise) == "" {
		return fmt.Errorf("%w: premise is empty", ErrValidation)
	}
	if err := s.acquire(PhaseGeneratingStory, func(st *state) error {
		st.premise = premise
		st.story = ""
		st.instruction = ""
		return nil
	}); err != nil {
		return err
	}
	s.logger.Info("generating story", "premise", premise)
	start := time.Now()

	err := s.consume(s.agent.Story(context.WithoutCancel(ctx), premise))
	if err == nil && strings.TrimSpace(s.Snapshot().Story) == "" {
		err = errors.New("model returned an empty story")
	}
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrGeneration, err)
		s.logger.Error("story failed", "err", err)
		s.release(err, func(st *state) {
			st.story = ""
		})
		return err
	}

	s.release(nil, func(st *state) {
		st.history = append(st.history, Turn{Kind: TurnStory, Story: st.story, CreatedAt: time.Now()})
	})
	s.logger.Info("story ready", "elapsed", time.Since(start).Round(time.Millisecond))
	return nil
}

// BeginRevision streams the story rewritten according to instruction. The
// buffer is cleared while the rewrite arrives and restored to its previous
// content if the rewrite fails. A rewrite with no non-blank text is a
// failure (ErrRevision). The instruction is cleared either way.
func (s *Session) BeginRevision(ctx context.Context, instruction string) error {
	if strings.TrimSpace(instruction) == "" {
		return fmt.Errorf("%w: revision instruction is empty", ErrValidation)
	}
	var original string
	if err := s.acquire(PhaseRevising, func(st *state) error {
		if strings.TrimSpace(st.story) == "" {
			return fmt.Errorf("%w: there is no story to revise", ErrValidation)
		}
		original = st.story
		st.instruction = instruction
		st.story = ""
		return nil
	}); err != nil {
		return err
	}
	s.logger.Info("revising story", "instruction", instruction)

	err := s.consume(s.agent.Revise(context.WithoutCancel(ctx), original, instruction))
	if err == nil && strings.TrimSpace(s.Snapshot().Story) == "" {
		err = errors.New("model returned an empty story")
	}
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrRevision, err)
		s.logger.Error("revision failed, restoring previous story", "err", err)
		s.release(err, func(st *state) {
			st.story = original
			st.instruction = ""
		})
		return err
	}

	s.release(nil, func(st *state) {
		st.history = append(st.history, Turn{
			Kind:        TurnRevision,
			Instruction: instruction,
			Story:       st.story,
			CreatedAt:   time.Now(),
		})
		st.instruction = ""
	})
	s.logger.Info("revision applied")
	return nil
}

// GenerateAudio synthesizes the story body. The story itself is not modified.
func (s *Session) GenerateAudio(ctx context.Context) (Narration, error) {
	if s.narrator == nil {
		return Narration{}, fmt.Errorf("%w: no narrator configured", ErrAudio)
	}
	var story string
	if err := s.acquire(PhaseGeneratingAudio, func(st *state) error {
		if strings.TrimSpace(BodyOf(st.story)) == "" {
			return fmt.Errorf("%w: there is no story to narrate", ErrValidation)
		}
		story = st.story
		return nil
	}); err != nil {
		return Narration{}, err
	}
	title := TitleOf(story)
	s.logger.Info("synthesizing audio", "title", title)

	samples, err := s.narrator.Synthesize(context.WithoutCancel(ctx), BodyOf(story))
	if err == nil && samples == "" {
		err = errors.New("no audio data in response")
	}
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrAudio, err)
		s.logger.Error("audio failed", "err", err)
		s.release(err, nil)
		return Narration{}, err
	}
	s.release(nil, nil)
	return Narration{Title: title, Samples: samples}, nil
}
