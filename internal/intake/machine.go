package intake

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/rufetisr/FitnessTelegramBot/internal/metrics"
)

// Event is one inbound text message from the messaging transport.
type Event struct {
	SessionID string
	Text      string
	// ClientIP is the address the update arrived from, if the transport knows it.
	ClientIP string
}

// Profile is the complete set of answers handed to the recommender.
type Profile struct {
	Goal              Goal
	Weight            float64
	Height            float64
	ExerciseFrequency float64
}

// Request asks the recommender for a recommendation for one session.
type Request struct {
	SessionID string
	ClientIP  string
	Profile   Profile
}

type Sender interface {
	SendText(ctx context.Context, sessionID, text string) error
}

// Recommender produces the final reply text. Any error is reported to the
// user as a single generic failure message.
type Recommender interface {
	Recommend(ctx context.Context, req Request) (string, error)
}

type step struct {
	apply  func(s *Session, text string) error
	reject string
	next   string
}

var steps = map[Step]step{
	StepGoal: {
		apply: func(s *Session, text string) error {
			g, err := ValidateGoal(text)
			if err != nil {
				return err
			}
			s.Goal = &g
			return nil
		},
		reject: MsgInvalidGoal,
		next:   MsgAskWeight,
	},
	StepWeight: {
		apply: func(s *Session, text string) error {
			w, err := ValidateWeight(text)
			if err != nil {
				return err
			}
			s.Weight = &w
			return nil
		},
		reject: MsgInvalidWeight,
		next:   MsgAskHeight,
	},
	StepHeight: {
		apply: func(s *Session, text string) error {
			h, err := ValidateHeight(text)
			if err != nil {
				return err
			}
			s.Height = &h
			return nil
		},
		reject: MsgInvalidHeight,
		next:   MsgAskFrequency,
	},
	StepFrequency: {
		apply: func(s *Session, text string) error {
			f, err := ValidateFrequency(text)
			if err != nil {
				return err
			}
			s.ExerciseFrequency = &f
			return nil
		},
		reject: MsgInvalidFrequency,
		next:   MsgLoading,
	},
}

// Machine drives the intake questionnaire. It is not safe to call Handle
// concurrently for the same session id; the dispatcher serializes per id.
type Machine struct {
	sessions    SessionStore
	sender      Sender
	recommender Recommender
	logger      *zap.Logger
}

func NewMachine(sessions SessionStore, sender Sender, recommender Recommender, logger *zap.Logger) *Machine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Machine{
		sessions:    sessions,
		sender:      sender,
		recommender: recommender,
		logger:      logger,
	}
}

// Start (re)creates the session at AwaitingGoal and sends the goal prompt.
func (m *Machine) Start(ctx context.Context, sessionID string) {
	m.sessions.Create(sessionID)
	metrics.RecordSessionStarted()
	m.logger.Debug("session started", zap.String("session_id", sessionID))
	m.send(ctx, sessionID, MsgWelcome)
}

// Handle processes one inbound message.
func (m *Machine) Handle(ctx context.Context, ev Event) {
	switch command(ev.Text) {
	case "start":
		m.Start(ctx, ev.SessionID)
		return
	case "cancel":
		m.sessions.Delete(ev.SessionID)
		m.send(ctx, ev.SessionID, MsgCancelled)
		return
	case "help":
		m.send(ctx, ev.SessionID, MsgHelp)
		return
	}

	s, ok := m.sessions.Get(ev.SessionID)
	if !ok {
		m.send(ctx, ev.SessionID, MsgNoSession)
		return
	}

	st, ok := steps[s.Step]
	if !ok {
		// Completed sessions are deleted right after generation, so this only
		// happens if a store hands back something unexpected.
		m.logger.Warn("session in unexpected step, dropping", zap.String("session_id", s.ID), zap.Stringer("step", s.Step))
		m.sessions.Delete(s.ID)
		m.send(ctx, ev.SessionID, MsgNoSession)
		return
	}

	next := s.clone()
	if err := st.apply(&next, ev.Text); err != nil {
		metrics.RecordRejection(s.Step.String())
		m.logger.Debug("input rejected", zap.String("session_id", s.ID), zap.Stringer("step", s.Step), zap.Error(err))
		m.send(ctx, s.ID, st.reject)
		return
	}
	next.Step = s.Step + 1
	m.sessions.Save(next)
	m.send(ctx, s.ID, st.next)

	if next.Step == StepCompleted {
		m.generate(ctx, next, ev.ClientIP)
	}
}

// generate runs the recommender once. The session is gone afterwards no
// matter how the call ended.
func (m *Machine) generate(ctx context.Context, s Session, clientIP string) {
	defer m.sessions.Delete(s.ID)

	profile, err := s.Profile()
	if err != nil {
		m.logger.Error("cannot build profile", zap.String("session_id", s.ID), zap.Error(err))
		m.send(ctx, s.ID, MsgGenerationFailed)
		return
	}

	reply, err := m.recommender.Recommend(ctx, Request{SessionID: s.ID, ClientIP: clientIP, Profile: profile})
	if err != nil {
		m.logger.Error("failed to generate recommendation", zap.String("session_id", s.ID), zap.Error(err))
		m.send(ctx, s.ID, MsgGenerationFailed)
		return
	}
	m.send(ctx, s.ID, reply)
}

func (m *Machine) send(ctx context.Context, sessionID, text string) {
	if err := m.sender.SendText(ctx, sessionID, text); err != nil {
		m.logger.Error("failed to send message", zap.String("session_id", sessionID), zap.Error(err))
	}
}

// command returns the lower-cased bot command in text ("/Start@bot x" ->
// "start"), or "" when text is not a command.
func command(text string) string {
	t := strings.TrimSpace(text)
	if !strings.HasPrefix(t, "/") {
		return ""
	}
	name := strings.Fields(t)[0][1:]
	if i := strings.IndexByte(name, '@'); i >= 0 {
		name = name[:i]
	}
	return strings.ToLower(name)
}
