package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"medcot/internal/llm"
	"medcot/pkg"
	"medcot/pkg/logging"
)

// DefaultMaxTurns bounds every conversation regardless of what the
// resolution check answers.
const DefaultMaxTurns = 8

// ErrEmptyComplaint is returned when a conversation is started without an
// initial patient complaint.
var ErrEmptyComplaint = errors.New("core: patient complaint is required")

// Phase is the node of the consultation graph that runs next.
type Phase string

const (
	PhasePatient         Phase = "patient"
	PhaseDoctor          Phase = "doctor"
	PhaseResolutionCheck Phase = "resolution_check"
	PhaseTerminal        Phase = "terminal"
)

// State is a snapshot of a simulated consultation.  Transitions never
// modify a State in place; they return a new value whose Turns slice does
// not share backing storage with the previous one.
type State struct {
	Complaint   string
	DoctorStyle string
	Turns       []pkg.Turn
	Phase       Phase
	Resolved    bool
}

// NewState returns the initial state: patient to speak, no turns.
func NewState(complaint, doctorStyle string) State {
	return State{
		Complaint:   complaint,
		DoctorStyle: doctorStyle,
		Phase:       PhasePatient,
	}
}

func (s State) withTurn(t pkg.Turn, next Phase) State {
	turns := make([]pkg.Turn, len(s.Turns), len(s.Turns)+1)
	copy(turns, s.Turns)
	s.Turns = append(turns, t)
	s.Phase = next
	return s
}

// lastTurn returns the most recent turn spoken by role.
func (s State) lastTurn(role pkg.Role) (pkg.Turn, bool) {
	for i := len(s.Turns) - 1; i >= 0; i-- {
		if s.Turns[i].Role == role {
			return s.Turns[i], true
		}
	}
	return pkg.Turn{}, false
}

// Speaker is one of the two turn-producing variants, PatientTurn or
// DoctorTurn.  The unexported method keeps the set closed.
type Speaker interface {
	Role() pkg.Role
	Prompt(s State) string
	isSpeaker()
}

// PatientTurn produces follow-up utterances from the simulated patient.
type PatientTurn struct{}

func (PatientTurn) Role() pkg.Role { return pkg.RolePatient }

// Prompt conditions the patient on the initial complaint and the doctor's
// most recent reply.
func (PatientTurn) Prompt(s State) string {
	last, _ := s.lastTurn(pkg.RoleDoctor)
	return fmt.Sprintf(PatientFollowUpPrompt, s.Complaint, last.Content)
}

func (PatientTurn) isSpeaker() {}

// DoctorTurn produces replies from the simulated doctor.
type DoctorTurn struct{}

func (DoctorTurn) Role() pkg.Role { return pkg.RoleDoctor }

// Prompt conditions the doctor on the reference reply style, the initial
// complaint and the full conversation so far.
func (DoctorTurn) Prompt(s State) string {
	return fmt.Sprintf(DoctorReplyPrompt, s.DoctorStyle, s.Complaint, formatHistory(s.Turns))
}

func (DoctorTurn) isSpeaker() {}

func formatHistory(turns []pkg.Turn) string {
	lines := make([]string, 0, len(turns))
	for _, t := range turns {
		lines = append(lines, t.Role.Label()+": "+t.Content)
	}
	return strings.Join(lines, "\n")
}

// Machine drives a consultation through
// patient -> doctor -> resolution_check -> (patient | terminal).
// Every external call completes before the next transition starts.
type Machine struct {
	llm      llm.Client
	maxTurns int
	logger   *logging.Logger
}

// NewMachine constructs a Machine with the default turn ceiling.
func NewMachine(client llm.Client, logger *logging.Logger) *Machine {
	if client == nil {
		panic("core: dialogue llm client cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Machine{
		llm:      client,
		maxTurns: DefaultMaxTurns,
		logger:   logger,
	}
}

// WithMaxTurns sets the turn ceiling.  Conversations always end on a doctor
// turn, so odd values are rounded down; the minimum is 2.
func (m *Machine) WithMaxTurns(n int) *Machine {
	if n > 0 {
		n -= n % 2
		if n < 2 {
			n = 2
		}
		m.maxTurns = n
	}
	return m
}

// MaxTurns reports the effective turn ceiling.
func (m *Machine) MaxTurns() int { return m.maxTurns }

// Run steps s until it reaches PhaseTerminal or a generation call fails.
func (m *Machine) Run(ctx context.Context, s State) (State, error) {
	if strings.TrimSpace(s.Complaint) == "" {
		return s, ErrEmptyComplaint
	}
	if s.Phase == "" {
		s.Phase = PhasePatient
	}
	m.logger.Info("conversation started", "max_turns", m.maxTurns, "complaint_chars", len(s.Complaint))
	for s.Phase != PhaseTerminal {
		next, err := m.Step(ctx, s)
		if err != nil {
			return s, err
		}
		s = next
	}
	m.logger.Info("conversation finished", "turns", len(s.Turns), "forced", len(s.Turns) >= m.maxTurns)
	return s, nil
}

// Step performs exactly one transition and returns the resulting state.
func (m *Machine) Step(ctx context.Context, s State) (State, error) {
	switch s.Phase {
	case PhasePatient:
		return m.speak(ctx, s, PatientTurn{}, PhaseDoctor)
	case PhaseDoctor:
		return m.speak(ctx, s, DoctorTurn{}, PhaseResolutionCheck)
	case PhaseResolutionCheck:
		resolved, err := m.Evaluate(ctx, s)
		if err != nil {
			return s, err
		}
		s.Resolved = resolved
		if resolved {
			s.Phase = PhaseTerminal
		} else {
			s.Phase = PhasePatient
		}
		return s, nil
	case PhaseTerminal:
		return s, nil
	default:
		return s, fmt.Errorf("core: unknown phase %q", s.Phase)
	}
}

func (m *Machine) speak(ctx context.Context, s State, sp Speaker, next Phase) (State, error) {
	role := sp.Role()
	switch sp.(type) {
	case PatientTurn:
		if len(s.Turns) == 0 {
			m.logger.Debug("turn appended", "role", role, "index", 0, "literal", true)
			return s.withTurn(pkg.Turn{Role: role, Content: s.Complaint}, next), nil
		}
	case DoctorTurn:
	default:
		return s, fmt.Errorf("core: unsupported speaker %T", sp)
	}

	content, err := m.llm.Generate(llm.WithPurpose(ctx, string(role)), sp.Prompt(s))
	if err != nil {
		return s, fmt.Errorf("core: %s turn: %w", role, err)
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return s, fmt.Errorf("core: %s turn: %w", role, llm.ErrEmptyCompletion)
	}
	m.logger.Debug("turn appended", "role", role, "index", len(s.Turns), "chars", len(content))
	return s.withTurn(pkg.Turn{Role: role, Content: content}, next), nil
}

// Evaluate decides whether the conversation in s is finished.  Once the turn
// ceiling is reached the answer is always true and no call is made.
// Otherwise the model is asked a yes/no question about the latest doctor
// reply and any answer containing "yes" (case-insensitive) counts as
// resolved.  Evaluate never appends a turn.
func (m *Machine) Evaluate(ctx context.Context, s State) (bool, error) {
	if len(s.Turns) >= m.maxTurns {
		m.logger.Info("turn ceiling reached, forcing resolution", "turns", len(s.Turns), "max_turns", m.maxTurns)
		return true, nil
	}
	last, ok := s.lastTurn(pkg.RoleDoctor)
	if !ok {
		return false, nil
	}
	answer, err := m.llm.Generate(llm.WithPurpose(ctx, "resolution"), fmt.Sprintf(ResolutionPrompt, s.Complaint, last.Content))
	if err != nil {
		return false, fmt.Errorf("core: resolution check: %w", err)
	}
	if strings.TrimSpace(answer) == "" {
		return false, fmt.Errorf("core: resolution check: %w", llm.ErrEmptyCompletion)
	}
	resolved := isAffirmative(answer)
	m.logger.Info("resolution checked", "turns", len(s.Turns), "resolved", resolved)
	return resolved, nil
}

// isAffirmative matches "yes" anywhere in the answer, including inside other
// words and negations.
// TODO: switch to a strict yes/no token match once the dataset owners confirm
// that "not yes" style answers should count as unresolved.
func isAffirmative(answer string) bool {
	return strings.Contains(strings.ToLower(answer), "yes")
}
