package page

import "github.com/TIANLI0/AttackLens/model"

// Phase is where a page is in its submit cycle.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseSubmitting
	PhaseResult
	PhaseError
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseSubmitting:
		return "submitting"
	case PhaseResult:
		return "result"
	case PhaseError:
		return "error"
	default:
		return "unknown"
	}
}

// UnknownError is shown when a failure carries no message.
const UnknownError = "Unknown error"

// File is an uploaded image as picked by the user.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// State is the whole UI state of one page view. Transitions return a new
// State; a Submitting state never carries a result or an error.
type State struct {
	phase      Phase
	file       *File
	epsilon    float64
	result     *model.AttackResult
	errMessage string
}

// NewState returns the state of a freshly mounted page.
func NewState() State {
	return State{phase: PhaseIdle, epsilon: model.DefaultEpsilon}
}

func (s State) Phase() Phase { return s.phase }
func (s State) SelectedFile() *File { return s.file }
func (s State) Epsilon() float64 { return s.epsilon }
func (s State) Result() *model.AttackResult { return s.result }
func (s State) ErrorMessage() string { return s.errMessage }

func (s State) IsLoading() bool {
	return s.phase == PhaseSubmitting
}

// CanSubmit reports whether a submission may start.
func (s State) CanSubmit() bool {
	return s.file != nil && !s.IsLoading()
}

// SelectFile replaces the picked file. A shown result or error stays.
func (s State) SelectFile(f *File) State {
	s.file = f
	return s
}

// SetEpsilon replaces epsilon, clamped to the slider range.
func (s State) SetEpsilon(v float64) State {
	s.epsilon = model.ClampEpsilon(v)
	return s
}

func (s State) StartSubmit() State {
	s.phase = PhaseSubmitting
	s.result = nil
	s.errMessage = ""
	return s
}

// ResolveSuccess settles a submission with result. It is a no-op unless
// a submission is in flight.
func (s State) ResolveSuccess(result *model.AttackResult) State {
	if s.phase != PhaseSubmitting {
		return s
	}
	if result == nil {
		return s.ResolveError("")
	}
	s.phase = PhaseResult
	s.result = result
	return s
}

// ResolveError settles a submission with msg. It is a no-op unless a
// submission is in flight.
func (s State) ResolveError(msg string) State {
	if s.phase != PhaseSubmitting {
		return s
	}
	if msg == "" {
		msg = UnknownError
	}
	s.phase = PhaseError
	s.errMessage = msg
	return s
}
