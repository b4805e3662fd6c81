package assistant

// State is the position of the voice loop within a turn.
type State int

const (
	// Idle waits for the next turn.
	Idle State = iota
	// Listening has the microphone open.
	Listening
	// Transcribing turns the recorded utterance into text.
	Transcribing
	// AgentThinking waits for the agent's reply.
	AgentThinking
	// Speaking synthesizes and plays the reply.
	Speaking
	// Exit ends the loop. It is terminal.
	Exit
)

// String returns the lower-case state name used in logs and the UI.
func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Listening:
		return "listening"
	case Transcribing:
		return "transcribing"
	case AgentThinking:
		return "thinking"
	case Speaking:
		return "speaking"
	case Exit:
		return "exit"
	default:
		return "unknown"
	}
}

var transitions = map[State][]State{
	Idle:          {Listening, Exit},
	Listening:     {Transcribing, Idle, Exit},
	Transcribing:  {AgentThinking, Idle, Exit},
	AgentThinking: {Speaking, Exit},
	Speaking:      {Idle, Exit},
}

// CanTransition reports whether the loop may move from one state to another.
func CanTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
