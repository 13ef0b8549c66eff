package core

import "errors"

// State is the lifecycle stage of an Engine
type State int32

const (
	StateStarting State = iota
	StateListening
	StateShutdown
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateListening:
		return "listening"
	case StateShutdown:
		return "shutdown"
	}
	return "unknown"
}

// Error definitions
var (
	ErrServerClosed   = errors.New("server closed")
	ErrAlreadyServing = errors.New("engine is already serving")
)

// Read stage labels for connection error metrics
const (
	stageTLS   = "tls"
	stageRead  = "read"
	stageWrite = "write"
)
