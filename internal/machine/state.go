package machine

import (
	"fmt"
	"path/filepath"
)

// State is the application state.
type State int32

// Application states.
const (
	Idle State = iota
	Listening
	Thinking
	Talking
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Listening:
		return "listening"
	case Thinking:
		return "thinking"
	case Talking:
		return "talking"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Videos maps states to looping video files. An empty path shows nothing
// for that state.
type Videos struct {
	Idle      string
	Listening string
	Thinking  string
	Talking   string
}

// VideosIn returns the conventional file names under dir, or no videos
// when dir is empty.
func VideosIn(dir string) Videos {
	if dir == "" {
		return Videos{}
	}
	return Videos{
		Idle:      filepath.Join(dir, "idle.mp4"),
		Listening: filepath.Join(dir, "listening.mp4"),
		Thinking:  filepath.Join(dir, "thinking.mp4"),
		Talking:   filepath.Join(dir, "talking.mp4"),
	}
}

// For returns the video of s.
func (v Videos) For(s State) string {
	switch s {
	case Idle:
		return v.Idle
	case Listening:
		return v.Listening
	case Thinking:
		return v.Thinking
	case Talking:
		return v.Talking
	default:
		return ""
	}
}
