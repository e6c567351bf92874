package player

import "errors"

// ErrNotFound indicates a player binary could not be resolved.
var ErrNotFound = errors.New("player binary not found")

// ErrPlayerMissing indicates the audio player binary is not installed.
var ErrPlayerMissing = errors.New("audio player not installed")

// ErrPlaybackFailed indicates the audio player exited with an error.
var ErrPlaybackFailed = errors.New("playback failed")

// ErrNoAudio indicates the file to play is missing or empty.
var ErrNoAudio = errors.New("no audio to play")

// ErrUnsupportedAudio indicates the native player cannot decode the file.
var ErrUnsupportedAudio = errors.New("unsupported audio format")

// ErrVideoNotFound indicates the video file does not exist.
var ErrVideoNotFound = errors.New("video file not found")

// ErrEmptyCommand indicates a player command line without a program.
var ErrEmptyCommand = errors.New("empty player command")
