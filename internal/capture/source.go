package capture

// Source yields raw PCM chunks. Read blocks for at most one buffer period
// and returns a chunk the caller may keep. A Read returning ErrOverflow
// also returns a usable chunk.
type Source interface {
	Read() ([]byte, error)
	Close() error
}

// Opener opens a Source for a format.
type Opener interface {
	Open(f Format) (Source, error)
}

// OpenerFunc adapts a function to Opener.
type OpenerFunc func(f Format) (Source, error)

// Open calls fn(f).
func (fn OpenerFunc) Open(f Format) (Source, error) {
	return fn(f)
}
