package tts

import "context"

// Unavailable is a placeholder for a provider that could not be built.
// Every call fails with the construction error.
type Unavailable struct {
	name string
	err  error
}

// NewUnavailable returns a provider that always fails with err.
func NewUnavailable(name string, err error) *Unavailable {
	return &Unavailable{name: name, err: err}
}

func (u *Unavailable) Name() string { return u.name }

func (u *Unavailable) Synthesize(ctx context.Context, text string) (*AudioResult, error) {
	return nil, WrapError(u.name, u.err)
}

func (u *Unavailable) Health(ctx context.Context) error {
	return WrapError(u.name, u.err)
}

func (u *Unavailable) Close() error { return nil }

var _ Provider = (*Unavailable)(nil)
