package auth

import (
	"context"
	"net/http"
)

type CompoundAuthEngine struct {
	engines []AuthEngine
}

// NewCompoundAuthEngine creates a new CompoundAuthEngine with the given
// AuthEngines. Nil engines are skipped.
func NewCompoundAuthEngine(engines ...AuthEngine) *CompoundAuthEngine {
	e := &CompoundAuthEngine{}
	for _, engine := range engines {
		if engine != nil {
			e.engines = append(e.engines, engine)
		}
	}
	return e
}

// AuthenticateRequest asks each engine in turn and returns the first
// identity found. If no engine yields one, the first processing error seen
// is returned so that a failing backend is not mistaken for a missing
// session.
func (e *CompoundAuthEngine) AuthenticateRequest(ctx context.Context, r *http.Request) (*User, error) {
	var firstErr error
	for _, engine := range e.engines {
		user, err := engine.AuthenticateRequest(ctx, r)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if user != nil {
			return user, nil
		}
	}

	return nil, firstErr
}
