package control

import (
	"fmt"

	"github.com/smazurov/rpirtspd/internal/params"
)

// Resolver validates parameter names and routes values to the stage of the
// owning role inside an instance.
type Resolver struct {
	registry *params.Registry
}

// NewResolver creates a resolver over registry.
func NewResolver(registry *params.Registry) *Resolver {
	return &Resolver{registry: registry}
}

// Role returns the role owning key or ErrUnknownParameter.
func (r *Resolver) Role(key string) (params.Role, error) {
	role, ok := r.registry.Lookup(key)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownParameter, key)
	}
	return role, nil
}

// Apply sets key=value on the role's stage of inst. stream is used for
// error context only; a nil inst means no instance is live for it.
func (r *Resolver) Apply(stream string, inst params.Instance, role params.Role, key, value string) error {
	if inst == nil {
		if stream == "" {
			return fmt.Errorf("%w: no stream selected", ErrNoActiveInstance)
		}
		return fmt.Errorf("%w: %s", ErrNoActiveInstance, stream)
	}

	stage, ok := inst.FindStage(role)
	if !ok {
		return fmt.Errorf("%w: no %s stage (%s) in %s", ErrStageNotFound, role, role.StageName(), stream)
	}

	if err := stage.SetParameter(key, value); err != nil {
		return fmt.Errorf("%w: %w", ErrTypeCoercionFailed, err)
	}
	return nil
}
