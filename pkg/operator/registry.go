package operator

import (
	"fmt"

	"github.com/eniz1806/UniStore/pkg/access"
)

// Factory builds an accessor from flat string options.
type Factory func(opts map[string]string) (access.Accessor, error)

// Registry maps schemes to factories. It is caller-owned and not safe for
// concurrent mutation; register every service up front, then only read.
type Registry struct {
	factories map[access.Scheme]Factory
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[access.Scheme]Factory)}
}

// Register binds scheme to factory, replacing any earlier binding.
func (r *Registry) Register(scheme access.Scheme, factory Factory) {
	r.factories[scheme] = factory
}

// Schemes lists every registered scheme.
func (r *Registry) Schemes() []access.Scheme {
	schemes := make([]access.Scheme, 0, len(r.factories))
	for s := range r.factories {
		schemes = append(schemes, s)
	}
	return schemes
}

// New builds an operator for scheme. An unregistered scheme is ConfigInvalid:
// the name may be valid, this process just cannot serve it.
func (r *Registry) New(scheme access.Scheme, opts map[string]string) (*Operator, error) {
	factory, ok := r.factories[scheme]
	if !ok {
		return nil, access.NewError(access.KindConfigInvalid,
			fmt.Sprintf("scheme %q has no registered service", scheme)).
			WithOperation("new")
	}
	inner, err := factory(opts)
	if err != nil {
		return nil, err
	}
	return New(inner), nil
}
