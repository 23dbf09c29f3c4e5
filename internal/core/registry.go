package core

// Registry holds the fixed platform to adapter mapping built once at
// startup and passed explicitly to the converter.
type Registry struct {
	adapters []Adapter
}

// NewRegistry creates a registry over the given adapters.
func NewRegistry(adapters ...Adapter) *Registry {
	return &Registry{adapters: adapters}
}

// Detect maps a URL to the adapter whose domain set it matches. The first
// structural match wins; ok is false when no adapter claims the URL.
func (r *Registry) Detect(url string) (Adapter, bool) {
	for _, adapter := range r.adapters {
		if adapter.CanResolve(url) {
			return adapter, true
		}
	}
	return nil, false
}

// Others returns every adapter except the one for the given platform.
func (r *Registry) Others(platform Platform) []Adapter {
	others := make([]Adapter, 0, len(r.adapters))
	for _, adapter := range r.adapters {
		if adapter.Platform() != platform {
			others = append(others, adapter)
		}
	}
	return others
}

// All returns every registered adapter.
func (r *Registry) All() []Adapter {
	return r.adapters
}
