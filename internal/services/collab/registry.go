package collab

// Registry maps a connection id to the display name bound on join.
type Registry struct {
	names map[string]string
}

func NewRegistry() *Registry {
	return &Registry{names: make(map[string]string)}
}

// Bind sets (or replaces, on re-join) the connection's name.
func (r *Registry) Bind(socketID, username string) {
	r.names[socketID] = username
}

func (r *Registry) Name(socketID string) (string, bool) {
	name, ok := r.names[socketID]
	return name, ok
}

func (r *Registry) Remove(socketID string) {
	delete(r.names, socketID)
}
