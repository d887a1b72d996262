package dispatch

import "github.com/floramarket/florabot/internal/session"

// Registry is one bot type's handler set. It is built once at startup from
// plain handler lists; nothing registers at runtime.
type Registry struct {
	commands  map[string]CommandHandler
	callbacks []CallbackHandler
	webapps   []WebAppHandler
	flows     map[session.State]FlowHandler
	fallback  FallbackHandler
}

// RegistryConfig lists the handlers a bot type exposes. Callback and webapp
// order is preserved because prefix matching is first-registered-wins.
type RegistryConfig struct {
	Commands  []CommandHandler
	Callbacks []CallbackHandler
	WebApps   []WebAppHandler
	Flows     []FlowHandler
	Fallback  FallbackHandler
}

// NewRegistry assembles a handler set. Later entries win on duplicate command
// names or flow states.
func NewRegistry(cfg RegistryConfig) *Registry {
	reg := &Registry{
		commands:  make(map[string]CommandHandler, len(cfg.Commands)),
		callbacks: append([]CallbackHandler(nil), cfg.Callbacks...),
		webapps:   append([]WebAppHandler(nil), cfg.WebApps...),
		flows:     make(map[session.State]FlowHandler),
		fallback:  cfg.Fallback,
	}

	for _, h := range cfg.Commands {
		reg.commands[h.Command()] = h
	}
	for _, h := range cfg.Flows {
		for _, state := range h.States() {
			reg.flows[state] = h
		}
	}

	return reg
}

func (r *Registry) command(name string) CommandHandler {
	return r.commands[name]
}

func (r *Registry) flow(state session.State) FlowHandler {
	return r.flows[state]
}
