package orchestrator

// Availability is the resolved state of a client capability.
type Availability int

const (
	Unavailable Availability = iota
	Available
)

func (a Availability) String() string {
	if a == Available {
		return "available"
	}
	return "unavailable"
}

// Capabilities are resolved once when the orchestrator is built and never
// re-probed.
type Capabilities struct {
	Recognition Availability
	Synthesis   Availability
}

// Prober is implemented by ports that can report whether the underlying engine
// exists on this host, e.g. a TTS binary on PATH.
type Prober interface {
	Available() bool
}

// ResolveCapabilities probes the injected ports. A nil port is unavailable; a
// port without a Prober is assumed available.
func ResolveCapabilities(rec Recognizer, syn Synthesizer) Capabilities {
	return Capabilities{
		Recognition: probe(rec),
		Synthesis:   probe(syn),
	}
}

func probe(port any) Availability {
	if port == nil {
		return Unavailable
	}
	if p, ok := port.(Prober); ok && !p.Available() {
		return Unavailable
	}
	return Available
}
