package entity

// Kind identifies the type of change an Event describes.
type Kind int

const (
	KindCreate Kind = iota
	KindRead
	KindUpdate
	KindDelete

	kindCount
)

// AllKinds lists every event kind, for subscribers that want everything.
var AllKinds = []Kind{KindCreate, KindRead, KindUpdate, KindDelete}

// String returns a human-readable representation of the kind
func (k Kind) String() string {
	switch k {
	case KindCreate:
		return "CREATE"
	case KindRead:
		return "READ"
	case KindUpdate:
		return "UPDATE"
	case KindDelete:
		return "DELETE"
	default:
		return "UNKNOWN"
	}
}

func (k Kind) valid() bool { return k >= 0 && k < kindCount }

// Event is a change notification carrying the affected entities. Every
// subscription receives its own copy of the maps, and of the entities when
// they implement Clone() E.
type Event[K comparable, E any] struct {
	Seq      uint64  // Publication order, starting at 1
	Kind     Kind    // What happened
	Entities map[K]E // Current snapshots (removed snapshots for DELETE)

	// Previous holds the snapshots replaced by an UPDATE (nil otherwise)
	Previous map[K]E
}

// Single returns the only entity of a one-entity event.
func (e Event[K, E]) Single() (K, E, bool) {
	var (
		zeroK K
		zeroE E
	)
	if len(e.Entities) != 1 {
		return zeroK, zeroE, false
	}
	for k, v := range e.Entities {
		return k, v, true
	}
	return zeroK, zeroE, false
}

// clone copies the entity maps, cloning entities that can clone themselves.
func (e Event[K, E]) clone() Event[K, E] {
	e.Entities = cloneEntities(e.Entities)
	e.Previous = cloneEntities(e.Previous)
	return e
}

func cloneEntities[K comparable, E any](m map[K]E) map[K]E {
	if m == nil {
		return nil
	}
	out := make(map[K]E, len(m))
	for k, v := range m {
		if c, ok := any(v).(interface{ Clone() E }); ok {
			v = c.Clone()
		}
		out[k] = v
	}
	return out
}
