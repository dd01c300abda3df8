package link

import (
	"github.com/jward/compgraph/internal/graph"
	"github.com/jward/compgraph/internal/lexer"
)

// Flow records that the state slot at index Slot of the snapshot reaches
// Consumer through a passed attribute.
type Flow struct {
	Slot     int
	Consumer string
}

// flows checks every slot of the run against the attribute regions of all
// invocation sites of one target.
func (l *Linker) flows(targetID string, sites []lexer.Site) []Flow {
	if len(sites) == 0 {
		return nil
	}
	var out []Flow
	for k, slot := range l.slots {
		for _, site := range sites {
			if lexer.ContainsIdent(site.Attrs, slot.Name) {
				out = append(out, Flow{Slot: k, Consumer: targetID})
				break
			}
		}
	}
	return out
}

// Slots returns a fresh copy of the snapshot's state slots, ready for
// Apply.
func (l *Linker) Slots() []graph.StateSlot {
	out := make([]graph.StateSlot, len(l.slots))
	for i, s := range l.slots {
		out[i] = s.Clone()
	}
	return out
}

// Apply adds the consumers of flows to slots. Adding a consumer a slot
// already has is a no-op. Flows with an out-of-range index are ignored.
func Apply(slots []graph.StateSlot, flows []Flow) {
	for _, f := range flows {
		if f.Slot < 0 || f.Slot >= len(slots) {
			continue
		}
		slots[f.Slot].AddConsumer(f.Consumer)
	}
}
