// Package instance expands service declarations into numbered instances.
package instance

import (
	"fmt"
	"strconv"

	"github.com/atframework/genconf/internal/config"
	"github.com/atframework/genconf/internal/ident"
)

// Instance is one numbered copy of a service within a single generation pass.
type Instance struct {
	// Service is the service name (the part after "server." in the section name).
	Service string
	// Index is the fleet-wide ordinal index, offset included.
	Index int
	// TypeID is the service type id read from the service section.
	TypeID uint32
	// ProcID is the packed bus id of this instance.
	ProcID uint32
}

// FullName returns "<service>-<index>".
func (i Instance) FullName() string {
	return i.Service + "-" + strconv.Itoa(i.Index)
}

// Indices returns offset, offset+1, ..., offset+count-1. Non-positive counts yield nothing.
func Indices(count, offset int) []int {
	if count <= 0 {
		return nil
	}
	out := make([]int, count)
	for i := range out {
		out[i] = offset + i
	}
	return out
}

// GatewayIndex maps instanceIndex of service onto the address space shared by all
// consumers of one gateway. Consumers are laid out contiguously in declaration order,
// so each consumer instance owns exactly one gateway index.
func GatewayIndex(store *config.Store, consumers []string, service string, instanceIndex, offset int) (int, error) {
	base := 0
	for _, name := range consumers {
		if name == service {
			return offset + base + (instanceIndex - offset), nil
		}
		base += int(store.IntOption(config.ServiceSection(name), "number", 0))
	}
	return 0, fmt.Errorf("service %q does not use this gateway", service)
}

// GatewayConsumers returns the services declaring a "<gateway>_port" key, in document order.
func GatewayConsumers(store *config.Store, gateway string) []string {
	key := gateway + "_port"
	var out []string
	for _, name := range store.Services() {
		if name == gateway {
			continue
		}
		if store.Has(config.ServiceSection(name), key) {
			out = append(out, name)
		}
	}
	return out
}

// Expander derives instances from the configuration store.
type Expander struct {
	store  *config.Store
	offset int
}

// NewExpander constructs an Expander using offset as the fleet-wide starting index.
func NewExpander(store *config.Store, offset int) *Expander {
	return &Expander{store: store, offset: offset}
}

// Offset returns the fleet-wide starting index.
func (e *Expander) Offset() int {
	return e.offset
}

// Count returns the declared instance count of service.
func (e *Expander) Count(service string) int {
	return int(e.store.IntOption(config.ServiceSection(service), "number", 0))
}

// Expand returns the instances of service in index order.
func (e *Expander) Expand(service string) []Instance {
	indices := Indices(e.Count(service), e.offset)
	out := make([]Instance, 0, len(indices))
	for _, idx := range indices {
		out = append(out, e.Instance(service, idx))
	}
	return out
}

// Instance builds the instance of service at index, deriving its ids.
func (e *Expander) Instance(service string, index int) Instance {
	typeID := e.TypeID(service)
	world := uint32(e.store.IntOption(config.SystemSection, "world_id", 1))
	zone := uint32(e.store.IntOption(config.SystemSection, "zone_id", 1))
	return Instance{
		Service: service,
		Index:   index,
		TypeID:  typeID,
		ProcID:  ident.ProcID(world, zone, typeID, uint32(index)),
	}
}

// TypeID returns the "type_id" of service, or 0 when undeclared.
func (e *Expander) TypeID(service string) uint32 {
	return uint32(e.store.IntOption(config.ServiceSection(service), "type_id", 0))
}

// GatewayInstance is one gateway instance generated on behalf of a consumer instance.
type GatewayInstance struct {
	Instance
	// For is the consumer instance served by this gateway instance.
	For Instance
	// Port is the consumer's "<gateway>_port" plus the consumer instance ordinal.
	Port int
}

// ExpandGateway returns one gateway instance per instance of every consumer of gateway.
func (e *Expander) ExpandGateway(gateway string) ([]GatewayInstance, error) {
	consumers := GatewayConsumers(e.store, gateway)
	var out []GatewayInstance
	for _, consumer := range consumers {
		basePort := int(e.store.IntOption(config.ServiceSection(consumer), gateway+"_port", 0))
		for _, idx := range Indices(e.Count(consumer), e.offset) {
			gwIndex, err := GatewayIndex(e.store, consumers, consumer, idx, e.offset)
			if err != nil {
				return nil, err
			}
			out = append(out, GatewayInstance{
				Instance: e.Instance(gateway, gwIndex),
				For:      e.Instance(consumer, idx),
				Port:     basePort + idx - e.offset,
			})
		}
	}
	return out, nil
}
