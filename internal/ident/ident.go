// Package ident packs fleet addressing data into numeric service identifiers.
package ident

import (
	"fmt"
	"strconv"
	"strings"
)

// ServerID packs a group id, an IPv4 address and a port into one 64-bit identifier:
// group<<48 | ipv4<<16 | port.
//
// Fields are not range checked. A group id above 16 bits, an octet above 255 or a
// port above 65535 bleeds into neighbouring fields; callers validate their inputs.
// The only error is an octet that is not an unsigned integer.
func ServerID(groupID uint64, ipv4 string, port uint64) (uint64, error) {
	addr, err := IPv4ToInt(ipv4)
	if err != nil {
		return 0, err
	}
	return groupID<<48 | addr<<16 | port, nil
}

// IPv4ToInt sums the dot-separated octets of ipv4 as base-256 digits, most significant first.
func IPv4ToInt(ipv4 string) (uint64, error) {
	parts := strings.Split(strings.TrimSpace(ipv4), ".")
	var out, weight uint64 = 0, 1
	for i := len(parts) - 1; i >= 0; i-- {
		octet, err := strconv.ParseUint(strings.TrimSpace(parts[i]), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("parse ipv4 %q: %w", ipv4, err)
		}
		out += octet * weight
		weight *= 256
	}
	return out, nil
}

// ProcID packs world, zone, type and instance index into a per-process bus id,
// 8 bits each: world<<24 | zone<<16 | type<<8 | index.
func ProcID(worldID, zoneID, typeID, index uint32) uint32 {
	return (worldID&0xff)<<24 | (zoneID&0xff)<<16 | (typeID&0xff)<<8 | index&0xff
}

// FormatProcID renders a bus id in dotted form, e.g. "1.2.11.3".
func FormatProcID(id uint32) string {
	return fmt.Sprintf("%d.%d.%d.%d", id>>24&0xff, id>>16&0xff, id>>8&0xff, id&0xff)
}
