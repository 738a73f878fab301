package pdp

import (
	"net/netip"
	"strconv"
	"strings"

	"github.com/simensrostad/mailpal/at"
)

// ParseAddress extracts the IPv4 address from a +CGPADDR reply such as
// `+CGPADDR: 0,"10.160.3.4"`. Only the first quoted value is read, and it
// must be exactly four decimal octets.
func ParseAddress(resp string) (netip.Addr, bool) {
	i := strings.Index(resp, at.RespAddress)
	if i < 0 {
		return netip.Addr{}, false
	}
	rest := resp[i+len(at.RespAddress):]

	start := strings.IndexByte(rest, '"')
	if start < 0 {
		return netip.Addr{}, false
	}
	rest = rest[start+1:]
	end := strings.IndexByte(rest, '"')
	if end < 0 {
		return netip.Addr{}, false
	}

	parts := strings.Split(rest[:end], ".")
	if len(parts) != 4 {
		return netip.Addr{}, false
	}
	var octets [4]byte
	for i, part := range parts {
		v, err := strconv.ParseUint(part, 10, 8)
		if err != nil {
			return netip.Addr{}, false
		}
		octets[i] = byte(v)
	}
	return netip.AddrFrom4(octets), true
}
