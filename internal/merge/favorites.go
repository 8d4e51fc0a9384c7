package merge

import (
	"net/netip"
	"strconv"
	"strings"

	"gopkg.in/ini.v1"
)

const favoritesSection = "FavoriteServers"

// LoadFavorites reads the game's own Game.ini FavoriteServers section
// (spec.md §4.6 "favorites... loaded from game's own INI"). Entries are
// stored one per FavoriteServerAddresses key in "ip:port" form, matching
// the game's UE4 array-of-scalar-key INI convention; each key is repeated
// once per favorite (ini.v1 supports shadowed keys).
func LoadFavorites(path string) (map[netip.AddrPort]bool, error) {
	f, err := ini.LoadSources(ini.LoadOptions{Loose: true, AllowShadows: true}, path)
	if err != nil {
		return nil, err
	}

	favorites := make(map[netip.AddrPort]bool)
	sec, err := f.GetSection(favoritesSection)
	if err != nil {
		return favorites, nil
	}

	for _, v := range sec.Key("FavoriteServerAddresses").ValueWithShadows() {
		addr, ok := parseAddr(v)
		if !ok {
			continue
		}
		favorites[addr] = true
	}
	return favorites, nil
}

func parseAddr(v string) (netip.AddrPort, bool) {
	host, port, ok := strings.Cut(v, ":")
	if !ok {
		return netip.AddrPort{}, false
	}
	ip, err := netip.ParseAddr(host)
	if err != nil {
		return netip.AddrPort{}, false
	}
	p, err := strconv.ParseUint(port, 10, 16)
	if err != nil {
		return netip.AddrPort{}, false
	}
	return netip.AddrPortFrom(ip, uint16(p)), true
}
