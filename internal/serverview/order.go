package serverview

import "github.com/vstojkovic/bugle/internal/model"

// SortKey enumerates the sortable columns (spec.md §4.8).
type SortKey int

const (
	SortByName SortKey = iota
	SortByMap
	SortByMode
	SortByRegion
	SortByPlayers
	SortByAge
	SortByPing
)

// Order is the active sort: a key plus direction.
type Order struct {
	Key        SortKey
	Descending bool
}

// less compares two servers under the order, breaking ties on ID, and
// favorites always sorting first regardless of key (spec.md §4.8).
func (o Order) less(a, b *model.Server) bool {
	if a.Favorite != b.Favorite {
		return a.Favorite
	}

	cmp := o.compare(a, b)
	if cmp != 0 {
		if o.Descending {
			return cmp > 0
		}
		return cmp < 0
	}
	return a.ID < b.ID
}

func (o Order) compare(a, b *model.Server) int {
	switch o.Key {
	case SortByName:
		return compareStrings(a.Name, b.Name)
	case SortByMap:
		return compareStrings(a.Map, b.Map)
	case SortByMode:
		return int(a.Mode) - int(b.Mode)
	case SortByRegion:
		return int(a.Region) - int(b.Region)
	case SortByPlayers:
		return compareOptionalInt(a.Liveness.ConnectedPlayers, b.Liveness.ConnectedPlayers)
	case SortByAge:
		return compareOptionalUint64(a.Liveness.Age, b.Liveness.Age)
	case SortByPing:
		return compareOptionalInt64(a.Liveness.RTT, b.Liveness.RTT)
	default:
		return 0
	}
}

func compareStrings(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// compareOptionalInt sorts None after Some in ascending order (spec.md
// §4.8 "Options-valued columns... sort None after Some").
func compareOptionalInt(a, b *int) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	case *a < *b:
		return -1
	case *a > *b:
		return 1
	default:
		return 0
	}
}

func compareOptionalUint64(a, b *uint64) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	case *a < *b:
		return -1
	case *a > *b:
		return 1
	default:
		return 0
	}
}

func compareOptionalInt64(a, b *int64) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	case *a < *b:
		return -1
	case *a > *b:
		return 1
	default:
		return 0
	}
}
