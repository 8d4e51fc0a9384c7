// Package merge implements the Similarity Merger (spec.md §4.6): it folds
// freshly-listed directory servers into the saved-servers store so that
// saved bookkeeping (favorite, saved id, merged) survives a refresh and
// obviously-the-same servers are not shown twice.
//
// Grounded on pkg/api/api0/serverlist.go's multi-index candidate lookup
// (the teacher builds candidate matches across its own three server maps
// before applying a masterserver-specific merge rule); the scoring/
// threshold walk here is BUGLE-specific (spec.md §4.6) but the "gather
// candidates via secondary indices, then score" shape is the same.
package merge

import (
	"net/netip"
	"sort"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vstojkovic/bugle/internal/model"
	"github.com/vstojkovic/bugle/internal/savedservers"
)

// Confidence thresholds for the similarity score (spec.md §4.6).
const (
	ScoreLow  = 6
	ScoreHigh = 10
	ScoreFull = 16
)

type pair struct {
	listedIdx int
	savedID   uuid.UUID
	score     int
}

// Merge folds listed into store, returning the combined server list ready
// for display: merged/unmerged listed servers plus any saved-only server
// that was not matched this round (spec.md §4.6).
//
// minConfidence is the minimum score a candidate pair must reach to merge;
// pass ScoreHigh for the spec's default.
func Merge(log zerolog.Logger, store *savedservers.Store, listed []*model.Server, minConfidence int, favorites map[netip.AddrPort]bool, buildID int) []*model.Server {
	log = log.With().Str("component", "merge").Logger()

	saved := store.All()
	savedByID := make(map[uuid.UUID]*model.Server, len(saved))
	for i := range saved {
		id := *saved[i].SavedID
		savedByID[id] = &saved[i]
	}

	pairs := candidatePairs(store, listed, saved)
	sort.SliceStable(pairs, func(i, j int) bool { return pairs[i].score > pairs[j].score })

	merged := false
	for _, p := range pairs {
		l := listed[p.listedIdx]
		s := savedByID[p.savedID]
		if l.Tombstone || s.Merged {
			continue
		}
		if p.score < minConfidence {
			continue
		}

		id := *s.SavedID
		*s = *l
		s.SavedID = &id
		s.Merged = true
		l.Tombstone = true
		merged = true

		if err := store.Update(id, *s); err != nil {
			log.Warn().Err(err).Msg("failed to persist merged server")
		}
	}
	_ = merged

	out := make([]*model.Server, 0, len(listed)+len(saved))
	for _, l := range listed {
		if !l.Tombstone {
			out = append(out, l)
		}
	}
	for i := range saved {
		out = append(out, &saved[i])
	}

	applyFavorites(out, favorites)
	model.ValidateBuild(out, buildID)

	return out
}

func candidatePairs(store *savedservers.Store, listed []*model.Server, saved []model.Server) []pair {
	savedByID := make(map[uuid.UUID]*model.Server, len(saved))
	for i := range saved {
		savedByID[*saved[i].SavedID] = &saved[i]
	}

	seen := make(map[[2]interface{}]bool)
	var pairs []pair
	for li, l := range listed {
		candidates := make(map[uuid.UUID]struct{})
		for _, id := range store.ByID(l.ID) {
			candidates[id] = struct{}{}
		}
		for _, id := range store.ByName(l.Name) {
			candidates[id] = struct{}{}
		}
		for _, id := range store.ByAddr(l.IP, l.Port) {
			candidates[id] = struct{}{}
		}

		for id := range candidates {
			s, ok := savedByID[id]
			if !ok {
				continue
			}
			key := [2]interface{}{li, id}
			if seen[key] {
				continue
			}
			seen[key] = true

			score := similarityScore(l, s)
			if score > 0 {
				pairs = append(pairs, pair{listedIdx: li, savedID: id, score: score})
			}
		}
	}
	return pairs
}

// similarityScore implements spec.md §4.6's scoring rule.
func similarityScore(l, s *model.Server) int {
	score := 0
	if l.ID == s.ID {
		score += 6
	}
	if l.Name == s.Name {
		score += 5
	}
	if l.IP == s.IP && l.Port == s.Port {
		score += 3
	}
	if l.Map == s.Map {
		score += 2
	}
	return score
}

func applyFavorites(servers []*model.Server, favorites map[netip.AddrPort]bool) {
	if len(favorites) == 0 {
		return
	}
	for _, s := range servers {
		if favorites[netip.AddrPortFrom(s.IP, s.Port)] {
			s.Favorite = true
		}
	}
}
