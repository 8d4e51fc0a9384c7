package serverview

import "sort"

// ReindexLevel is an ordered enum of how much of the view must be rebuilt
// after a source mutation (spec.md §4.8).
type ReindexLevel int

const (
	ReindexNothing ReindexLevel = iota
	ReindexOrder
	ReindexFilter
	ReindexAll
)

// TableView presents a filtered, ordered view over a mutable source slice
// (spec.md §4.8). Source is generic so the same view machinery could serve
// other sortable/filterable lists; BUGLE only instantiates it over
// *model.Server via NewServerView.
type TableView[T any] struct {
	source []T
	filter func(T) bool
	order  func(a, b T) bool

	sourceToView []int // -1 = filtered out
	viewToSource []int
}

// New builds a TableView with no source rows yet.
func New[T any](filter func(T) bool, order func(a, b T) bool) *TableView[T] {
	return &TableView[T]{filter: filter, order: order}
}

// SetFilter replaces the filter predicate.
func (v *TableView[T]) SetFilter(filter func(T) bool) { v.filter = filter }

// SetOrder replaces the comparator.
func (v *TableView[T]) SetOrder(order func(a, b T) bool) { v.order = order }

// Reset replaces the source slice outright (e.g. after a directory refresh)
// and fully reindexes.
func (v *TableView[T]) Reset(source []T) {
	v.source = source
	v.Reindex(ReindexAll)
}

// Len returns the number of rows currently visible.
func (v *TableView[T]) Len() int { return len(v.viewToSource) }

// At returns the source row at view index i.
func (v *TableView[T]) At(i int) T { return v.source[v.viewToSource[i]] }

// SourceIndex maps a view index back to a source index.
func (v *TableView[T]) SourceIndex(viewIdx int) int { return v.viewToSource[viewIdx] }

// ViewIndex maps a source index to a view index, or -1 if filtered out.
func (v *TableView[T]) ViewIndex(sourceIdx int) int {
	if sourceIdx < 0 || sourceIdx >= len(v.sourceToView) {
		return -1
	}
	return v.sourceToView[sourceIdx]
}

// Reindex rebuilds the view's indices to at least the given strength
// (spec.md §4.8 "Reindexing levels"). Callers mutating the source directly
// (in place) should call this with the level their mutation requires.
func (v *TableView[T]) Reindex(level ReindexLevel) {
	switch level {
	case ReindexNothing:
		return
	case ReindexOrder:
		v.reorder()
	case ReindexFilter, ReindexAll:
		v.refilter()
	}
}

func (v *TableView[T]) refilter() {
	v.sourceToView = make([]int, len(v.source))
	v.viewToSource = v.viewToSource[:0]
	for i, row := range v.source {
		if v.filter == nil || v.filter(row) {
			v.sourceToView[i] = len(v.viewToSource)
			v.viewToSource = append(v.viewToSource, i)
		} else {
			v.sourceToView[i] = -1
		}
	}
	v.reorder()
}

func (v *TableView[T]) reorder() {
	if v.order == nil {
		return
	}
	sort.SliceStable(v.viewToSource, func(i, j int) bool {
		return v.order(v.source[v.viewToSource[i]], v.source[v.viewToSource[j]])
	})
	for viewIdx, sourceIdx := range v.viewToSource {
		v.sourceToView[sourceIdx] = viewIdx
	}
}
