package serverview

import "github.com/vstojkovic/bugle/internal/model"

// ServerView is the TableView instantiated over *model.Server, wiring a
// Filter and Order together as the predicate/comparator pair (spec.md §4.8).
type ServerView struct {
	*TableView[*model.Server]
	filter Filter
	order  Order
}

// NewServerView builds an empty ServerView with the given initial filter and
// order.
func NewServerView(filter Filter, order Order) *ServerView {
	sv := &ServerView{filter: filter, order: order}
	sv.TableView = New[*model.Server](sv.filter.Match, sv.order.less)
	return sv
}

// SetFilter replaces the active filter and reindexes at Filter strength.
func (sv *ServerView) SetFilter(f Filter) {
	sv.filter = f
	sv.TableView.SetFilter(sv.filter.Match)
	sv.Reindex(ReindexFilter)
}

// SetOrder replaces the active order and reindexes at Order strength.
func (sv *ServerView) SetOrder(o Order) {
	sv.order = o
	sv.TableView.SetOrder(sv.order.less)
	sv.Reindex(ReindexOrder)
}
