package ast

// Handler processes one node. It decides itself whether to descend.
type Handler func(w *Walker, id NodeID)

// Walker dispatches nodes to handlers through a table indexed by kind.
// Kinds without a handler fall back to visiting their children.
type Walker struct {
	Tree     *Tree
	handlers [kindCount]Handler
}

func NewWalker(tree *Tree) *Walker {
	return &Walker{Tree: tree}
}

// On registers h for kind, replacing any previous handler.
func (w *Walker) On(kind NodeKind, h Handler) *Walker {
	w.handlers[kind] = h
	return w
}

func (w *Walker) Visit(id NodeID) {
	if id == NoNode {
		return
	}
	if h := w.handlers[w.Tree.Kind(id)]; h != nil {
		h(w, id)
		return
	}
	w.VisitChildren(id)
}

func (w *Walker) VisitChildren(id NodeID) {
	for _, c := range w.Tree.Children(id) {
		w.Visit(c)
	}
}

// Inspect calls fn for id and every descendant in depth-first order.
// Returning false from fn skips the node's children.
func Inspect(t *Tree, id NodeID, fn func(NodeID) bool) {
	if id == NoNode || !fn(id) {
		return
	}
	for _, c := range t.Children(id) {
		Inspect(t, c, fn)
	}
}
