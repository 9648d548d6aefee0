// Package scope implements the lexical frame stack the resolver pushes and
// pops as it walks into and out of subqueries, CTEs, and derived tables.
// Per the design note that a shared-ownership tree of frames would make
// LIFO frame lifetime and correlation visibility fiddly to reason about, a
// Stack owns a flat arena of Frame values addressed by index, and a frame's
// "parent" is just another index into the same arena rather than a pointer
// a child could outlive.
package scope

import "strings"

// Relation is one FROM-clause entry visible for unqualified and qualified
// column lookup within a frame: a table, view, CTE, derived table, or
// table-valued function, reduced to its exposed column list.
type Relation struct {
	Alias   string // the name queries must use to qualify a column
	Columns []string
	// Opaque marks a relation whose column list is not fully known (an
	// unnamed table-valued function, or a view/CTE still being resolved
	// top-down): qualified lookups against it always succeed, to avoid a
	// cascade of false "unknown column" diagnostics (spec.md §4.2).
	Opaque bool
}

// HasColumn reports whether name is one of r's exposed columns, case
// insensitively. An opaque relation reports true for anything.
func (r *Relation) HasColumn(name string) bool {
	if r.Opaque {
		return true
	}
	for _, c := range r.Columns {
		if strings.EqualFold(c, name) {
			return true
		}
	}
	return false
}

// Frame is one level of lexical scope: the relations introduced by a
// single FROM clause (or VALUES row, which introduces none). CTE name
// bindings are tracked alongside this stack by the resolver, which pushes
// and pops its own CTE scope in lockstep with Push*/Pop so frame and CTE
// nesting never drift apart.
type Frame struct {
	Relations []*Relation
	parent    int // index into Stack.frames, or -1 for the outermost frame
	// correlated is true when this frame may see relations from the
	// nearest enclosing frame: true for a subquery expression (scalar, IN,
	// EXISTS, ANY/ALL) and for a LATERAL derived table, false for a
	// statement's outermost frame, a non-lateral derived table, a
	// set-operation branch or a CTE body (spec.md §4.2).
	correlated bool
}

// Stack is the arena of frames active for one statement's resolution.
type Stack struct {
	frames []Frame
	top    int // index of the currently active frame, or -1 if empty
}

// New returns an empty Stack.
func New() *Stack {
	return &Stack{top: -1}
}

// PushIsolated opens a new uncorrelated frame: it cannot see relations
// declared in any enclosing frame. CTE names are not tracked here; the
// resolver keeps them visible across isolated frames on its own.
func (s *Stack) PushIsolated() {
	s.push(false)
}

// PushCorrelated opens a new frame that can see the relations of its
// nearest enclosing frame: used for subquery expressions and LATERAL
// derived tables (spec.md §4.2).
func (s *Stack) PushCorrelated() {
	s.push(true)
}

func (s *Stack) push(correlated bool) {
	s.frames = append(s.frames, Frame{parent: s.top, correlated: correlated})
	s.top = len(s.frames) - 1
}

// Pop discards the active frame and restores its parent as active. Pop on
// an empty stack is a programmer error and panics, since it indicates the
// resolver's push/pop calls are unbalanced.
func (s *Stack) Pop() {
	if s.top == -1 {
		panic("scope: Pop on empty stack")
	}
	s.top = s.frames[s.top].parent
}

// AddRelation registers a FROM-clause entry in the active frame.
func (s *Stack) AddRelation(rel *Relation) {
	s.frames[s.top].Relations = append(s.frames[s.top].Relations, rel)
}

// visibleFrames returns, innermost first, the sequence of frame indices a
// lookup starting at the active frame may search: the active frame, then
// its ancestors for as long as each frame in the chain is correlated.
// Once a non-correlated frame boundary is crossed, nothing further out is
// visible (spec.md §4.2: correlation does not skip over an isolated
// subquery to reach beyond it).
func (s *Stack) visibleFrames() []int {
	var out []int
	i := s.top
	for i != -1 {
		out = append(out, i)
		if !s.frames[i].correlated {
			break
		}
		i = s.frames[i].parent
	}
	return out
}

// LookupUnqualified resolves a bare column name against every relation in
// every frame this lookup can see. It returns the matching relation's
// alias and true if exactly one relation has the column; ok is false and
// ambiguous is true if more than one relation in the same visible set has
// it (spec.md §4.3 E0006).
func (s *Stack) LookupUnqualified(name string) (alias string, ok bool, ambiguous bool) {
	var matches []*Relation
	for _, fi := range s.visibleFrames() {
		for _, rel := range s.frames[fi].Relations {
			if rel.HasColumn(name) {
				matches = append(matches, rel)
			}
		}
		// A match found at this frame level shadows any same-named column
		// further out; only keep searching outward if nothing matched yet.
		if len(matches) > 0 {
			break
		}
	}
	switch len(matches) {
	case 0:
		return "", false, false
	case 1:
		return matches[0].Alias, true, false
	default:
		return "", false, true
	}
}

// LookupQualified resolves a table-qualified column reference against the
// relation named by qualifier, searching the visible frame chain for the
// first frame that declares that alias.
func (s *Stack) LookupQualified(qualifier, name string) (rel *Relation, ok bool) {
	for _, fi := range s.visibleFrames() {
		for _, r := range s.frames[fi].Relations {
			if strings.EqualFold(r.Alias, qualifier) {
				return r, r.HasColumn(name)
			}
		}
	}
	return nil, false
}

// ResolveQualifier reports whether qualifier names any relation visible
// from the active frame, independent of any particular column -- used to
// distinguish "unknown table alias" from "unknown column on a known
// alias".
func (s *Stack) ResolveQualifier(qualifier string) bool {
	for _, fi := range s.visibleFrames() {
		for _, r := range s.frames[fi].Relations {
			if strings.EqualFold(r.Alias, qualifier) {
				return true
			}
		}
	}
	return false
}

// ActiveRelations returns every relation visible from the active frame, in
// frame order, for building "Did you mean" candidate lists and for
// expanding "SELECT *" / "t.*".
func (s *Stack) ActiveRelations() []*Relation {
	var out []*Relation
	for _, fi := range s.visibleFrames() {
		out = append(out, s.frames[fi].Relations...)
	}
	return out
}
