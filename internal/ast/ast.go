// Package ast holds the arena-backed AstModel: the authoritative in-memory
// representation of one compilation unit's tree once gparse has produced a
// *gparse.Node CST for it. Nodes are addressed by a small integer NodeID
// rather than pointer, and parent links are kept in a side map rather than
// on the node itself: gparse.Node carries no parent pointer, so any
// upward-looking query against the raw CST would have to walk down from
// the root and re-derive its context. Recording parents explicitly here
// means those queries walk up once instead of re-scanning the whole tree
// per lookup.
package ast

import (
	"strings"

	"github.com/albertocavalcante/groovy-lsp/internal/gparse"
	"github.com/albertocavalcante/groovy-lsp/internal/position"
)

// NodeID addresses a node within a single AstModel's arena. It is only
// meaningful relative to the AstModel that produced it; NodeIDs are not
// comparable across models, including two successive versions of the same
// file.
type NodeID int

// NilNodeID is never a valid index into an arena.
const NilNodeID NodeID = -1

// NodeView is the read-only projection of one gparse.Node stored in the
// arena: its kind, span (already in SourceSpace), literal token text when
// it has one, and the IDs of its children in source order.
type NodeView struct {
	Kind     gparse.NodeKind
	Span     position.Span
	Literal  string
	HasToken bool
	Children []NodeID
}

// AstModel is one compilation unit's fully realized, addressable tree.
// It is immutable once Record returns: a new parse produces a new
// AstModel rather than mutating one in place, so callers holding a
// *AstModel from a prior compile never observe it changing under them.
type AstModel struct {
	uri    position.URI
	nodes  []NodeView
	parent map[NodeID]NodeID
}

// Record walks root (the gparse CST for uri) and builds an AstModel arena
// from it. A nil root produces an empty, zero-node model; compile() must
// still hand callers something usable when the parser itself failed
// outright, rather than a nil *AstModel that every caller has to guard.
func Record(uri position.URI, root *gparse.Node) *AstModel {
	m := &AstModel{
		uri:    uri,
		parent: make(map[NodeID]NodeID),
	}
	if root == nil {
		return m
	}
	m.record(root, NilNodeID)
	return m
}

func (m *AstModel) record(n *gparse.Node, parent NodeID) NodeID {
	id := NodeID(len(m.nodes))
	m.nodes = append(m.nodes, NodeView{
		Kind: n.Kind,
		Span: position.Span{
			Start: position.Position{Space: position.SourceSpace, Line: n.Span.Start.Line, Column: n.Span.Start.Column},
			End:   position.Position{Space: position.SourceSpace, Line: n.Span.End.Line, Column: n.Span.End.Column},
		},
		HasToken: n.Token != nil,
	})
	if n.Token != nil {
		m.nodes[id].Literal = n.Token.Literal
	}
	if parent != NilNodeID {
		m.parent[id] = parent
	}
	children := make([]NodeID, 0, len(n.Children))
	for _, c := range n.Children {
		children = append(children, m.record(c, id))
	}
	m.nodes[id].Children = children
	return id
}

// URI returns the document this model was built from.
func (m *AstModel) URI() position.URI { return m.uri }

// Root returns the arena's root node ID, or NilNodeID if the model is
// empty (the parser produced no tree at all).
func (m *AstModel) Root() NodeID {
	if len(m.nodes) == 0 {
		return NilNodeID
	}
	return 0
}

// View returns the NodeView for id. Calling it with an out-of-range ID
// (including NilNodeID) panics, matching slice-index semantics; callers
// are expected to only ever hold IDs this same model produced.
func (m *AstModel) View(id NodeID) NodeView {
	return m.nodes[id]
}

// Parent returns the parent of id and true, or NilNodeID and false if id
// is the root or not part of this model's arena.
func (m *AstModel) Parent(id NodeID) (NodeID, bool) {
	p, ok := m.parent[id]
	return p, ok
}

// AllNodes returns every node ID in the arena, in the order they were
// recorded (pre-order, matching the CST's own structure).
func (m *AstModel) AllNodes() []NodeID {
	ids := make([]NodeID, len(m.nodes))
	for i := range m.nodes {
		ids[i] = NodeID(i)
	}
	return ids
}

var classLikeKinds = map[gparse.NodeKind]bool{
	gparse.KindClassDecl:     true,
	gparse.KindInterfaceDecl: true,
	gparse.KindTraitDecl:     true,
	gparse.KindEnumDecl:      true,
	gparse.KindRecordDecl:    true,
}

// AllClassNodes returns the IDs of every class/interface/enum/record
// declaration node in the arena.
func (m *AstModel) AllClassNodes() []NodeID {
	var ids []NodeID
	for i, n := range m.nodes {
		if classLikeKinds[n.Kind] {
			ids = append(ids, NodeID(i))
		}
	}
	return ids
}

// Scoring weights for NodeAt. A node's score grows with its span size, so
// the smallest containing node wins; kindPriority breaks ties among
// equal-sized spans so a wrapping container never shadows the specific
// symbol under the cursor. Multi-line spans score their line count plus the
// full maxRange a single line could ever contribute, keeping any same-line
// span strictly cheaper than a span covering more lines.
const (
	lineWeight = 1000
	maxRange   = 1000
)

// kindPriority ranks node kinds for the position-query tie-break: among
// candidates with equal-sized spans, the specific, meaningful node (an
// identifier, a declaration, a call) beats the container wrapping it.
// Lower is better.
func kindPriority(k gparse.NodeKind) int {
	switch k {
	case gparse.KindIdentifier, gparse.KindThis, gparse.KindSuper:
		return 0
	case gparse.KindLiteral, gparse.KindQualifiedName:
		return 1
	case gparse.KindLocalVarDecl, gparse.KindParameter, gparse.KindFieldDecl, gparse.KindEnumConstant:
		return 2
	case gparse.KindCallExpr, gparse.KindFieldAccess, gparse.KindSafeFieldAccess,
		gparse.KindNewExpr, gparse.KindIndexExpr, gparse.KindMethodRef:
		return 3
	case gparse.KindMethodDecl, gparse.KindConstructorDecl:
		return 4
	case gparse.KindClassDecl, gparse.KindInterfaceDecl, gparse.KindTraitDecl,
		gparse.KindEnumDecl, gparse.KindRecordDecl:
		return 7
	case gparse.KindBlock, gparse.KindExprStmt, gparse.KindParameters, gparse.KindCompilationUnit:
		return 8
	default:
		return 5
	}
}

// NodeAt returns the node whose span contains pos with the minimum score:
// the smallest containing node, specific kinds beating containers on ties.
func (m *AstModel) NodeAt(pos position.Position) (NodeID, bool) {
	best := NilNodeID
	bestScore := 0
	for i := range m.nodes {
		n := &m.nodes[i]
		if !isValidPosition(n.Span) || !position.Contains(n.Span, pos) {
			continue
		}
		score := (n.Span.End.Line-n.Span.Start.Line)*lineWeight + kindPriority(n.Kind)
		switch {
		case n.Span.Start.Line != n.Span.End.Line:
			score += maxRange
		case n.Span.End.Column == n.Span.Start.Column:
			// An empty error-recovery span must never shadow real content.
			score += maxRange
		default:
			score += n.Span.End.Column - n.Span.Start.Column
		}
		if best == NilNodeID || score < bestScore {
			best, bestScore = NodeID(i), score
		}
	}
	return best, best != NilNodeID
}

// isValidPosition reports whether every coordinate of s is positive:
// source space is one-based, so a zero or negative coordinate marks a
// synthesized node with no real location.
func isValidPosition(s position.Span) bool {
	return s.Start.Line > 0 && s.Start.Column > 0 && s.End.Line > 0 && s.End.Column > 0
}

// Ancestors returns id's ancestor chain, nearest first, ending at the
// root. It does not include id itself.
func (m *AstModel) Ancestors(id NodeID) []NodeID {
	var chain []NodeID
	for {
		p, ok := m.Parent(id)
		if !ok {
			return chain
		}
		chain = append(chain, p)
		id = p
	}
}

// SuperclassName returns the dotted name of classID's extends-clause
// supertype, or "" when the class declares none. Interfaces may extend
// several; the first is returned, matching Groovy's single class
// inheritance.
func (m *AstModel) SuperclassName(classID NodeID) string {
	for _, c := range m.View(classID).Children {
		if m.View(c).Kind != gparse.KindExtendsClause {
			continue
		}
		for _, sc := range m.View(c).Children {
			if name := m.dottedName(sc); name != "" {
				return name
			}
		}
	}
	return ""
}

// dottedName renders id back to its dotted source text: an identifier's own
// literal, or a QualifiedName's segments joined with ".". Wrapper nodes
// (a Type around the supertype reference) delegate to their first named
// child.
func (m *AstModel) dottedName(id NodeID) string {
	v := m.View(id)
	switch v.Kind {
	case gparse.KindIdentifier:
		return v.Literal
	case gparse.KindQualifiedName:
		var parts []string
		for _, c := range v.Children {
			if cv := m.View(c); cv.Kind == gparse.KindIdentifier {
				parts = append(parts, cv.Literal)
			}
		}
		return strings.Join(parts, ".")
	default:
		for _, c := range v.Children {
			if name := m.dottedName(c); name != "" {
				return name
			}
		}
		return ""
	}
}

// EnclosingOfKind walks up from id and returns the nearest ancestor (or id
// itself) whose Kind is one of kinds.
func (m *AstModel) EnclosingOfKind(id NodeID, kinds ...gparse.NodeKind) (NodeID, bool) {
	want := make(map[gparse.NodeKind]bool, len(kinds))
	for _, k := range kinds {
		want[k] = true
	}
	cur := id
	for {
		if want[m.nodes[cur].Kind] {
			return cur, true
		}
		p, ok := m.Parent(cur)
		if !ok {
			return NilNodeID, false
		}
		cur = p
	}
}
