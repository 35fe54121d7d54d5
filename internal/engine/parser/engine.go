package parser

import (
	sitter "github.com/tree-sitter/go-tree-sitter"
)

// NodeHandler processes a node for a kind-dispatched walk.
// Returns true if the handler has processed children and the walker should
// not descend.
type NodeHandler func(node *sitter.Node) bool

// WalkEngine walks a syntax tree in document order and dispatches handlers by
// node kind. Nodes without a handler are descended into.
type WalkEngine struct {
	handlers map[string]NodeHandler
}

func NewWalkEngine(handlers map[string]NodeHandler) *WalkEngine {
	return &WalkEngine{handlers: handlers}
}

func (e *WalkEngine) Walk(node *sitter.Node) {
	if node == nil {
		return
	}
	if handler, ok := e.handlers[node.Kind()]; ok && handler(node) {
		return
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		e.Walk(node.Child(i))
	}
}

func Children(node *sitter.Node) []*sitter.Node {
	if node == nil {
		return nil
	}
	out := make([]*sitter.Node, 0, node.ChildCount())
	for i := uint(0); i < node.ChildCount(); i++ {
		if child := node.Child(i); child != nil {
			out = append(out, child)
		}
	}
	return out
}

func NamedChildren(node *sitter.Node) []*sitter.Node {
	if node == nil {
		return nil
	}
	out := make([]*sitter.Node, 0, node.NamedChildCount())
	for i := uint(0); i < node.NamedChildCount(); i++ {
		if child := node.NamedChild(i); child != nil {
			out = append(out, child)
		}
	}
	return out
}

// FieldChildren returns every child stored under field, in order. Unlike
// ChildByFieldName it does not stop at the first match, which matters for
// repeated fields such as decorators.
func FieldChildren(node *sitter.Node, field string) []*sitter.Node {
	if node == nil {
		return nil
	}
	var out []*sitter.Node
	for i := uint(0); i < node.ChildCount(); i++ {
		if node.FieldNameForChild(uint32(i)) == field {
			if child := node.Child(i); child != nil {
				out = append(out, child)
			}
		}
	}
	return out
}

// ChildOfKind returns the first direct child whose kind is one of kinds.
func ChildOfKind(node *sitter.Node, kinds ...string) *sitter.Node {
	if node == nil {
		return nil
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		for _, kind := range kinds {
			if child.Kind() == kind {
				return child
			}
		}
	}
	return nil
}

// HasToken reports whether node has an anonymous direct child spelled token,
// e.g. the `type` keyword of `import type { A } from "m"`.
func HasToken(node *sitter.Node, token string) bool {
	if node == nil {
		return false
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child != nil && !child.IsNamed() && child.Kind() == token {
			return true
		}
	}
	return false
}

// IsMalformed reports syntax errors or parser-inserted tokens below node.
func IsMalformed(node *sitter.Node) bool {
	if node == nil {
		return true
	}
	if node.IsError() || node.IsMissing() || node.HasError() {
		return true
	}
	return false
}
