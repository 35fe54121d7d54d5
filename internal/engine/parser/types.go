package parser

import (
	"time"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// Source is one parsed module. It owns the tree-sitter tree; call Close when
// the syntax tree is no longer needed.
type Source struct {
	Path     string
	Language string
	Content  []byte
	ParsedAt time.Time

	tree *sitter.Tree
}

// Span is a half-open byte range with 1-based line/column endpoints.
type Span struct {
	File        string `json:"file,omitempty" yaml:"file,omitempty"`
	StartByte   int    `json:"start_byte" yaml:"start_byte"`
	EndByte     int    `json:"end_byte" yaml:"end_byte"`
	StartLine   int    `json:"start_line" yaml:"start_line"`
	StartColumn int    `json:"start_column" yaml:"start_column"`
	EndLine     int    `json:"end_line" yaml:"end_line"`
	EndColumn   int    `json:"end_column" yaml:"end_column"`
}

func (s Span) Contains(other Span) bool {
	return s.StartByte <= other.StartByte && other.EndByte <= s.EndByte
}

func NewSource(path, language string, content []byte, tree *sitter.Tree) *Source {
	return &Source{
		Path:     path,
		Language: language,
		Content:  content,
		ParsedAt: time.Now(),
		tree:     tree,
	}
}

func (s *Source) Root() *sitter.Node {
	if s == nil || s.tree == nil {
		return nil
	}
	return s.tree.RootNode()
}

func (s *Source) Close() {
	if s == nil || s.tree == nil {
		return
	}
	s.tree.Close()
	s.tree = nil
}

func (s *Source) Text(node *sitter.Node) string {
	if node == nil {
		return ""
	}
	return string(s.Content[node.StartByte():node.EndByte()])
}

func (s *Source) Span(node *sitter.Node) Span {
	if node == nil {
		return Span{File: s.Path}
	}
	start := node.StartPosition()
	end := node.EndPosition()
	return Span{
		File:        s.Path,
		StartByte:   int(node.StartByte()),
		EndByte:     int(node.EndByte()),
		StartLine:   int(start.Row) + 1,
		StartColumn: int(start.Column) + 1,
		EndLine:     int(end.Row) + 1,
		EndColumn:   int(end.Column) + 1,
	}
}

// HasTypeSyntax reports whether the source language carries erasable types.
func (s *Source) HasTypeSyntax() bool {
	return s != nil && (s.Language == LangTypeScript || s.Language == LangTSX)
}
