package parser

import (
	"fmt"
	"sort"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
)

type GrammarLoader struct {
	languages map[string]*sitter.Language
	registry  map[string]LanguageSpec
}

func NewGrammarLoader() (*GrammarLoader, error) {
	return NewGrammarLoaderWithRegistry(DefaultLanguageRegistry())
}

func NewGrammarLoaderWithRegistry(registry map[string]LanguageSpec) (*GrammarLoader, error) {
	if registry == nil {
		registry = DefaultLanguageRegistry()
	}

	gl := &GrammarLoader{
		languages: make(map[string]*sitter.Language),
		registry:  cloneLanguageRegistry(registry),
	}

	for _, langID := range sortedSpecKeys(gl.registry) {
		spec := gl.registry[langID]
		if !spec.Enabled {
			continue
		}
		switch langID {
		case LangTypeScript:
			gl.languages[langID] = sitter.NewLanguage(tree_sitter_typescript.LanguageTypescript())
		case LangTSX:
			gl.languages[langID] = sitter.NewLanguage(tree_sitter_typescript.LanguageTSX())
		case LangJavaScript:
			gl.languages[langID] = sitter.NewLanguage(tree_sitter_javascript.Language())
		default:
			return nil, fmt.Errorf("language %q is enabled but runtime grammar loading is not implemented", langID)
		}
	}

	return gl, nil
}

func (gl *GrammarLoader) Language(id string) (*sitter.Language, bool) {
	lang, ok := gl.languages[id]
	return lang, ok
}

func (gl *GrammarLoader) LanguageRegistry() map[string]LanguageSpec {
	return cloneLanguageRegistry(gl.registry)
}

func (gl *GrammarLoader) SupportedExtensions() []string {
	set := make(map[string]bool)
	for _, spec := range gl.registry {
		if !spec.Enabled {
			continue
		}
		for _, ext := range spec.Extensions {
			set[ext] = true
		}
	}
	extensions := make([]string, 0, len(set))
	for ext := range set {
		extensions = append(extensions, ext)
	}
	sort.Strings(extensions)
	return extensions
}
