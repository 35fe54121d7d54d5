package parser

import (
	"fmt"
	"sort"
	"strings"
)

const (
	LangTypeScript = "typescript"
	LangTSX        = "tsx"
	LangJavaScript = "javascript"
)

// LanguageSpec describes one grammar the parser can load and the file
// extensions routed to it.
type LanguageSpec struct {
	Name       string
	Extensions []string
	Enabled    bool
	// TypeSyntax reports whether the grammar has erasable type syntax.
	TypeSyntax bool
}

// LanguageOverride is the config-facing partial form of LanguageSpec.
type LanguageOverride struct {
	Enabled    *bool
	Extensions []string
}

func DefaultLanguageRegistry() map[string]LanguageSpec {
	return map[string]LanguageSpec{
		LangTypeScript: {
			Name:       LangTypeScript,
			Extensions: []string{".ts", ".mts", ".cts"},
			Enabled:    true,
			TypeSyntax: true,
		},
		LangTSX: {
			Name:       LangTSX,
			Extensions: []string{".tsx"},
			Enabled:    true,
			TypeSyntax: true,
		},
		LangJavaScript: {
			Name:       LangJavaScript,
			Extensions: []string{".js", ".mjs", ".cjs", ".jsx"},
			Enabled:    false,
		},
	}
}

// BuildLanguageRegistry applies overrides on top of the defaults and rejects
// unknown languages and extensions claimed by more than one enabled grammar.
func BuildLanguageRegistry(overrides map[string]LanguageOverride) (map[string]LanguageSpec, error) {
	registry := DefaultLanguageRegistry()
	for _, lang := range sortedOverrideKeys(overrides) {
		override := overrides[lang]
		key := strings.ToLower(strings.TrimSpace(lang))
		spec, ok := registry[key]
		if !ok {
			return nil, fmt.Errorf("unknown language %q", lang)
		}
		if override.Enabled != nil {
			spec.Enabled = *override.Enabled
		}
		if len(override.Extensions) > 0 {
			exts := make([]string, 0, len(override.Extensions))
			for _, ext := range override.Extensions {
				ext = strings.ToLower(strings.TrimSpace(ext))
				if ext == "" {
					continue
				}
				if !strings.HasPrefix(ext, ".") {
					ext = "." + ext
				}
				exts = append(exts, ext)
			}
			spec.Extensions = exts
		}
		registry[key] = spec
	}

	owner := make(map[string]string)
	for _, lang := range sortedSpecKeys(registry) {
		spec := registry[lang]
		if !spec.Enabled {
			continue
		}
		for _, ext := range spec.Extensions {
			if prev, ok := owner[ext]; ok {
				return nil, fmt.Errorf("extension %q claimed by both %s and %s", ext, prev, lang)
			}
			owner[ext] = lang
		}
	}
	return registry, nil
}

func cloneLanguageRegistry(in map[string]LanguageSpec) map[string]LanguageSpec {
	out := make(map[string]LanguageSpec, len(in))
	for id, spec := range in {
		copySpec := spec
		copySpec.Extensions = append([]string(nil), spec.Extensions...)
		out[id] = copySpec
	}
	return out
}

func sortedSpecKeys(in map[string]LanguageSpec) []string {
	keys := make([]string, 0, len(in))
	for k := range in {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedOverrideKeys(in map[string]LanguageOverride) []string {
	keys := make([]string, 0, len(in))
	for k := range in {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
