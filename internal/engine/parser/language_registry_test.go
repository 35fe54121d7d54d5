package parser

import "testing"

func TestBuildLanguageRegistry_Defaults(t *testing.T) {
	registry, err := BuildLanguageRegistry(nil)
	if err != nil {
		t.Fatal(err)
	}

	if !registry[LangTypeScript].Enabled {
		t.Fatal("expected typescript to be enabled by default")
	}
	if !registry[LangTSX].Enabled {
		t.Fatal("expected tsx to be enabled by default")
	}
	if registry[LangJavaScript].Enabled {
		t.Fatal("expected javascript to be disabled by default")
	}
}

func TestBuildLanguageRegistry_NormalizesExtensions(t *testing.T) {
	enabled := true
	registry, err := BuildLanguageRegistry(map[string]LanguageOverride{
		"JavaScript": {Enabled: &enabled, Extensions: []string{"JS", " .mjs ", ""}},
	})
	if err != nil {
		t.Fatal(err)
	}

	got := registry[LangJavaScript].Extensions
	if len(got) != 2 || got[0] != ".js" || got[1] != ".mjs" {
		t.Fatalf("unexpected extensions: %v", got)
	}
}

func TestBuildLanguageRegistry_RejectsDuplicateExtensions(t *testing.T) {
	enabled := true
	_, err := BuildLanguageRegistry(map[string]LanguageOverride{
		"javascript": {Enabled: &enabled, Extensions: []string{".ts"}},
	})
	if err == nil {
		t.Fatal("expected duplicate extension validation error")
	}
}

func TestBuildLanguageRegistry_RejectsUnknownLanguage(t *testing.T) {
	_, err := BuildLanguageRegistry(map[string]LanguageOverride{
		"kotlin": {Extensions: []string{".kt"}},
	})
	if err == nil {
		t.Fatal("expected unknown language override error")
	}
}
