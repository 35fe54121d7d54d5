package parser

import (
	"elision/internal/core/errors"
	"elision/internal/shared/observability"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

type Parser struct {
	loader     *GrammarLoader
	pools      map[string]*ParserPool
	extensions map[string]string
}

func NewParser(loader *GrammarLoader) *Parser {
	p := &Parser{
		loader:     loader,
		pools:      make(map[string]*ParserPool),
		extensions: make(map[string]string),
	}
	for lang, spec := range loader.LanguageRegistry() {
		if !spec.Enabled {
			continue
		}
		if grammar, ok := loader.Language(lang); ok {
			p.pools[lang] = NewParserPool(grammar)
		}
		for _, ext := range spec.Extensions {
			p.extensions[strings.ToLower(ext)] = lang
		}
	}
	return p
}

// Parse parses content with the grammar selected by path. The caller owns the
// returned Source and must Close it.
func (p *Parser) Parse(path string, content []byte) (*Source, error) {
	lang := p.detectLanguage(path)
	if lang == "" {
		return nil, errors.AddContext(errors.New(errors.CodeNotSupported, "unsupported language"), errors.CtxPath, path)
	}
	return p.ParseAs(lang, path, content)
}

// ParseAs parses content with an explicit grammar, ignoring the path extension.
func (p *Parser) ParseAs(lang, path string, content []byte) (*Source, error) {
	pool := p.pools[lang]
	if pool == nil {
		return nil, errors.AddContext(
			errors.New(errors.CodeNotSupported, fmt.Sprintf("grammar not loaded: %s", lang)),
			errors.CtxLanguage, lang,
		)
	}

	start := time.Now()
	tree := pool.Parse(content)
	observability.ParsingDuration.WithLabelValues(lang).Observe(time.Since(start).Seconds())
	if tree == nil {
		return nil, errors.AddContext(errors.New(errors.CodeParseError, "parse failed"), errors.CtxPath, path)
	}
	return NewSource(path, lang, content, tree), nil
}

func (p *Parser) detectLanguage(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	return p.extensions[ext]
}

func (p *Parser) GetLanguage(path string) string {
	return p.detectLanguage(path)
}

func (p *Parser) IsSupportedPath(path string) bool {
	return p.detectLanguage(path) != "" && !IsDeclarationFile(path)
}

// IsDeclarationFile reports .d.ts style files, which are ambient and never
// produce runtime imports.
func IsDeclarationFile(path string) bool {
	base := strings.ToLower(filepath.Base(path))
	for _, suffix := range []string{".d.ts", ".d.mts", ".d.cts"} {
		if strings.HasSuffix(base, suffix) {
			return true
		}
	}
	return false
}

func (p *Parser) SupportedExtensions() []string {
	out := make([]string, 0, len(p.extensions))
	for ext := range p.extensions {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}
