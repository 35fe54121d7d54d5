package formats

import (
	"encoding/json"
	"fmt"
	"strings"

	"elision/internal/core/errors"

	"gopkg.in/yaml.v3"
)

// Render produces rep in the named format: text, json, yaml or sarif.
func Render(format string, rep Report) ([]byte, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "text":
		return RenderText(rep), nil
	case "json":
		return RenderJSON(rep)
	case "yaml", "yml":
		return RenderYAML(rep)
	case "sarif":
		return GenerateSARIF(rep)
	}
	return nil, errors.New(errors.CodeNotSupported, fmt.Sprintf("unknown report format %q", format))
}

func RenderJSON(rep Report) ([]byte, error) {
	data, err := json.MarshalIndent(rep.document(), "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "encode json report")
	}
	return append(data, '\n'), nil
}

func RenderYAML(rep Report) ([]byte, error) {
	var b strings.Builder
	enc := yaml.NewEncoder(&b)
	enc.SetIndent(2)
	if err := enc.Encode(rep.document()); err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "encode yaml report")
	}
	if err := enc.Close(); err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "encode yaml report")
	}
	return []byte(b.String()), nil
}
