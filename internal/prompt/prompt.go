package prompt

import (
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/longkey1/bddgen/internal/conversation"
	"github.com/longkey1/bddgen/internal/llm"
	"github.com/pkg/errors"
)

// TemplateExt marks an instruction file as a TOML template
const TemplateExt = ".toml"

// Template represents the structure of a TOML instruction file
type Template struct {
	System string  `toml:"system"`
	User   string  `toml:"user"`
	Model  *string `toml:"model,omitempty"`
}

// IsTemplate reports whether the instruction path names a TOML template
func IsTemplate(path string) bool {
	return strings.HasSuffix(path, TemplateExt)
}

// LoadTemplate loads an instruction template file
func LoadTemplate(filePath string) (*Template, error) {
	content, err := conversation.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	var tmpl Template
	if _, err := toml.Decode(content, &tmpl); err != nil {
		return nil, errors.Wrapf(err, "error decoding instruction template %s", filePath)
	}

	if tmpl.Model != nil {
		if _, _, err := llm.ParseModelString(*tmpl.Model); err != nil {
			return nil, errors.Wrap(err, "invalid model format in instruction template")
		}
	}
	return &tmpl, nil
}
