package runner

import (
	"strings"

	"github.com/longkey1/bddgen/internal/conversation"
	"github.com/longkey1/bddgen/internal/deepseek"
	"github.com/longkey1/bddgen/internal/gemini"
	"github.com/longkey1/bddgen/internal/llm"
	"github.com/longkey1/bddgen/internal/openai"
	"github.com/longkey1/bddgen/internal/prompt"
	"github.com/pkg/errors"
)

// Layout decides how the instruction and story become conversation messages
type Layout string

const (
	// LayoutPrepend prepends the instruction, then the story, as two user
	// messages. The story ends up first.
	LayoutPrepend Layout = "prepend"
	// LayoutSystemUser sends the instruction as a system message followed by
	// the story as a user message, both trimmed.
	LayoutSystemUser Layout = "system-user"
	// LayoutCombined joins instruction and story into one user message.
	LayoutCombined Layout = "combined"
)

// Layouts lists every supported layout
var Layouts = []Layout{LayoutPrepend, LayoutSystemUser, LayoutCombined}

// ParseLayout validates a layout name
func ParseLayout(name string) (Layout, error) {
	for _, l := range Layouts {
		if string(l) == name {
			return l, nil
		}
	}
	return "", errors.Errorf("unknown layout '%s' (supported: %v)", name, Layouts)
}

// DefaultLayout returns the layout used for a provider when none is given
func DefaultLayout(provider string) Layout {
	switch provider {
	case deepseek.ProviderName:
		return LayoutSystemUser
	case gemini.ProviderName:
		return LayoutCombined
	default:
		return LayoutPrepend
	}
}

// DefaultOutputFile returns the result file name used for a provider
func DefaultOutputFile(provider string) string {
	switch provider {
	case openai.ProviderName:
		return "BDD_output.feature"
	case deepseek.ProviderName:
		return "deepseek_response.txt"
	case gemini.ProviderName:
		return "response.txt"
	default:
		return "output.txt"
	}
}

// DefaultStripFence reports whether the layout strips a ```gherkin fence by default
func DefaultStripFence(l Layout) bool {
	return l == LayoutPrepend
}

// Build populates conv with the resolved instruction and story
func (l Layout) Build(conv *conversation.Conversation, in *prompt.Resolved) error {
	switch l {
	case LayoutPrepend:
		conv.Prepend(llm.RoleUser, in.Instruction)
		if in.Templated {
			conv.Prepend(llm.RoleUser, in.Story)
			return nil
		}
		return conv.PrependFromFile(llm.RoleUser, in.StoryPath)
	case LayoutSystemUser:
		conv.Append(llm.RoleSystem, strings.TrimSpace(in.Instruction))
		conv.Append(llm.RoleUser, strings.TrimSpace(in.Story))
		return nil
	case LayoutCombined:
		conv.Append(llm.RoleUser, in.Instruction+"\n\n"+in.Story)
		return nil
	default:
		return errors.Errorf("unknown layout '%s'", l)
	}
}

// Messages returns the transcript Build produces, without a provider
func (l Layout) Messages(in *prompt.Resolved) ([]llm.Message, error) {
	conv := conversation.New(nil)
	if err := l.Build(conv, in); err != nil {
		return nil, err
	}
	return conv.Messages(), nil
}
