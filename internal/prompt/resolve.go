package prompt

import (
	"fmt"
	"strings"

	"github.com/longkey1/bddgen/internal/conversation"
	"github.com/pkg/errors"
)

// Resolved is the instruction and user story ready to be laid out into a
// conversation.
type Resolved struct {
	Instruction string
	Story       string
	StoryPath   string
	// Model is set when a template pins one
	Model *string
	// Templated is true when Story was rendered from a template rather than
	// read verbatim from StoryPath.
	Templated bool
}

// Resolve reads the instruction and user story files. A .toml instruction is
// rendered with the story as {{input}} and args as {{key}}; anything else is
// taken verbatim.
func Resolve(instructionPath, storyPath string, args []string) (*Resolved, error) {
	story, err := conversation.ReadFile(storyPath)
	if err != nil {
		return nil, err
	}

	if !IsTemplate(instructionPath) {
		if len(args) > 0 {
			return nil, errors.Errorf("--arg requires a %s instruction template", TemplateExt)
		}
		instruction, err := conversation.ReadFile(instructionPath)
		if err != nil {
			return nil, err
		}
		return &Resolved{Instruction: instruction, Story: story, StoryPath: storyPath}, nil
	}

	tmpl, err := LoadTemplate(instructionPath)
	if err != nil {
		return nil, err
	}

	argMap, err := processArgs(args)
	if err != nil {
		return nil, errors.Wrap(err, "error processing arguments")
	}

	replacements := make(map[string]string, len(argMap)+1)
	replacements["input"] = story
	for key, value := range argMap {
		replacements[key] = value
	}

	res := &Resolved{
		Instruction: render(tmpl.System, replacements),
		Story:       story,
		StoryPath:   storyPath,
		Model:       tmpl.Model,
		Templated:   true,
	}
	if tmpl.User != "" {
		res.Story = render(tmpl.User, replacements)
	}
	return res, nil
}

// render substitutes placeholders in a single pass so replaced values are
// never expanded again.
func render(text string, replacements map[string]string) string {
	pairs := make([]string, 0, 2*len(replacements))
	for key, value := range replacements {
		pairs = append(pairs, fmt.Sprintf("{{%s}}", key), value)
	}
	return strings.NewReplacer(pairs...).Replace(text)
}

// processArgs processes the command line arguments and returns a map of key-value pairs
func processArgs(args []string) (map[string]string, error) {
	result := make(map[string]string)
	for _, arg := range args {
		arg = strings.TrimSpace(arg)
		if strings.HasPrefix(arg, `"`) && strings.HasSuffix(arg, `"`) {
			arg = strings.Trim(arg, `"`)
		}

		parts := strings.SplitN(arg, ":", 2)
		if len(parts) != 2 {
			return nil, errors.Errorf("invalid argument format: %s. Expected format: key:value", arg)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		value = strings.ReplaceAll(value, `\:`, ":")
		value = strings.ReplaceAll(value, `\"`, `"`)

		if key == "" {
			return nil, errors.Errorf("invalid argument format: %s. Key must not be empty", arg)
		}
		if key == "input" {
			return nil, errors.New("'input' is a reserved keyword and cannot be used as a key")
		}
		result[key] = value
	}
	return result, nil
}
