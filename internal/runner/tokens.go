package runner

import (
	"github.com/longkey1/bddgen/internal/llm"
	"github.com/pkg/errors"
	"github.com/tiktoken-go/tokenizer"
)

// EstimateTokens counts prompt tokens with the model's tiktoken codec,
// falling back to cl100k_base for models tiktoken doesn't know.
func EstimateTokens(model string, messages []llm.Message) (int, error) {
	codec, err := tokenizer.ForModel(tokenizer.Model(model))
	if err != nil {
		codec, err = tokenizer.Get(tokenizer.Cl100kBase)
		if err != nil {
			return 0, errors.Wrap(err, "error creating tokenizer")
		}
	}

	total := 0
	for _, msg := range messages {
		ids, _, err := codec.Encode(msg.Content)
		if err != nil {
			return 0, errors.Wrap(err, "error encoding message")
		}
		total += len(ids)
	}
	return total, nil
}
