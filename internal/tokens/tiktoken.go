package tokens

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// TiktokenEstimator counts tokens with a real BPE tokenizer. Slower than the
// character heuristic but accurate for mixed-script text.
type TiktokenEstimator struct {
	enc *tiktoken.Tiktoken
}

// NewTiktokenEstimator selects the tokenizer for the given model, falling
// back to cl100k_base for unknown models.
func NewTiktokenEstimator(model string) (*TiktokenEstimator, error) {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return nil, fmt.Errorf("get tokenizer: %w", err)
		}
	}
	return &TiktokenEstimator{enc: enc}, nil
}

func (t *TiktokenEstimator) CountText(text string) int {
	return len(t.enc.Encode(text, nil, nil))
}
