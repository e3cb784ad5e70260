// Package chatdomain holds the output filter pipeline a defense applies to
// model output before it reaches the attacker.
package chatdomain

import (
	"context"
	"fmt"
	"strings"

	"github.com/spylab/llm-ctf/internal/apperrors"
	"github.com/spylab/llm-ctf/internal/sharedtypes"
)

// FilterKind tags the two filter implementations.
type FilterKind string

const (
	FilterKindContent FilterKind = "python"
	FilterKindLLM     FilterKind = "llm"
)

// FilterInput is what every filter sees.
type FilterInput struct {
	// History is the message contents so far, ending with the last user message.
	History []string
	Output  string
	Secret  string
	Model   sharedtypes.ChatModel
	APIKey  string
}

// OutputFilter rewrites model output and reports what the rewrite cost.
type OutputFilter interface {
	Kind() FilterKind
	Apply(ctx context.Context, in FilterInput) (string, float64, error)
}

// Rewriter runs a defense's rewrite function in its sandbox.
type Rewriter interface {
	Rewrite(ctx context.Context, history []string, output, secret string) (string, error)
}

// ContentFilter applies a defense-supplied rewrite function. It never bills.
type ContentFilter struct {
	Rewriter Rewriter
}

var _ OutputFilter = ContentFilter{}

func (ContentFilter) Kind() FilterKind { return FilterKindContent }

func (f ContentFilter) Apply(ctx context.Context, in FilterInput) (string, float64, error) {
	out, err := f.Rewriter.Rewrite(ctx, in.History, in.Output, in.Secret)
	if err != nil {
		return "", 0, fmt.Errorf("content filter: %w", err)
	}
	return out, 0, nil
}

// Completer sends a single user prompt to a model and returns the reply and
// its cost.
type Completer interface {
	Complete(ctx context.Context, apiKey string, model sharedtypes.ChatModel, prompt string) (string, float64, error)
}

// LLMFilter asks the chat model to rewrite the output using a defense prompt.
// The prompt may reference {last_user_prompt}, {secret} and {model_output}.
type LLMFilter struct {
	Prompt    string
	Completer Completer
}

var _ OutputFilter = LLMFilter{}

func (LLMFilter) Kind() FilterKind { return FilterKindLLM }

func (f LLMFilter) Apply(ctx context.Context, in FilterInput) (string, float64, error) {
	out, cost, err := f.Completer.Complete(ctx, in.APIKey, in.Model, f.RenderPrompt(in))
	if err != nil {
		return "", 0, fmt.Errorf("llm filter: %w", err)
	}
	return out, cost, nil
}

// RenderPrompt fills the prompt placeholders. An empty history leaves
// {last_user_prompt} blank.
func (f LLMFilter) RenderPrompt(in FilterInput) string {
	last := ""
	if len(in.History) > 0 {
		last = in.History[len(in.History)-1]
	}
	return strings.NewReplacer(
		"{last_user_prompt}", last,
		"{secret}", in.Secret,
		"{model_output}", in.Output,
	).Replace(f.Prompt)
}

// FilterStep is one stage of the pipeline. The first step holds the raw
// model output and has no kind.
type FilterStep struct {
	Kind    FilterKind `json:"filter_type,omitempty"`
	Content string     `json:"content"`
}

var ErrDuplicateFilterKind = fmt.Errorf("there can be at most one filter of each type: %w", apperrors.ErrInvalidArgument)

// ValidateFilters rejects pipelines with more than one filter of a kind.
func ValidateFilters(filters []OutputFilter) error {
	seen := make(map[FilterKind]bool, len(filters))
	for _, f := range filters {
		if seen[f.Kind()] {
			return ErrDuplicateFilterKind
		}
		seen[f.Kind()] = true
	}
	return nil
}

// UsesLLMFilter reports whether running filters may bill the team.
func UsesLLMFilter(filters []OutputFilter) bool {
	for _, f := range filters {
		if f.Kind() == FilterKindLLM {
			return true
		}
	}
	return false
}

// ApplyFilters runs filters in order, each on the previous step's output,
// and returns every step with the summed cost.
func ApplyFilters(ctx context.Context, filters []OutputFilter, in FilterInput) ([]FilterStep, float64, error) {
	steps := make([]FilterStep, 0, len(filters)+1)
	steps = append(steps, FilterStep{Content: in.Output})

	var total float64
	for _, f := range filters {
		out, cost, err := f.Apply(ctx, in)
		if err != nil {
			return nil, 0, err
		}
		steps = append(steps, FilterStep{Kind: f.Kind(), Content: out})
		total += cost
		in.Output = out
	}
	return steps, total, nil
}

// Final returns the content of the last step.
func Final(steps []FilterStep) string {
	if len(steps) == 0 {
		return ""
	}
	return steps[len(steps)-1].Content
}
