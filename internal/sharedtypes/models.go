// Package sharedtypes holds the enumerations shared by the competition modules.
package sharedtypes

import (
	"fmt"
	"strings"

	"github.com/spylab/llm-ctf/internal/apperrors"
)

// Provider identifies who bills for a model call.
type Provider string

const (
	ProviderOpenAI   Provider = "openai"
	ProviderTogether Provider = "together"
)

// Providers lists every provider a team budget may hold.
var Providers = []Provider{ProviderOpenAI, ProviderTogether}

// ParseProvider validates s as a Provider.
func ParseProvider(s string) (Provider, error) {
	switch p := Provider(strings.ToLower(strings.TrimSpace(s))); p {
	case ProviderOpenAI, ProviderTogether:
		return p, nil
	}
	return "", fmt.Errorf("unknown provider %q: %w", s, apperrors.ErrInvalidArgument)
}

func (p Provider) String() string { return string(p) }

// ModelFamily selects the decay rate used when scoring a submission.
type ModelFamily string

const (
	ModelFamilyOpenAI ModelFamily = "openai"
	ModelFamilyMeta   ModelFamily = "meta"
)

func (f ModelFamily) String() string { return string(f) }

// ChatModel is a "<family>/<name>" model identifier, e.g. "openai/gpt-3.5-turbo-1106".
type ChatModel string

func (m ChatModel) String() string { return string(m) }

// Family returns the model family encoded in the identifier prefix. It is
// resolved once, when a submission is registered, and stored on the row.
func (m ChatModel) Family() (ModelFamily, error) {
	prefix, _, ok := strings.Cut(string(m), "/")
	if !ok {
		return "", fmt.Errorf("model %q has no family prefix: %w", m, apperrors.ErrUnknownModelFamily)
	}
	switch f := ModelFamily(prefix); f {
	case ModelFamilyOpenAI, ModelFamilyMeta:
		return f, nil
	}
	return "", fmt.Errorf("model %q: %w", m, apperrors.ErrUnknownModelFamily)
}

// Provider returns the provider billed for calls to m.
func (m ChatModel) Provider() (Provider, error) {
	family, err := m.Family()
	if err != nil {
		return "", err
	}
	switch family {
	case ModelFamilyOpenAI:
		return ProviderOpenAI, nil
	case ModelFamilyMeta:
		return ProviderTogether, nil
	}
	return "", fmt.Errorf("no provider for model %q: %w", m, apperrors.ErrUnknownModelFamily)
}

// ShortName returns the part of the identifier after the family prefix.
func (m ChatModel) ShortName() string {
	if _, name, ok := strings.Cut(string(m), "/"); ok {
		return name
	}
	return string(m)
}

// CompetitionPhase gates which operations are open.
type CompetitionPhase string

const (
	PhasePreparation    CompetitionPhase = "preparation"
	PhaseDefense        CompetitionPhase = "defense"
	PhaseReconnaissance CompetitionPhase = "reconnaissance"
	PhaseEvaluation     CompetitionPhase = "evaluation"
	PhaseFinished       CompetitionPhase = "finished"
)

// ParsePhase validates s as a CompetitionPhase.
func ParsePhase(s string) (CompetitionPhase, error) {
	switch p := CompetitionPhase(strings.ToLower(strings.TrimSpace(s))); p {
	case PhasePreparation, PhaseDefense, PhaseReconnaissance, PhaseEvaluation, PhaseFinished:
		return p, nil
	}
	return "", fmt.Errorf("unknown competition phase %q: %w", s, apperrors.ErrInvalidArgument)
}
