package ai

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"video-scout/internal/models"
	"video-scout/shared/config"
)

// ErrEvaluation wraps failed or unusable responses from the model.
var ErrEvaluation = errors.New("evaluation failed")

const descriptionLimit = 1000

// generator sends one prompt to a text model and returns the raw reply.
type generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Name() string
}

type Analyzer struct {
	backend generator
	topics  []string
}

func NewAnalyzer(ctx context.Context, cfg *config.AIConfig) (*Analyzer, error) {
	if cfg == nil {
		return nil, fmt.Errorf("ai config cannot be nil")
	}

	var (
		backend generator
		err     error
	)
	switch cfg.Provider {
	case config.ProviderOpenAI:
		backend = newOpenAIGenerator(cfg)
	case config.ProviderGemini, "":
		backend, err = newGeminiGenerator(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown AI provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	topics := cfg.Topics
	if len(topics) == 0 {
		topics = config.DefaultTopics
	}

	return &Analyzer{
		backend: backend,
		topics:  topics,
	}, nil
}

// Evaluate asks the model for a qualitative assessment of the video's
// teaching and returns the trimmed reply, which is never empty.
func (a *Analyzer) Evaluate(ctx context.Context, video *models.Video) (string, error) {
	if video == nil {
		return "", fmt.Errorf("video cannot be nil")
	}

	prompt := a.buildEvaluationPrompt(video)

	response, err := a.backend.Generate(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("%w: %s request for video %s: %v", ErrEvaluation, a.backend.Name(), video.ID, err)
	}

	evaluation := strings.TrimSpace(response)
	if evaluation == "" {
		log.Printf("Empty response from %s for video %s. This could indicate content filtering or API issues.", a.backend.Name(), video.Title)
		return "", fmt.Errorf("%w: empty response for video %s", ErrEvaluation, video.ID)
	}

	return evaluation, nil
}

func (a *Analyzer) buildEvaluationPrompt(video *models.Video) string {
	var topics strings.Builder
	for i, topic := range a.topics {
		fmt.Fprintf(&topics, "%d. %s\n", i+1, topic)
	}

	return fmt.Sprintf(`Title: %s
Description: %s
Channel: %s
Evaluate the video's quality and teaching methodology, focusing on the didactics used for presenting and explaining algorithms and data structures. Was the content clear and engaging, or did it lead to confusion? Provide a detailed evaluation based on the implementation and learning of the following key topics:
%sFor each topic, assess whether it was included in the video, how it was implemented, and how effectively it was taught. Highlight any strengths or areas for improvement in making these concepts understandable and applicable for learners.`,
		video.Title,
		truncateString(video.Description, descriptionLimit),
		video.ChannelTitle,
		topics.String(),
	)
}

func truncateString(s string, maxLength int) string {
	runes := []rune(s)
	if len(runes) <= maxLength {
		return s
	}
	return string(runes[:maxLength]) + "..."
}
