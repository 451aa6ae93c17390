package inferrer

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"venue-enrichment/internal/models"
	"venue-enrichment/internal/prompts"
	errs "venue-enrichment/pkg/errors"
)

// ChatClient is the slice of the OpenAI client the inferrer needs.
// *openai.Client satisfies it; tests substitute a mock.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Config holds model and heuristic knobs for the inferrer.
type Config struct {
	Model       string
	Temperature float32
	MaxTokens   int

	// ConfidenceCap bounds heuristic confidences derived from lexical
	// overlap; model-reported confidences are not capped.
	ConfidenceCap float64
	MinTokenLen   int
}

// Inferrer extracts structured activity candidates from venue text via a
// language model. It is stateless apart from the cost tracker; the engine
// owns retries and sequencing.
type Inferrer struct {
	client  ChatClient
	prompts *prompts.Manager
	cfg     Config
	costs   *CostTracker
}

func New(client ChatClient, pm *prompts.Manager, cfg Config) *Inferrer {
	if cfg.Model == "" {
		cfg.Model = openai.GPT4oMini
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 800
	}
	if cfg.ConfidenceCap == 0 {
		cfg.ConfidenceCap = 0.6
	}
	if cfg.MinTokenLen == 0 {
		cfg.MinTokenLen = 3
	}
	return &Inferrer{
		client:  client,
		prompts: pm,
		cfg:     cfg,
		costs:   NewCostTracker(),
	}
}

// GetCostStats returns current model usage statistics.
func (inf *Inferrer) GetCostStats() (totalTokens, totalRequests int, estimatedCostUSD float64, duration time.Duration) {
	return inf.costs.GetStats()
}

type promptData struct {
	Name        string
	Description string
	Categories  []string
	Reviews     []string
}

// rawCandidate mirrors one element of the model's JSON array response.
type rawCandidate struct {
	Label         string  `json:"label"`
	Justification string  `json:"justification"`
	Confidence    float64 `json:"confidence"`
}

// Infer extracts activity candidates for the venue. An empty candidate list
// is a valid success. When strict is set, the strict prompt variant is used;
// the engine sets it after an unparsable response.
func (inf *Inferrer) Infer(ctx context.Context, text models.VenueText, mapped *models.MappedPlaceAttributes, strict bool) ([]models.ActivityCandidate, error) {
	data := promptData{
		Name:        text.Name,
		Description: text.Description,
		Reviews:     text.Reviews,
	}
	if mapped != nil {
		for _, tag := range mapped.Categories {
			data.Categories = append(data.Categories, tag.Label)
		}
		if len(data.Reviews) == 0 {
			data.Reviews = mapped.Reviews
		}
	}

	system, err := inf.prompts.Render(prompts.ActivitySystem, struct{ Vocabulary []string }{models.ActivityLabels()})
	if err != nil {
		return nil, err
	}
	userTemplate := prompts.ActivityUser
	if strict {
		userTemplate = prompts.ActivityUserStrict
	}
	user, err := inf.prompts.Render(userTemplate, data)
	if err != nil {
		return nil, err
	}

	resp, err := inf.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: inf.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		Temperature: inf.cfg.Temperature,
		MaxTokens:   inf.cfg.MaxTokens,
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, errs.NewInference("inferrer.Infer", errs.InferenceUpstreamTimeout, "chat call timed out", err)
		}
		return nil, errs.NewInference("inferrer.Infer", errs.InferenceUpstreamUnavailable, "chat call failed", err)
	}

	inf.costs.AddUsage(resp.Usage.PromptTokens, resp.Usage.CompletionTokens)

	if len(resp.Choices) == 0 {
		return nil, errs.NewInference("inferrer.Infer", errs.InferenceEmptyResult, "response has no choices", nil)
	}

	content := stripFences(resp.Choices[0].Message.Content)
	if content == "" {
		return nil, errs.NewInference("inferrer.Infer", errs.InferenceEmptyResult, "response is blank", nil)
	}

	var raw []rawCandidate
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return nil, errs.NewInference("inferrer.Infer", errs.InferenceUnparsableResponse, "response is not a JSON candidate array", err)
	}

	return inf.buildCandidates(raw, text, mapped), nil
}

// buildCandidates filters raw model output through the controlled
// vocabulary, fills in heuristic confidences, tags sources and merges
// duplicates. Insertion order follows model emission order.
func (inf *Inferrer) buildCandidates(raw []rawCandidate, text models.VenueText, mapped *models.MappedPlaceAttributes) []models.ActivityCandidate {
	var cands []models.ActivityCandidate
	for _, rc := range raw {
		label := models.NormalizeActivityLabel(rc.Label)
		if !models.KnownActivityLabel(label) {
			continue
		}

		conf := rc.Confidence
		if conf > 1 {
			conf = 1
		}
		source := inf.classifySource(rc.Justification, text, mapped)
		if conf <= 0 {
			conf = FallbackConfidence(rc.Justification, sourceText(source, text, mapped), inf.cfg.ConfidenceCap, inf.cfg.MinTokenLen)
		}

		cands = append(cands, models.ActivityCandidate{
			Label:         label,
			Justification: strings.TrimSpace(rc.Justification),
			Confidence:    conf,
			Source:        source,
		})
	}
	return models.MergeCandidates(cands)
}

// classifySource picks the source tag whose text best overlaps the
// justification. Description wins ties.
func (inf *Inferrer) classifySource(justification string, text models.VenueText, mapped *models.MappedPlaceAttributes) models.CandidateSource {
	best := models.SourceDescription
	bestScore := overlapFraction(justification, text.Description, inf.cfg.MinTokenLen)

	if s := overlapFraction(justification, joinReviews(text, mapped), inf.cfg.MinTokenLen); s > bestScore {
		best, bestScore = models.SourceReviews, s
	}
	if mapped != nil {
		var labels []string
		for _, tag := range mapped.Categories {
			labels = append(labels, tag.Label)
		}
		if s := overlapFraction(justification, strings.Join(labels, " "), inf.cfg.MinTokenLen); s > bestScore {
			best = models.SourcePlaceTags
		}
	}
	return best
}

func sourceText(source models.CandidateSource, text models.VenueText, mapped *models.MappedPlaceAttributes) string {
	switch source {
	case models.SourceReviews:
		return joinReviews(text, mapped)
	case models.SourcePlaceTags:
		if mapped == nil {
			return ""
		}
		var labels []string
		for _, tag := range mapped.Categories {
			labels = append(labels, tag.Label)
		}
		return strings.Join(labels, " ")
	default:
		return text.Name + " " + text.Description
	}
}

func joinReviews(text models.VenueText, mapped *models.MappedPlaceAttributes) string {
	reviews := text.Reviews
	if len(reviews) == 0 && mapped != nil {
		reviews = mapped.Reviews
	}
	return strings.Join(reviews, " ")
}

func overlapFraction(justification, source string, minTokenLen int) float64 {
	just := contentTokens(justification, minTokenLen)
	if len(just) == 0 || source == "" {
		return 0
	}
	src := make(map[string]bool)
	for _, tok := range contentTokens(source, minTokenLen) {
		src[tok] = true
	}
	matched := 0
	for _, tok := range just {
		if src[tok] {
			matched++
		}
	}
	return float64(matched) / float64(len(just))
}

// stripFences removes markdown code fences some models wrap JSON in.
func stripFences(content string) string {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimPrefix(content, "```")
		content = strings.TrimSuffix(content, "```")
		content = strings.TrimSpace(content)
	}
	return content
}
