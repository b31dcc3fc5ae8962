package ailink

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/stocklens/stocklens/internal/ailink/content"
	"github.com/stocklens/stocklens/internal/ailink/driver"
	"github.com/stocklens/stocklens/internal/ailink/encode"
	"github.com/stocklens/stocklens/internal/ailink/profile"
	"github.com/stocklens/stocklens/internal/metrics"
	"github.com/stocklens/stocklens/internal/observability"
)

const (
	defaultTimeout = 120 * time.Second
	maxTimeout     = 10 * time.Minute
)

// Service issues the three gateway operations. Each operation is exactly one
// provider round-trip: no retry, no caching, no batching.
type Service struct {
	Providers *Registry
	Profiles  profile.Registry

	// ModelOverride forces a model for every operation when set.
	ModelOverride string
}

// NewService builds a service from provider config, loading built-in profiles
// overlaid with cfg.ProfilesDir.
func NewService(cfg Config) (*Service, error) {
	profiles, err := profile.RegistryWithOverrides(cfg.ProfilesDir)
	if err != nil {
		return nil, err
	}
	return &Service{Providers: NewRegistry(cfg), Profiles: profiles}, nil
}

type inlineImage struct {
	data      []byte
	mediaType string
}

// MarketAnalysis runs a search-grounded query. Sources is empty, never nil,
// when the response carries no grounding metadata.
func (s *Service) MarketAnalysis(ctx context.Context, prompt string) (*MarketAnalysis, error) {
	resp, err := s.run(ctx, KindMarketAnalysis, RoleMarketAnalysis, prompt, nil)
	if err != nil {
		return nil, err
	}
	sources := resp.Citations
	if sources == nil {
		sources = []Citation{}
	}
	return &MarketAnalysis{Text: resp.Text(), Sources: sources}, nil
}

// AnalyzeImage runs a multimodal query. imageBase64 may be bare base64 or a
// data URI; mimeType wins over the media type embedded in a data URI.
func (s *Service) AnalyzeImage(ctx context.Context, prompt, imageBase64, mimeType string) (string, error) {
	data, embedded, err := encode.DecodeDataURL(imageBase64)
	if err != nil {
		return "", s.fail(KindImageAnalysis, nil, "", 0, fmt.Errorf("decode image: %w", err))
	}
	mediaType := strings.ToLower(strings.TrimSpace(mimeType))
	if mediaType == "" {
		mediaType = strings.ToLower(embedded)
	}
	resp, err := s.run(ctx, KindImageAnalysis, RoleImageAnalysis, prompt, &inlineImage{data: data, mediaType: mediaType})
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

// DeepDive runs a long-form reasoning query on the reasoning model tier.
func (s *Service) DeepDive(ctx context.Context, prompt string) (string, error) {
	resp, err := s.run(ctx, KindDeepDive, RoleDeepDive, prompt, nil)
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

func (s *Service) run(ctx context.Context, kind Kind, role, prompt string, image *inlineImage) (*driver.Response, error) {
	if s == nil || s.Providers == nil {
		return nil, s.fail(kind, nil, "", 0, errors.New("ailink provider registry not configured"))
	}
	if s.Profiles == nil {
		return nil, s.fail(kind, nil, "", 0, errors.New("ailink profile registry not configured"))
	}
	if strings.TrimSpace(prompt) == "" {
		return nil, s.fail(kind, nil, "", 0, ErrEmptyPrompt)
	}

	def, err := s.Profiles.Get(role)
	if err != nil {
		return nil, s.fail(kind, nil, "", 0, err)
	}
	if err := checkImage(def, image); err != nil {
		return nil, s.fail(kind, nil, "", 0, err)
	}

	resolved, err := s.Providers.Resolve(role, def, s.ModelOverride)
	if err != nil {
		return nil, s.fail(kind, nil, "", 0, err)
	}

	req, err := buildRequest(def, resolved, prompt, image)
	if err != nil {
		return nil, s.fail(kind, resolved, "", 0, err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout())
	defer cancel()

	start := time.Now()
	resp, err := resolved.Driver.Complete(ctx, req)
	elapsed := time.Since(start)
	if err != nil {
		return nil, s.fail(kind, resolved, req.Model, elapsed, err)
	}

	metrics.RecordAnalysis(kind.String(), resolved.ProviderID, true, elapsed)
	if logger := observability.Active(); logger != nil {
		logger.Debug("ailink operation completed",
			zap.String("operation", kind.String()),
			zap.String("provider", resolved.ProviderID),
			zap.String("model", req.Model),
			zap.Int("citations", len(resp.Citations)),
			zap.Duration("duration", elapsed))
	}
	return resp, nil
}

func checkImage(def *profile.Profile, image *inlineImage) error {
	if image == nil {
		if def.Config.Input.RequiresImage {
			return errors.New("image attachment is required")
		}
		return nil
	}
	if len(image.data) == 0 {
		return errors.New("image attachment is empty")
	}
	if image.mediaType == "" {
		return errors.New("image media type is required")
	}
	if !def.AcceptsMediaType(image.mediaType) {
		return fmt.Errorf("image media type %q is not accepted", image.mediaType)
	}
	return nil
}

func buildRequest(def *profile.Profile, resolved *ResolvedProvider, prompt string, image *inlineImage) (*driver.Request, error) {
	caps := resolved.Driver.Capabilities()

	var messages []content.Message
	if system := strings.TrimSpace(def.Config.SystemTemplate); system != "" {
		messages = append(messages, content.Message{Role: "system", Content: []content.ContentBlock{content.Text(system)}})
	}

	// The image part precedes the text part.
	user := content.Message{Role: "user"}
	if image != nil {
		if !caps.SupportsImages {
			return nil, fmt.Errorf("driver %q does not accept images", resolved.Driver.Name())
		}
		user.Content = append(user.Content, content.Inline(image.data, image.mediaType))
	}
	user.Content = append(user.Content, content.Text(prompt))
	messages = append(messages, user)

	req := &driver.Request{
		Model:      resolved.Model,
		Messages:   messages,
		PromptSlug: def.Config.Slug,
	}

	for _, tool := range def.Config.Tools {
		if tool.Type == driver.ToolGoogleSearch && !caps.SupportsGrounding {
			// Providers without server-side search answer ungrounded with no citations.
			if logger := observability.Active(); logger != nil {
				logger.Warn("search grounding unsupported by driver; running without it",
					zap.String("provider", resolved.ProviderID),
					zap.String("driver", resolved.Driver.Name()))
			}
			continue
		}
		req.Tools = append(req.Tools, driver.Tool{Type: tool.Type, Config: tool.Config})
	}

	if def.Config.Thinking != nil && def.Config.Thinking.Budget > 0 && caps.SupportsThinking {
		req.Thinking = &driver.ThinkingConfig{Budget: def.Config.Thinking.Budget}
	}

	return req, nil
}

func (s *Service) timeout() time.Duration {
	duration := s.Providers.cfg.DefaultTimeout
	if duration <= 0 {
		duration = defaultTimeout
	}
	if duration > maxTimeout {
		duration = maxTimeout
	}
	return duration
}

// fail logs the raw cause and returns the operation's AnalysisError.
func (s *Service) fail(kind Kind, resolved *ResolvedProvider, model string, elapsed time.Duration, cause error) error {
	providerID := ""
	if resolved != nil {
		providerID = resolved.ProviderID
		if model == "" {
			model = resolved.Model
		}
	}

	metrics.RecordAnalysis(kind.String(), providerID, false, elapsed)
	metrics.RecordOperationError(kind.String(), errorType(cause))

	if logger := observability.Active(); logger != nil {
		fields := []zap.Field{
			zap.String("operation", kind.String()),
			zap.String("provider", providerID),
			zap.String("model", model),
			zap.Error(cause),
		}
		if code := errorType(cause); code != "unknown" {
			fields = append(fields, zap.String("error_code", code))
		}
		logger.Error("ailink operation failed", fields...)
	}

	return &AnalysisError{Kind: kind, Err: cause}
}

func errorType(err error) string {
	if failure := ClassifyProviderError(err); failure != nil && failure.Code != "" {
		return failure.Code
	}
	return "unknown"
}
