package sentiment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"coinpulse/internal/cache"
	"coinpulse/internal/domain"
	"coinpulse/internal/provider"
	"coinpulse/pkg/logger"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultModel = "gpt-4o-mini"

	// bounds one shared classification, which outlives any single caller
	classifyTimeout = 15 * time.Second

	systemPrompt = "You are a sentiment classifier for cryptocurrency news. " +
		"Reply with exactly one word: POSITIVE, NEUTRAL or NEGATIVE."
)

// Origin tells where a classification came from.
type Origin string

const (
	OriginLive     Origin = "live"
	OriginCache    Origin = "cache"
	OriginStale    Origin = "stale"
	OriginFallback Origin = "fallback"
)

type Classification struct {
	Sentiment domain.Sentiment `json:"sentiment"`
	Origin    Origin           `json:"origin"`
}

// Degraded reports whether no classifier answer, fresh or cached, was
// available.
func (c Classification) Degraded() bool {
	return c.Origin == OriginFallback
}

type openAIChatClient interface {
	CreateChatCompletion(ctx context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error)
}

type ClassifierConfig struct {
	APIKey string
	Model  string
	// BaseURL points the client at any OpenAI-compatible endpoint.
	BaseURL string
}

// Classifier labels text through a chat-completion model. It never fails:
// errors fall back to the last cached label, then to NEUTRAL. Concurrent
// requests for the same text share one upstream call.
type Classifier struct {
	client  openAIChatClient
	model   string
	store   *cache.Store[domain.Sentiment]
	limiter *provider.RateLimiter
	tracer  trace.Tracer
	group   singleflight.Group

	warnOnce sync.Once
}

func NewClassifier(cfg ClassifierConfig, store *cache.Store[domain.Sentiment], limiter *provider.RateLimiter, tracer trace.Tracer) *Classifier {
	c := &Classifier{
		model:   strings.TrimSpace(cfg.Model),
		store:   store,
		limiter: limiter,
		tracer:  tracer,
	}
	if c.model == "" {
		c.model = DefaultModel
	}
	if apiKey := strings.TrimSpace(cfg.APIKey); apiKey != "" {
		opts := []option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}
		if base := strings.TrimSpace(cfg.BaseURL); base != "" {
			opts = append(opts, option.WithBaseURL(base))
		}
		client := openai.NewClient(opts...)
		c.client = &openAIClient{client: client}
	}
	return c
}

func (c *Classifier) Classify(ctx context.Context, text string) domain.Sentiment {
	return c.ClassifyDetailed(ctx, text).Sentiment
}

func (c *Classifier) ClassifyDetailed(ctx context.Context, text string) Classification {
	if strings.TrimSpace(text) == "" {
		return Classification{Sentiment: domain.SentimentNeutral, Origin: OriginFallback}
	}
	if s, ok := c.store.GetFresh(text); ok {
		return Classification{Sentiment: s, Origin: OriginCache}
	}

	ch := c.group.DoChan(text, func() (interface{}, error) {
		// the shared call must not die with whichever caller started it
		shared, cancel := context.WithTimeout(context.WithoutCancel(ctx), classifyTimeout)
		defer cancel()
		return c.classify(shared, text), nil
	})
	select {
	case <-ctx.Done():
		return c.fallback(text, ctx.Err())
	case res := <-ch:
		out, _ := res.Val.(Classification)
		return out
	}
}

func (c *Classifier) classify(ctx context.Context, text string) Classification {
	ctx, span := c.tracer.Start(ctx, "sentiment.classify")
	defer span.End()

	cls, err := c.request(ctx, text)
	if err != nil {
		span.SetAttributes(attribute.Bool("fallback", true))
		return c.fallback(text, err)
	}
	if cls.Origin == OriginLive {
		c.store.Put(text, cls.Sentiment)
	}
	return cls
}

var errNoClient = errors.New("classifier api key not configured")

func (c *Classifier) request(ctx context.Context, text string) (Classification, error) {
	if c.client == nil {
		c.warnOnce.Do(func() {
			logger.Warn("sentiment classifier disabled, labels default to NEUTRAL")
		})
		return Classification{}, errNoClient
	}
	if c.limiter != nil {
		if err := c.limiter.Acquire(ctx); err != nil {
			return Classification{}, fmt.Errorf("rate limit wait: %w", err)
		}
	}
	// another caller may have stored a label while this one waited
	if s, ok := c.store.GetFresh(text); ok {
		return Classification{Sentiment: s, Origin: OriginCache}, nil
	}

	completion, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(text),
		},
		MaxTokens:   openai.Int(3),
		Temperature: openai.Float(0),
	})
	if err != nil {
		return Classification{}, err
	}
	if len(completion.Choices) == 0 {
		return Classification{}, fmt.Errorf("empty classifier completion")
	}
	label := domain.ParseSentiment(trimCodeFence(completion.Choices[0].Message.Content))
	return Classification{Sentiment: label, Origin: OriginLive}, nil
}

func (c *Classifier) fallback(text string, err error) Classification {
	if !errors.Is(err, errNoClient) {
		logger.Warn("sentiment classification failed", zap.Error(err), zap.Int("text_len", len(text)))
	}
	if s, ok := c.store.GetStale(text); ok {
		return Classification{Sentiment: s, Origin: OriginStale}
	}
	return Classification{Sentiment: domain.SentimentNeutral, Origin: OriginFallback}
}

func trimCodeFence(v string) string {
	v = strings.TrimSpace(v)
	if strings.HasPrefix(v, "```") {
		v = strings.TrimPrefix(v, "```")
		v = strings.TrimSuffix(strings.TrimSpace(v), "```")
		v = strings.TrimSpace(v)
	}
	return v
}

type openAIClient struct {
	client openai.Client
}

func (c *openAIClient) CreateChatCompletion(ctx context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error) {
	return c.client.Chat.Completions.New(ctx, params)
}
