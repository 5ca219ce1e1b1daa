package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/lueurxax/telegram-repost-bot/internal/platform/config"
	"github.com/lueurxax/telegram-repost-bot/internal/platform/observability"
)

const (
	circuitBreakerThreshold = 5
	circuitBreakerTimeout   = 1 * time.Minute

	taskRephrase   = "rephrase"
	taskClassifyAd = "classify_ad"

	rephrasePrompt = "Перепиши новостной текст своими словами, полностью сохранив смысл, " +
		"факты, числа и имена. Не добавляй ничего от себя, не используй форматирование. " +
		"Верни только переписанный текст.\n\nТекст:\n"

	classifyAdPrompt = "Определи, является ли этот текст рекламой или промо-публикацией " +
		"(призыв подписаться, купить, перейти по ссылке, розыгрыш и т.п.). " +
		"Ответь одним словом: Да или Нет.\n\nТекст:\n"
)

type openaiClient struct {
	cfg         *config.Config
	client      *openai.Client
	logger      *zerolog.Logger
	rateLimiter *rate.Limiter

	// Circuit breaker state
	consecutiveFailures int
	circuitOpenUntil    time.Time
	mu                  sync.Mutex
}

func NewOpenAI(cfg *config.Config, logger *zerolog.Logger) Client {
	return &openaiClient{
		cfg:         cfg,
		client:      openai.NewClient(cfg.LLMAPIKey),
		logger:      logger,
		rateLimiter: rate.NewLimiter(rate.Limit(float64(cfg.RateLimitRPS)), 5), // User-defined RPS, burst 5
	}
}

func (c *openaiClient) checkCircuit() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if time.Now().Before(c.circuitOpenUntil) {
		return fmt.Errorf("circuit breaker is open until %v", c.circuitOpenUntil)
	}

	return nil
}

func (c *openaiClient) recordSuccess() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.consecutiveFailures = 0
}

func (c *openaiClient) recordFailure() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.consecutiveFailures++

	if c.consecutiveFailures >= circuitBreakerThreshold {
		c.circuitOpenUntil = time.Now().Add(circuitBreakerTimeout)
		observability.LLMCircuitBreakerOpens.Inc()
		c.logger.Warn().
			Int("consecutive_failures", c.consecutiveFailures).
			Time("open_until", c.circuitOpenUntil).
			Msg("Circuit breaker opened")
	}
}

func (c *openaiClient) Rephrase(ctx context.Context, text string) (string, error) {
	content, err := c.complete(ctx, taskRephrase, rephrasePrompt+text)
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(content), nil
}

func (c *openaiClient) IsAdvertisement(ctx context.Context, text string) (bool, error) {
	content, err := c.complete(ctx, taskClassifyAd, classifyAdPrompt+text)
	if err != nil {
		return false, err
	}

	answer := strings.ToLower(strings.TrimSpace(content))

	return strings.HasPrefix(answer, "да") || strings.HasPrefix(answer, "yes"), nil
}

func (c *openaiClient) complete(ctx context.Context, task, prompt string) (string, error) {
	if err := c.checkCircuit(); err != nil {
		observability.LLMRequests.WithLabelValues(task, "circuit_open").Inc()

		return "", err
	}

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter error: %w", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, c.cfg.LLMTimeout)
	defer cancel()

	start := time.Now()

	resp, err := c.client.CreateChatCompletion(callCtx, openai.ChatCompletionRequest{
		Model: c.cfg.LLMModel,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
	})

	observability.LLMRequestDuration.WithLabelValues(c.cfg.LLMModel, task).Observe(time.Since(start).Seconds())

	if err != nil {
		c.recordFailure()
		observability.LLMRequests.WithLabelValues(task, "error").Inc()

		return "", fmt.Errorf("openai chat completion error: %w", err)
	}

	c.recordSuccess()
	observability.LLMRequests.WithLabelValues(task, "ok").Inc()

	if len(resp.Choices) == 0 {
		return "", errors.New("openai returned no choices")
	}

	return resp.Choices[0].Message.Content, nil
}
