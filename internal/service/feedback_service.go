package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
)

// FallbackFeedback is sent when the analysis call fails or times out. The
// submission is still recorded by the caller.
const FallbackFeedback = "⚠️ Не удалось проанализировать текст. Попробуйте позже."

const feedbackPromptTemplate = `Ты — строгий, но доброжелательный преподаватель китайского языка, эксперт по экзамену HSK.
Пользователь выполнил задание по письму для уровня %s.
Задание было таким:
«%s»

Его ответ:
«%s»

Проанализируй ответ по критериям HSK:
1. Грамматика (порядок слов, частицы, времена)
2. Лексика (подходящие слова, разнообразие)
3. Соответствие заданию (тема, объём, стиль)
4. Орфография (иероглифы, знаки препинания)

Дай фидбек на РУССКОМ языке в формате:
Сильные стороны: ...
Ошибки (макс. 3): ...
Улучшенный вариант (на китайском + перевод на русский): ...
Совет для подготовки: ...

Если текст слишком короткий или не по теме — скажи об этом вежливо.`

// FeedbackService analyzes free-text writing answers through an
// OpenAI-compatible chat completion API (GigaChat in production).
type FeedbackService struct {
	api     *openai.Client
	model   string
	timeout time.Duration
	log     zerolog.Logger
}

// NewFeedbackService creates a feedback client. baseURL overrides the API
// endpoint for OpenAI-compatible providers; empty keeps the default.
func NewFeedbackService(baseURL, apiKey, model string, timeout time.Duration, log zerolog.Logger) *FeedbackService {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &FeedbackService{
		api:     openai.NewClientWithConfig(cfg),
		model:   model,
		timeout: timeout,
		log:     log.With().Str("component", "feedback_service").Logger(),
	}
}

// Analyze returns prose feedback for a writing answer. It never fails: on
// any API error or timeout it logs a warning and returns the fixed fallback
// message so the learner always gets a reply.
func (s *FeedbackService) Analyze(ctx context.Context, levelName, prompt, answerText string) string {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resp, err := s.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: fmt.Sprintf(feedbackPromptTemplate, levelName, prompt, answerText),
			},
		},
	})
	if err != nil {
		s.log.Warn().Err(err).Str("level", levelName).Msg("Writing analysis failed")
		return FallbackFeedback
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		s.log.Warn().Str("level", levelName).Msg("Writing analysis returned no content")
		return FallbackFeedback
	}
	return resp.Choices[0].Message.Content
}
