// Package orchestrator runs the conversational agent loop: present the
// history to the model, execute whatever tools it requests, feed the
// results back, and repeat until the model answers without tool calls.
package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"
	"github.com/sethvargo/go-retry"
	contractx "github.com/tanpawarit/cakeshop-assistant/agent/contract"
)

// Replies used when a turn degrades instead of failing the session.
const (
	overBudgetReply  = "Sorry, that request needed more steps than I can take in one go. Could you split it into smaller pieces? I promise it'll be a piece of cake."
	turnFailureReply = "Sorry, something went wrong on my end while handling that. Please try again in a moment - I'll rise to the occasion."
)

// Config bounds the loop and the model-call retry policy.
type Config struct {
	MaxTurns      int           `envconfig:"MAX_TURNS" split_words:"true" default:"8"`
	ModelAttempts int           `envconfig:"MODEL_ATTEMPTS" split_words:"true" default:"3"`
	RetryBase     time.Duration `envconfig:"RETRY_BASE" split_words:"true" default:"500ms"`
}

// Orchestrator drives one conversation turn at a time over a shared
// message history.
type Orchestrator struct {
	model        model.ToolCallingChatModel
	tools        contractx.ToolGateway
	systemPrompt string

	maxTurns      int
	modelAttempts int
	retryBase     time.Duration
}

func New(
	chatModel model.ToolCallingChatModel,
	infos []*schema.ToolInfo,
	tools contractx.ToolGateway,
	systemPrompt string,
	cfg Config,
) (*Orchestrator, error) {
	if chatModel == nil {
		return nil, errors.New("chat model is required")
	}
	if tools == nil {
		return nil, errors.New("tool gateway is required")
	}
	if strings.TrimSpace(systemPrompt) == "" {
		return nil, errors.New("system prompt is required")
	}

	boundModel, err := chatModel.WithTools(infos)
	if err != nil {
		return nil, fmt.Errorf("%w: bind tools: %v", contractx.ErrModelInvoke, err)
	}

	maxTurns := cfg.MaxTurns
	if maxTurns <= 0 {
		maxTurns = 8
	}
	modelAttempts := cfg.ModelAttempts
	if modelAttempts <= 0 {
		modelAttempts = 3
	}
	retryBase := cfg.RetryBase
	if retryBase <= 0 {
		retryBase = 500 * time.Millisecond
	}

	return &Orchestrator{
		model:         boundModel,
		tools:         tools,
		systemPrompt:  systemPrompt,
		maxTurns:      maxTurns,
		modelAttempts: modelAttempts,
		retryBase:     retryBase,
	}, nil
}

// HandleMessage appends the user utterance to the history and runs the
// loop until the model produces an answer with no tool calls, or the turn
// budget runs out. The updated history is returned; a model or storage
// fault degrades to an informative assistant turn rather than ending the
// session.
func (o *Orchestrator) HandleMessage(ctx context.Context, history []*schema.Message, text string) ([]*schema.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: user message is empty", contractx.ErrValidation)
	}

	msgs := o.seed(history, text)

	for turn := 0; turn < o.maxTurns; turn++ {
		resp, err := o.generate(ctx, msgs)
		if err != nil {
			log.Error().Err(err).Int("turn", turn).Msg("model invocation failed")
			return append(msgs, schema.AssistantMessage(turnFailureReply, nil)), nil
		}

		msgs = append(msgs, resp)
		if len(resp.ToolCalls) == 0 {
			return msgs, nil
		}

		results, err := o.tools.Execute(ctx, toRequests(resp.ToolCalls))
		msgs = appendToolResults(msgs, resp.ToolCalls, results)
		if err != nil {
			log.Error().Err(err).Int("turn", turn).Msg("tool execution failed")
			return append(msgs, schema.AssistantMessage(turnFailureReply, nil)), nil
		}
	}

	log.Warn().Int("max_turns", o.maxTurns).Msg("turn budget exhausted")
	return append(msgs, schema.AssistantMessage(overBudgetReply, nil)), nil
}

// seed ensures the history starts with the system directive and ends
// with the newest user utterance.
func (o *Orchestrator) seed(history []*schema.Message, text string) []*schema.Message {
	msgs := make([]*schema.Message, 0, len(history)+2)
	if len(history) == 0 || history[0].Role != schema.System {
		msgs = append(msgs, schema.SystemMessage(o.systemPrompt))
	}
	msgs = append(msgs, history...)
	return append(msgs, schema.UserMessage(text))
}

func (o *Orchestrator) generate(ctx context.Context, msgs []*schema.Message) (*schema.Message, error) {
	var resp *schema.Message

	backoff := retry.WithMaxRetries(uint64(o.modelAttempts-1), retry.NewExponential(o.retryBase))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		m, err := o.model.Generate(ctx, msgs)
		if err != nil {
			return retry.RetryableError(err)
		}
		resp = m
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", contractx.ErrModelInvoke, err)
	}
	if resp == nil {
		return nil, fmt.Errorf("%w: model returned no message", contractx.ErrSchemaViolation)
	}
	return resp, nil
}

func toRequests(calls []schema.ToolCall) []contractx.ToolRequest {
	reqs := make([]contractx.ToolRequest, 0, len(calls))
	for _, call := range calls {
		args := map[string]any{}
		if raw := strings.TrimSpace(call.Function.Arguments); raw != "" {
			if err := json.Unmarshal([]byte(raw), &args); err != nil {
				// Leave args empty; the tool reports the missing fields.
				log.Warn().Str("tool", call.Function.Name).Err(err).Msg("malformed tool arguments")
			}
		}
		reqs = append(reqs, contractx.ToolRequest{
			Tool:   call.Function.Name,
			CallID: call.ID,
			Args:   args,
		})
	}
	return reqs
}

// appendToolResults adds one tool message per requested call, tagged with
// the call id it answers. Calls without a computed result (a fault ended
// the batch early) are answered with a generic failure note so the model
// never sees a dangling call.
func appendToolResults(msgs []*schema.Message, calls []schema.ToolCall, results []contractx.ToolResult) []*schema.Message {
	byCallID := make(map[string]contractx.ToolResult, len(results))
	for _, r := range results {
		byCallID[r.CallID] = r
	}

	for _, call := range calls {
		result, ok := byCallID[call.ID]
		if !ok {
			msgs = append(msgs, schema.ToolMessage("tool did not run: an earlier tool in this turn failed", call.ID))
			continue
		}
		msgs = append(msgs, schema.ToolMessage(renderResult(result), call.ID))
	}
	return msgs
}

func renderResult(result contractx.ToolResult) string {
	if result.Error != "" {
		return result.Error
	}
	raw, err := json.Marshal(result.Result)
	if err != nil {
		return fmt.Sprintf("%v", result.Result)
	}
	return string(raw)
}
