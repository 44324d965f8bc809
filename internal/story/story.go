// Package story drafts the narration script for a reel.
package story

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/blacktop/reelpost/internal/llm"
	"github.com/blacktop/reelpost/internal/logutil"
	"github.com/blacktop/reelpost/internal/quotes"
	openai "github.com/sashabaranov/go-openai"
)

// DefaultModel drafts scripts when none is configured.
const DefaultModel = openai.GPT4oMini

// Script is a hook, three short narration lines and a call to action.
type Script struct {
	Hook         string   `json:"hook" jsonschema_description:"Opening line that stops the scroll, max 12 words"`
	Narration    []string `json:"narration" jsonschema:"minItems=3,maxItems=3" jsonschema_description:"Exactly three short narration sentences"`
	CallToAction string   `json:"callToAction" jsonschema_description:"Closing motivating call to action"`
}

// Lines returns the script in speaking order.
func (s Script) Lines() []string {
	lines := make([]string, 0, len(s.Narration)+2)
	lines = append(lines, s.Hook)
	lines = append(lines, s.Narration...)
	return append(lines, s.CallToAction)
}

// Full joins every line into the text handed to speech synthesis.
func (s Script) Full() string {
	return strings.Join(s.Lines(), " ")
}

func (s Script) validate() error {
	if strings.TrimSpace(s.Hook) == "" {
		return errors.New("missing hook")
	}
	if len(s.Narration) == 0 {
		return errors.New("missing narration")
	}
	if strings.TrimSpace(s.CallToAction) == "" {
		return errors.New("missing call to action")
	}
	return nil
}

// Request describes what the script should be about.
type Request struct {
	Quote    quotes.Quote
	Tone     string
	Emphasis string
}

type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Writer drafts scripts with a chat model and falls back to static templates
// when no client is configured or the model does not return a usable script.
type Writer struct {
	client chatCompleter
	model  string
	rng    *rand.Rand
}

// NewWriter returns a Writer. A nil client always uses the fallback.
func NewWriter(client *openai.Client, model string) *Writer {
	w := &Writer{model: model}
	if client != nil {
		w.client = client
	}
	if strings.TrimSpace(w.model) == "" {
		w.model = DefaultModel
	}
	return w
}

// WithRand makes fallback template selection deterministic.
func (w *Writer) WithRand(rng *rand.Rand) *Writer {
	w.rng = rng
	return w
}

var scriptSchema = llm.Schema[Script]()

const systemPrompt = "You are a viral short-form script writer. Craft rhythmic, inspiring narration for 10-15s reels. " +
	"Keep lines short (max 12 words) and deeply rooted in Lord Krishna's teachings. " +
	"Maintain devotional warmth, modern clarity, and end with a motivating call-to-action."

// Write returns the drafted script and whether it came from the model.
func (w *Writer) Write(ctx context.Context, req Request) (Script, bool) {
	if w.client != nil {
		script, err := w.draft(ctx, req)
		if err == nil {
			return script, true
		}
		logutil.Warnf("draft script with %s, using fallback template: %v", w.model, err)
	}
	return Fallback(req.Quote, w.rng), false
}

func (w *Writer) draft(ctx context.Context, req Request) (Script, error) {
	resp, err := w.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: w.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt(req)},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:        "reel_script",
				Description: "Narration script for a short devotional reel",
				Schema:      scriptSchema,
				Strict:      true,
			},
		},
	})
	if err != nil {
		return Script{}, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Script{}, errors.New("no choices returned")
	}

	raw := strings.TrimSpace(resp.Choices[0].Message.Content)
	logutil.Debugf("script response: finish_reason=%s content=%s", resp.Choices[0].FinishReason, raw)
	if raw == "" {
		return Script{}, fmt.Errorf("empty response (finish reason %s)", resp.Choices[0].FinishReason)
	}

	var script Script
	if err := json.Unmarshal([]byte(raw), &script); err != nil {
		return Script{}, fmt.Errorf("parse script: %w", err)
	}
	if err := script.validate(); err != nil {
		return Script{}, err
	}
	return script, nil
}

func userPrompt(req Request) string {
	lines := []string{
		fmt.Sprintf("Base quote: %q", req.Quote.Text),
		"Source: " + req.Quote.Source,
		"Context: " + req.Quote.Context,
		"Desired tone: " + req.Tone,
	}
	if e := strings.TrimSpace(req.Emphasis); e != "" {
		lines = append(lines, "Additional focus: "+e)
	}
	lines = append(lines, "Deliver JSON with hook, narration (array of 3 short sentences) and callToAction.")
	return strings.Join(lines, "\n")
}

type template struct {
	hook, callToAction string
}

var fallbackTemplates = []template{
	{
		hook:         "Pause and breathe in the wisdom of Krishna for a moment.",
		callToAction: "Save this message and share Krishna's words with someone who needs courage today.",
	},
	{
		hook:         "Here's a 15-second reminder from the Bhagavad Gita.",
		callToAction: "Follow for more divine motivation woven from Krishna's eternal teachings.",
	},
	{
		hook:         "When doubt clouds your path, remember this from Lord Krishna.",
		callToAction: "Let these words guide your next step. Drop a 🙏 if you feel it.",
	},
}

// Fallback builds a script from a random template around the quote itself.
func Fallback(q quotes.Quote, rng *rand.Rand) Script {
	var i int
	if rng != nil {
		i = rng.IntN(len(fallbackTemplates))
	} else {
		i = rand.IntN(len(fallbackTemplates))
	}
	tpl := fallbackTemplates[i]
	return Script{
		Hook: tpl.hook,
		Narration: []string{
			q.Text,
			"Let this be your reminder to act with courage today.",
			"Keep faith steady; Krishna walks beside the fearless.",
		},
		CallToAction: tpl.callToAction,
	}
}
