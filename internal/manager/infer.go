package manager

import (
	"context"
	"io"
	"strings"

	"github.com/google/uuid"

	"streamd/internal/controller"
	"streamd/internal/prompt"
	"streamd/internal/sampling"
	"streamd/internal/stopcond"
	"streamd/pkg/types"
)

// Infer ensures the model instance, runs one generation on its session and
// streams NDJSON token lines to w, ending with a done line.
//
// Errors before the first line is written are returned so the caller can
// answer with a status code. Once streaming has begun, a failure is reported
// on the done line and Infer returns nil.
func (m *Manager) Infer(ctx context.Context, req types.InferRequest, w io.Writer, flusher func()) error {
	modelID, err := m.resolveModelID(req.Model)
	if err != nil {
		return err
	}
	creq, err := buildRequest(req)
	if err != nil {
		return err
	}
	inst, err := m.ensure(ctx, modelID)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	sink := newNDJSONSink(w, flusher, cancel)
	sink.id = uuid.NewString()
	sink.model = modelID

	res, err := inst.Session.Generate(ctx, creq, sink)
	if err != nil && controller.IsSessionBusy(err) {
		return admissionError(modelID, err)
	}
	observeResult(modelID, res, err)
	if sink.err != nil {
		return sink.err
	}
	if err != nil && !sink.started {
		return err
	}
	return nil
}

// buildRequest maps the wire request onto a controller request. A request
// with messages is rendered through the chat template and always starts a
// fresh conversation.
func buildRequest(req types.InferRequest) (controller.Request, error) {
	out := controller.Request{
		Prompt: req.Prompt,
		Params: sampling.Params{
			MaxTokens:     req.MaxTokens,
			Temperature:   float32(req.Temperature),
			TopK:          req.TopK,
			TopP:          float32(req.TopP),
			MinP:          float32(req.MinP),
			RepeatPenalty: float32(req.RepeatPenalty),
			RepeatLastN:   req.RepeatLastN,
			Seed:          req.Seed,
		},
		Stop: nonEmpty(req.Stop),
		StopPolicy: stopcond.Config{
			MinTokens:      req.MinTokens,
			MaxExtraTokens: req.MaxExtraTokens,
			MaxSentences:   req.MaxSentences,
		},
		Reset: req.Reset,
	}
	if strings.TrimSpace(req.Prompt) != "" {
		return out, nil
	}
	if len(req.Messages) == 0 {
		return out, invalidRequestError{msg: "prompt or messages is required"}
	}
	system := req.System
	if system == "" {
		system = prompt.DefaultSystem
	}
	msgs := make([]prompt.Message, 0, len(req.Messages))
	for _, msg := range req.Messages {
		msgs = append(msgs, prompt.Message{Role: msg.Role, Content: msg.Content})
	}
	out.Prompt = prompt.Format(system, msgs)
	out.Reset = true
	return out, nil
}

func nonEmpty(in []string) []string {
	var out []string
	for _, s := range in {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
