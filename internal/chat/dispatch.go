package chat

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/zadachnik/mathbot/internal/corpus"
	"github.com/zadachnik/mathbot/internal/model"
	"github.com/zadachnik/mathbot/internal/transcript"
)

// dispatch resolves one tool invocation. Calls in a batch run in the order
// received; a failure here never aborts sibling calls. Every path returns a
// result and leaves the transcript stabilized (no unresolved placeholder).
func (p *Pipeline) dispatch(ctx context.Context, call model.ToolCall) model.ToolResult {
	p.logger.Info("tool call", "tool", call.Name)

	switch call.Name {
	case model.ToolGenerateIllustration:
		return p.dispatchIllustration(ctx, call)
	case model.ToolShowProblem, model.ToolShowSolution:
		return p.dispatchShowTask(ctx, call)
	default:
		p.logger.Warn("unknown tool requested", "tool", call.Name)
		return toolResult(call, map[string]any{"ok": false, "error": "unknown tool"})
	}
}

// dispatchIllustration appends a placeholder, runs the generator, and
// resolves the placeholder either into an image-only message or a fixed
// failure notice. Neither outcome is retried.
func (p *Pipeline) dispatchIllustration(ctx context.Context, call model.ToolCall) model.ToolResult {
	desc, _ := call.Args["description"].(string)

	placeholder := p.log.Append(transcript.Message{
		Sender:      transcript.SenderBot,
		Text:        fmt.Sprintf(msgDrawing, desc),
		ImagePrompt: desc,
	})

	url, err := p.illustrator.GenerateIllustration(ctx, desc)
	if err != nil || url == "" {
		if err != nil {
			p.logger.Error("illustration generation failed", "error", err)
		}
		p.log.Patch(placeholder.ID, func(m *transcript.Message) { m.Text = msgIllustrationFailed })
		return toolResult(call, map[string]any{"ok": false})
	}

	p.log.Patch(placeholder.ID, func(m *transcript.Message) {
		m.Text = ""
		m.ImageURL = url
	})
	return toolResult(call, map[string]any{"ok": true})
}

// dispatchShowTask resolves show_problem/show_solution against the corpus.
// A miss is a normal outcome: a fixed clarification message, not an error.
func (p *Pipeline) dispatchShowTask(ctx context.Context, call model.ToolCall) model.ToolResult {
	task, found := p.resolveTask(ctx, call)
	if !found {
		p.log.Append(transcript.Message{
			Sender: transcript.SenderBot,
			Text:   p.notFoundMessage(call),
		})
		return toolResult(call, map[string]any{"found": false})
	}

	text := task.Problem
	title := fmt.Sprintf(msgProblemTitle, task.Number)
	if call.Name == model.ToolShowSolution {
		text = task.Solution
		title = fmt.Sprintf(msgSolutionTitle, task.Number)
	}

	// Stored texts may themselves embed picture directives; extract before
	// display and open the panel when one is present.
	cleaned, imageURL := p.extractor.Extract("**" + title + "**\n\n" + text)
	if imageURL != "" {
		p.log.ShowImage(imageURL)
	}
	p.log.Append(transcript.Message{Sender: transcript.SenderBot, Text: cleaned})

	return toolResult(call, map[string]any{
		"found":  true,
		"taskId": task.ID,
		"number": task.Number,
		"text":   text,
	})
}

// resolveTask applies the addressing scheme in force to the call arguments.
func (p *Pipeline) resolveTask(ctx context.Context, call model.ToolCall) (corpus.Task, bool) {
	if p.corpus.Scheme() == corpus.SchemeFlat {
		return p.corpus.LookupSection(argString(call.Args, "section"), argNumber(call.Args, "number"))
	}

	idOrNumber := argString(call.Args, "taskId")

	// Prefer the pinned chapter: when a chapter is focused the model
	// usually references tasks without restating book and chapter.
	p.mu.Lock()
	pinned := p.pinned
	p.mu.Unlock()
	if pinned != nil {
		if task, ok := corpus.FindTask(pinned.Tasks, idOrNumber); ok {
			return task, true
		}
	}

	bookTitle := argString(call.Args, "bookTitle")
	chapterTitle := argString(call.Args, "chapterTitle")
	if bookTitle == "" || chapterTitle == "" {
		return corpus.Task{}, false
	}
	tasks, err := p.corpus.Chapter(ctx, bookTitle, chapterTitle)
	if err != nil {
		if !errors.Is(err, corpus.ErrChapterUnavailable) {
			p.logger.Error("chapter lookup failed", "error", err)
		}
		return corpus.Task{}, false
	}
	return corpus.FindTask(tasks, idOrNumber)
}

// notFoundMessage phrases a miss for the addressing scheme in force.
func (p *Pipeline) notFoundMessage(call model.ToolCall) string {
	if p.corpus.Scheme() == corpus.SchemeFlat {
		return fmt.Sprintf(msgTaskNotFoundSection,
			argNumber(call.Args, "number"), argString(call.Args, "section"))
	}
	return fmt.Sprintf(msgTaskNotFoundChapter, argString(call.Args, "taskId"))
}

// toolResult pairs a call with its machine-readable resolution.
func toolResult(call model.ToolCall, response map[string]any) model.ToolResult {
	return model.ToolResult{ID: call.ID, Name: call.Name, Response: response}
}

func argString(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return strings.TrimSpace(s)
}

// argNumber renders a numeric argument as a lookup string. JSON numbers
// arrive as float64; the model occasionally sends them as strings.
func argNumber(args map[string]any, key string) string {
	switch v := args[key].(type) {
	case float64:
		return strconv.Itoa(int(v))
	case string:
		return strings.TrimSpace(v)
	default:
		return ""
	}
}
