package editor

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/notifier-app/notifier/notifier"
)

var tracer = otel.Tracer("notifier/editor")

type SubmissionStatus int

const (
	SubmissionIdle SubmissionStatus = iota
	SubmissionPending
	SubmissionSucceeded
	SubmissionFailed
)

func (s SubmissionStatus) String() string {
	switch s {
	case SubmissionIdle:
		return "idle"
	case SubmissionPending:
		return "pending"
	case SubmissionSucceeded:
		return "succeeded"
	case SubmissionFailed:
		return "failed"
	}
	return "unknown"
}

type Submission struct {
	Status SubmissionStatus
	// Reason is the message of the last failed submission.
	Reason string
	Err    error
}

type submittedMsg struct {
	template *notifier.Template
	err      error
}

// Submit validates the draft and returns the command that creates or updates the template.
func (e *Editor) Submit() (tea.Cmd, error) {
	if !e.ready {
		return nil, ErrNotReady
	}
	if e.submission.Status == SubmissionPending {
		return nil, ErrSubmissionPending
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}

	rq := e.Draft()
	e.submission = Submission{Status: SubmissionPending}

	ctx := e.ctx
	api := e.api
	templateID := e.templateID
	return func() tea.Msg {
		ctx, span := tracer.Start(ctx, "submit template", trace.WithAttributes(
			attribute.String("template_id", templateID),
			attribute.Int("conditions", len(rq.Conditions)),
		))
		defer span.End()

		var (
			template *notifier.Template
			err      error
		)
		if templateID == "" {
			template, err = api.CreateTemplate(ctx, rq)
		} else {
			template, err = api.UpdateTemplate(ctx, templateID, rq)
		}
		if err != nil {
			span.SetStatus(codes.Error, "failed to submit template")
			span.RecordError(err)
		}
		return submittedMsg{
			template: template,
			err:      err,
		}
	}, nil
}

func (e *Editor) finish(msg submittedMsg) {
	if e.submission.Status != SubmissionPending {
		return
	}
	if msg.err != nil {
		e.submission = Submission{
			Status: SubmissionFailed,
			Reason: msg.err.Error(),
			Err:    msg.err,
		}
		return
	}

	e.queries.Invalidate(TemplatesKey())
	if e.templateID != "" {
		e.queries.Invalidate(TemplateKey(e.templateID))
	}
	e.result = msg.template
	e.submission = Submission{Status: SubmissionSucceeded}
}

func (e *Editor) Submission() Submission {
	return e.submission
}

// Done reports whether the template was saved and the editor can be left.
func (e *Editor) Done() bool {
	return e.submission.Status == SubmissionSucceeded
}

// Result returns the saved template once Done.
func (e *Editor) Result() *notifier.Template {
	return e.result
}

// Settle runs cmd outside a bubbletea program. Batched commands run concurrently,
// their messages are applied in order and follow-up commands run until none are left.
func (e *Editor) Settle(ctx context.Context, cmd tea.Cmd) error {
	pending := []tea.Cmd{cmd}
	for len(pending) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		var next []tea.Cmd
		for _, msg := range run(tea.Batch(pending...)) {
			if c := e.Update(msg); c != nil {
				next = append(next, c)
			}
		}
		pending = next
	}
	return nil
}

func run(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	batch, ok := msg.(tea.BatchMsg)
	if !ok {
		if msg == nil {
			return nil
		}
		return []tea.Msg{msg}
	}

	results := make([][]tea.Msg, len(batch))
	var eg errgroup.Group
	for i, c := range batch {
		i, c := i, c
		eg.Go(func() error {
			results[i] = run(c)
			return nil
		})
	}
	_ = eg.Wait()

	var msgs []tea.Msg
	for _, r := range results {
		msgs = append(msgs, r...)
	}
	return msgs
}
