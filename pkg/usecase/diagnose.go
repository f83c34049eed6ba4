package usecase

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"text/template"

	"github.com/m-mizutani/drover/pkg/domain/interfaces"
	"github.com/m-mizutani/drover/pkg/domain/model"
	"github.com/m-mizutani/drover/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
)

//go:embed prompts/diagnose_system.md
var diagnoseSystemPrompt string

//go:embed prompts/diagnose_user.md
var diagnoseUserTemplate string

// maxOutputChars limits how much step output is sent to the LLM
const maxOutputChars = 8000

type diagnoseUseCase struct {
	llmClient    gollem.LLMClient
	userTemplate *template.Template
}

// NewDiagnose creates a new DiagnoseUseCase instance
func NewDiagnose(llmClient gollem.LLMClient) (interfaces.DiagnoseUseCase, error) {
	tmpl, err := template.New("user").Parse(diagnoseUserTemplate)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to parse diagnose prompt template")
	}

	return &diagnoseUseCase{
		llmClient:    llmClient,
		userTemplate: tmpl,
	}, nil
}

// DiagnoseRun analyzes the failed step of a run via the LLM and returns a
// structured diagnosis
func (uc *diagnoseUseCase) DiagnoseRun(ctx context.Context, run *model.PipelineRun) (*model.FailureDiagnosis, error) {
	logger := logging.From(ctx)

	failed := run.FailedStep()
	if failed == nil {
		return nil, goerr.New("run has no failed step", goerr.V("runID", run.ID))
	}

	var buf bytes.Buffer
	if err := uc.userTemplate.Execute(&buf, map[string]any{
		"Pipeline": run.Pipeline,
		"Step":     failed.Name,
		"Command":  failed.Command,
		"ExitCode": failed.ExitCode,
		"Output":   tailOf(failed.Output, maxOutputChars),
	}); err != nil {
		return nil, goerr.Wrap(err, "failed to execute diagnose prompt template")
	}

	logger.Debug("Calling LLM for failure diagnosis",
		"run_id", run.ID,
		"step", failed.Name,
		"prompt_length", buf.Len(),
	)

	session, err := uc.llmClient.NewSession(ctx,
		gollem.WithSessionContentType(gollem.ContentTypeJSON),
		gollem.WithSessionSystemPrompt(diagnoseSystemPrompt),
	)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create LLM session")
	}

	resp, err := session.GenerateContent(ctx, gollem.Text(buf.String()))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to generate LLM content")
	}

	if len(resp.Texts) == 0 {
		return nil, goerr.New("no response from LLM")
	}

	var diagnosis model.FailureDiagnosis
	if err := json.Unmarshal([]byte(resp.Texts[0]), &diagnosis); err != nil {
		return nil, goerr.Wrap(err, "failed to parse LLM response", goerr.V("response", resp.Texts[0]))
	}

	return &diagnosis, nil
}

// tailOf returns the last n characters of s, cut at a line boundary where
// possible
func tailOf(s string, n int) string {
	if len(s) <= n {
		return s
	}

	tail := s[len(s)-n:]
	if idx := bytes.IndexByte([]byte(tail), '\n'); idx >= 0 && idx < len(tail)-1 {
		tail = tail[idx+1:]
	}
	return tail
}
