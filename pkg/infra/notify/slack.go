package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/m-mizutani/drover/pkg/domain/interfaces"
	"github.com/m-mizutani/drover/pkg/domain/model"
	"github.com/m-mizutani/drover/pkg/domain/types"
	"github.com/m-mizutani/goerr/v2"
	"github.com/slack-go/slack"
)

type slackNotifier struct {
	client  *slack.Client
	channel string
}

// NewSlack creates a Notifier that posts run results to a Slack channel
func NewSlack(token types.SlackToken, channel string) interfaces.Notifier {
	return &slackNotifier{
		client:  slack.New(string(token)),
		channel: channel,
	}
}

// NotifyRunFinished posts a summary of the finished run
func (n *slackNotifier) NotifyRunFinished(ctx context.Context, run *model.PipelineRun) error {
	color := "good"
	title := fmt.Sprintf(":white_check_mark: Pipeline %s succeeded", run.Pipeline)
	if run.Status == types.RunStatusFailure {
		color = "danger"
		title = fmt.Sprintf(":x: Pipeline %s failed", run.Pipeline)
	}

	fields := []slack.AttachmentField{
		{Title: "Repository", Value: string(run.Repository), Short: true},
		{Title: "Branch", Value: string(run.Branch), Short: true},
		{Title: "Commit", Value: shortSHA(run.CommitSHA), Short: true},
		{Title: "Duration", Value: run.Duration().Truncate(time.Second).String(), Short: true},
	}

	if failed := run.FailedStep(); failed != nil {
		fields = append(fields, slack.AttachmentField{
			Title: "Failed step",
			Value: fmt.Sprintf("%s (exit %d)", failed.Name, failed.ExitCode),
		})
	}
	if run.Diagnosis != nil {
		fields = append(fields, slack.AttachmentField{
			Title: "Diagnosis",
			Value: fmt.Sprintf("[%s] %s", run.Diagnosis.Category, run.Diagnosis.Summary),
		})
	}

	attachment := slack.Attachment{
		Color:  color,
		Title:  title,
		Fields: fields,
		Footer: fmt.Sprintf("run %s", run.ID),
	}

	_, _, err := n.client.PostMessageContext(ctx, n.channel,
		slack.MsgOptionAttachments(attachment),
	)
	if err != nil {
		return goerr.Wrap(err, "failed to post Slack message",
			goerr.V("channel", n.channel),
			goerr.V("runID", run.ID),
		)
	}

	return nil
}

func shortSHA(sha types.CommitSHA) string {
	if len(sha) > 7 {
		return string(sha[:7])
	}
	return string(sha)
}
