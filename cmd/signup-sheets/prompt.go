package main

import (
	"context"
	"errors"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
)

// errAborted is returned when the operator interrupts a prompt.
var errAborted = errors.New("prompt aborted")

// question describes one interactive value.
type question struct {
	Message  string
	Help     string
	Default  string
	Required bool
}

// prompter asks the operator for values the flags left out.
type prompter interface {
	Input(ctx context.Context, q question) (string, error)
	Password(ctx context.Context, q question) (string, error)
}

type surveyPrompter struct{}

func (surveyPrompter) Input(ctx context.Context, q question) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var out string
	prompt := &survey.Input{Message: q.Message, Help: q.Help, Default: q.Default}
	if err := survey.AskOne(prompt, &out, askOpts(q)...); err != nil {
		return "", translateSurveyErr(err)
	}
	return strings.TrimSpace(out), nil
}

func (surveyPrompter) Password(ctx context.Context, q question) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var out string
	prompt := &survey.Password{Message: q.Message, Help: q.Help}
	if err := survey.AskOne(prompt, &out, askOpts(q)...); err != nil {
		return "", translateSurveyErr(err)
	}
	return out, nil
}

func askOpts(q question) []survey.AskOpt {
	if !q.Required {
		return nil
	}
	return []survey.AskOpt{survey.WithValidator(survey.Required)}
}

func translateSurveyErr(err error) error {
	if errors.Is(err, terminal.InterruptErr) {
		return errAborted
	}
	return err
}

// noPrompter fails every question; used with --no-input.
type noPrompter struct{}

func (noPrompter) Input(_ context.Context, q question) (string, error) {
	return missing(q)
}

func (noPrompter) Password(_ context.Context, q question) (string, error) {
	return missing(q)
}

func missing(q question) (string, error) {
	if q.Required {
		return "", errors.New(strings.TrimSuffix(q.Message, ":") + " is required")
	}
	return q.Default, nil
}

// ask returns value when set and prompts otherwise.
func ask(ctx context.Context, p prompter, value string, q question) (string, error) {
	if strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value), nil
	}
	return p.Input(ctx, q)
}
