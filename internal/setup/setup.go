// Package setup collects the initial configuration on first run.
// Interactive terminals get a form; everything else takes defaults or
// a plain line prompter.
package setup

import (
	"os"

	"github.com/cockroachdb/errors"

	"github.com/openuo/uolaunch/internal/prompt"
	"github.com/openuo/uolaunch/pkg/config"
)

// Result carries the values collected from the user.
type Result struct {
	// InstallPath is the install root.
	InstallPath string

	// Launch controls starting the client after each run.
	Launch bool

	// RazorEnabled controls managing the Razor plugin.
	RazorEnabled bool

	// RazorChannel is the plugin release channel.
	RazorChannel config.Channel
}

// UI collects a Result from the user.
type UI interface {
	// RunSetupForm collects the first-run configuration, starting from
	// the given defaults.
	RunSetupForm(defaults Result) (Result, error)

	// IsInteractive reports whether the UI can run in this terminal.
	IsInteractive() bool
}

// DefaultsFrom builds the form defaults from a config record.
func DefaultsFrom(cfg *config.Config) Result {
	return Result{
		InstallPath:  cfg.InstallPath,
		Launch:       cfg.ShouldLaunch(),
		RazorEnabled: cfg.IsRazorEnabled(),
		RazorChannel: cfg.GetRazorChannel(),
	}
}

// Apply writes a collected Result back onto the config record.
func Apply(cfg *config.Config, result Result) {
	cfg.InstallPath = result.InstallPath
	cfg.Launch = &result.Launch
	cfg.RazorEnabled = &result.RazorEnabled
	cfg.RazorChannel = result.RazorChannel.String()
}

// SelectUI picks the form UI on a terminal, the plain prompter
// otherwise.
func SelectUI() UI {
	form := NewFormUI()
	if form.IsInteractive() {
		return form
	}

	return NewPromptUI(prompt.NewStdPrompter())
}

// PromptUI collects the setup values over plain line prompts.
type PromptUI struct {
	prompter prompt.Prompter
}

// NewPromptUI creates a PromptUI.
func NewPromptUI(prompter prompt.Prompter) *PromptUI {
	return &PromptUI{prompter: prompter}
}

// IsInteractive reports whether stdin is available for line prompts.
func (*PromptUI) IsInteractive() bool {
	info, err := os.Stdin.Stat()
	if err != nil {
		return false
	}

	return info.Mode()&os.ModeCharDevice != 0
}

// RunSetupForm walks the setup questions one line at a time.
func (u *PromptUI) RunSetupForm(defaults Result) (Result, error) {
	result := defaults

	path, err := u.prompter.Input("Install path", defaults.InstallPath)
	if err != nil {
		return Result{}, errors.Wrap(err, "reading install path")
	}

	result.InstallPath = path

	launch, err := u.prompter.Confirm("Start the game after updating", defaults.Launch)
	if err != nil {
		return Result{}, errors.Wrap(err, "reading launch preference")
	}

	result.Launch = launch

	razor, err := u.prompter.Confirm("Install the Razor assistant", defaults.RazorEnabled)
	if err != nil {
		return Result{}, errors.Wrap(err, "reading razor preference")
	}

	result.RazorEnabled = razor

	if razor {
		channelStr, chanErr := u.prompter.Input(
			"Razor channel (stable/dev)", defaults.RazorChannel.String(),
		)
		if chanErr != nil {
			return Result{}, errors.Wrap(chanErr, "reading razor channel")
		}

		channel, parseErr := config.ParseChannel(channelStr)
		if parseErr != nil {
			return Result{}, parseErr
		}

		result.RazorChannel = channel
	}

	return result, nil
}
