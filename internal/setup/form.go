package setup

import (
	"os"

	"charm.land/huh/v2"
	"github.com/cockroachdb/errors"

	"github.com/openuo/uolaunch/pkg/config"
)

// FormUI collects the setup values with a terminal form.
type FormUI struct{}

// NewFormUI creates a FormUI.
func NewFormUI() *FormUI {
	return &FormUI{}
}

// IsInteractive reports whether both stdin and stdout are terminals.
func (*FormUI) IsInteractive() bool {
	for _, f := range []*os.File{os.Stdin, os.Stdout} {
		info, err := f.Stat()
		if err != nil || info.Mode()&os.ModeCharDevice == 0 {
			return false
		}
	}

	return true
}

// RunSetupForm runs the first-run form.
func (*FormUI) RunSetupForm(defaults Result) (Result, error) {
	result := defaults
	channel := defaults.RazorChannel.String()

	pathInput := huh.NewInput().
		Title("Install path").
		Description("Where the game client and its files will live.").
		Value(&result.InstallPath)

	launchConfirm := huh.NewConfirm().
		Title("Start the game after updating").
		Affirmative("Yes").
		Negative("No").
		Value(&result.Launch)

	razorConfirm := huh.NewConfirm().
		Title("Install the Razor assistant").
		Description("Razor adds macros and automation to the classic client.").
		Affirmative("Yes").
		Negative("No").
		Value(&result.RazorEnabled)

	channelSelect := huh.NewSelect[string]().
		Title("Razor channel").
		Description("Stable releases, or untagged development builds.").
		Options(
			huh.NewOption("Stable", config.ChannelStable.String()),
			huh.NewOption("Development", config.ChannelDev.String()),
		).
		Value(&channel)

	form := huh.NewForm(
		huh.NewGroup(pathInput, launchConfirm),
		huh.NewGroup(razorConfirm, channelSelect),
	)

	if err := form.Run(); err != nil {
		return Result{}, errors.Wrap(err, "running setup form")
	}

	parsed, err := config.ParseChannel(channel)
	if err != nil {
		return Result{}, err
	}

	result.RazorChannel = parsed

	return result, nil
}
