package launcher

import (
	"fmt"

	"github.com/dustin/go-humanize"

	"github.com/openuo/uolaunch/internal/install"
)

// progress returns a ProgressFunc that rewrites one status line as
// bytes arrive. Determinate when the remote reports a total,
// indeterminate otherwise.
func (l *Launcher) progress(name string) install.ProgressFunc {
	var lastLine int

	return func(received, total int64) {
		var line string

		if total > 0 {
			line = fmt.Sprintf("%s: %s / %s", name,
				humanize.Bytes(uint64(received)), humanize.Bytes(uint64(total))) //nolint:gosec // byte counts are non-negative
		} else {
			line = fmt.Sprintf("%s: %s", name, humanize.Bytes(uint64(received))) //nolint:gosec // byte counts are non-negative
		}

		// Pad so a shrinking line does not leave stale characters.
		pad := lastLine - len(line)
		if pad < 0 {
			pad = 0
		}

		lastLine = len(line)

		fmt.Fprintf(l.out, "\r%s%*s", line, pad, "")

		if total > 0 && received >= total {
			fmt.Fprintln(l.out)
		}
	}
}
