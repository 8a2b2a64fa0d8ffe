package exec

import (
	"fmt"
	"os/exec"
)

// ToolChecker checks for tool availability in PATH.
type ToolChecker interface {
	// IsAvailable checks if a tool is available in PATH.
	IsAvailable(tool string) bool

	// RequireTool returns an error if the tool is not available.
	RequireTool(tool string) error

	// Path returns the resolved path of a tool, or "" when absent.
	Path(tool string) string
}

// toolChecker implements ToolChecker.
type toolChecker struct{}

// NewToolChecker creates a new ToolChecker.
func NewToolChecker() ToolChecker {
	return &toolChecker{}
}

// IsAvailable checks if a tool is available in PATH.
func (*toolChecker) IsAvailable(tool string) bool {
	_, err := exec.LookPath(tool)

	return err == nil
}

// RequireTool returns an error if the tool is not available.
func (t *toolChecker) RequireTool(tool string) error {
	if !t.IsAvailable(tool) {
		return &ToolNotFoundError{Tool: tool}
	}

	return nil
}

// Path returns the resolved path of a tool, or "" when absent.
func (*toolChecker) Path(tool string) string {
	path, err := exec.LookPath(tool)
	if err != nil {
		return ""
	}

	return path
}

// ToolNotFoundError is returned when a required tool is not found.
type ToolNotFoundError struct {
	Tool string
}

// Error implements the error interface.
func (e *ToolNotFoundError) Error() string {
	return fmt.Sprintf("required tool %q not found in PATH", e.Tool)
}
