package shared

import (
	"fmt"
	"os/exec"
	"runtime"
)

// goos is swapped out in tests to exercise each platform branch.
var goos = func() string { return runtime.GOOS }

// OpenBrowser launches the default browser at url, used to send the user to
// the Spotify authorization page during login. The command is started and not
// waited on; the callback server picks up the redirect.
func OpenBrowser(url string) error {
	var cmd *exec.Cmd
	switch os := goos(); os {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", url)
	default:
		return fmt.Errorf("unsupported platform: %s", os)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to open browser: %w", err)
	}

	return nil
}
