// Package util holds small OS helpers for the desktop launcher.
package util

import (
	"errors"
	"fmt"
	"os/exec"
	"runtime"
)

// browserCommands candidate launchers for goos, tried in order.
func browserCommands(goos, url string) [][]string {
	switch goos {
	case "windows":
		// rundll32 also works on Windows 7, where cmd /c start mangles some URLs
		return [][]string{
			{"rundll32", "url.dll,FileProtocolHandler", url},
			{"explorer", url},
		}
	case "darwin":
		return [][]string{{"open", url}}
	default:
		return [][]string{
			{"xdg-open", url},
			{"sensible-browser", url},
			{"google-chrome", url},
			{"firefox", url},
			{"chromium-browser", url},
		}
	}
}

// OpenBrowser opens url with the first launcher that starts.
func OpenBrowser(url string) error {
	var errs []error
	for _, argv := range browserCommands(runtime.GOOS, url) {
		err := exec.Command(argv[0], argv[1:]...).Start()
		if err == nil {
			return nil
		}
		errs = append(errs, err)
	}
	return fmt.Errorf("open browser: %w", errors.Join(errs...))
}

// LocalURL the address printed and opened for a local port.
func LocalURL(port int) string {
	return fmt.Sprintf("http://localhost:%d", port)
}
