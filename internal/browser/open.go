package browser

import (
	"fmt"
	"os/exec"
	"runtime"
)

// start launches the opener without waiting for it.
var start = func(name string, args ...string) error {
	return exec.Command(name, args...).Start()
}

// Open opens url in the user's default browser. Callers print the URL
// when it fails so the user can open it by hand.
func Open(url string) error {
	name, args, err := opener(runtime.GOOS, url)
	if err != nil {
		return err
	}
	return start(name, args...)
}

func opener(goos, url string) (string, []string, error) {
	switch goos {
	case "darwin":
		return "open", []string{url}, nil
	case "linux", "freebsd", "openbsd":
		return "xdg-open", []string{url}, nil
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler", url}, nil
	default:
		return "", nil, fmt.Errorf("browser.Open: unsupported OS %s", goos)
	}
}
