//go:build darwin

package sound

import "os/exec"

var alarmFiles = []string{
	"/System/Library/Sounds/Glass.aiff",
	"/System/Library/Sounds/Tink.aiff",
}

func playSystem() error {
	var err error
	for _, f := range alarmFiles {
		if _, err = startReaped(exec.Command("afplay", f)); err == nil {
			return nil
		}
	}
	return err
}
