//go:build !darwin

package sound

import "errors"

var errNoPlayer = errors.New("no system sound player")

func playSystem() error {
	return errNoPlayer
}
