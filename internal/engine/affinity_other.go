//go:build !linux

package engine

import "errors"

func pinToCore(core int) error {
	return errors.New("cpu pinning not supported on this platform")
}
