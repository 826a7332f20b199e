package common

import (
	"errors"
	"fmt"
)

// ErrModulePaused is returned by Guard when the module has been halted.
var ErrModulePaused = errors.New("module paused")

// PauseView exposes the pause switch of one or more modules.
type PauseView interface {
	IsPaused(module string) bool
}

// Guard fails with ErrModulePaused when the view reports module as paused. A
// nil view or empty module name never blocks.
func Guard(p PauseView, module string) error {
	if p == nil || module == "" {
		return nil
	}
	if p.IsPaused(module) {
		return fmt.Errorf("%s: %w", module, ErrModulePaused)
	}
	return nil
}
