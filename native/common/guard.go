package common

import "errors"

var ErrActionHalted = errors.New("action halted by circuit breaker")

// PauseView reports whether a module action has been halted by governance or
// an automated circuit breaker. Implementations must be cheap: guards sit on
// every operation's validation path.
type PauseView interface {
	IsPaused(module, action string) bool
}

// Guard rejects the operation when the given module action is halted. A nil
// view disables the breaker entirely.
func Guard(p PauseView, module, action string) error {
	if p == nil || module == "" {
		return nil
	}
	if p.IsPaused(module, action) {
		return ErrActionHalted
	}
	return nil
}
