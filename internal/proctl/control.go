// Package proctl validates and performs process-control requests: sending a
// signal and changing the nice value. Every call returns a Result; nothing
// panics across this boundary.
package proctl

import (
	"errors"
	"fmt"
	"os"
)

// ErrInvalidControlRequest marks a request rejected before reaching the OS.
var ErrInvalidControlRequest = errors.New("invalid control request")

// Nice value bounds.
const (
	MinNice = -20
	MaxNice = 19
)

// Result is the outcome reported to the caller.
type Result struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Signals lists the signal names accepted by KillProcess.
var Signals = []string{
	"SIGTERM", "SIGKILL", "SIGSTOP", "SIGCONT", "SIGHUP",
	"SIGINT", "SIGUSR1", "SIGUSR2", "SIGQUIT",
}

// Overridden in tests.
var (
	selfPID     = os.Getpid
	sendSignal  = platformKill
	setPriority = platformSetPriority
)

type invalidRequest struct{ msg string }

func (e invalidRequest) Error() string { return e.msg }
func (e invalidRequest) Unwrap() error { return ErrInvalidControlRequest }

func invalid(format string, args ...any) error {
	return invalidRequest{msg: fmt.Sprintf(format, args...)}
}

func toResult(err error) Result {
	if err != nil {
		return Result{Error: err.Error()}
	}
	return Result{Success: true}
}

// ValidateKill checks a kill request without performing it.
func ValidateKill(pid int, signal string) error {
	if pid <= 0 {
		return invalid("Invalid PID")
	}
	if pid == 1 || pid == selfPID() {
		return invalid("Cannot kill this process")
	}
	for _, s := range Signals {
		if s == signal {
			return nil
		}
	}
	return invalid("Invalid signal: %s", signal)
}

// ValidateRenice checks a renice request without performing it.
func ValidateRenice(pid, priority int) error {
	if pid <= 0 {
		return invalid("Invalid PID")
	}
	if priority < MinNice || priority > MaxNice {
		return invalid("Priority must be between %d and %d", MinNice, MaxNice)
	}
	return nil
}

// KillProcess sends signal to pid. An empty signal means SIGTERM.
func KillProcess(pid int, signal string) Result {
	if signal == "" {
		signal = "SIGTERM"
	}
	if err := ValidateKill(pid, signal); err != nil {
		return toResult(err)
	}
	if err := sendSignal(pid, signal); err != nil {
		return toResult(fmt.Errorf("failed to send %s to PID %d: %w", signal, pid, err))
	}
	return toResult(nil)
}

// ReniceProcess sets the nice value of pid.
// Negative values or other users' processes usually need root.
func ReniceProcess(pid, priority int) Result {
	if err := ValidateRenice(pid, priority); err != nil {
		return toResult(err)
	}
	if err := setPriority(pid, priority); err != nil {
		return toResult(fmt.Errorf("failed to set priority for PID %d: %w", pid, err))
	}
	return toResult(nil)
}

// NudgeNice returns current+delta clamped to the valid nice range.
func NudgeNice(current, delta int) int {
	n := current + delta
	if n < MinNice {
		return MinNice
	}
	if n > MaxNice {
		return MaxNice
	}
	return n
}
