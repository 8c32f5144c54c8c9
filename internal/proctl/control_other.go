//go:build !unix

package proctl

import "errors"

var errUnsupported = errors.New("process control is not supported on this platform")

func platformKill(int, string) error { return errUnsupported }

func platformSetPriority(int, int) error { return errUnsupported }
