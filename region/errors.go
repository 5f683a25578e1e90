/*
Copyright 2026 The J2Cache authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package region

import (
	"errors"
	"fmt"
)

// ErrorReason is a type that represents the reason for a region error.
type ErrorReason struct {
	reason string
	msg    string
}

// Error gives a human-readable description of the error.
func (e ErrorReason) Error() string {
	return e.msg
}

// Reason returns the machine-readable reason.
func (e ErrorReason) Reason() string {
	return e.reason
}

// Error is returned when a region operation fails with an underlying cause.
type Error struct {
	Region string
	Reason ErrorReason
	Err    error
}

// Error returns Err as a string, prefixed with the region name and the Reason.
func (e *Error) Error() string {
	if e.Reason.Error() == "" {
		return fmt.Sprintf("region '%s': %s", e.Region, e.Err.Error())
	}
	return fmt.Sprintf("region '%s': %s: %s", e.Region, e.Reason.Error(), e.Err.Error())
}

// Is returns true if the Reason or Err equals target.
func (e *Error) Is(target error) bool {
	if e.Reason == target {
		return true
	}
	return errors.Is(e.Err, target)
}

// Unwrap returns the underlying Err.
func (e *Error) Unwrap() error {
	return e.Err
}

var (
	ErrRegionDisposed = ErrorReason{"RegionDisposed", "region is disposed"}
	ErrInvalidName    = ErrorReason{"InvalidName", "invalid region name"}
	ErrInvalidKey     = ErrorReason{"InvalidKey", "invalid key"}
	ErrInvalidTTL     = ErrorReason{"InvalidTTL", "invalid time-to-live"}
	ErrInvalidOption  = ErrorReason{"InvalidOption", "invalid option"}
	ErrSnapshot       = ErrorReason{"Snapshot", "snapshot failure"}
)
