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

package cache

import (
	"errors"
	"fmt"

	"github.com/FISHStack/J2Cache/region"
)

// CacheErrorReason is a type that represents the reason for a cache error.
type CacheErrorReason struct {
	reason string
	msg    string
}

// Error gives a human-readable description of the error.
func (e CacheErrorReason) Error() string {
	return e.msg
}

type CacheError struct {
	Reason CacheErrorReason
	Err    error
}

// Error returns Err as a string, prefixed with the Reason to provide context.
func (e *CacheError) Error() string {
	if e.Reason.Error() == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %s", e.Reason.Error(), e.Err.Error())
}

// Is returns true if the Reason or Err equals target.
// It can be used to programmatically place an arbitrary Err in the
// context of the Cache:
//
//	err := &CacheError{Reason: ErrCacheException, Err: region.ErrRegionDisposed}
//	errors.Is(err, ErrCacheException)
//	errors.Is(err, region.ErrRegionDisposed)
func (e *CacheError) Is(target error) bool {
	if e.Reason == target {
		return true
	}
	return errors.Is(e.Err, target)
}

// Unwrap returns the underlying Err.
func (e *CacheError) Unwrap() error {
	return e.Err
}

var (
	// ErrInvalidArgument is the reason for malformed input, such as an empty
	// key or a negative time-to-live.
	ErrInvalidArgument = CacheErrorReason{"InvalidArgument", "invalid argument"}
	// ErrCacheException is the reason for structural failures reported by
	// the region, such as an operation on a disposed region.
	ErrCacheException = CacheErrorReason{"CacheException", "cache failure"}
)

func invalidArgument(format string, args ...any) error {
	return &CacheError{Reason: ErrInvalidArgument, Err: fmt.Errorf(format, args...)}
}

// wrapRegionError classifies an error returned by the region.
func wrapRegionError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, region.ErrInvalidKey) || errors.Is(err, region.ErrInvalidTTL) {
		return &CacheError{Reason: ErrInvalidArgument, Err: err}
	}
	return &CacheError{Reason: ErrCacheException, Err: err}
}
