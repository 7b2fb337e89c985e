// SPDX-License-Identifier: MIT

package media

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingAsset is returned when a referenced media file is absent or empty.
	ErrMissingAsset = errors.New("missing asset")

	// ErrInvalidMedia is returned when a nil or zero-duration node reaches a
	// composition boundary and no valid sibling remains to carry the composite.
	ErrInvalidMedia = errors.New("invalid media")

	// ErrNoValidScenes is returned when zero scenes survive assembly. It is the
	// only scene-related error that fails the whole job.
	ErrNoValidScenes = errors.New("no valid scenes")

	// ErrEncodeFailed is returned when the native encode backend fails on the
	// final write.
	ErrEncodeFailed = errors.New("encode failed")
)

// SceneError marks one scene's assembly as failed. The master renderer drops
// the scene and keeps the job alive as long as at least one scene survives.
type SceneError struct {
	Index int
	Err   error
}

func (e *SceneError) Error() string {
	return fmt.Sprintf("scene %d failed: %v", e.Index, e.Err)
}

func (e *SceneError) Unwrap() error { return e.Err }
