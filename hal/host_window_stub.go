//go:build !tinygo && !cgo

package hal

import "errors"

func RunWindow(_ func(HAL) (func(), func() error), _ HeadlessConfig) error {
	return errors.New("window mode requires cgo (build/run with CGO_ENABLED=1)")
}
