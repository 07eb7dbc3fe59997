//go:build !linux

package framebuffer

import "go.uber.org/zap"

func Open(_ string, _ *zap.Logger) (*Device, error) {
	return nil, ErrNotSupported
}
