// Package platform provides the host-process realization of the device
// capability surface. Outside a real device there is nothing to request or
// open, so permissions are granted and settings screens are logged no-ops.
package platform

import (
	"context"

	"go.uber.org/zap"
)

// Host satisfies the permission flow's platform surface for non-device runs.
type Host struct {
	log *zap.Logger
}

func NewHost(log *zap.Logger) *Host {
	return &Host{log: log}
}

func (h *Host) RequestNotificationPermission(context.Context) (bool, error) {
	return true, nil
}

func (h *Host) IsBatteryOptimized(context.Context) (bool, error) {
	return false, nil
}

func (h *Host) OpenBatterySettings(context.Context) error {
	h.log.Info("battery settings requested, no-op on host platform")
	return nil
}

func (h *Host) OpenAutoStartSettings(context.Context) (bool, error) {
	return false, nil
}

func (h *Host) OpenAppSettings(context.Context) error {
	h.log.Info("app settings requested, no-op on host platform")
	return nil
}
