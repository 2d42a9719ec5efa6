package handlers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/agentdevice/agent-device/internal/domain"
	"github.com/agentdevice/agent-device/internal/platform"
	"github.com/agentdevice/agent-device/internal/retry"
)

// sessionAndAdapter resolves a session name to its Session and the
// Adapter bound to its device's platform.
func sessionAndAdapter(d *Deps, sessName string) (*domain.Session, platform.Adapter, *domain.Error) {
	sess, derr := d.Store.Get(sessName)
	if derr != nil {
		return nil, nil, derr
	}
	adapter, ok := d.Adapters[sess.Device.Platform]
	if !ok {
		return nil, nil, domain.NewError(domain.ErrUnsupportedOp, "no adapter registered for platform "+string(sess.Device.Platform))
	}
	return sess, adapter, nil
}

// withDeviceLock serializes fn against device's keyed lock, mapping
// context cancellation to CANCELED.
func withDeviceLock(ctx context.Context, d *Deps, device domain.Device, fn func() *domain.Error) *domain.Error {
	unlock, err := d.Locker.Lock(ctx, device.Key())
	if err != nil {
		return domain.NewError(domain.ErrCanceled, "request canceled while waiting for device lock")
	}
	defer unlock()
	return fn()
}

// resolveTargetDevice picks a platform adapter and resolves a device
// query out of flags (platform/device/udid/serial), falling back to the
// daemon's configured defaults per platform.
func resolveTargetDevice(ctx context.Context, d *Deps, flags map[string]interface{}) (domain.Device, platform.Adapter, *domain.Error) {
	platStr := flagString(flags, "platform")
	if platStr == "" {
		switch {
		case flagString(flags, "udid") != "":
			platStr = string(domain.PlatformIOS)
		case flagString(flags, "serial") != "":
			platStr = string(domain.PlatformAndroid)
		}
	}
	if platStr == "" {
		return domain.Device{}, nil, domain.NewError(domain.ErrInvalidArgs, "platform is required (use --platform ios|android, or --udid/--serial)")
	}

	plat := domain.Platform(platStr)
	adapter, ok := d.Adapters[plat]
	if !ok {
		return domain.Device{}, nil, domain.NewError(domain.ErrInvalidArgs, "unsupported platform "+platStr)
	}

	query := firstNonEmptyFlag(flags, "device", "udid", "serial")
	if query == "" {
		query = defaultDeviceQueryFor(d, plat)
	}
	if query == "" {
		return domain.Device{}, nil, domain.NewError(domain.ErrInvalidArgs, "no device specified and no default configured for platform "+platStr)
	}

	dev, err := adapter.FindDevice(ctx, query)
	if err != nil {
		var ambiguous *platform.AmbiguousDeviceError
		if errors.As(err, &ambiguous) {
			return domain.Device{}, nil, domain.NewError(domain.ErrAmbiguousMatch, err.Error())
		}
		return domain.Device{}, nil, domain.NewError(domain.ErrCommandFailed, err.Error())
	}
	if dev == nil {
		return domain.Device{}, nil, domain.NewError(domain.ErrInvalidArgs, "no device matched "+query)
	}
	return *dev, adapter, nil
}

func defaultDeviceQueryFor(d *Deps, plat domain.Platform) string {
	switch plat {
	case domain.PlatformIOS:
		if d.Config.Device.IOSUDID != "" {
			return d.Config.Device.IOSUDID
		}
		return d.Config.Device.IOSDevice
	case domain.PlatformAndroid:
		if d.Config.Device.AndroidSerial != "" {
			return d.Config.Device.AndroidSerial
		}
		return d.Config.Device.AndroidDevice
	default:
		return ""
	}
}

// readyTimeout picks the configured readiness wait per spec.md §6: iOS
// physical devices use the (shorter) device-ready timeout, iOS
// simulators use the boot timeout, and Android uses a fixed 60s budget
// (ADB has no equivalent configurable knob in spec.md).
func readyTimeout(d *Deps, device domain.Device) time.Duration {
	if device.Platform == domain.PlatformIOS {
		if device.Kind == domain.DeviceKindDevice {
			return d.Config.IOSDeviceReadyTimeout()
		}
		return d.Config.IOSBootTimeout()
	}
	return 60 * time.Second
}

func defaultReasonFor(device domain.Device) string {
	if device.Platform == domain.PlatformIOS {
		return "IOS_BOOT_TIMEOUT"
	}
	return "ANDROID_BOOT_TIMEOUT"
}

// ensureDeviceReady locks device, then polls adapter.EnsureReady through
// retry.Do until ready, the deadline expires, or ctx is canceled
// (spec.md §4.E).
func ensureDeviceReady(ctx context.Context, d *Deps, adapter platform.Adapter, device domain.Device) *domain.Error {
	return withDeviceLock(ctx, d, device, func() *domain.Error {
		timeout := readyTimeout(d, device)
		deadline := retry.NewDeadline(d.Clock, timeout)

		var lastHint, lastReason string
		op := func(opCtx context.Context) error {
			res := adapter.EnsureReady(opCtx, device, timeout)
			if res.Ready {
				return nil
			}
			lastHint = res.Hint
			lastReason = res.Reason
			if lastReason == "" {
				lastReason = defaultReasonFor(device)
			}
			if lastHint == "" {
				lastHint = "device not ready"
			}
			return fmt.Errorf("%s", lastHint)
		}

		classify := func(err error) (bool, string) {
			// ADB_TRANSPORT_UNAVAILABLE means adb itself reported no
			// such device, or refused it as unauthorized (permission);
			// retrying the same probe can't change that,
			// so fail fast instead of burning the deadline.
			return lastReason != "ADB_TRANSPORT_UNAVAILABLE", lastReason
		}

		err := retry.Do(ctx, d.retryPolicy(), "device_ready", deadline, classify, d.retryEvent(ctx), op)
		if err != nil {
			if ctx.Err() != nil {
				return domain.NewError(domain.ErrCanceled, "request canceled while waiting for device readiness")
			}
			return domain.NewError(domain.ErrCommandFailed, "device not ready: "+lastHint).
				WithHint(lastHint).
				WithDetails(map[string]interface{}{"reason": lastReason})
		}
		return nil
	})
}
