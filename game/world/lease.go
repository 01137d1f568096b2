package world

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// ErrRoomBusy is returned when another server instance runs the room.
var ErrRoomBusy = errors.New("world: room is running on another instance")

// DefaultLeaseTTL bounds how long a crashed instance keeps its rooms.
const DefaultLeaseTTL = 2 * time.Minute

// Leases is the part of the shared cache used to claim rooms, so that
// instances sharing one Redis never simulate the same character twice.
type Leases interface {
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

func leaseKey(room string) string { return "lease:room:" + room }

// LeaseTTL is the lifetime of a room claim. Renew well inside it.
func (wm *Manager) LeaseTTL() time.Duration { return wm.cfg.LeaseTTL }

// Instance identifies this manager in lease values.
func (wm *Manager) Instance() string { return wm.cfg.Instance }

func (wm *Manager) acquire(ctx context.Context, name string) error {
	if wm.cfg.Leases == nil {
		return nil
	}
	key := leaseKey(name)
	ok, err := wm.cfg.Leases.SetNX(ctx, key, wm.cfg.Instance, wm.cfg.LeaseTTL)
	if err != nil {
		return fmt.Errorf("world: lease %s: %w", name, err)
	}
	if ok {
		return nil
	}
	// A claim left by this instance (a close that failed to release) is
	// still ours.
	if owner, err := wm.cfg.Leases.Get(ctx, key); err == nil && owner == wm.cfg.Instance {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrRoomBusy, name)
}

func (wm *Manager) release(ctx context.Context, name string) {
	if wm.cfg.Leases == nil {
		return
	}
	if err := wm.cfg.Leases.Del(ctx, leaseKey(name)); err != nil {
		wm.logger.Warn("lease release failed", zap.String("room", name), zap.Error(err))
	}
}

// RenewLeases extends the claim on every open room.
func (wm *Manager) RenewLeases(ctx context.Context) error {
	if wm.cfg.Leases == nil {
		return nil
	}
	var errs []error
	for _, n := range wm.Names() {
		if err := wm.cfg.Leases.Set(ctx, leaseKey(n), wm.cfg.Instance, wm.cfg.LeaseTTL); err != nil {
			errs = append(errs, fmt.Errorf("renew %s: %w", n, err))
		}
	}
	return errors.Join(errs...)
}
