package accel

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	driversMu sync.RWMutex
	drivers   = make(map[string]Driver)
)

// Register makes a driver available under its name. It panics if the name
// is empty or already taken.
func Register(d Driver) {
	driversMu.Lock()
	defer driversMu.Unlock()
	name := d.Name()
	if name == "" {
		panic("accel: Register driver with empty name")
	}
	if _, dup := drivers[name]; dup {
		panic("accel: Register called twice for driver " + name)
	}
	drivers[name] = d
}

// Lookup returns the driver registered under name.
func Lookup(name string) (Driver, bool) {
	driversMu.RLock()
	defer driversMu.RUnlock()
	d, ok := drivers[name]
	return d, ok
}

// Drivers returns the sorted names of the registered drivers.
func Drivers() []string {
	driversMu.RLock()
	defer driversMu.RUnlock()
	names := make([]string, 0, len(drivers))
	for name := range drivers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Acquire resolves a selector to a device. Every failure is an *InitError.
func Acquire(sel Selector) (Device, error) {
	wrap := func(err error) error {
		return &InitError{Selector: sel.String(), Err: err}
	}

	d, ok := Lookup(sel.Driver)
	if !ok {
		return nil, wrap(fmt.Errorf("%w %q (registered: %v)", ErrUnknownDriver, sel.Driver, Drivers()))
	}
	platforms, err := d.Platforms()
	if err != nil {
		return nil, wrap(fmt.Errorf("enumerating platforms: %w", err))
	}
	if sel.Platform >= len(platforms) {
		return nil, wrap(fmt.Errorf("%w at index %d (%d available)", ErrNoPlatform, sel.Platform, len(platforms)))
	}
	devices, err := platforms[sel.Platform].Devices()
	if err != nil {
		return nil, wrap(fmt.Errorf("enumerating devices: %w", err))
	}
	if sel.Device >= len(devices) {
		return nil, wrap(fmt.Errorf("%w at index %d (%d available)", ErrNoDevice, sel.Device, len(devices)))
	}
	return devices[sel.Device], nil
}

// DeviceInfo describes one selectable device.
type DeviceInfo struct {
	Selector     string `json:"selector"`
	Driver       string `json:"driver"`
	Platform     string `json:"platform"`
	Device       string `json:"device"`
	ComputeUnits int    `json:"computeUnits"`
}

// ListDevices enumerates every device of every registered driver. Drivers
// that fail to enumerate are skipped and their errors joined into the
// returned error alongside the devices that were found.
func ListDevices() ([]DeviceInfo, error) {
	var (
		infos []DeviceInfo
		errs  []error
	)
	for _, name := range Drivers() {
		d, _ := Lookup(name)
		platforms, err := d.Platforms()
		if err != nil {
			errs = append(errs, fmt.Errorf("driver %s: %w", name, err))
			continue
		}
		for pi, p := range platforms {
			devices, err := p.Devices()
			if err != nil {
				errs = append(errs, fmt.Errorf("driver %s platform %d: %w", name, pi, err))
				continue
			}
			for di, dev := range devices {
				infos = append(infos, DeviceInfo{
					Selector:     Selector{Driver: name, Platform: pi, Device: di}.String(),
					Driver:       name,
					Platform:     p.Name(),
					Device:       dev.Name(),
					ComputeUnits: dev.ComputeUnits(),
				})
			}
		}
	}
	return infos, errors.Join(errs...)
}
