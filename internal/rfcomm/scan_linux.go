//go:build linux

package rfcomm

import (
	"context"
	"fmt"
	"strings"
	"time"

	dbus "github.com/godbus/dbus/v5"
	"go.uber.org/multierr"
)

const (
	bluezService    = "org.bluez"
	deviceIface     = "org.bluez.Device1"
	adapterIface    = "org.bluez.Adapter1"
	objManagerIface = "org.freedesktop.DBus.ObjectManager"
)

// ScanDevices runs discovery on every local adapter for timeout and returns
// the devices BlueZ knows about afterwards, sorted by address. It blocks.
// Whole seconds of timeout must fit in 32 bits.
func ScanDevices(ctx context.Context, timeout time.Duration, opts ...Option) ([]Device, error) {
	if err := checkScanTimeout(timeout); err != nil {
		return nil, err
	}
	o := newOptions(opts)

	bus, err := dbus.ConnectSystemBus()
	if err != nil {
		return nil, ioError(fmt.Errorf("connect system bus: %w", err))
	}
	defer bus.Close()

	adapters, err := listAdapters(bus)
	if err != nil {
		return nil, err
	}
	if len(adapters) == 0 {
		return nil, descError(ErrNoAdapter, "scan")
	}

	// Subscribe before discovery starts so no InterfacesAdded is missed.
	sigCh := make(chan *dbus.Signal, 16)
	bus.Signal(sigCh)
	defer bus.RemoveSignal(sigCh)
	match := []dbus.MatchOption{
		dbus.WithMatchInterface(objManagerIface),
		dbus.WithMatchMember("InterfacesAdded"),
	}
	if err := bus.AddMatchSignal(match...); err != nil {
		return nil, ioError(fmt.Errorf("AddMatchSignal: %w", err))
	}
	defer func() { _ = bus.RemoveMatchSignal(match...) }()

	var startErrs error
	var started []dbus.ObjectPath
	for _, ap := range adapters {
		if err := bus.Object(bluezService, ap).Call(adapterIface+".StartDiscovery", 0).Err; err != nil {
			startErrs = multierr.Append(startErrs, fmt.Errorf("%s: %w", ap, err))
			continue
		}
		started = append(started, ap)
	}
	if len(started) == 0 {
		return nil, ioError(fmt.Errorf("StartDiscovery: %w", startErrs))
	}
	defer func() {
		var stopErrs error
		for _, ap := range started {
			if err := bus.Object(bluezService, ap).Call(adapterIface+".StopDiscovery", 0).Err; err != nil {
				stopErrs = multierr.Append(stopErrs, fmt.Errorf("%s: %w", ap, err))
			}
		}
		if stopErrs != nil {
			o.logger.Printf("rfcomm: StopDiscovery: %v", stopErrs)
		}
	}()
	if startErrs != nil {
		o.logger.Printf("rfcomm: StartDiscovery: %v", startErrs)
	}

	devMap, err := snapshotDevices(bus)
	if err != nil {
		return nil, err
	}

	scanCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
loop:
	for {
		select {
		case <-scanCtx.Done():
			break loop
		case sig := <-sigCh:
			if sig == nil || len(sig.Body) < 2 {
				continue
			}
			path, _ := sig.Body[0].(dbus.ObjectPath)
			ifaces, _ := sig.Body[1].(map[string]map[string]dbus.Variant)
			if ifaces == nil {
				continue
			}
			if dev, ok := deviceFromIfaces(path, ifaces); ok {
				o.logger.Printf("rfcomm: found %s", dev)
				devMap[dev.Addr] = dev
			}
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("rfcomm: scan canceled: %w", err)
	}

	// Names often resolve after the device first appears.
	if final, err := snapshotDevices(bus); err == nil {
		for addr, dev := range final {
			devMap[addr] = dev
		}
	}

	out := make([]Device, 0, len(devMap))
	for _, d := range devMap {
		out = append(out, d)
	}
	sortDevices(out)
	return out, nil
}

func managedObjects(bus *dbus.Conn) (map[dbus.ObjectPath]map[string]map[string]dbus.Variant, error) {
	obj := bus.Object(bluezService, dbus.ObjectPath("/"))
	var objs map[dbus.ObjectPath]map[string]map[string]dbus.Variant
	if call := obj.Call(objManagerIface+".GetManagedObjects", 0); call.Err != nil {
		return nil, ioError(fmt.Errorf("GetManagedObjects: %w", call.Err))
	} else if err := call.Store(&objs); err != nil {
		return nil, ioError(fmt.Errorf("decode GetManagedObjects: %w", err))
	}
	return objs, nil
}

func listAdapters(bus *dbus.Conn) ([]dbus.ObjectPath, error) {
	objs, err := managedObjects(bus)
	if err != nil {
		return nil, err
	}
	var out []dbus.ObjectPath
	for path, ifaces := range objs {
		if _, ok := ifaces[adapterIface]; ok {
			out = append(out, path)
		}
	}
	return out, nil
}

func snapshotDevices(bus *dbus.Conn) (map[Address]Device, error) {
	objs, err := managedObjects(bus)
	if err != nil {
		return nil, err
	}
	out := make(map[Address]Device)
	for path, ifaces := range objs {
		if dev, ok := deviceFromIfaces(path, ifaces); ok {
			out[dev.Addr] = dev
		}
	}
	return out, nil
}

func deviceFromIfaces(path dbus.ObjectPath, ifaces map[string]map[string]dbus.Variant) (Device, bool) {
	props, ok := ifaces[deviceIface]
	if !ok {
		return Device{}, false
	}
	var mac, name string
	if v, ok := props["Address"]; ok {
		mac, _ = v.Value().(string)
	}
	if mac == "" {
		mac = macFromPath(path)
	}
	addr, err := ParseAddress(mac)
	if err != nil {
		return Device{}, false
	}
	if v, ok := props["Name"]; ok {
		name, _ = v.Value().(string)
	}
	if name == "" {
		name = unknownName
	}
	var uuids []string
	if v, ok := props["UUIDs"]; ok {
		uuids, _ = v.Value().([]string)
	}
	return Device{Name: name, Addr: addr, Serial: containsUUID(uuids, SPPUUID)}, true
}

func containsUUID(list []string, target string) bool {
	for _, s := range list {
		if strings.EqualFold(s, target) {
			return true
		}
	}
	return false
}

// macFromPath recovers the address from .../dev_XX_XX_XX_XX_XX_XX.
func macFromPath(p dbus.ObjectPath) string {
	s := string(p)
	idx := strings.LastIndex(s, "/dev_")
	if idx < 0 {
		return ""
	}
	return strings.ReplaceAll(s[idx+5:], "_", ":")
}
