//go:build linux

package rfcomm

import (
	"testing"

	dbus "github.com/godbus/dbus/v5"
)

func TestDeviceFromIfaces(t *testing.T) {
	path := dbus.ObjectPath("/org/bluez/hci0/dev_00_16_04_01_21_C0")
	tests := []struct {
		name   string
		ifaces map[string]map[string]dbus.Variant
		want   Device
		ok     bool
	}{
		{
			name: "serial device",
			ifaces: map[string]map[string]dbus.Variant{deviceIface: {
				"Address": dbus.MakeVariant("00:16:04:01:21:C0"),
				"Name":    dbus.MakeVariant("HC-05"),
				"UUIDs":   dbus.MakeVariant([]string{"0000110A-0000-1000-8000-00805F9B34FB", SPPUUID}),
			}},
			want: Device{Name: "HC-05", Addr: testAddr, Serial: true},
			ok:   true,
		},
		{
			name: "no name, address from path",
			ifaces: map[string]map[string]dbus.Variant{deviceIface: {
				"RSSI": dbus.MakeVariant(int16(-60)),
			}},
			want: Device{Name: unknownName, Addr: testAddr},
			ok:   true,
		},
		{
			name:   "adapter only",
			ifaces: map[string]map[string]dbus.Variant{adapterIface: {}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := deviceFromIfaces(path, tt.ifaces)
			if ok != tt.ok || got != tt.want {
				t.Fatalf("deviceFromIfaces() = %+v, %v; want %+v, %v", got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestMacFromPath(t *testing.T) {
	if got := macFromPath("/org/bluez/hci0/dev_AA_BB_CC_DD_EE_FF"); got != "AA:BB:CC:DD:EE:FF" {
		t.Fatalf("macFromPath = %q", got)
	}
	if got := macFromPath("/org/bluez/hci0"); got != "" {
		t.Fatalf("macFromPath = %q, want empty", got)
	}
}
