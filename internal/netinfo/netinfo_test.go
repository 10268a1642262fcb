// go-labkiosk
// Copyright (c) 2025 The Zaparoo Project Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-labkiosk.
//
// go-labkiosk is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-labkiosk is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-labkiosk; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

package netinfo

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ipNet(s string) *net.IPNet {
	ip, n, err := net.ParseCIDR(s)
	if err != nil {
		panic(err)
	}
	n.IP = ip
	return n
}

var (
	loopback = candidate{
		name:  "lo",
		flags: net.FlagUp | net.FlagLoopback,
		addrs: []net.Addr{ipNet("127.0.0.1/8")},
	}
	wlanDown = candidate{
		name:  "wlan0",
		flags: 0,
		hw:    net.HardwareAddr{0xdc, 0xa6, 0x32, 0, 0, 1},
		addrs: []net.Addr{ipNet("10.0.0.9/24")},
	}
	eth = candidate{
		name:  "eth0",
		flags: net.FlagUp,
		hw:    net.HardwareAddr{0xb8, 0x27, 0xeb, 0x00, 0x11, 0x22},
		addrs: []net.Addr{ipNet("fe80::1/64"), ipNet("192.168.1.50/24")},
	}
)

func TestChooseFirstUsable(t *testing.T) {
	t.Parallel()

	info, err := choose([]candidate{loopback, wlanDown, eth}, "")
	require.NoError(t, err)
	assert.Equal(t, "eth0", info.Name)
	assert.Equal(t, "b8:27:eb:00:11:22", info.MAC())
	assert.Equal(t, "192.168.1.50", info.IP())
}

func TestChooseNamed(t *testing.T) {
	t.Parallel()

	info, err := choose([]candidate{loopback, wlanDown, eth}, "wlan0")
	require.NoError(t, err)
	assert.Equal(t, "dc:a6:32:00:00:01", info.MAC())
	assert.Equal(t, "10.0.0.9", info.IP())

	_, err = choose([]candidate{eth}, "usb0")
	require.ErrorIs(t, err, ErrNoInterface)
	assert.Contains(t, err.Error(), "usb0")
}

func TestChooseNone(t *testing.T) {
	t.Parallel()

	_, err := choose([]candidate{loopback, wlanDown}, "")
	assert.ErrorIs(t, err, ErrNoInterface)
}

func TestFirstIPv4SkipsIPv6(t *testing.T) {
	t.Parallel()

	assert.Empty(t, firstIPv4([]net.Addr{ipNet("fe80::1/64")}))
	assert.Equal(t, "10.1.2.3", firstIPv4([]net.Addr{&net.IPAddr{IP: net.ParseIP("10.1.2.3")}}))
}

func TestDetectFullOverride(t *testing.T) {
	t.Parallel()

	info, err := Detect(Overrides{MAC: "B8:27:EB:AA:BB:CC", IP: "10.9.8.7"})
	require.NoError(t, err)
	assert.Equal(t, "b8:27:eb:aa:bb:cc", info.MAC())
	assert.Equal(t, "10.9.8.7", info.IP())
}
