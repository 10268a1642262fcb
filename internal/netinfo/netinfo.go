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

// Package netinfo reports the network identity of the kiosk.
package netinfo

import (
	"errors"
	"fmt"
	"net"
	"strings"
)

// ErrNoInterface is returned when no usable interface exists.
var ErrNoInterface = errors.New("no usable network interface")

// Info is the MAC and IPv4 address of one interface. It implements
// kiosk.Host.
type Info struct {
	Name string
	Addr string
	Hw   string
}

// MAC returns the hardware address in lower-case colon notation.
func (i Info) MAC() string { return i.Hw }

// IP returns the IPv4 address.
func (i Info) IP() string { return i.Addr }

// Overrides replace detected values. Empty fields are detected.
type Overrides struct {
	Interface string
	MAC       string
	IP        string
}

// Detect picks the named interface, or the first interface that is up,
// not loopback and has a hardware address. Overrides win over detection;
// when both MAC and IP are overridden no interface is inspected.
func Detect(o Overrides) (Info, error) {
	if o.MAC != "" && o.IP != "" {
		return Info{Name: o.Interface, Hw: strings.ToLower(o.MAC), Addr: o.IP}, nil
	}

	ifaces, err := net.Interfaces()
	if err != nil {
		return Info{}, fmt.Errorf("list interfaces: %w", err)
	}

	candidates := make([]candidate, 0, len(ifaces))
	for _, iface := range ifaces {
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		candidates = append(candidates, candidate{
			name:  iface.Name,
			flags: iface.Flags,
			hw:    iface.HardwareAddr,
			addrs: addrs,
		})
	}

	info, err := choose(candidates, o.Interface)
	if err != nil {
		return Info{}, err
	}
	if o.MAC != "" {
		info.Hw = strings.ToLower(o.MAC)
	}
	if o.IP != "" {
		info.Addr = o.IP
	}
	return info, nil
}

type candidate struct {
	name  string
	hw    net.HardwareAddr
	addrs []net.Addr
	flags net.Flags
}

func choose(candidates []candidate, name string) (Info, error) {
	for _, c := range candidates {
		if name != "" && c.name != name {
			continue
		}
		if name == "" && (c.flags&net.FlagUp == 0 || c.flags&net.FlagLoopback != 0 || len(c.hw) == 0) {
			continue
		}
		return Info{Name: c.name, Hw: c.hw.String(), Addr: firstIPv4(c.addrs)}, nil
	}
	if name != "" {
		return Info{}, fmt.Errorf("%w: %s not found", ErrNoInterface, name)
	}
	return Info{}, ErrNoInterface
}

func firstIPv4(addrs []net.Addr) string {
	for _, a := range addrs {
		var ip net.IP
		switch v := a.(type) {
		case *net.IPNet:
			ip = v.IP
		case *net.IPAddr:
			ip = v.IP
		}
		if ip4 := ip.To4(); ip4 != nil && !ip4.IsLoopback() {
			return ip4.String()
		}
	}
	return ""
}
