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

package audit

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// FileLog is the append-only local fallback log. Each line is
// "<RFC3339 time> - <message>". On unix appends take an exclusive flock so
// several processes can share the file.
type FileLog struct {
	now  func() time.Time
	path string
	mu   sync.Mutex
}

// NewFileLog creates a local log at path. The file and its directory are
// created on first append.
func NewFileLog(path string) *FileLog {
	return &FileLog{path: path, now: time.Now}
}

// Path returns the log file location
func (f *FileLog) Path() string {
	return f.path
}

// Append writes one line.
func (f *FileLog) Append(message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(f.path), 0o750); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	file, err := os.OpenFile(f.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
	if err != nil {
		return fmt.Errorf("failed to open local log: %w", err)
	}
	defer func() { _ = file.Close() }()

	if err := lockFile(file); err != nil {
		return fmt.Errorf("failed to lock local log: %w", err)
	}
	defer func() { _ = unlockFile(file) }()

	line := fmt.Sprintf("%s - %s\n", f.now().Format(time.RFC3339), message)
	if _, err := file.WriteString(line); err != nil {
		return fmt.Errorf("failed to write local log: %w", err)
	}
	return nil
}
