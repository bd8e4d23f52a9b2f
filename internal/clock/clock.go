// Copyright 2025 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package clock provides the time source used for inode timestamps, so that
// storage-engine tests can control "now" instead of depending on wall time.
package clock

import "time"

// Clock is the source of "now" used whenever the store stamps atime, mtime,
// ctime or crtime.
type Clock interface {
	Now() time.Time
}

// RealClock is backed by the host's wall clock.
type RealClock struct{}

func (RealClock) Now() time.Time {
	return time.Now()
}

// FakeClock always reports the time it was seeded with, and never advances
// on its own; tests move it forward explicitly with Advance.
type FakeClock struct {
	t time.Time
}

func NewFakeClock(t time.Time) *FakeClock {
	return &FakeClock{t: t}
}

func (c *FakeClock) Now() time.Time {
	return c.t
}

func (c *FakeClock) Advance(d time.Duration) {
	c.t = c.t.Add(d)
}

func (c *FakeClock) Set(t time.Time) {
	c.t = t
}
