/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package session

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Direction of sibling navigation.
type Direction int

const (
	Left Direction = iota
	Right
)

func (d Direction) step() int {
	if d == Left {
		return -1
	}
	return 1
}

// Navigate opens the previous or next image in the directory of the open one,
// wrapping around at either end. With fewer than two candidates it does nothing.
func (c *Controller) Navigate(d Direction) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Open {
		return ErrNotOpen
	}
	cur := c.reg.ImagePath
	sibs, err := Siblings(filepath.Dir(cur), c.opt.Extension, c.opt.Sort)
	if err != nil {
		return err
	}
	if len(sibs) < 2 {
		c.log.DebugContext(c.ctx, "navigation skipped", slog.Any("err", ErrNoSiblings), slog.Int("candidates", len(sibs)))
		return nil
	}
	target := sibs[nextIndex(sibs, cur, d)]
	if target == cur {
		return nil
	}
	return c.openLocked(target)
}

// nextIndex moves from cur by one step in d. When cur is not among sibs
// (its extension is outside the navigation class), Right starts at the first
// sibling and Left at the last.
func nextIndex(sibs []string, cur string, d Direction) int {
	idx := -1
	for i, s := range sibs {
		if s == cur {
			idx = i
			break
		}
	}
	if idx < 0 {
		if d == Left {
			return len(sibs) - 1
		}
		return 0
	}
	n := len(sibs)
	return ((idx+d.step())%n + n) % n
}

// Siblings lists the regular files in dir whose extension matches ext,
// ignoring case. With sorted false the directory enumeration order is kept.
func Siblings(dir, ext string, sorted bool) ([]string, error) {
	f, err := os.Open(dir)
	if err != nil {
		return nil, fmt.Errorf("list siblings: %w", err)
	}
	defer func() { _ = f.Close() }()
	ents, err := f.ReadDir(-1)
	if err != nil {
		return nil, fmt.Errorf("list siblings: %w", err)
	}
	var out []string
	for _, e := range ents {
		if !e.Type().IsRegular() && e.Type()&os.ModeSymlink == 0 {
			continue
		}
		if !strings.EqualFold(filepath.Ext(e.Name()), ext) {
			continue
		}
		out = append(out, filepath.Join(dir, e.Name()))
	}
	if sorted {
		sort.Strings(out)
	}
	return out, nil
}
