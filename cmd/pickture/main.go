/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"pickture/internal/catalog"
	"pickture/internal/config"
	"pickture/internal/crash"
	"pickture/internal/domain"
	"pickture/internal/export"
	applog "pickture/internal/log"
	"pickture/internal/picture"
	"pickture/internal/session"
	"pickture/internal/storage"
	"pickture/internal/ui"
	"pickture/internal/version"
)

func usage(w io.Writer) {
	fmt.Fprintln(w, "Pickture - pick frames from pictures")
	fmt.Fprintf(w, "Version: %s\n", version.String())
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  pickture <image>                                Open <image> in the viewer")
	fmt.Fprintln(w, "  pickture version|-v|--version                   Show version")
	fmt.Fprintln(w, "  pickture ui [<image>]                           Launch desktop UI (build with -tags fyne for full UI)")
	fmt.Fprintln(w, "  pickture show [--json] <image>                  Print the frames stored for <image>")
	fmt.Fprintln(w, "  pickture add <image> <x> <y> <w> <h>            Add a frame and save")
	fmt.Fprintln(w, "  pickture place <image> <cx> <cy>                Add a default-sized frame centred on a point")
	fmt.Fprintln(w, "  pickture rm <image> <id>                        Remove a frame and save")
	fmt.Fprintln(w, "  pickture export <image> <id> [format] [out]     Crop a frame to a file")
	fmt.Fprintln(w, "  pickture overlay <image> <out.png>              Render the image with frame outlines")
	fmt.Fprintln(w, "  pickture next|prev <image>                      Print the neighbouring image")
	fmt.Fprintln(w, "  pickture index <dir>                            Rebuild the frame catalog of <dir>")
	fmt.Fprintln(w, "  pickture list <dir> [prefix]                    List catalogued images")
	fmt.Fprintln(w, "  pickture config                                 Print the effective configuration")
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// cli carries what every command needs.
type cli struct {
	ctx      context.Context
	cfg      config.AppConfig
	password string
	opt      session.Options
	out      io.Writer
	l        *slog.Logger
}

func run(args []string, stdout, stderr io.Writer) int {
	cfg, password, err := config.Load()
	if err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return 1
	}
	applog.Init(cfg.Logging.LogOptions())
	c := &cli{
		ctx:      context.Background(),
		cfg:      cfg,
		password: password,
		opt:      session.OptionsFromConfig(cfg),
		out:      stdout,
		l:        applog.WithComponent("cli"),
	}
	c.l.Debug("start", slog.Int("args", len(args)))

	if len(args) == 0 {
		usage(stdout)
		return 0
	}
	cmd, rest := args[0], args[1:]
	var cmdErr error
	switch cmd {
	case "version", "--version", "-v":
		fmt.Fprintln(stdout, "Pickture")
		fmt.Fprintln(stdout, version.String())
		return 0
	case "help", "-h", "--help":
		usage(stdout)
		return 0
	case "ui":
		var img string
		if len(rest) > 0 {
			img = rest[0]
		}
		cmdErr = c.ui(img)
	case "show":
		cmdErr = c.show(rest)
	case "add":
		cmdErr = c.add(rest)
	case "place":
		cmdErr = c.place(rest)
	case "rm":
		cmdErr = c.rm(rest)
	case "export":
		cmdErr = c.export(rest)
	case "overlay":
		cmdErr = c.overlay(rest)
	case "next", "prev":
		cmdErr = c.navigate(cmd, rest)
	case "index":
		cmdErr = c.index(rest)
	case "list":
		cmdErr = c.list(rest)
	case "config":
		cmdErr = c.printConfig()
	default:
		if len(args) == 1 {
			cmdErr = c.ui(cmd)
			break
		}
		fmt.Fprintf(stderr, "unknown command %q\n", cmd)
		usage(stderr)
		return 2
	}
	if cmdErr != nil {
		var ue usageError
		if errors.As(cmdErr, &ue) {
			fmt.Fprintln(stderr, ue.msg)
			usage(stderr)
			return 2
		}
		c.l.Error("command failed", slog.String("cmd", cmd), slog.Any("err", cmdErr))
		fmt.Fprintln(stderr, "Error:", cmdErr)
		return 1
	}
	return 0
}

type usageError struct{ msg string }

func (e usageError) Error() string { return e.msg }

func need(args []string, n int, msg string) error {
	if len(args) < n {
		return usageError{msg: msg}
	}
	return nil
}

func atoi(name, s string) (int, error) {
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, usageError{msg: fmt.Sprintf("%s must be an integer, got %q", name, s)}
	}
	return v, nil
}

func (c *cli) ui(img string) error {
	if img != "" {
		if err := c.attachCatalog(filepath.Dir(img)); err != nil {
			return err
		}
	}
	return ui.Run(img, c.opt)
}

// openCatalog opens the catalog configured for images under dir.
func (c *cli) openCatalog(dir string) (*catalog.Catalog, error) {
	opt := catalog.Options{
		Driver:   c.cfg.Catalog.Driver,
		Path:     c.cfg.Catalog.Path,
		DSN:      c.cfg.Catalog.DSN,
		Password: c.password,
	}
	if opt.Driver == "" {
		opt.Driver = catalog.DriverSQLite
	}
	if opt.Driver == catalog.DriverSQLite && opt.Path == "" {
		abs, err := filepath.Abs(dir)
		if err != nil {
			return nil, err
		}
		opt.Path = catalog.DefaultPath(abs)
	}
	return catalog.Open(c.ctx, opt)
}

// attachCatalog wires the catalog into the session options when it is enabled.
func (c *cli) attachCatalog(dir string) error {
	if !c.cfg.Catalog.Enabled {
		return nil
	}
	cat, err := c.openCatalog(dir)
	if err != nil {
		return fmt.Errorf("open catalog: %w", err)
	}
	c.opt.Catalog = cat
	return nil
}

// withSession opens img in a controller, runs fn and closes it, persisting changes.
func (c *cli) withSession(img string, fn func(*session.Controller) error) (err error) {
	if err := c.attachCatalog(filepath.Dir(img)); err != nil {
		return err
	}
	if cat, ok := c.opt.Catalog.(*catalog.Catalog); ok {
		defer cat.Close()
	}
	ctrl := session.New(c.opt)
	defer crash.Recover(ctrl)
	if err := ctrl.Open(img); err != nil {
		return err
	}
	defer func() {
		if cerr := ctrl.Close(); err == nil {
			err = cerr
		}
	}()
	if lerr := ctrl.LoadError(); lerr != nil {
		fmt.Fprintln(c.out, "Warning: frames could not be loaded:", lerr)
	}
	return fn(ctrl)
}

func (c *cli) show(args []string) error {
	asJSON := false
	if len(args) > 0 && args[0] == "--json" {
		asJSON = true
		args = args[1:]
	}
	if err := need(args, 1, "show requires <image>"); err != nil {
		return err
	}
	img, err := storage.NormalizeImagePath(args[0])
	if err != nil {
		return err
	}
	doc, err := storage.Load(storage.SidecarPath(img))
	if err != nil {
		return err
	}
	if doc == nil {
		doc = &domain.Document{OriginFilename: filepath.Base(img)}
	}
	if doc.Frames == nil {
		doc.Frames = []domain.FrameItem{}
	}
	if asJSON {
		enc := json.NewEncoder(c.out)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	}
	fmt.Fprintf(c.out, "Image: %s (%dx%d)\n", img, doc.OriginWidth, doc.OriginHeight)
	fmt.Fprintf(c.out, "Frames: %d\n", len(doc.Frames))
	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tX\tY\tWIDTH\tHEIGHT")
	for _, f := range domain.SortedFrames(doc.Frames) {
		fmt.Fprintf(tw, "%d\t%d\t%d\t%d\t%d\n", f.ID, f.X, f.Y, f.Width, f.Height)
	}
	return tw.Flush()
}

func (c *cli) add(args []string) error {
	if err := need(args, 5, "add requires <image> <x> <y> <w> <h>"); err != nil {
		return err
	}
	var v [4]int
	for i, name := range []string{"x", "y", "w", "h"} {
		n, err := atoi(name, args[i+1])
		if err != nil {
			return err
		}
		v[i] = n
	}
	return c.withSession(args[0], func(ctrl *session.Controller) error {
		it, err := ctrl.AddFrame(v[0], v[1], v[2], v[3])
		if err != nil {
			return err
		}
		fmt.Fprintf(c.out, "Added frame %d\n", it.ID)
		return nil
	})
}

func (c *cli) place(args []string) error {
	if err := need(args, 3, "place requires <image> <cx> <cy>"); err != nil {
		return err
	}
	cx, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return usageError{msg: fmt.Sprintf("cx must be a number, got %q", args[1])}
	}
	cy, err := strconv.ParseFloat(args[2], 64)
	if err != nil {
		return usageError{msg: fmt.Sprintf("cy must be a number, got %q", args[2])}
	}
	return c.withSession(args[0], func(ctrl *session.Controller) error {
		it, err := ctrl.PlaceFrame(cx, cy)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.out, "Added frame %d at %d,%d (%dx%d)\n", it.ID, it.X, it.Y, it.Width, it.Height)
		return nil
	})
}

func (c *cli) rm(args []string) error {
	if err := need(args, 2, "rm requires <image> <id>"); err != nil {
		return err
	}
	id, err := atoi("id", args[1])
	if err != nil {
		return err
	}
	return c.withSession(args[0], func(ctrl *session.Controller) error {
		if _, err := ctrl.Dispatch(session.FrameEvent{ID: id, Action: session.ActionRemove}); err != nil {
			return err
		}
		fmt.Fprintf(c.out, "Removed frame %d\n", id)
		return nil
	})
}

func (c *cli) export(args []string) error {
	if err := need(args, 2, "export requires <image> <id> [format] [out]"); err != nil {
		return err
	}
	id, err := atoi("id", args[1])
	if err != nil {
		return err
	}
	ev := session.FrameEvent{ID: id, Action: session.ActionExportFile}
	if len(args) > 2 {
		f, err := export.ParseFormat(args[2])
		if err != nil {
			return usageError{msg: err.Error()}
		}
		ev.Format = f
	}
	if len(args) > 3 {
		ev.OutPath = args[3]
	}
	return c.withSession(args[0], func(ctrl *session.Controller) error {
		p, err := ctrl.Dispatch(ev)
		if err != nil {
			return err
		}
		fmt.Fprintln(c.out, p)
		return nil
	})
}

func (c *cli) overlay(args []string) error {
	if err := need(args, 2, "overlay requires <image> <out.png>"); err != nil {
		return err
	}
	img, err := storage.NormalizeImagePath(args[0])
	if err != nil {
		return err
	}
	pic, err := picture.Open(img)
	if err != nil {
		return err
	}
	doc, err := storage.Load(storage.SidecarPath(img))
	if err != nil {
		return err
	}
	var items []domain.FrameItem
	if doc != nil {
		items = doc.Frames
	}
	out := export.RenderOverlay(pic.Image, items, export.OverlayColor, 0)
	data, _, err := export.Encode(out, export.FormatPNG, export.DefaultOptions())
	if err != nil {
		return err
	}
	if err := os.WriteFile(args[1], data, 0o644); err != nil {
		return err
	}
	fmt.Fprintln(c.out, args[1])
	return nil
}

func (c *cli) navigate(cmd string, args []string) error {
	if err := need(args, 1, cmd+" requires <image>"); err != nil {
		return err
	}
	d := session.Right
	if cmd == "prev" {
		d = session.Left
	}
	return c.withSession(args[0], func(ctrl *session.Controller) error {
		if err := ctrl.Navigate(d); err != nil {
			return err
		}
		fmt.Fprintln(c.out, ctrl.ImagePath())
		return nil
	})
}

func (c *cli) index(args []string) error {
	if err := need(args, 1, "index requires <dir>"); err != nil {
		return err
	}
	cat, err := c.openCatalog(args[0])
	if err != nil {
		return err
	}
	defer cat.Close()
	n, err := cat.Rebuild(c.ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Indexed %d images\n", n)
	return nil
}

func (c *cli) list(args []string) error {
	if err := need(args, 1, "list requires <dir> [prefix]"); err != nil {
		return err
	}
	cat, err := c.openCatalog(args[0])
	if err != nil {
		return err
	}
	defer cat.Close()
	prefix := args[0]
	if len(args) > 1 {
		prefix = args[1]
	}
	if prefix, err = filepath.Abs(prefix); err != nil {
		return err
	}
	entries, err := cat.List(c.ctx, prefix)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FRAMES\tSIZE\tPATH")
	for _, e := range entries {
		fmt.Fprintf(tw, "%d\t%dx%d\t%s\n", e.FrameCount, e.OriginWidth, e.OriginHeight, e.Path)
	}
	return tw.Flush()
}

func (c *cli) printConfig() error {
	b, err := yaml.Marshal(c.cfg)
	if err != nil {
		return err
	}
	_, err = c.out.Write(b)
	return err
}
