/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"signstage/internal/calibrate"
	"signstage/internal/compose"
	"signstage/internal/config"
	"signstage/internal/crash"
	"signstage/internal/domain"
	"signstage/internal/layers"
	applog "signstage/internal/log"
	"signstage/internal/storage"
	"signstage/internal/telemetry"
	"signstage/internal/ui"
	"signstage/internal/version"
)

func usage() {
	fmt.Println("SignStage — sign mock-up stage")
	fmt.Printf("Version: %s\n", version.String())
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  signstage version|-v|--version              Show version")
	fmt.Println("  signstage init <dir> <name>                 Create a new project at <dir> with name <name>")
	fmt.Println("  signstage open <dir>                        Open project at <dir> and print summary")
	fmt.Println("  signstage save <dir>                        Save project at <dir> (creates backup)")
	fmt.Println("  signstage export <dir> <out> [preset]       Compose the project into <out> (.png or .pdf)")
	fmt.Println("                                              preset: screen (default), hidpi, print")
	fmt.Println("  signstage ui [<dir>]                        Launch desktop UI (build with -tags fyne for full UI)")
}

func main() {
	// bootstrap logging from env so config load failures are visible,
	// then re-init from the loaded config (which env still overrides)
	applog.Init(applog.FromEnv())
	cfg, cfgErr := config.Load()
	if cfgErr != nil {
		cfg = config.Defaults()
	}
	applog.Init(cfg.Logging.LogOptions())
	l := applog.WithComponent("cli")
	if cfgErr != nil {
		l.Warn("config load failed, using defaults", slog.Any("err", cfgErr))
	}

	tcfg := telemetry.FromEnv()
	tcfg.OptIn = tcfg.OptIn || cfg.General.TelemetryOptIn
	tc := telemetry.New(tcfg)
	defer tc.Close()

	var ph *storage.ProjectHandle
	var blobs storage.BlobStore
	defer func() {
		if blobs != nil {
			_ = blobs.Close()
		}
	}()
	defer func() { crash.Recover(ph, blobs, tc) }()

	// openBlobs attaches the project's embedded store once a project is open.
	openBlobs := func(root string) {
		bs, err := storage.OpenSQLiteStore(root)
		if err != nil {
			l.Warn("project store unavailable", slog.Any("err", err))
			return
		}
		blobs = bs
	}

	args := os.Args
	l.Debug("start", slog.Int("args", len(args)))
	if len(args) > 1 {
		switch args[1] {
		case "version", "--version", "-v":
			fmt.Println("SignStage — sign mock-up stage")
			fmt.Println(version.String())
			return
		case "init":
			if len(args) < 4 {
				fmt.Println("init requires <dir> and <name>")
				usage()
				os.Exit(2)
			}
			dir := args[2]
			name := args[3]
			abs, _ := filepath.Abs(dir)
			l.Info("init project", slog.String("root", abs), slog.String("name", name))
			p := domain.Project{Name: name}
			h, err := storage.InitProject(abs, p)
			if err != nil {
				l.Error("init failed", slog.Any("err", err))
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			ph = h
			openBlobs(h.Root)
			fmt.Println("Created project at", abs)
			return
		case "open":
			if len(args) < 3 {
				fmt.Println("open requires <dir>")
				usage()
				os.Exit(2)
			}
			abs, _ := filepath.Abs(args[2])
			l.Info("open project", slog.String("root", abs))
			h, err := storage.Open(abs)
			if err != nil {
				l.Error("open failed", slog.Any("err", err))
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			ph = h
			openBlobs(h.Root)
			fmt.Printf("Opened project: %s\n", h.Project.Name)
			fmt.Printf("Layers: %d\n", len(h.Project.Layers))
			if h.Project.Calibration.PixelsPerMM != nil {
				fmt.Printf("Calibration: %.3f px/mm\n", *h.Project.Calibration.PixelsPerMM)
			} else {
				fmt.Println("Calibration: none (1:1 pixel fallback)")
			}
			fmt.Println("Root:", h.Root)
			return
		case "save":
			if len(args) < 3 {
				fmt.Println("save requires <dir>")
				usage()
				os.Exit(2)
			}
			abs, _ := filepath.Abs(args[2])
			l.Info("save project", slog.String("root", abs))
			h, err := storage.Open(abs)
			if err != nil {
				l.Error("open before save failed", slog.Any("err", err))
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			ph = h
			openBlobs(h.Root)
			if err := storage.Save(h); err != nil {
				l.Error("save failed", slog.Any("err", err))
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			fmt.Println("Saved project and created a backup of previous manifest (if any).")
			return
		case "export":
			if len(args) < 4 {
				fmt.Println("export requires <dir> and <out>")
				usage()
				os.Exit(2)
			}
			abs, _ := filepath.Abs(args[2])
			out := args[3]
			presetName := ""
			if len(args) >= 5 {
				presetName = args[4]
			}
			if err := runExport(cfg, abs, out, presetName, &ph, &blobs, tc); err != nil {
				l.Error("export failed", slog.Any("err", err))
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			fmt.Println("Exported", out)
			return
		case "ui":
			var dir string
			if len(args) >= 3 {
				dir = args[2]
			}
			if err := ui.Run(dir); err != nil {
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			return
		}
	}

	usage()
}

// runExport composes a saved project into a PNG or PDF file. The output
// format follows the file extension. The rendered composite is also cached
// in the project's embedded store for quick re-use.
func runExport(cfg config.AppConfig, root, out, presetName string, ph **storage.ProjectHandle, blobs *storage.BlobStore, tc *telemetry.Client) error {
	if presetName == "" {
		presetName = cfg.Export.Preset
	}
	preset, err := compose.ParsePreset(presetName)
	if err != nil {
		return err
	}

	h, err := storage.Open(root)
	if err != nil {
		return fmt.Errorf("open project: %w", err)
	}
	*ph = h
	if bs, berr := storage.OpenSQLiteStore(h.Root); berr == nil {
		*blobs = bs
	}

	cal := calibrate.New()
	cal.Restore(h.Project.Calibration)
	store := layers.NewStore(layers.Multi)
	store.Restore(h.Project.Layers)

	st := compose.Stage{Width: 960, Height: 720}
	if back, berr := compose.ParseHexColor(cfg.Export.BackColor); berr == nil {
		st.BackColor = back
	}
	if ppmm, ok := cal.Ratio(); ok {
		st.PixelsPerMM = ppmm
		st.Calibrated = true
	}
	if h.Project.Background != "" {
		p := h.Project.Background
		if !filepath.IsAbs(p) {
			p = filepath.Join(h.Root, p)
		}
		img, lerr := loadImage(p)
		if lerr != nil {
			return fmt.Errorf("load background: %w", lerr)
		}
		st.Background = img
		b := img.Bounds()
		st.Width = b.Dx()
		st.Height = b.Dy()
	}

	img, warns := compose.Render(st, store.All(), preset.Factor())
	for _, w := range warns {
		fmt.Fprintf(os.Stderr, "warning: layer %s skipped: %v\n", w.LayerName, w.Err)
	}

	ext := strings.ToLower(filepath.Ext(out))
	switch ext {
	case ".pdf":
		err = compose.ExportPDF(out, img, st.PixelsPerMM, st.Calibrated)
	case ".png", "":
		err = compose.ExportPNG(out, img)
	default:
		return fmt.Errorf("unsupported export format %q (use .png or .pdf)", ext)
	}
	if err != nil {
		return err
	}
	if *blobs != nil {
		var buf bytes.Buffer
		if werr := compose.WritePNG(&buf, img); werr == nil {
			if perr := (*blobs).Put("exports/last-composite.png", buf.Bytes()); perr != nil {
				fmt.Fprintf(os.Stderr, "warning: composite cache not updated: %v\n", perr)
			}
		}
	}
	tc.Event("export_done", map[string]any{"format": strings.TrimPrefix(ext, "."), "preset": string(preset)})
	return nil
}

func loadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return img, nil
}
