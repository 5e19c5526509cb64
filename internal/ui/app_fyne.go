//go:build fyne && cgo

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package ui

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"signstage/internal/asset"
	"signstage/internal/calibrate"
	"signstage/internal/compose"
	"signstage/internal/config"
	"signstage/internal/crash"
	"signstage/internal/gesture"
	"signstage/internal/layers"
	applog "signstage/internal/log"
	"signstage/internal/storage"
	"signstage/internal/telemetry"
	"signstage/internal/undo"
)

const (
	defaultStageW = 960
	defaultStageH = 720
)

// StageCanvas paints the composed stage and feeds pointer events into the
// gesture recognizer. Calibration taps bypass the recognizer.
type StageCanvas struct {
	widget.BaseWidget

	stage compose.Stage
	store *layers.Store
	rec   *gesture.Recognizer
	cal   *calibrate.Engine

	raster *canvas.Raster
	epoch  time.Time

	calibrating bool
	lastSample  gesture.PointerSample

	// OnChanged fires after any pointer interaction that may have mutated
	// layer state; the host uses it to refresh and push undo snapshots.
	OnChanged   func()
	OnCalPoint  func()
	OnLayerPick func(id string)
}

func NewStageCanvas(store *layers.Store, rec *gesture.Recognizer, cal *calibrate.Engine) *StageCanvas {
	c := &StageCanvas{
		store: store,
		rec:   rec,
		cal:   cal,
		epoch: time.Now(),
	}
	c.stage = compose.Stage{Width: defaultStageW, Height: defaultStageH}
	c.raster = canvas.NewRaster(c.draw)
	c.ExtendBaseWidget(c)
	return c
}

func (c *StageCanvas) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(c.raster)
}

func (c *StageCanvas) MinSize() fyne.Size {
	return fyne.NewSize(480, 360)
}

// SetBackground swaps the photo and resizes the stage to match it.
func (c *StageCanvas) SetBackground(img image.Image) {
	c.stage.Background = img
	if img != nil {
		b := img.Bounds()
		c.stage.Width = b.Dx()
		c.stage.Height = b.Dy()
	}
	c.Refresh()
}

func (c *StageCanvas) Stage() compose.Stage {
	if ppmm, ok := c.cal.Ratio(); ok {
		c.stage.PixelsPerMM = ppmm
		c.stage.Calibrated = true
	} else {
		c.stage.PixelsPerMM = 0
		c.stage.Calibrated = false
	}
	return c.stage
}

func (c *StageCanvas) SetCalibrating(on bool) { c.calibrating = on }

func (c *StageCanvas) draw(w, h int) image.Image {
	st := c.Stage()
	img, _ := compose.Render(st, c.store.All(), 1)
	return img
}

// toStage maps a widget-local event position to stage pixel coordinates.
func (c *StageCanvas) toStage(pos fyne.Position) (float64, float64) {
	sz := c.Size()
	if sz.Width <= 0 || sz.Height <= 0 {
		return float64(pos.X), float64(pos.Y)
	}
	sx := float64(c.stage.Width) / float64(sz.Width)
	sy := float64(c.stage.Height) / float64(sz.Height)
	return float64(pos.X) * sx, float64(pos.Y) * sy
}

func (c *StageCanvas) sample(pos fyne.Position) gesture.PointerSample {
	x, y := c.toStage(pos)
	return gesture.PointerSample{ID: 0, X: x, Y: y, TimestampMs: time.Since(c.epoch).Milliseconds()}
}

func (c *StageCanvas) MouseDown(e *desktop.MouseEvent) {
	if c.calibrating {
		x, y := c.toStage(e.Position)
		c.cal.AddPoint(x, y)
		if c.OnCalPoint != nil {
			c.OnCalPoint()
		}
		c.Refresh()
		return
	}
	s := c.sample(e.Position)
	c.lastSample = s
	c.rec.PointerDown(s)
	if l, ok := c.store.Active(); ok && c.OnLayerPick != nil {
		c.OnLayerPick(l.ID)
	}
	c.Refresh()
}

func (c *StageCanvas) MouseUp(e *desktop.MouseEvent) {
	if c.calibrating {
		return
	}
	s := c.sample(e.Position)
	c.rec.PointerUp(s)
	if c.OnChanged != nil {
		c.OnChanged()
	}
	c.Refresh()
}

func (c *StageCanvas) Dragged(e *fyne.DragEvent) {
	if c.calibrating {
		return
	}
	s := c.sample(e.Position)
	c.lastSample = s
	c.rec.PointerMove(s)
	c.Refresh()
}

func (c *StageCanvas) DragEnd() {
	if c.calibrating {
		return
	}
	c.rec.PointerUp(c.lastSample)
	if c.OnChanged != nil {
		c.OnChanged()
	}
	c.Refresh()
}

// Run starts the desktop stage host. projectDir may be empty for a blank stage.
func Run(projectDir string) error {
	applog.Init(applog.FromEnv())
	cfg, cfgErr := config.Load()
	if cfgErr != nil {
		cfg = config.Defaults()
	}
	applog.Init(cfg.Logging.LogOptions())
	l := applog.WithComponent("ui")
	if cfgErr != nil {
		l.Warn("config load failed, using defaults", slog.Any("err", cfgErr))
	}
	l.Info("starting UI")

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

	mode := layers.Multi
	if strings.EqualFold(cfg.Stage.LayerMode, "simple") {
		mode = layers.Simple
	}
	store := layers.NewStore(mode)
	cal := calibrate.New()
	rec := gesture.NewRecognizer(store, cal, gesture.Options{
		GridSnap:        cfg.Stage.GridCell > 0,
		GridCell:        cfg.Stage.GridCell,
		PrecisionFactor: cfg.Stage.PrecisionFactor,
		FrameIntervalMs: int64(cfg.Stage.FrameIntervalMs),
	})
	controls := gesture.NewControls(store, cal)
	history := undo.NewHistory(undo.Config{}, cal, store)

	fyneApp := app.NewWithID("signstage")
	w := fyneApp.NewWindow("SignStage")
	prefs := fyneApp.Preferences()
	winW := prefs.IntWithFallback("window.width", 1100)
	winH := prefs.IntWithFallback("window.height", 780)
	if winW < 700 {
		winW = 700
	}
	if winH < 500 {
		winH = 500
	}
	w.Resize(fyne.NewSize(float32(winW), float32(winH)))

	status := widget.NewLabel("Ready")
	setStatus := func(format string, args ...any) {
		status.SetText(fmt.Sprintf(format, args...))
	}

	stageCanvas := NewStageCanvas(store, rec, cal)

	refreshCalStatus := func() {
		if ppmm, ok := cal.Ratio(); ok {
			setStatus("Calibrated: %.3f px/mm", ppmm)
		} else {
			setStatus("Uncalibrated (1:1 pixel fallback), points: %d", len(cal.Points()))
		}
	}

	snapshotIntoProject := func() {
		if ph == nil {
			return
		}
		ph.Project.Calibration = cal.Snapshot()
		ph.Project.Layers = store.Snapshot()
	}

	capture := func() {
		if err := history.Capture(); err != nil {
			l.Warn("undo capture failed", slog.Any("err", err))
		}
	}

	stageCanvas.OnChanged = capture
	stageCanvas.OnCalPoint = refreshCalStatus
	stageCanvas.OnLayerPick = func(id string) {
		if lay, ok := store.Get(id); ok {
			setStatus("Selected: %s", lay.Name)
		}
	}

	// Open the project passed on the command line, if any.
	if strings.TrimSpace(projectDir) != "" {
		h, err := storage.Open(projectDir)
		if err != nil {
			return fmt.Errorf("open project %s: %w", projectDir, err)
		}
		ph = h
		if bs, berr := storage.OpenSQLiteStore(ph.Root); berr == nil {
			blobs = bs
		} else {
			l.Warn("project store unavailable", slog.Any("err", berr))
		}
		cal.Restore(ph.Project.Calibration)
		store.Restore(ph.Project.Layers)
		if ph.Project.Background != "" {
			p := ph.Project.Background
			if !filepath.IsAbs(p) {
				p = filepath.Join(ph.Root, p)
			}
			if img, err := loadImage(p); err != nil {
				l.Warn("background load failed", slog.String("path", p), slog.Any("err", err))
			} else {
				stageCanvas.SetBackground(img)
			}
		}
		capture()
		setStatus("Opened %s", ph.Root)
	} else {
		capture()
	}

	afterControl := func() {
		capture()
		stageCanvas.Refresh()
	}

	// Shape library picker.
	addShape := func() {
		names := asset.LibraryNames()
		sel := widget.NewSelect(names, nil)
		sel.SetSelectedIndex(0)
		dialog.ShowCustomConfirm("Add Shape", "Add", "Cancel", sel, func(ok bool) {
			if !ok || sel.Selected == "" {
				return
			}
			g, found := asset.FromLibrary(sel.Selected)
			if !found {
				return
			}
			lay := store.AddGraphic(g)
			setStatus("Added %s", lay.Name)
			afterControl()
		}, w)
	}

	openBackground := func() {
		dialog.ShowFileOpen(func(rc fyne.URIReadCloser, err error) {
			if err != nil || rc == nil {
				return
			}
			defer rc.Close()
			img, _, derr := image.Decode(rc)
			if derr != nil {
				dialog.ShowError(fmt.Errorf("decode image: %w", derr), w)
				return
			}
			stageCanvas.SetBackground(img)
			if ph != nil {
				ph.Project.Background = rc.URI().Path()
			}
			setStatus("Background: %s", rc.URI().Name())
		}, w)
	}

	// Calibration controls.
	distEntry := widget.NewEntry()
	distEntry.SetPlaceHolder("distance mm")
	calCheck := widget.NewCheck("Calibrate", func(on bool) {
		stageCanvas.SetCalibrating(on)
		if on {
			setStatus("Tap two reference points, then enter their real distance")
		} else {
			refreshCalStatus()
		}
	})
	applyDist := widget.NewButton("Apply", func() {
		mm, err := strconv.ParseFloat(strings.TrimSpace(distEntry.Text), 64)
		if err != nil || mm <= 0 {
			dialog.ShowError(fmt.Errorf("enter a positive distance in millimetres"), w)
			return
		}
		cal.SetReferenceDistance(mm)
		capture()
		refreshCalStatus()
		stageCanvas.Refresh()
	})
	resetCal := widget.NewButton("Reset", func() {
		cal.Reset()
		capture()
		refreshCalStatus()
		stageCanvas.Refresh()
	})

	doUndo := func() {
		ok, err := history.Undo()
		if err != nil {
			l.Warn("undo failed", slog.Any("err", err))
			return
		}
		if ok {
			setStatus("Undone")
			stageCanvas.Refresh()
		}
	}
	doRedo := func() {
		ok, err := history.Redo()
		if err != nil {
			l.Warn("redo failed", slog.Any("err", err))
			return
		}
		if ok {
			setStatus("Redone")
			stageCanvas.Refresh()
		}
	}

	saveProject := func() {
		if ph == nil {
			dialog.ShowInformation("Save", "No project open. Start with: signstage init <dir>", w)
			return
		}
		snapshotIntoProject()
		if err := storage.Save(ph); err != nil {
			dialog.ShowError(err, w)
			return
		}
		tc.Event("project_saved", nil)
		setStatus("Saved %s", ph.ManifestPath)
	}

	exportAs := func(format string) {
		dialog.ShowFileSave(func(wc fyne.URIWriteCloser, err error) {
			if err != nil || wc == nil {
				return
			}
			path := wc.URI().Path()
			_ = wc.Close()

			preset, perr := compose.ParsePreset(cfg.Export.Preset)
			if perr != nil {
				preset = compose.PresetScreen
			}
			st := stageCanvas.Stage()
			if back, cerr := compose.ParseHexColor(cfg.Export.BackColor); cerr == nil {
				st.BackColor = back
			}
			img, warns := compose.Render(st, store.All(), preset.Factor())
			for _, warn := range warns {
				l.Warn("layer skipped during export",
					slog.String("layer", warn.LayerName), slog.Any("err", warn.Err))
			}
			var xerr error
			switch format {
			case "pdf":
				xerr = compose.ExportPDF(path, img, st.PixelsPerMM, st.Calibrated)
			default:
				xerr = compose.ExportPNG(path, img)
			}
			if xerr != nil {
				dialog.ShowError(xerr, w)
				return
			}
			if blobs != nil {
				var buf bytes.Buffer
				if werr := compose.WritePNG(&buf, img); werr == nil {
					if perr := blobs.Put("exports/last-composite.png", buf.Bytes()); perr != nil {
						l.Warn("composite cache not updated", slog.Any("err", perr))
					}
				}
			}
			tc.Event("export_done", map[string]any{"format": format, "preset": string(preset)})
			setStatus("Exported %s", path)
		}, w)
	}

	precisionCheck := widget.NewCheck("Precision", func(on bool) {
		rec.SetPrecision(on)
	})

	controlsBar := container.NewHBox(
		widget.NewButton("Add Shape", addShape),
		widget.NewButton("Photo", openBackground),
		widget.NewSeparator(),
		widget.NewButton("⟲ 30°", func() { controls.Rotate(-1); afterControl() }),
		widget.NewButton("⟳ 30°", func() { controls.Rotate(1); afterControl() }),
		widget.NewButton("←", func() { controls.Nudge(gesture.Left); afterControl() }),
		widget.NewButton("→", func() { controls.Nudge(gesture.Right); afterControl() }),
		widget.NewButton("↑", func() { controls.Nudge(gesture.Up); afterControl() }),
		widget.NewButton("↓", func() { controls.Nudge(gesture.Down); afterControl() }),
		widget.NewButton("+10mm", func() { controls.Resize(1); afterControl() }),
		widget.NewButton("-10mm", func() { controls.Resize(-1); afterControl() }),
		widget.NewSeparator(),
		precisionCheck,
	)

	calBar := container.NewHBox(
		calCheck, distEntry, applyDist, resetCal,
		widget.NewSeparator(),
		widget.NewButton("Undo", doUndo),
		widget.NewButton("Redo", doRedo),
		widget.NewButton("Save", saveProject),
		widget.NewButton("PNG", func() { exportAs("png") }),
		widget.NewButton("PDF", func() { exportAs("pdf") }),
	)

	root := container.NewBorder(
		container.NewVBox(controlsBar, calBar), // top
		status,                                 // bottom
		nil, nil,
		stageCanvas,
	)
	w.SetContent(root)

	// Keyboard shortcuts mirror the discrete on-screen controls.
	w.Canvas().SetOnTypedKey(func(e *fyne.KeyEvent) {
		switch e.Name {
		case fyne.KeyLeft:
			controls.Nudge(gesture.Left)
		case fyne.KeyRight:
			controls.Nudge(gesture.Right)
		case fyne.KeyUp:
			controls.Nudge(gesture.Up)
		case fyne.KeyDown:
			controls.Nudge(gesture.Down)
		case fyne.KeyR:
			controls.Rotate(1)
		case fyne.KeyEqual:
			controls.Resize(1)
		case fyne.KeyMinus:
			controls.Resize(-1)
		case fyne.KeyDelete, fyne.KeyBackspace:
			if lay, ok := store.Active(); ok && !lay.Locked {
				store.Remove(lay.ID)
			}
		default:
			return
		}
		afterControl()
	})

	w.SetOnClosed(func() {
		sz := w.Canvas().Size()
		prefs.SetInt("window.width", int(sz.Width))
		prefs.SetInt("window.height", int(sz.Height))
		l.Info("UI closed")
	})

	tc.Event("ui_started", map[string]any{"mode": cfg.Stage.LayerMode})
	refreshCalStatus()
	w.ShowAndRun()
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
