/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package compose

import (
	"bytes"
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/jung-kurt/gofpdf"
)

// screenDPI converts pixel dimensions to physical size when no calibration
// ratio is available.
const screenDPI = 96.0

// ExportPDF writes the composite as a single-page PDF sized to the stage's
// physical dimensions. With a calibration ratio the page is pixels/ratio
// millimetres; without one the pixel size is mapped at 96 dpi.
func ExportPDF(path string, img image.Image, ppmm float64, calibrated bool) error {
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return fmt.Errorf("empty composite")
	}

	var wMM, hMM float64
	if calibrated && ppmm > 0 {
		wMM = float64(b.Dx()) / ppmm
		hMM = float64(b.Dy()) / ppmm
	} else {
		wMM = float64(b.Dx()) / screenDPI * 25.4
		hMM = float64(b.Dy()) / screenDPI * 25.4
	}

	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr:        "mm",
		Size:           gofpdf.SizeType{Wd: wMM, Ht: hMM},
		OrientationStr: "",
	})
	pdf.SetTitle("SignStage composite", false)
	pdf.SetAuthor("SignStage", false)
	pdf.AddPageFormat("", gofpdf.SizeType{Wd: wMM, Ht: hMM})

	var buf bytes.Buffer
	if err := WritePNG(&buf, img); err != nil {
		return err
	}
	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("composite", opts, &buf)
	pdf.ImageOptions("composite", 0, 0, wMM, hMM, false, opts, 0, "")

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure out dir: %w", err)
	}
	if err := pdf.OutputFileAndClose(path); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}
