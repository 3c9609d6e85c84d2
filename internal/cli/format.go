package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fpang/area-calc/internal/measure"
	"github.com/fpang/area-calc/internal/session"
	"github.com/fpang/area-calc/internal/units"
	"github.com/lithammer/dedent"
)

// formatText dedents a multi-line template and applies fmt.Sprintf.
func formatText(text string, a ...interface{}) string {
	return fmt.Sprintf(strings.TrimSpace(dedent.Dedent(text)), a...)
}

// FormatNumber prints a float the shortest way that round-trips (10, 3.5).
func FormatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// FormatNumbers joins numbers with ", ".
func FormatNumbers(numbers []float64) string {
	parts := make([]string, 0, len(numbers))
	for _, n := range numbers {
		parts = append(parts, FormatNumber(n))
	}
	return strings.Join(parts, ", ")
}

// RenderResult formats a measurement result for the terminal.
func RenderResult(r *measure.Result) string {
	if r == nil {
		return ""
	}
	var b strings.Builder

	b.WriteString("Estimated Area: " + r.Area)
	if r.Unit != "" {
		b.WriteString(" (" + r.Unit + "²)")
	}
	b.WriteString("\n")
	if r.Notes != "" {
		b.WriteString(r.Notes + "\n")
	}

	b.WriteString("\nDetails:\n")
	if r.OCRText != "" {
		b.WriteString("  OCR Output: " + r.OCRText + "\n")
	}
	if len(r.Numbers) > 0 {
		b.WriteString("  Extracted Numbers: " + FormatNumbers(r.Numbers) + "\n")
	}
	if r.ContourAreaPixels != nil {
		b.WriteString("  Detected Contour Area: " + FormatNumber(*r.ContourAreaPixels) + " pixels²\n")
	}
	if r.ContoursCount != nil {
		b.WriteString("  Detected Contours: " + strconv.Itoa(*r.ContoursCount) + "\n")
	}
	if r.Scale != "" && r.Scale != measure.FallbackScale {
		b.WriteString("  Scale: " + r.Scale + "\n")
	}
	return b.String()
}

// RenderView formats the whole client state.
func RenderView(v session.View) string {
	image := "No image selected"
	if v.Image != nil {
		image = v.Image.FileName
		if image == "" {
			image = v.Image.Path
		}
		if v.ImageInfo != "" {
			image += " (" + v.ImageInfo + ")"
		}
	}
	unit := "not selected"
	if v.Unit.IsSet() {
		unit = v.Unit.String()
	}

	out := formatText(`
		Image: %s
		Unit:  %s
	`, image, unit) + "\n"

	if v.Message != "" {
		out += "\n" + v.Message + "\n"
	}
	if v.Result != nil {
		out += "\n" + RenderResult(v.Result)
	}
	return out
}

func helpText() string {
	return formatText(`
		Commands:
		  image [PATH]   pick a photo (native dialog when PATH is omitted)
		  unit [NAME]    set the unit: %s
		  calc           calculate the area
		  status         show the current selection and result
		  help           show this help
		  quit           exit
	`, strings.Join(units.Names(), ", ")) + "\n"
}
