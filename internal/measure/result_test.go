package measure

import (
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode_OnlyArea(t *testing.T) {
	r, err := Decode([]byte(`{"estimated_area_in_input_units": "42.5"}`))
	require.NoError(t, err)

	assert.Equal(t, "42.5", r.Area)
	assert.Equal(t, "", r.Unit)
	assert.Equal(t, "N/A", r.OCRText)
	assert.NotNil(t, r.Numbers)
	assert.Empty(t, r.Numbers)
	assert.Nil(t, r.ContourAreaPixels)
	assert.Equal(t, "No specific notes from server.", r.Notes)
	assert.Nil(t, r.ContoursCount)
	assert.Equal(t, "N/A", r.Scale)
}

func TestDecode_FullResponse(t *testing.T) {
	body := `{
		"message": "Image processed",
		"filename": "shape.jpg",
		"input_unit": "cm",
		"ocr_output": "10 cm\n5",
		"extracted_numbers_from_ocr": [10.0, 5],
		"detected_contours_count": 3,
		"largest_contour_area_pixels": 2500.0,
		"estimated_area_in_input_units": "100.00",
		"scale_used_for_estimation": "10.0 cm / 50.00 pixels (estimated scale)",
		"calculation_notes": "Highly approximate area."
	}`
	r, err := Decode([]byte(body))
	require.NoError(t, err)

	assert.Equal(t, "100.00", r.Area)
	assert.Equal(t, "cm", r.Unit)
	assert.Equal(t, "10 cm\n5", r.OCRText)
	assert.Equal(t, []float64{10, 5}, r.Numbers)
	require.NotNil(t, r.ContourAreaPixels)
	assert.Equal(t, 2500.0, *r.ContourAreaPixels)
	assert.Equal(t, "Highly approximate area.", r.Notes)
	require.NotNil(t, r.ContoursCount)
	assert.Equal(t, 3, *r.ContoursCount)
	assert.Equal(t, "10.0 cm / 50.00 pixels (estimated scale)", r.Scale)
	assert.Equal(t, "shape.jpg", r.FileName)
	assert.Equal(t, "Image processed", r.ServerMessage)
}

func TestDecode_MistypedAndEmptyFieldsFallBack(t *testing.T) {
	body := `{
		"estimated_area_in_input_units": "",
		"input_unit": 7,
		"ocr_output": null,
		"extracted_numbers_from_ocr": [1, "two", null, 3.5],
		"largest_contour_area_pixels": 0,
		"detected_contours_count": null,
		"calculation_notes": ["not", "a", "string"]
	}`
	r, err := Decode([]byte(body))
	require.NoError(t, err)

	assert.Equal(t, FallbackArea, r.Area)
	assert.Equal(t, FallbackUnit, r.Unit)
	assert.Equal(t, FallbackOCR, r.OCRText)
	assert.Equal(t, []float64{1, 3.5}, r.Numbers)
	assert.Nil(t, r.ContourAreaPixels)
	assert.Nil(t, r.ContoursCount)
	assert.Equal(t, FallbackNotes, r.Notes)
}

func TestDecode_NumericArea(t *testing.T) {
	for body, want := range map[string]string{
		`{"estimated_area_in_input_units": 42.5}`: "42.5",
		`{"estimated_area_in_input_units": 12}`:   "12",
		`{"estimated_area_in_input_units": 1e3}`:  "1e3",
		`{"estimated_area_in_input_units": 0}`:    FallbackArea,
		`{"estimated_area_in_input_units": true}`: FallbackArea,
		`{"estimated_area_in_input_units": [1]}`:  FallbackArea,
		`{"estimated_area_in_input_units": null}`: FallbackArea,
	} {
		r, err := Decode([]byte(body))
		require.NoError(t, err, body)
		assert.Equal(t, want, r.Area, body)
	}
}

func TestDecode_NumbersNotAList(t *testing.T) {
	r, err := Decode([]byte(`{"extracted_numbers_from_ocr": "1, 2"}`))
	require.NoError(t, err)
	assert.Equal(t, []float64{}, r.Numbers)
}

func TestDecode_ContractViolations(t *testing.T) {
	for name, body := range map[string]string{
		"empty":      "",
		"whitespace": "  \n",
		"null":       "null",
		"string":     `"ok"`,
		"array":      `[1,2]`,
		"html":       "<html>Backend server is running!</html>",
	} {
		t.Run(name, func(t *testing.T) {
			r, err := Decode([]byte(body))
			assert.Nil(t, r)
			require.Error(t, err)
			assert.Equal(t, KindContract, KindOf(err))
			assert.Equal(t, MsgEmptyResponse, UserMessage(err))
		})
	}
}

func TestDecodeServerError(t *testing.T) {
	assert.Equal(t, "Invalid unit", decodeServerError([]byte(`{"error": "Invalid unit"}`)))
	assert.Equal(t, "", decodeServerError([]byte(`{"detail": "nope"}`)))
	assert.Equal(t, "", decodeServerError([]byte(`{"error": 42}`)))
	assert.Equal(t, "", decodeServerError([]byte(`Internal Server Error`)))
	assert.Equal(t, "", decodeServerError(nil))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abc...", truncate("abcdef", 3))

	// "é" is two bytes; cutting inside it backs off to the rune start.
	out := truncate("aé-tail", 2)
	assert.Equal(t, "a...", out)
	assert.True(t, utf8.ValidString(out))
	assert.Equal(t, "aé...", truncate("aé-tail", 3))
}
