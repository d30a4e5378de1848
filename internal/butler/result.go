package butler

import (
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// BBox locates a cutout within its parent image, in pixel coordinates.
type BBox struct {
	X0     int `json:"x0"`
	Y0     int `json:"y0"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// CatalogRow is one object record from a catalog query.
type CatalogRow struct {
	ObjectID int64              `json:"object_id"`
	RA       float64            `json:"ra"`
	Dec      float64            `json:"dec"`
	Fluxes   map[string]float64 `json:"fluxes,omitempty"`
}

// Result is a decoded fetch response. Image requests populate Pixels and
// Shape; catalog requests populate Rows. Raw preserves the wire payload so
// the cache can persist the response without re-encoding.
type Result struct {
	Request   Request
	Band      string
	Shape     []int
	Pixels    []float32
	BBox      *BBox
	Rows      []CatalogRow
	FetchedAt time.Time
	FromCache bool

	Raw json.RawMessage
}

// PixelCount returns the number of pixels an image result carries.
func (r *Result) PixelCount() int {
	return len(r.Pixels)
}

type imagePayload struct {
	Data  string `json:"data"`
	Shape []int  `json:"shape"`
	Band  string `json:"band"`
	BBox  *BBox  `json:"bbox"`
}

type catalogPayload struct {
	Rows []CatalogRow `json:"rows"`
}

// decodeResult turns a wire payload into a Result for the given request.
func decodeResult(req Request, body []byte) (*Result, error) {
	result := &Result{
		Request:   req,
		FetchedAt: time.Now().UTC(),
		Raw:       json.RawMessage(append([]byte(nil), body...)),
	}

	if req.Kind == KindObjectCatalog {
		var payload catalogPayload
		if err := json.Unmarshal(body, &payload); err != nil {
			return nil, fmt.Errorf("decode catalog payload: %w", err)
		}
		result.Band = req.Band
		result.Rows = payload.Rows
		return result, nil
	}

	var payload imagePayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode image payload: %w", err)
	}
	pixels, err := decodePixels(payload.Data, payload.Shape)
	if err != nil {
		return nil, err
	}
	result.Band = payload.Band
	if result.Band == "" {
		result.Band = req.Band
	}
	result.Shape = payload.Shape
	result.Pixels = pixels
	result.BBox = payload.BBox
	return result, nil
}

// decodePixels unpacks base64 little-endian float32 data and checks it
// against the declared shape.
func decodePixels(data string, shape []int) ([]float32, error) {
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("decode pixel data: %w", err)
	}
	if len(raw)%4 != 0 {
		return nil, fmt.Errorf("pixel data length %d is not a multiple of 4", len(raw))
	}
	count := len(raw) / 4

	if len(shape) > 0 {
		expected := 1
		for _, dim := range shape {
			if dim <= 0 {
				return nil, fmt.Errorf("invalid shape dimension %d", dim)
			}
			expected *= dim
		}
		if expected != count {
			return nil, fmt.Errorf("shape %v implies %d pixels, payload has %d", shape, expected, count)
		}
	}

	pixels := make([]float32, count)
	for i := range pixels {
		bits := binary.LittleEndian.Uint32(raw[i*4:])
		pixels[i] = math.Float32frombits(bits)
	}
	return pixels, nil
}
