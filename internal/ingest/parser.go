// Package ingest converts uploaded KML/KMZ blobs into layer groups.
// Large feature lists are processed in fixed-size batches with a
// cancellation check at every batch boundary and phase start, so a
// pathological file can be abandoned mid-parse without committing
// partial output.
package ingest

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/geoimport/backend/internal/geo"
	"github.com/geoimport/backend/internal/kml"
	"github.com/geoimport/backend/internal/models"
)

// MaxFileSize is the accepted upload limit. Larger files are rejected
// before parsing begins.
const MaxFileSize = 50 << 20 // 50 MiB

// DefaultBatchSize is the number of placemarks processed per batch.
const DefaultBatchSize = 64

// ProgressCallback reports placemark progress during parsing.
type ProgressCallback func(processed, total int)

// Parser orchestrates the two ingestion paths: plain .kml documents and
// .kmz archives holding one inner document.
type Parser struct {
	BatchSize int
	assembler *Assembler
}

// NewParser creates a parser feeding the given assembler.
func NewParser(assembler *Assembler) *Parser {
	return &Parser{
		BatchSize: DefaultBatchSize,
		assembler: assembler,
	}
}

// ValidateFile rejects unsupported extensions and oversized blobs with a
// *ValidationError. It is called before any parsing work starts.
func ValidateFile(fileName string, size int64) error {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".kml", ".kmz":
	default:
		return &ValidationError{FileName: fileName, Reason: "only .kml and .kmz files are supported"}
	}
	if size > MaxFileSize {
		return &ValidationError{
			FileName: fileName,
			Reason:   fmt.Sprintf("size %d exceeds limit of %d bytes", size, MaxFileSize),
		}
	}
	return nil
}

// ParseArchiveOrDocument converts one uploaded blob into a layer group.
// Parse failures and cancellation are returned as error values the caller
// inspects (*kml.ParseError, *kml.NoFeaturesError,
// *MissingInnerDocumentError, context.Canceled); nothing is committed on
// failure. onProgress may be nil.
func (p *Parser) ParseArchiveOrDocument(ctx context.Context, fileName string, data []byte, onProgress ProgressCallback) (*models.LayerGroup, error) {
	if err := ValidateFile(fileName, int64(len(data))); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if strings.EqualFold(filepath.Ext(fileName), ".kmz") {
		inner, err := extractInnerDocument(fileName, data)
		if err != nil {
			return nil, err
		}
		data = inner
	}

	return p.parseDocument(ctx, fileName, data, onProgress)
}

// extractInnerDocument pulls the first .kml entry out of a KMZ archive,
// preferring a root-level doc.kml when present.
func extractInnerDocument(fileName string, data []byte) ([]byte, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, &kml.ParseError{Cause: fmt.Errorf("opening archive: %w", err)}
	}

	var entry *zip.File
	for _, f := range reader.File {
		name := strings.ToLower(f.Name)
		if name == "doc.kml" {
			entry = f
			break
		}
		if strings.HasSuffix(name, ".kml") && entry == nil {
			entry = f
		}
	}
	if entry == nil {
		return nil, &MissingInnerDocumentError{Archive: fileName}
	}

	rc, err := entry.Open()
	if err != nil {
		return nil, &kml.ParseError{Cause: fmt.Errorf("opening archive entry %s: %w", entry.Name, err)}
	}
	defer rc.Close()

	inner, err := io.ReadAll(rc)
	if err != nil {
		return nil, &kml.ParseError{Cause: fmt.Errorf("reading archive entry %s: %w", entry.Name, err)}
	}
	return inner, nil
}

func (p *Parser) parseDocument(ctx context.Context, fileName string, data []byte, onProgress ProgressCallback) (*models.LayerGroup, error) {
	root, err := kml.Parse(data)
	if err != nil {
		return nil, err
	}

	placemarks := root.Placemarks()
	total := len(placemarks)

	batchSize := p.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	// Normalize in batches. The batch boundary is the cooperative
	// cancellation point; batch striding never changes the output.
	var features []models.GeometryFeature
	for start := 0; start < total; start += batchSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		end := start + batchSize
		if end > total {
			end = total
		}
		for _, pm := range placemarks[start:end] {
			features = append(features, kml.NormalizePlacemark(pm)...)
		}

		if onProgress != nil {
			onProgress(end, total)
		}
	}

	if len(features) == 0 {
		return nil, &kml.NoFeaturesError{Placemarks: total}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	grouped, order := GroupByType(features)
	layers := p.assembler.BuildLayers(grouped, order)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return p.assembler.BuildLayerGroup(fileName, layers), nil
}

// PadViewBounds expands a group's bounds for initial map framing.
func PadViewBounds(group *models.LayerGroup, fraction float64) *models.Bounds {
	return geo.Pad(group.Bounds, fraction)
}
