package imageproc

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"strings"

	"github.com/chai2010/webp"

	_ "image/png"

	_ "golang.org/x/image/webp"
)

// MinTranscodeBytes is the smallest payload worth transcoding. Anything
// shorter is passed through untouched.
const MinTranscodeBytes = 1000

// maxGrowthNumerator/Denominator cap the transcoded size at 110% of the
// original before the processor falls back to the source bytes.
const (
	maxGrowthNumerator   = 110
	maxGrowthDenominator = 100
)

// Result carries the (possibly transcoded) artifact bytes. Note is advisory:
// it explains a skipped or abandoned transcode and never represents a
// failure of the job itself.
type Result struct {
	Data        []byte
	ContentType string
	Note        string
}

// Processor re-encodes image artifacts to reduce transfer size.
type Processor struct {
	format  string
	quality int
}

// NewProcessor builds a processor for the given target format and quality.
// Unknown formats fall back to JPEG and the quality is clamped into [1, 100].
func NewProcessor(format string, quality int) *Processor {
	normalized := strings.ToUpper(strings.TrimSpace(format))
	switch normalized {
	case "JPEG", "JPG":
		normalized = "JPEG"
	case "WEBP":
	default:
		normalized = "JPEG"
	}
	if quality < 1 {
		quality = 1
	}
	if quality > 100 {
		quality = 100
	}
	return &Processor{format: normalized, quality: quality}
}

// Format returns the normalized target format.
func (p *Processor) Format() string { return p.format }

// Quality returns the clamped target quality.
func (p *Processor) Quality() int { return p.quality }

// Process transcodes data to the target format. It never fails: every decode
// or encode problem degrades to returning the original bytes with a note.
func (p *Processor) Process(data []byte, contentType string) Result {
	passthrough := Result{Data: data, ContentType: contentType}
	if len(data) < MinTranscodeBytes {
		passthrough.Note = "payload below transcode threshold, passing through"
		return passthrough
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		passthrough.Note = fmt.Sprintf("decode failed, passing through: %v", err)
		return passthrough
	}

	var (
		encoded     []byte
		encodedType string
	)
	switch p.format {
	case "WEBP":
		encoded, err = encodeWEBP(img, p.quality)
		encodedType = "image/webp"
	default:
		encoded, err = encodeJPEG(img, p.quality)
		encodedType = "image/jpeg"
	}
	if err != nil {
		passthrough.Note = fmt.Sprintf("encode failed, passing through: %v", err)
		return passthrough
	}
	if len(encoded) == 0 {
		passthrough.Note = "transcode produced empty payload, passing through"
		return passthrough
	}
	if len(encoded)*maxGrowthDenominator > len(data)*maxGrowthNumerator {
		passthrough.Note = "transcoded payload larger than original, keeping original"
		return passthrough
	}

	return Result{Data: encoded, ContentType: encodedType}
}

// encodeJPEG flattens any transparency onto an opaque white background, since
// JPEG cannot represent an alpha channel.
func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	if hasAlpha(img) {
		bounds := img.Bounds()
		flat := image.NewRGBA(bounds)
		draw.Draw(flat, bounds, image.NewUniform(color.White), image.Point{}, draw.Src)
		draw.Draw(flat, bounds, img, bounds.Min, draw.Over)
		img = flat
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// encodeWEBP keeps the alpha channel when present.
func encodeWEBP(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := webp.Encode(&buf, img, &webp.Options{Quality: float32(quality)}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func hasAlpha(img image.Image) bool {
	if opaquer, ok := img.(interface{ Opaque() bool }); ok {
		return !opaquer.Opaque()
	}
	return false
}
