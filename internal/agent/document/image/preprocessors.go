package image

import (
	"bytes"
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// Preprocessor transforms a page image before recognition.
type Preprocessor interface {
	Process(img image.Image) (image.Image, error)
}

// PreprocessConfig selects the stages of a Pipeline.
type PreprocessConfig struct {
	Denoise           bool    `yaml:"denoise"`
	DenoiseStrength   float64 `yaml:"denoiseStrength"`
	ContrastNormalize bool    `yaml:"contrastNormalize"`
	Contrast          float64 `yaml:"contrast"`
	Sharpen           bool    `yaml:"sharpen"`
	SharpenStrength   float64 `yaml:"sharpenStrength"`
	Binarize          bool    `yaml:"binarize"`
	AdaptiveBlockSize int     `yaml:"adaptiveBlockSize"`
	AdaptiveConstant  float64 `yaml:"adaptiveConstant"`
}

func DefaultPreprocessConfig() *PreprocessConfig {
	return &PreprocessConfig{
		Denoise:           true,
		DenoiseStrength:   0.5,
		ContrastNormalize: true,
		Contrast:          20,
		Sharpen:           true,
		SharpenStrength:   0.5,
		Binarize:          false,
		AdaptiveBlockSize: 11,
		AdaptiveConstant:  2,
	}
}

// Pipeline applies preprocessors in order.
type Pipeline []Preprocessor

// NewPipeline builds the stage list for cfg. Grayscale conversion always
// runs first.
func NewPipeline(cfg *PreprocessConfig) Pipeline {
	if cfg == nil {
		cfg = DefaultPreprocessConfig()
	}

	p := Pipeline{NewGrayscaleProcessor()}
	if cfg.Denoise {
		p = append(p, NewDenoiseProcessor(cfg.DenoiseStrength))
	}
	if cfg.ContrastNormalize {
		p = append(p, NewContrastNormalizationProcessor(cfg.Contrast))
	}
	if cfg.Sharpen {
		p = append(p, NewSharpenProcessor(cfg.SharpenStrength))
	}
	if cfg.Binarize {
		p = append(p, NewAdaptiveThresholdProcessor(cfg.AdaptiveBlockSize, cfg.AdaptiveConstant))
	}
	return p
}

func (p Pipeline) Apply(img image.Image) (image.Image, error) {
	if img == nil {
		return nil, fmt.Errorf("input image is nil")
	}

	var err error
	result := img
	for _, stage := range p {
		result, err = stage.Process(result)
		if err != nil {
			return nil, fmt.Errorf("preprocessing failed: %w", err)
		}
		if result == nil {
			return nil, fmt.Errorf("preprocessor returned nil image")
		}
	}
	return result, nil
}

// Open decodes a rendered page from disk.
func Open(path string) (image.Image, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to decode page image %s: %w", path, err)
	}
	return img, nil
}

// EncodePNG serialises img losslessly.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}

// EncodeJPEG serialises img for size-limited APIs.
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}

type GrayscaleProcessor struct{}

func NewGrayscaleProcessor() *GrayscaleProcessor {
	return &GrayscaleProcessor{}
}

func (p *GrayscaleProcessor) Process(img image.Image) (image.Image, error) {
	return imaging.Grayscale(img), nil
}

// DenoiseProcessor smooths scan noise with a gaussian blur.
type DenoiseProcessor struct {
	strength float64
}

func NewDenoiseProcessor(strength float64) *DenoiseProcessor {
	return &DenoiseProcessor{strength: strength}
}

func (p *DenoiseProcessor) Process(img image.Image) (image.Image, error) {
	return imaging.Blur(img, p.strength), nil
}

type SharpenProcessor struct {
	strength float64
}

func NewSharpenProcessor(strength float64) *SharpenProcessor {
	return &SharpenProcessor{strength: strength}
}

func (p *SharpenProcessor) Process(img image.Image) (image.Image, error) {
	return imaging.Sharpen(img, p.strength), nil
}

// ContrastNormalizationProcessor raises contrast by a percentage in
// [-100, 100].
type ContrastNormalizationProcessor struct {
	amount float64
}

func NewContrastNormalizationProcessor(amount float64) *ContrastNormalizationProcessor {
	return &ContrastNormalizationProcessor{amount: amount}
}

func (p *ContrastNormalizationProcessor) Process(img image.Image) (image.Image, error) {
	return imaging.AdjustContrast(img, p.amount), nil
}

// AdaptiveThresholdProcessor binarises against the mean of a square window
// around each pixel. Window sums come from an integral image so the cost does
// not grow with the block size.
type AdaptiveThresholdProcessor struct {
	blockSize int
	constant  float64
}

func NewAdaptiveThresholdProcessor(blockSize int, constant float64) *AdaptiveThresholdProcessor {
	if blockSize < 3 {
		blockSize = 3
	}
	if blockSize%2 == 0 {
		blockSize++
	}
	return &AdaptiveThresholdProcessor{
		blockSize: blockSize,
		constant:  constant,
	}
}

func (p *AdaptiveThresholdProcessor) Process(img image.Image) (image.Image, error) {
	if img == nil {
		return nil, fmt.Errorf("input image is nil")
	}

	gray := imaging.Grayscale(img)
	bounds := gray.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	// integral[(y+1)*(w+1)+(x+1)] holds the sum of luminance over [0,x]x[0,y]
	stride := w + 1
	integral := make([]int64, (w+1)*(h+1))
	for y := 0; y < h; y++ {
		var row int64
		for x := 0; x < w; x++ {
			row += int64(gray.Pix[y*gray.Stride+x*4])
			integral[(y+1)*stride+x+1] = integral[y*stride+x+1] + row
		}
	}

	result := image.NewGray(image.Rect(0, 0, w, h))
	half := p.blockSize / 2
	for y := 0; y < h; y++ {
		y0, y1 := max(0, y-half), min(h-1, y+half)
		for x := 0; x < w; x++ {
			x0, x1 := max(0, x-half), min(w-1, x+half)

			sum := integral[(y1+1)*stride+x1+1] - integral[y0*stride+x1+1] -
				integral[(y1+1)*stride+x0] + integral[y0*stride+x0]
			count := int64((x1 - x0 + 1) * (y1 - y0 + 1))
			mean := float64(sum) / float64(count)

			if float64(gray.Pix[y*gray.Stride+x*4]) < mean-p.constant {
				result.SetGray(x, y, color.Gray{Y: 0})
			} else {
				result.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}

	return result, nil
}
