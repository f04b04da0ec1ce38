// Package detector finds faces in camera frames with pigo and turns the
// movement of the strongest face into pointer drags.
package detector

import (
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"

	pigo "github.com/esimov/pigo/core"
)

// perturbFact represents the perturbation factor used for pupils/eyes localization
const perturbFact = 63

// ErrFrameSize is returned for frames whose pixel count does not match their size.
var ErrFrameSize = errors.New("frame size mismatch")

// Pupil is a localized pupil centre in frame pixels.
type Pupil struct {
	Row, Col int
}

// Face is a clustered detection. Row and Col are the centre in frame pixels.
type Face struct {
	Row, Col int
	Scale    int
	Q        float32

	// Pupils holds the left and right pupil when both were localized.
	Pupils *[2]Pupil
}

// Detector holds the unpacked cascades.
type Detector struct {
	faceClassifier   *pigo.Pigo
	puplocClassifier *pigo.PuplocCascade

	MinSize, MaxSize int
	IoU              float64
}

// Load unpacks the facefinder cascade, and the puploc cascade when
// present, from dir.
func Load(dir string) (*Detector, error) {
	face, err := os.ReadFile(filepath.Join(dir, "facefinder"))
	if err != nil {
		return nil, fmt.Errorf("reading the facefinder cascade file: %w", err)
	}
	puploc, err := os.ReadFile(filepath.Join(dir, "puploc"))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("reading the puploc cascade file: %w", err)
	}
	return New(face, puploc)
}

// New unpacks the given cascades. puploc may be nil.
func New(facefinder, puploc []byte) (*Detector, error) {
	d := &Detector{MinSize: 60, MaxSize: 1200, IoU: 0.1}

	// Unpack the binary file. This will return the number of cascade trees,
	// the tree depth, the threshold and the prediction from tree's leaf nodes.
	var err error
	d.faceClassifier, err = pigo.NewPigo().Unpack(facefinder)
	if err != nil {
		return nil, fmt.Errorf("unpacking the facefinder cascade file: %w", err)
	}
	if len(puploc) > 0 {
		d.puplocClassifier, err = pigo.NewPuplocCascade().UnpackCascade(puploc)
		if err != nil {
			return nil, fmt.Errorf("unpacking the puploc cascade file: %w", err)
		}
	}
	return d, nil
}

// Grayscale converts an RGBA camera frame to the luma plane pigo works on.
func Grayscale(img image.Image) []uint8 {
	return pigo.RgbToGrayscale(img)
}

func imageParams(pixels []uint8, width, height int) (pigo.ImageParams, error) {
	if len(pixels) != width*height {
		return pigo.ImageParams{}, fmt.Errorf("%w: %d pixels for %dx%d", ErrFrameSize, len(pixels), width, height)
	}
	return pigo.ImageParams{
		Pixels: pixels,
		Rows:   height,
		Cols:   width,
		Dim:    width,
	}, nil
}

// DetectFaces runs the cluster detection over a grayscale frame and
// returns the detected faces.
func (d *Detector) DetectFaces(pixels []uint8, width, height int) ([]Face, error) {
	img, err := imageParams(pixels, width, height)
	if err != nil {
		return nil, err
	}
	cParams := pigo.CascadeParams{
		MinSize:     d.MinSize,
		MaxSize:     d.MaxSize,
		ShiftFactor: 0.1,
		ScaleFactor: 1.1,
		ImageParams: img,
	}

	// Run the classifier over the obtained leaf nodes and return the detection results.
	// The result contains quadruplets representing the row, column, scale and detection score.
	dets := d.faceClassifier.RunCascade(cParams, 0.0)

	// Calculate the intersection over union (IoU) of two clusters.
	dets = d.faceClassifier.ClusterDetections(dets, d.IoU)

	faces := make([]Face, len(dets))
	for i, det := range dets {
		faces[i] = Face{Row: det.Row, Col: det.Col, Scale: det.Scale, Q: det.Q}
		if left, right := d.pupils(faces[i], img); left != nil && right != nil {
			faces[i].Pupils = &[2]Pupil{*left, *right}
		}
	}
	return faces, nil
}

// pupils localizes both pupils of face. It returns nil for a pupil that
// could not be found or when no puploc cascade was loaded.
func (d *Detector) pupils(face Face, img pigo.ImageParams) (left, right *Pupil) {
	if d.puplocClassifier == nil {
		return nil, nil
	}
	eye := func(side int) *Pupil {
		pl := pigo.Puploc{
			Row:      face.Row - int(0.085*float32(face.Scale)),
			Col:      face.Col + side*int(0.185*float32(face.Scale)),
			Scale:    float32(face.Scale) * 0.4,
			Perturbs: perturbFact,
		}
		res := d.puplocClassifier.RunDetector(pl, img, 0.0, false)
		if res == nil || res.Row <= 0 || res.Col <= 0 {
			return nil
		}
		return &Pupil{Row: res.Row, Col: res.Col}
	}
	return eye(-1), eye(1)
}
