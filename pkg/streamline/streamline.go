// Package streamline implements the streamline file reader: the external
// collaborator spec.md §1 names out of scope for the core algorithms, but
// which this repo still needs a concrete implementation of to run
// end-to-end. The on-disk format mirrors MRtrix's .tck track format closely
// enough to satisfy spec §6's input contract (an ASCII "key: value" header
// terminated by an "END" line, with a mandatory "count" property, followed
// by binary float32 point triples; each streamline is terminated by a
// NaN-NaN-NaN point, and the file by an Inf-Inf-Inf point) without claiming
// full format compatibility.
package streamline

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"fixelcfestats/internal/models"
)

// Properties is the parsed ASCII header of a streamline file.
type Properties map[string]string

// Count returns the "count" property as an integer, or 0 if absent or
// unparsable. A zero count is what triggers ErrEmptyTractogram upstream.
func (p Properties) Count() int {
	v, ok := p["count"]
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0
	}
	return n
}

// Reader streams streamlines one at a time out of a track file.
type Reader struct {
	r          *bufio.Reader
	Properties Properties
}

// Open parses the header of r and returns a Reader positioned at the start
// of the binary point stream.
func Open(r io.Reader) (*Reader, error) {
	br := bufio.NewReader(r)
	props := Properties{}

	for {
		line, err := br.ReadString('\n')
		trimmed := strings.TrimRight(line, "\r\n")
		if trimmed == "END" {
			break
		}
		if trimmed != "" {
			if idx := strings.Index(trimmed, ":"); idx >= 0 {
				key := strings.TrimSpace(trimmed[:idx])
				val := strings.TrimSpace(trimmed[idx+1:])
				props[key] = val
			}
		}
		if err != nil {
			if err == io.EOF {
				return nil, fmt.Errorf("streamline: header never terminated with END: %w", err)
			}
			return nil, fmt.Errorf("streamline: reading header: %w", err)
		}
	}

	return &Reader{r: br, Properties: props}, nil
}

// Next returns the points of the next streamline. It returns io.EOF (and a
// nil slice) once the end-of-file sentinel point is reached.
func (r *Reader) Next() ([]models.Vec3, error) {
	var points []models.Vec3
	for {
		p, isEnd, err := r.readPoint()
		if err != nil {
			return nil, err
		}
		if isEnd {
			if len(points) == 0 {
				return nil, io.EOF
			}
			return points, nil
		}
		if isNaNPoint(p) {
			return points, nil
		}
		points = append(points, p)
	}
}

func (r *Reader) readPoint() (models.Vec3, bool, error) {
	var raw [3]float32
	for i := range raw {
		if err := binary.Read(r.r, binary.LittleEndian, &raw[i]); err != nil {
			return models.Vec3{}, false, fmt.Errorf("streamline: reading point: %w", err)
		}
	}
	p := models.Vec3{X: float64(raw[0]), Y: float64(raw[1]), Z: float64(raw[2])}
	if math.IsInf(p.X, 1) && math.IsInf(p.Y, 1) && math.IsInf(p.Z, 1) {
		return p, true, nil
	}
	return p, false, nil
}

func isNaNPoint(p models.Vec3) bool {
	return math.IsNaN(p.X) && math.IsNaN(p.Y) && math.IsNaN(p.Z)
}

// Writer is the mirror-image encoder, used by tests to build synthetic
// track files without hand-assembling bytes.
type Writer struct {
	w io.Writer
}

// Create writes the ASCII header (including the mandatory count property)
// and returns a Writer ready to stream points.
func Create(w io.Writer, props Properties) (*Writer, error) {
	for k, v := range props {
		if _, err := fmt.Fprintf(w, "%s: %s\n", k, v); err != nil {
			return nil, fmt.Errorf("streamline: writing header: %w", err)
		}
	}
	if _, err := fmt.Fprint(w, "END\n"); err != nil {
		return nil, fmt.Errorf("streamline: writing header terminator: %w", err)
	}
	return &Writer{w: w}, nil
}

// WriteStreamline writes one streamline's points followed by the
// end-of-streamline sentinel.
func (w *Writer) WriteStreamline(points []models.Vec3) error {
	for _, p := range points {
		if err := w.writePoint(p); err != nil {
			return err
		}
	}
	return w.writePoint(models.Vec3{X: math.NaN(), Y: math.NaN(), Z: math.NaN()})
}

// Close writes the end-of-file sentinel point.
func (w *Writer) Close() error {
	return w.writePoint(models.Vec3{X: math.Inf(1), Y: math.Inf(1), Z: math.Inf(1)})
}

func (w *Writer) writePoint(p models.Vec3) error {
	raw := [3]float32{float32(p.X), float32(p.Y), float32(p.Z)}
	for _, v := range raw {
		if err := binary.Write(w.w, binary.LittleEndian, v); err != nil {
			return fmt.Errorf("streamline: writing point: %w", err)
		}
	}
	return nil
}
