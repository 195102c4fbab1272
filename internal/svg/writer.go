package svg

import (
	"bufio"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/wegman-software/osm2svg-go/internal/render"
)

var (
	// ErrGroupOpen is returned when a group is opened inside another or the document is closed with one open
	ErrGroupOpen = errors.New("svg: relation group still open")
	// ErrNoGroup is returned when a path or group end arrives outside a group
	ErrNoGroup = errors.New("svg: no relation group open")
	// ErrClosed is returned for writes after Close
	ErrClosed = errors.New("svg: document closed")
)

// Options controls document size and drawing attributes
type Options struct {
	Width       float64
	Height      float64
	StrokeWidth float64
	StrokeColor string
	FillColor   string
	Background  string
}

// DefaultOptions returns black one pixel strokes on white
func DefaultOptions(width, height float64) Options {
	return Options{
		Width:       width,
		Height:      height,
		StrokeWidth: 1,
		StrokeColor: "black",
		FillColor:   "#d0d0d0",
		Background:  "white",
	}
}

// Writer streams an SVG document and implements render.Sink.
// The first write error is kept and returned by every later call.
type Writer struct {
	w      *bufio.Writer
	closer io.Closer
	opts   Options

	started bool
	inGroup bool
	closed  bool
	err     error

	buf []byte
}

// NewWriter writes a document to w
func NewWriter(w io.Writer, opts Options) *Writer {
	return &Writer{w: bufio.NewWriterSize(w, 64*1024), opts: opts}
}

// Create writes a document to a new file at path
func Create(path string, opts Options) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create SVG file: %w", err)
	}
	sw := NewWriter(f, opts)
	sw.closer = f
	return sw, nil
}

func (s *Writer) header() {
	if s.started {
		return
	}
	s.started = true
	fmt.Fprintf(s.w, `<svg xmlns="http://www.w3.org/2000/svg" width="%.0f" height="%.0f" viewBox="0 0 %.1f %.1f">`+"\n",
		s.opts.Width, s.opts.Height, s.opts.Width, s.opts.Height)
	if s.opts.Background != "" {
		fmt.Fprintf(s.w, `<rect x="0" y="0" width="%.1f" height="%.1f" fill="%s"/>`+"\n",
			s.opts.Width, s.opts.Height, escape(s.opts.Background))
	}
}

func (s *Writer) check() error {
	if s.err != nil {
		return s.err
	}
	if s.closed {
		return ErrClosed
	}
	s.header()
	return nil
}

// BeginGroup opens <g id="relation_N">
func (s *Writer) BeginGroup(g render.Group) error {
	if err := s.check(); err != nil {
		return err
	}
	if s.inGroup {
		return ErrGroupOpen
	}
	s.inGroup = true

	if g.Name != "" {
		_, s.err = fmt.Fprintf(s.w, `<g id="relation_%d" data-name="%s">`+"\n", g.RelationID, escape(g.Name))
	} else {
		_, s.err = fmt.Fprintf(s.w, `<g id="relation_%d">`+"\n", g.RelationID)
	}
	return s.err
}

// EmitPath writes one <path> holding every sub-path in cmds
func (s *Writer) EmitPath(cmds []render.Command, style render.Style) error {
	if err := s.check(); err != nil {
		return err
	}
	if !s.inGroup {
		return ErrNoGroup
	}
	if len(cmds) == 0 {
		return nil
	}

	closeRings := style == render.StyleFill

	b := append(s.buf[:0], `<path d="`...)
	for i, c := range cmds {
		if i > 0 {
			if c.Op == render.MoveTo && closeRings {
				b = append(b, " Z"...)
			}
			b = append(b, ' ')
		}
		if c.Op == render.MoveTo {
			b = append(b, "M "...)
		} else {
			b = append(b, "L "...)
		}
		b = strconv.AppendFloat(b, c.X, 'f', 1, 64)
		b = append(b, ' ')
		b = strconv.AppendFloat(b, c.Y, 'f', 1, 64)
	}
	if closeRings {
		b = append(b, " Z"...)
	}
	b = append(b, `" style="`...)
	b = append(b, s.styleAttr(style)...)
	b = append(b, "\"/>\n"...)
	s.buf = b

	_, s.err = s.w.Write(b)
	return s.err
}

func (s *Writer) styleAttr(style render.Style) string {
	stroke := escape(s.opts.StrokeColor)
	width := strconv.FormatFloat(s.opts.StrokeWidth, 'f', -1, 64)
	if style == render.StyleFill {
		return "fill:" + escape(s.opts.FillColor) + ";fill-rule:evenodd;stroke:" + stroke + ";stroke-width:" + width
	}
	return "fill:none;stroke:" + stroke + ";stroke-width:" + width
}

// EndGroup closes the current group
func (s *Writer) EndGroup() error {
	if err := s.check(); err != nil {
		return err
	}
	if !s.inGroup {
		return ErrNoGroup
	}
	s.inGroup = false
	_, s.err = s.w.WriteString("</g>\n")
	return s.err
}

// Close ends the document. It fails with ErrGroupOpen when a group was left open,
// in which case the document is left unterminated.
func (s *Writer) Close() error {
	if s.closed {
		return s.err
	}
	if s.inGroup && s.err == nil {
		s.err = ErrGroupOpen
	}
	if s.err == nil {
		s.header()
		if _, err := s.w.WriteString("</svg>\n"); err != nil {
			s.err = err
		}
	}
	if err := s.w.Flush(); err != nil && s.err == nil {
		s.err = err
	}
	s.closed = true

	if s.closer != nil {
		if err := s.closer.Close(); err != nil && s.err == nil {
			s.err = err
		}
	}
	return s.err
}

func escape(v string) string {
	var buf bytes.Buffer
	_ = xml.EscapeText(&buf, []byte(v))
	return buf.String()
}
