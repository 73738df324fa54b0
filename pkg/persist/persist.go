// Package persist serializes a frozen StreetLayer to and from a single
// binary file: a fixed header, every vertex and edge-pair column, the
// restriction table, and a CRC32 trailer — adapted from the teacher's
// contraction-hierarchy graph format to the router core's column layout.
package persist

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"os"

	"github.com/azybler/streetrouter/pkg/edgestore"
	"github.com/azybler/streetrouter/pkg/streetlayer"
	"github.com/azybler/streetrouter/pkg/vertexstore"
)

const (
	magicBytes = "STRTLYR1"
	version    = uint32(1)

	maxVertices    = 50_000_000
	maxPairs       = 100_000_000
	maxGeomPoints  = 1_000
	maxRestriction = 10_000_000
)

type fileHeader struct {
	Magic            [8]byte
	Version          uint32
	NumVertices      uint32
	NumPairs         uint32
	NumRestrictions  uint32
}

// Write serializes layer to path: a frozen StreetLayer header+columns+CRC32
// trailer, written to a temp file and atomically renamed into place so a
// reader never observes a partially-written graph.
func Write(path string, layer *streetlayer.StreetLayer) error {
	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("persist: create temp file: %w", err)
	}
	defer func() {
		f.Close()
		os.Remove(tmpPath)
	}()

	bw := bufio.NewWriter(f)
	cw := &crc32Writer{w: bw, hash: crc32.NewIEEE()}

	numVertices := layer.Vertices.Size()
	numPairs := layer.Edges.PairCount()
	restrictions := layer.Edges.Restrictions()

	hdr := fileHeader{
		Version:         version,
		NumVertices:     uint32(numVertices),
		NumPairs:        uint32(numPairs),
		NumRestrictions: uint32(len(restrictions)),
	}
	copy(hdr.Magic[:], magicBytes)
	if err := binary.Write(cw, binary.LittleEndian, &hdr); err != nil {
		return fmt.Errorf("persist: write header: %w", err)
	}

	for i := 0; i < numVertices; i++ {
		c := layer.Vertices.At(int32(i))
		if err := writeVertex(cw, c); err != nil {
			return fmt.Errorf("persist: write vertex %d: %w", i, err)
		}
	}

	for p := 0; p < numPairs; p++ {
		fwd := edgestore.ForwardEdge(int32(p))
		if err := writePair(cw, layer.Edges.At(fwd)); err != nil {
			return fmt.Errorf("persist: write pair %d: %w", p, err)
		}
	}

	for _, r := range restrictions {
		if err := writeRestriction(cw, r); err != nil {
			return fmt.Errorf("persist: write restriction: %w", err)
		}
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("persist: flush: %w", err)
	}

	checksum := cw.hash.Sum32()
	if err := binary.Write(f, binary.LittleEndian, checksum); err != nil {
		return fmt.Errorf("persist: write CRC32: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("persist: close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("persist: rename: %w", err)
	}
	return nil
}

func writeVertex(w io.Writer, c vertexstore.Cursor) error {
	if err := binary.Write(w, binary.LittleEndian, c.FixedLat()); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, c.FixedLon()); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, uint8(c.Flags()))
}

// writePair serializes one edge pair's shared and per-direction columns.
// Bearings (inAngle/outAngle) aren't written: they're pure functions of the
// endpoint coordinates and geometry, both already in the file, and Read
// recomputes them via CalculateAngles exactly as the builder does.
func writePair(w io.Writer, fwd edgestore.Cursor) error {
	bwd := fwd.Reverse()
	fields := []any{
		fwd.GetFromVertex(),
		fwd.GetToVertex(),
		fwd.GetLengthMm(),
		fwd.GetOSMWayID(),
		uint8(fwd.GetStreetClass()),
		uint32(fwd.GetFlags()),
		uint32(bwd.GetFlags()),
		int16(fwd.GetSpeedMetersPerSecond()*100 + 0.5),
		int16(bwd.GetSpeedMetersPerSecond()*100 + 0.5),
	}
	for _, v := range fields {
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			return err
		}
	}
	geom := fwd.GetGeometry()
	if err := binary.Write(w, binary.LittleEndian, uint32(len(geom))); err != nil {
		return err
	}
	for _, v := range geom {
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			return err
		}
	}
	return nil
}

func writeRestriction(w io.Writer, r edgestore.TurnRestriction) error {
	if err := binary.Write(w, binary.LittleEndian, r.FromEdge); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, r.ToEdge); err != nil {
		return err
	}
	only := uint8(0)
	if r.Only {
		only = 1
	}
	if err := binary.Write(w, binary.LittleEndian, only); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(r.ViaEdges))); err != nil {
		return err
	}
	for _, v := range r.ViaEdges {
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			return err
		}
	}
	return nil
}

// Read deserializes a StreetLayer previously written by Write, validating
// its CRC32 trailer before returning. The result is already frozen and
// index-built.
func Read(path string) (*streetlayer.StreetLayer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("persist: open: %w", err)
	}
	defer f.Close()

	cr := &crc32Reader{r: bufio.NewReader(f), hash: crc32.NewIEEE()}

	var hdr fileHeader
	if err := binary.Read(cr, binary.LittleEndian, &hdr); err != nil {
		return nil, fmt.Errorf("persist: read header: %w", err)
	}
	if string(hdr.Magic[:]) != magicBytes {
		return nil, fmt.Errorf("persist: invalid magic bytes %q", hdr.Magic)
	}
	if hdr.Version != version {
		return nil, fmt.Errorf("persist: unsupported version %d", hdr.Version)
	}
	if hdr.NumVertices > maxVertices {
		return nil, fmt.Errorf("persist: NumVertices %d exceeds limit %d", hdr.NumVertices, maxVertices)
	}
	if hdr.NumPairs > maxPairs {
		return nil, fmt.Errorf("persist: NumPairs %d exceeds limit %d", hdr.NumPairs, maxPairs)
	}
	if hdr.NumRestrictions > maxRestriction {
		return nil, fmt.Errorf("persist: NumRestrictions %d exceeds limit %d", hdr.NumRestrictions, maxRestriction)
	}

	layer := streetlayer.New()

	for i := uint32(0); i < hdr.NumVertices; i++ {
		lat, lon, flags, err := readVertex(cr)
		if err != nil {
			return nil, fmt.Errorf("persist: read vertex %d: %w", i, err)
		}
		idx := layer.Vertices.AddVertexFixed(lat, lon)
		if flags != 0 {
			layer.Vertices.At(idx).SetFlag(vertexstore.Flag(flags))
		}
	}

	for p := uint32(0); p < hdr.NumPairs; p++ {
		if err := readPair(cr, layer); err != nil {
			return nil, fmt.Errorf("persist: read pair %d: %w", p, err)
		}
	}

	for i := uint32(0); i < hdr.NumRestrictions; i++ {
		r, err := readRestriction(cr)
		if err != nil {
			return nil, fmt.Errorf("persist: read restriction %d: %w", i, err)
		}
		layer.Edges.AddTurnRestriction(r)
	}

	expectedCRC := cr.hash.Sum32()
	var storedCRC uint32
	if err := binary.Read(f, binary.LittleEndian, &storedCRC); err != nil {
		return nil, fmt.Errorf("persist: read CRC32: %w", err)
	}
	if storedCRC != expectedCRC {
		return nil, fmt.Errorf("persist: CRC32 mismatch: stored=%08x computed=%08x", storedCRC, expectedCRC)
	}

	layer.BuildIndex()
	if err := layer.Freeze(); err != nil {
		return nil, fmt.Errorf("persist: %w", err)
	}
	return layer, nil
}

func readVertex(r io.Reader) (lat, lon int32, flags uint8, err error) {
	if err = binary.Read(r, binary.LittleEndian, &lat); err != nil {
		return
	}
	if err = binary.Read(r, binary.LittleEndian, &lon); err != nil {
		return
	}
	err = binary.Read(r, binary.LittleEndian, &flags)
	return
}

func readPair(r io.Reader, layer *streetlayer.StreetLayer) error {
	var fromVertex, toVertex, lengthMm int32
	var osmWayID int64
	var streetClass uint8
	var fwdFlags, bwdFlags uint32
	var fwdSpeed, bwdSpeed int16

	for _, v := range []any{
		&fromVertex, &toVertex, &lengthMm, &osmWayID, &streetClass,
		&fwdFlags, &bwdFlags, &fwdSpeed, &bwdSpeed,
	} {
		if err := binary.Read(r, binary.LittleEndian, v); err != nil {
			return err
		}
	}

	var geomLen uint32
	if err := binary.Read(r, binary.LittleEndian, &geomLen); err != nil {
		return err
	}
	if geomLen > maxGeomPoints*2 {
		return fmt.Errorf("geometry point count %d exceeds limit", geomLen)
	}
	geom := make([]int32, geomLen)
	for i := range geom {
		if err := binary.Read(r, binary.LittleEndian, &geom[i]); err != nil {
			return err
		}
	}

	fwd, err := layer.AddEdgePair(fromVertex, toVertex, lengthMm, osmWayID)
	if err != nil {
		return fmt.Errorf("re-adding edge pair: %w", err)
	}
	bwd := fwd + 1

	fc := layer.Edges.At(fwd)
	bc := layer.Edges.At(bwd)
	fc.SetStreetClass(edgestore.StreetClass(streetClass))
	bc.SetStreetClass(edgestore.StreetClass(streetClass))
	fc.SetFlag(edgestore.Flag(fwdFlags))
	bc.SetFlag(edgestore.Flag(bwdFlags))
	fc.SetSpeed(float64(fwdSpeed) / 100.0)
	bc.SetSpeed(float64(bwdSpeed) / 100.0)

	if len(geom) > 0 {
		fc.SetGeometry(geom)
	}
	fromC := layer.Vertices.At(fromVertex)
	toC := layer.Vertices.At(toVertex)
	fc.CalculateAngles(fromC.FixedLat(), fromC.FixedLon(), toC.FixedLat(), toC.FixedLon())

	return nil
}

func readRestriction(r io.Reader) (edgestore.TurnRestriction, error) {
	var fromEdge, toEdge int32
	var only uint8
	if err := binary.Read(r, binary.LittleEndian, &fromEdge); err != nil {
		return edgestore.TurnRestriction{}, err
	}
	if err := binary.Read(r, binary.LittleEndian, &toEdge); err != nil {
		return edgestore.TurnRestriction{}, err
	}
	if err := binary.Read(r, binary.LittleEndian, &only); err != nil {
		return edgestore.TurnRestriction{}, err
	}
	var viaLen uint32
	if err := binary.Read(r, binary.LittleEndian, &viaLen); err != nil {
		return edgestore.TurnRestriction{}, err
	}
	via := make([]int32, viaLen)
	for i := range via {
		if err := binary.Read(r, binary.LittleEndian, &via[i]); err != nil {
			return edgestore.TurnRestriction{}, err
		}
	}
	return edgestore.TurnRestriction{FromEdge: fromEdge, ToEdge: toEdge, ViaEdges: via, Only: only != 0}, nil
}

type crc32Writer struct {
	w    io.Writer
	hash crc32Hash
}

type crc32Hash interface {
	Write([]byte) (int, error)
	Sum32() uint32
}

func (cw *crc32Writer) Write(p []byte) (int, error) {
	cw.hash.Write(p)
	return cw.w.Write(p)
}

type crc32Reader struct {
	r    io.Reader
	hash crc32Hash
}

func (cr *crc32Reader) Read(p []byte) (int, error) {
	n, err := cr.r.Read(p)
	if n > 0 {
		cr.hash.Write(p[:n])
	}
	return n, err
}
