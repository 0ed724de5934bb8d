package skygo

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/hupe1980/skygo/bitset"
	"github.com/hupe1980/skygo/skyline"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression selects the snapshot body compression algorithm.
type Compression uint8

const (
	// CompressionNone stores the snapshot body uncompressed.
	CompressionNone Compression = 0
	// CompressionZstd compresses with zstd (better ratio, default).
	CompressionZstd Compression = 1
	// CompressionLZ4 compresses with LZ4 block compression (faster).
	CompressionLZ4 Compression = 2
)

// Snapshot layout:
//
//	[4]byte magic "SKYS" | uint8 version | uint8 kind | uint8 compression
//	uint32 uncompressedSize | uint32 compressedSize | body...
//
// If compressedSize == 0 the body is stored uncompressed (compression
// produced no gain). The body is little-endian:
//
//	uint32 dims | uint32 layers | uint32 count
//	per point: uint32 id | dims*float32 | uint8 flag | int32 layer
//	weighted kind additionally: pruning bitset (bitset.Fixed wire format)
var snapshotMagic = [4]byte{'S', 'K', 'Y', 'S'}

const (
	snapshotVersion uint8 = 1

	snapshotKindPlain    uint8 = 0
	snapshotKindWeighted uint8 = 1

	// maxSnapshotBodySize bounds the decoded body, so a forged header
	// cannot drive the decoders into giant allocations.
	maxSnapshotBodySize = 1 << 30
)

// SaveSnapshot writes the pool contents to w using the compression
// configured at construction (WithCompression, zstd by default).
func (p *Pool) SaveSnapshot(w io.Writer) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var body bytes.Buffer
	writeSnapshotHeaderFields(&body, p.dims, p.layers, len(p.pool))
	for _, point := range p.pool {
		writeNeighbor(&body, point)
	}

	err := writeSnapshot(w, snapshotKindPlain, p.compression, body.Bytes())
	p.logger.LogSnapshot("save", len(p.pool), err)
	return err
}

// LoadSnapshot reads a plain pool snapshot previously written with
// SaveSnapshot, replacing the pool contents. The snapshot's dimensionality
// must match the pool's; the outlier set is cleared.
func (p *Pool) LoadSnapshot(r io.Reader) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	body, err := readSnapshot(r, snapshotKindPlain)
	if err != nil {
		p.logger.LogSnapshot("load", 0, err)
		return err
	}

	dims, layers, count, err := readSnapshotHeaderFields(body)
	if err != nil {
		p.logger.LogSnapshot("load", 0, err)
		return err
	}
	if dims != p.dims {
		err := &ErrDimensionMismatch{Expected: p.dims, Actual: dims}
		p.logger.LogSnapshot("load", 0, err)
		return err
	}
	if err := validatePointCount(body, count, encodedNeighborSize(dims)); err != nil {
		p.logger.LogSnapshot("load", 0, err)
		return err
	}

	pool := make([]skyline.Neighbor, 0, count)
	for i := 0; i < count; i++ {
		point, err := readNeighbor(body, dims)
		if err != nil {
			p.logger.LogSnapshot("load", 0, err)
			return err
		}
		pool = append(pool, point)
	}

	p.pool = pool
	p.outliers = nil
	p.layers = layers

	p.logger.LogSnapshot("load", len(pool), nil)
	return nil
}

// SaveSnapshot writes the pool contents, pruning bitsets included.
func (p *WeightedPool) SaveSnapshot(w io.Writer) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var body bytes.Buffer
	writeSnapshotHeaderFields(&body, p.dims, p.layers, len(p.pool))
	for _, point := range p.pool {
		writeNeighbor(&body, point.Neighbor)
		if _, err := point.Pruning.WriteTo(&body); err != nil {
			p.logger.LogSnapshot("save", 0, err)
			return err
		}
	}

	err := writeSnapshot(w, snapshotKindWeighted, p.compression, body.Bytes())
	p.logger.LogSnapshot("save", len(p.pool), err)
	return err
}

// LoadSnapshot reads a weighted pool snapshot, replacing the pool
// contents. The snapshot's dimensionality must match the pool's, so the
// restored bitsets agree with the derived lattice.
func (p *WeightedPool) LoadSnapshot(r io.Reader) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	body, err := readSnapshot(r, snapshotKindWeighted)
	if err != nil {
		p.logger.LogSnapshot("load", 0, err)
		return err
	}

	dims, layers, count, err := readSnapshotHeaderFields(body)
	if err != nil {
		p.logger.LogSnapshot("load", 0, err)
		return err
	}
	if dims != p.dims {
		err := &ErrDimensionMismatch{Expected: p.dims, Actual: dims}
		p.logger.LogSnapshot("load", 0, err)
		return err
	}
	// Each weighted point carries at least the bitset capacity prefix on
	// top of the plain encoding.
	if err := validatePointCount(body, count, encodedNeighborSize(dims)+8); err != nil {
		p.logger.LogSnapshot("load", 0, err)
		return err
	}

	pool := make([]skyline.WeightedNeighbor, 0, count)
	for i := 0; i < count; i++ {
		plain, err := readNeighbor(body, dims)
		if err != nil {
			p.logger.LogSnapshot("load", 0, err)
			return err
		}
		pruning := bitset.New(0)
		if _, err := pruning.ReadFrom(body); err != nil {
			err = fmt.Errorf("%w: pruning bitset: %w", ErrInvalidSnapshot, err)
			p.logger.LogSnapshot("load", 0, err)
			return err
		}
		if pruning.Len() != p.lattice.Count() {
			err := fmt.Errorf("%w: bitset capacity %d does not match lattice size %d", ErrInvalidSnapshot, pruning.Len(), p.lattice.Count())
			p.logger.LogSnapshot("load", 0, err)
			return err
		}
		pool = append(pool, skyline.WeightedNeighbor{Neighbor: plain, Pruning: pruning})
	}

	p.pool = pool
	p.outliers = nil
	p.layers = layers

	p.logger.LogSnapshot("load", len(pool), nil)
	return nil
}

func writeSnapshotHeaderFields(body *bytes.Buffer, dims, layers, count int) {
	_ = binary.Write(body, binary.LittleEndian, uint32(dims))
	_ = binary.Write(body, binary.LittleEndian, uint32(layers))
	_ = binary.Write(body, binary.LittleEndian, uint32(count))
}

func readSnapshotHeaderFields(body *bytes.Reader) (dims, layers, count int, err error) {
	var d, l, c uint32
	if err := binary.Read(body, binary.LittleEndian, &d); err != nil {
		return 0, 0, 0, fmt.Errorf("%w: %w", ErrInvalidSnapshot, err)
	}
	if err := binary.Read(body, binary.LittleEndian, &l); err != nil {
		return 0, 0, 0, fmt.Errorf("%w: %w", ErrInvalidSnapshot, err)
	}
	if err := binary.Read(body, binary.LittleEndian, &c); err != nil {
		return 0, 0, 0, fmt.Errorf("%w: %w", ErrInvalidSnapshot, err)
	}
	return int(d), int(l), int(c), nil
}

// encodedNeighborSize is the byte size of one encoded point: id, distance
// vector, flag, layer.
func encodedNeighborSize(dims int) int {
	return 4 + 4*dims + 1 + 4
}

// validatePointCount rejects a claimed point count that the remaining body
// bytes cannot possibly hold, so a forged count cannot drive a giant
// allocation.
func validatePointCount(body *bytes.Reader, count, pointSize int) error {
	if count < 0 || body.Len() < count*pointSize {
		return fmt.Errorf("%w: point count %d exceeds snapshot body", ErrInvalidSnapshot, count)
	}
	return nil
}

func writeNeighbor(body *bytes.Buffer, n skyline.Neighbor) {
	_ = binary.Write(body, binary.LittleEndian, n.ID)
	for _, d := range n.Distances {
		_ = binary.Write(body, binary.LittleEndian, d)
	}
	flag := uint8(0)
	if n.Flag {
		flag = 1
	}
	_ = binary.Write(body, binary.LittleEndian, flag)
	_ = binary.Write(body, binary.LittleEndian, int32(n.Layer))
}

func readNeighbor(body *bytes.Reader, dims int) (skyline.Neighbor, error) {
	var n skyline.Neighbor
	if err := binary.Read(body, binary.LittleEndian, &n.ID); err != nil {
		return n, fmt.Errorf("%w: %w", ErrInvalidSnapshot, err)
	}
	n.Distances = make([]float32, dims)
	for i := range n.Distances {
		if err := binary.Read(body, binary.LittleEndian, &n.Distances[i]); err != nil {
			return n, fmt.Errorf("%w: %w", ErrInvalidSnapshot, err)
		}
	}
	var flag uint8
	if err := binary.Read(body, binary.LittleEndian, &flag); err != nil {
		return n, fmt.Errorf("%w: %w", ErrInvalidSnapshot, err)
	}
	n.Flag = flag != 0
	var layer int32
	if err := binary.Read(body, binary.LittleEndian, &layer); err != nil {
		return n, fmt.Errorf("%w: %w", ErrInvalidSnapshot, err)
	}
	n.Layer = int(layer)
	return n, nil
}

func writeSnapshot(w io.Writer, kind uint8, compression Compression, body []byte) error {
	compressed, err := compressBody(compression, body)
	if err != nil {
		return err
	}

	header := make([]byte, 0, 15)
	header = append(header, snapshotMagic[:]...)
	header = append(header, snapshotVersion, kind, uint8(compression))
	header = binary.LittleEndian.AppendUint32(header, uint32(len(body)))
	header = binary.LittleEndian.AppendUint32(header, uint32(len(compressed)))
	if _, err := w.Write(header); err != nil {
		return err
	}

	payload := compressed
	if len(compressed) == 0 {
		payload = body
	}
	_, err = w.Write(payload)
	return err
}

// compressBody returns nil when compression is disabled or produced no
// gain; the caller then stores the body uncompressed.
func compressBody(compression Compression, body []byte) ([]byte, error) {
	switch compression {
	case CompressionNone:
		return nil, nil
	case CompressionZstd:
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return nil, err
		}
		defer enc.Close()
		compressed := enc.EncodeAll(body, nil)
		if len(compressed) >= len(body) {
			return nil, nil
		}
		return compressed, nil
	case CompressionLZ4:
		var c lz4.Compressor
		dst := make([]byte, lz4.CompressBlockBound(len(body)))
		n, err := c.CompressBlock(body, dst)
		if err != nil {
			return nil, err
		}
		if n == 0 || n >= len(body) {
			return nil, nil // incompressible
		}
		return dst[:n], nil
	default:
		return nil, fmt.Errorf("unsupported compression type: %d", compression)
	}
}

// readBody reads exactly size bytes, growing incrementally so a forged size
// field cannot trigger a giant up-front allocation.
func readBody(r io.Reader, size uint32) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r, int64(size)))
	if err != nil {
		return nil, fmt.Errorf("%w: body: %w", ErrInvalidSnapshot, err)
	}
	if len(body) != int(size) {
		return nil, fmt.Errorf("%w: body truncated: got %d of %d bytes", ErrInvalidSnapshot, len(body), size)
	}
	return body, nil
}

func readSnapshot(r io.Reader, wantKind uint8) (*bytes.Reader, error) {
	header := make([]byte, 15)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, fmt.Errorf("%w: header: %w", ErrInvalidSnapshot, err)
	}
	if !bytes.Equal(header[:4], snapshotMagic[:]) {
		return nil, fmt.Errorf("%w: bad magic", ErrInvalidSnapshot)
	}
	if header[4] != snapshotVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrInvalidSnapshot, header[4])
	}
	if header[5] != wantKind {
		return nil, fmt.Errorf("%w: snapshot kind %d does not match pool variant", ErrInvalidSnapshot, header[5])
	}
	compression := Compression(header[6])
	uncompressedSize := binary.LittleEndian.Uint32(header[7:11])
	compressedSize := binary.LittleEndian.Uint32(header[11:15])

	if uncompressedSize > maxSnapshotBodySize {
		return nil, fmt.Errorf("%w: body size %d exceeds limit", ErrInvalidSnapshot, uncompressedSize)
	}

	if compressedSize == 0 {
		body, err := readBody(r, uncompressedSize)
		if err != nil {
			return nil, err
		}
		return bytes.NewReader(body), nil
	}

	compressed, err := readBody(r, compressedSize)
	if err != nil {
		return nil, err
	}

	switch compression {
	case CompressionZstd:
		dec, err := zstd.NewReader(nil, zstd.WithDecoderMaxMemory(maxSnapshotBodySize))
		if err != nil {
			return nil, err
		}
		defer dec.Close()
		body, err := dec.DecodeAll(compressed, nil)
		if err != nil {
			return nil, fmt.Errorf("%w: zstd: %w", ErrInvalidSnapshot, err)
		}
		return bytes.NewReader(body), nil
	case CompressionLZ4:
		body := make([]byte, uncompressedSize)
		n, err := lz4.UncompressBlock(compressed, body)
		if err != nil {
			return nil, fmt.Errorf("%w: lz4: %w", ErrInvalidSnapshot, err)
		}
		return bytes.NewReader(body[:n]), nil
	default:
		return nil, fmt.Errorf("%w: unsupported compression type: %d", ErrInvalidSnapshot, compression)
	}
}
