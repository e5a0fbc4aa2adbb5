package checkpoint

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/hupe1980/skipgrid/internal/hash"
	"github.com/hupe1980/skipgrid/model"
)

const (
	// magicNumber identifies record files (ASCII: "SKGR").
	magicNumber = 0x534B4752
	// formatVersion is the current file format version (v1.0.0).
	formatVersion = 0x00010000
)

var (
	ErrInvalidMagic      = errors.New("checkpoint: invalid magic number")
	ErrInvalidVersion    = errors.New("checkpoint: unsupported version")
	ErrInvalidSide       = errors.New("checkpoint: invalid record side")
	ErrFactorLenMismatch = errors.New("checkpoint: factor length mismatch")
	ErrUnknownCodec      = errors.New("checkpoint: unknown compression codec")
)

// Compression selects the codec applied to the record body. The header
// stays uncompressed so readers can dispatch on it.
type Compression uint8

const (
	CompressionNone Compression = iota
	CompressionZstd
	CompressionLZ4
)

// String returns a string representation of the compression codec.
func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionZstd:
		return "zstd"
	case CompressionLZ4:
		return "lz4"
	default:
		return fmt.Sprintf("compression(%d)", uint8(c))
	}
}

// ParseCompression parses a codec name as used in configuration files.
func ParseCompression(s string) (Compression, error) {
	switch s {
	case "", "none":
		return CompressionNone, nil
	case "zstd":
		return CompressionZstd, nil
	case "lz4":
		return CompressionLZ4, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownCodec, s)
	}
}

// fileHeader is the fixed-size header at the start of every record file.
type fileHeader struct {
	Magic       uint32
	Version     uint32
	Compression uint8
	Padding     [3]byte
	FactorLen   uint32
	Count       uint64
}

const recordPrefixLen = 1 + 8 + 8 // side + id + count

// WriteRecords encodes records into w and returns the CRC32C checksum of
// all bytes written, header included. The checksum covers the stored
// (compressed) form so verification never needs to decompress.
func WriteRecords(w io.Writer, records []model.ItemRecord, comp Compression) (uint32, error) {
	factorLen := 0
	if len(records) > 0 {
		factorLen = len(records[0].Factors)
	}

	cw := hash.NewChecksumWriter(w)

	header := fileHeader{
		Magic:       magicNumber,
		Version:     formatVersion,
		Compression: uint8(comp),
		FactorLen:   uint32(factorLen),
		Count:       uint64(len(records)),
	}
	if err := binary.Write(cw, binary.LittleEndian, &header); err != nil {
		return 0, fmt.Errorf("write header: %w", err)
	}

	body, closeBody, err := compressBody(cw, comp)
	if err != nil {
		return 0, err
	}

	bw := bufio.NewWriterSize(body, 256<<10)
	buf := make([]byte, recordPrefixLen+4*factorLen)

	for _, rec := range records {
		if len(rec.Factors) != factorLen {
			return 0, fmt.Errorf("%w: record %s/%d has %d factors, want %d",
				ErrFactorLenMismatch, rec.Side, rec.ID, len(rec.Factors), factorLen)
		}
		buf[0] = byte(rec.Side)
		binary.LittleEndian.PutUint64(buf[1:], uint64(rec.ID))
		binary.LittleEndian.PutUint64(buf[9:], uint64(rec.Count))
		for i, f := range rec.Factors {
			binary.LittleEndian.PutUint32(buf[recordPrefixLen+4*i:], math.Float32bits(f))
		}
		if _, err := bw.Write(buf); err != nil {
			return 0, fmt.Errorf("write record: %w", err)
		}
	}

	if err := bw.Flush(); err != nil {
		return 0, fmt.Errorf("flush records: %w", err)
	}
	if err := closeBody(); err != nil {
		return 0, fmt.Errorf("close compressor: %w", err)
	}
	return cw.Sum(), nil
}

// ReadRecords decodes a record file and returns the records together with
// the CRC32C checksum of all bytes consumed.
func ReadRecords(r io.Reader) ([]model.ItemRecord, uint32, error) {
	cr := hash.NewChecksumReader(r)

	var header fileHeader
	if err := binary.Read(cr, binary.LittleEndian, &header); err != nil {
		return nil, 0, fmt.Errorf("read header: %w", err)
	}
	if header.Magic != magicNumber {
		return nil, 0, fmt.Errorf("%w: got 0x%08x", ErrInvalidMagic, header.Magic)
	}
	if header.Version != formatVersion {
		return nil, 0, fmt.Errorf("%w: got 0x%08x", ErrInvalidVersion, header.Version)
	}

	body, closeBody, err := decompressBody(cr, Compression(header.Compression))
	if err != nil {
		return nil, 0, err
	}
	defer closeBody()

	factorLen := int(header.FactorLen)
	buf := make([]byte, recordPrefixLen+4*factorLen)
	records := make([]model.ItemRecord, 0, header.Count)

	for i := uint64(0); i < header.Count; i++ {
		if _, err := io.ReadFull(body, buf); err != nil {
			return nil, 0, fmt.Errorf("read record %d: %w", i, err)
		}
		side := model.Side(buf[0])
		if side != model.SideLeft && side != model.SideRight {
			return nil, 0, fmt.Errorf("%w: record %d has side %d", ErrInvalidSide, i, buf[0])
		}
		factors := make([]float32, factorLen)
		for j := range factors {
			factors[j] = math.Float32frombits(binary.LittleEndian.Uint32(buf[recordPrefixLen+4*j:]))
		}
		records = append(records, model.ItemRecord{
			Side:    side,
			ID:      model.ItemID(binary.LittleEndian.Uint64(buf[1:])),
			Count:   int64(binary.LittleEndian.Uint64(buf[9:])),
			Factors: factors,
		})
	}

	// Consume any compressed-frame trailer so the checksum covers the
	// whole stored blob.
	if _, err := io.Copy(io.Discard, cr); err != nil {
		return nil, 0, fmt.Errorf("drain trailer: %w", err)
	}
	return records, cr.Sum(), nil
}

func compressBody(w io.Writer, comp Compression) (io.Writer, func() error, error) {
	switch comp {
	case CompressionNone:
		return w, func() error { return nil }, nil
	case CompressionZstd:
		zw, err := zstd.NewWriter(w)
		if err != nil {
			return nil, nil, fmt.Errorf("zstd writer: %w", err)
		}
		return zw, zw.Close, nil
	case CompressionLZ4:
		lw := lz4.NewWriter(w)
		return lw, lw.Close, nil
	default:
		return nil, nil, fmt.Errorf("%w: %d", ErrUnknownCodec, comp)
	}
}

func decompressBody(r io.Reader, comp Compression) (io.Reader, func(), error) {
	switch comp {
	case CompressionNone:
		return r, func() {}, nil
	case CompressionZstd:
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, nil, fmt.Errorf("zstd reader: %w", err)
		}
		return zr, zr.Close, nil
	case CompressionLZ4:
		return lz4.NewReader(r), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("%w: %d", ErrUnknownCodec, comp)
	}
}
