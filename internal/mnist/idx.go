// Package mnist reads the MNIST handwritten digit set from IDX files.
package mnist

import (
	"bufio"
	"compress/gzip"
	"encoding/binary"
	"io"
	"os"

	"github.com/pkg/errors"
)

const (
	imageMagic = 2051
	labelMagic = 2049

	// Upper bound on slice capacity taken from an untrusted header count
	maxPrealloc = 1 << 16

	// Upper bound on rows*cols of a single image
	maxImageSize = 1 << 24
)

// ReadImages reads an IDX image file and returns one vector per image with
// every pixel scaled from 0..255 to [0, 1].
//
// IDX file format for images:
//
//	magic number: 0x00000803 (2051)
//	number of images: 4 bytes
//	number of rows: 4 bytes (28)
//	number of cols: 4 bytes (28)
//	pixel data: unsigned bytes (0-255)
func ReadImages(r io.Reader) ([][]float64, error) {
	if err := readMagic(r, imageMagic); err != nil {
		return nil, err
	}

	var numImages, numRows, numCols uint32
	for _, dim := range []*uint32{&numImages, &numRows, &numCols} {
		if err := binary.Read(r, binary.BigEndian, dim); err != nil {
			return nil, errors.Wrap(err, "failed to read image header")
		}
	}

	if numRows == 0 || numCols == 0 || uint64(numRows)*uint64(numCols) > maxImageSize {
		return nil, errors.Errorf("invalid image dimensions %dx%d", numRows, numCols)
	}

	imageSize := int(numRows) * int(numCols)
	images := make([][]float64, 0, min(int(numImages), maxPrealloc))
	raw := make([]byte, imageSize)

	for i := 0; i < int(numImages); i++ {
		if _, err := io.ReadFull(r, raw); err != nil {
			return nil, errors.Wrapf(err, "failed to read image %d", i)
		}
		pixels := make([]float64, imageSize)
		for j, b := range raw {
			pixels[j] = float64(b) / 255
		}
		images = append(images, pixels)
	}

	return images, nil
}

// ReadLabels reads an IDX label file.
//
// IDX file format for labels:
//
//	magic number: 0x00000801 (2049)
//	number of labels: 4 bytes
//	label data: unsigned bytes (0-9)
func ReadLabels(r io.Reader) ([]byte, error) {
	if err := readMagic(r, labelMagic); err != nil {
		return nil, err
	}

	var numLabels uint32
	if err := binary.Read(r, binary.BigEndian, &numLabels); err != nil {
		return nil, errors.Wrap(err, "failed to read label count")
	}

	// Read through a LimitReader so a bogus count cannot force a huge allocation
	labels, err := io.ReadAll(io.LimitReader(r, int64(numLabels)))
	if err != nil {
		return nil, errors.Wrap(err, "failed to read labels")
	}
	if len(labels) != int(numLabels) {
		return nil, errors.Wrapf(io.ErrUnexpectedEOF, "got %d labels, header says %d", len(labels), numLabels)
	}

	return labels, nil
}

func readMagic(r io.Reader, want uint32) error {
	var magic uint32
	if err := binary.Read(r, binary.BigEndian, &magic); err != nil {
		return errors.Wrap(err, "failed to read magic")
	}
	if magic != want {
		return errors.Errorf("invalid magic number: got %d, want %d", magic, want)
	}
	return nil
}

// file is an opened IDX file, possibly behind a gzip stream.
type file struct {
	io.Reader
	closers []io.Closer
}

func (f *file) Close() error {
	var first error
	for i := len(f.closers) - 1; i >= 0; i-- {
		if err := f.closers[i].Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Open opens an IDX file for reading. Gzip-compressed files are detected
// from their header and decompressed transparently.
func Open(path string) (io.ReadCloser, error) {
	raw, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open idx file")
	}

	buffered := bufio.NewReader(raw)
	header, err := buffered.Peek(2)
	if err != nil && err != io.EOF {
		raw.Close()
		return nil, errors.Wrapf(err, "failed to read %s", path)
	}

	if len(header) == 2 && header[0] == 0x1f && header[1] == 0x8b {
		gz, err := gzip.NewReader(buffered)
		if err != nil {
			raw.Close()
			return nil, errors.Wrapf(err, "failed to decompress %s", path)
		}
		return &file{Reader: gz, closers: []io.Closer{raw, gz}}, nil
	}

	return &file{Reader: buffered, closers: []io.Closer{raw}}, nil
}
