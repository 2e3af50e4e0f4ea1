// Package encoding resolves the character encoding of a tabular input
// file. A statistical guess from a byte sample heads an ordered list
// of fixed fallback candidates; each candidate attempts a full tabular
// parse and the first one that decodes and parses cleanly wins. When
// every candidate fails a final attempt runs with no explicit decoder,
// and only after that does the resolver give up.
package encoding

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/net/html/charset"
	textencoding "golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"

	"popprep/internal/dataset"
	"popprep/pkg/errors"
)

// DefaultSampleSize is the number of bytes read for detection unless
// configured otherwise; shorter files are sampled in full.
const DefaultSampleSize = 100000

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// fallbackCandidates are appended after the detected guess, in order.
var fallbackCandidates = []string{"utf-8-sig", "utf-8", "latin1", "windows-1252"}

// Resolver detects and resolves input file encodings.
type Resolver struct {
	sampleSize int
	logger     *zap.Logger
}

// NewResolver creates a Resolver with the given detection sample size.
// A non-positive sample size falls back to DefaultSampleSize.
func NewResolver(sampleSize int, logger *zap.Logger) *Resolver {
	if sampleSize <= 0 {
		sampleSize = DefaultSampleSize
	}
	return &Resolver{
		sampleSize: sampleSize,
		logger:     logger.With(zap.String("component", "encoding_resolver")),
	}
}

// Detect reads up to the configured sample size from the start of the
// file and runs statistical charset detection. It returns the guessed
// encoding name, or the empty string when detection abstains.
func (r *Resolver) Detect(path string) (string, error) {
	raw, err := dataset.OpenRaw(path)
	if err != nil {
		return "", err
	}
	defer raw.Close()

	sample := make([]byte, r.sampleSize)
	n, err := io.ReadFull(raw, sample)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return "", fmt.Errorf("failed to sample %s: %w", path, err)
	}
	sample = sample[:n]

	// A UTF-8 signature is decisive on its own, and the signature must
	// be stripped rather than decoded into the first header name.
	if bytes.HasPrefix(sample, utf8BOM) {
		r.logger.Info("detected encoding", zap.String("encoding", "utf-8-sig"))
		return "utf-8-sig", nil
	}

	_, name, certain := charset.DetermineEncoding(sample, "")
	if !certain {
		r.logger.Info("encoding detection abstained")
		return "", nil
	}

	r.logger.Info("detected encoding", zap.String("encoding", name))
	return name, nil
}

// Candidates builds the ordered candidate list from a detected guess.
// An empty guess is skipped; order is preserved and duplicates are
// deliberately not removed.
func Candidates(detected string) []string {
	candidates := make([]string, 0, len(fallbackCandidates)+1)
	if detected != "" {
		candidates = append(candidates, detected)
	}
	return append(candidates, fallbackCandidates...)
}

// Load resolves the encoding of the file at path and parses it as a
// header + rows tabular structure. It returns the loaded dataset and
// the name of the encoding that succeeded ("default" for the final
// attempt without an explicit decoder).
func (r *Resolver) Load(path string) (*dataset.Dataset, string, error) {
	detected, err := r.Detect(path)
	if err != nil {
		return nil, "", err
	}

	var lastErr error
	for _, name := range Candidates(detected) {
		ds, err := r.tryLoad(path, name)
		if err != nil {
			lastErr = err
			r.logger.Warn("parse attempt failed",
				zap.String("encoding", name),
				zap.Error(err))
			continue
		}
		r.logger.Info("parse attempt succeeded", zap.String("encoding", name))
		return ds, name, nil
	}

	// Final attempt with no explicit decoder. Its failure is reported,
	// but the error that propagates is the last candidate's.
	ds, err := r.tryLoad(path, "")
	if err != nil {
		r.logger.Warn("parse attempt failed",
			zap.String("encoding", "default"),
			zap.Error(err))
		return nil, "", errors.Wrap(lastErr, errors.ErrorTypeDecoding,
			"every encoding candidate failed to parse "+path)
	}

	r.logger.Info("parse attempt succeeded", zap.String("encoding", "default"))
	return ds, "default", nil
}

// tryLoad attempts one full parse of the file under the named
// encoding. An empty name parses the raw bytes as-is.
func (r *Resolver) tryLoad(path, name string) (*dataset.Dataset, error) {
	raw, err := dataset.OpenRaw(path)
	if err != nil {
		return nil, err
	}
	defer raw.Close()

	reader := io.Reader(raw)
	if name != "" {
		reader, err = decodingReader(raw, name)
		if err != nil {
			return nil, err
		}
	}

	return dataset.Load(reader)
}

// decodingReader wraps raw with a decoder for the named encoding.
// UTF-8 attempts validate strictly so that undecodable bytes fail the
// attempt instead of turning into replacement runes.
func decodingReader(raw io.Reader, name string) (io.Reader, error) {
	switch strings.ToLower(name) {
	case "utf-8-sig":
		br := bufio.NewReader(raw)
		prefix, err := br.Peek(len(utf8BOM))
		if err == nil && bytes.Equal(prefix, utf8BOM) {
			if _, err := br.Discard(len(utf8BOM)); err != nil {
				return nil, err
			}
		}
		return transform.NewReader(br, textencoding.UTF8Validator), nil
	case "utf-8", "utf8", "ascii", "us-ascii":
		return transform.NewReader(raw, textencoding.UTF8Validator), nil
	case "latin1", "latin-1", "iso-8859-1":
		return transform.NewReader(raw, charmap.ISO8859_1.NewDecoder()), nil
	case "windows-1252", "cp1252":
		return transform.NewReader(raw, charmap.Windows1252.NewDecoder()), nil
	default:
		enc, err := htmlindex.Get(name)
		if err != nil {
			return nil, fmt.Errorf("unknown encoding %q: %w", name, err)
		}
		return transform.NewReader(raw, enc.NewDecoder()), nil
	}
}
