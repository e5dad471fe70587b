package session

import (
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/goccy/go-yaml"
	"github.com/klauspost/compress/zstd"
)

// Codec turns sessions into the stored form: JSON compressed with zstd
type Codec struct {
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

// NewCodec creates a codec compressing at a zstd level (1-22). Levels
// outside that range use the zstd default.
func NewCodec(level int) (*Codec, error) {
	opts := []zstd.EOption{}
	if level > 0 {
		opts = append(opts, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)))
	}
	enc, err := zstd.NewWriter(nil, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	return &Codec{encoder: enc, decoder: dec}, nil
}

// Close releases the decoder's goroutines
func (c *Codec) Close() {
	c.decoder.Close()
	_ = c.encoder.Close()
}

// Encode serializes and compresses s
func (c *Codec) Encode(s *Session) ([]byte, error) {
	data, err := sonic.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal session: %w", err)
	}
	return c.encoder.EncodeAll(data, make([]byte, 0, len(data)/2)), nil
}

// Decode reverses Encode and validates the result
func (c *Codec) Decode(data []byte) (*Session, error) {
	raw, err := c.decoder.DecodeAll(data, nil)
	if err != nil {
		return nil, errorf("decompress: %v", err)
	}
	var s Session
	if err := sonic.Unmarshal(raw, &s); err != nil {
		return nil, errorf("unmarshal: %v", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// ExportYAML renders s for people to read and edit
func ExportYAML(s *Session) ([]byte, error) {
	out, err := yaml.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal session yaml: %w", err)
	}
	return out, nil
}

// ImportYAML parses a document produced by ExportYAML. The ID is kept
// as written; callers decide whether to mint a new one.
func ImportYAML(data []byte) (*Session, error) {
	var s Session
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, errorf("yaml: %v", err)
	}
	return &s, nil
}

func errorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidSession, fmt.Sprintf(format, args...))
}
