package storage

import (
	"bytes"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pierrec/lz4/v4"
	"lukechampine.com/blake3"

	"github.com/MRamiBalles/IdleAbsurditree/internal/domain/gamedata"
)

// SaveFormatVersion is written into every save envelope.
const SaveFormatVersion = 1

const exportPrefix = "absurditree:"

// LZ4 frame magic number, little endian.
var lz4Magic = []byte{0x04, 0x22, 0x4d, 0x18}

type envelope struct {
	Format   int             `json:"format"`
	Checksum string          `json:"checksum"`
	SavedAt  time.Time       `json:"saved_at"`
	Data     json.RawMessage `json:"data"`
}

func checksum(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func newEnvelope(d *gamedata.GameData) (envelope, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return envelope{}, fmt.Errorf("failed to marshal game data: %w", err)
	}
	return envelope{
		Format:   SaveFormatVersion,
		Checksum: checksum(data),
		SavedAt:  time.Now().UTC(),
		Data:     data,
	}, nil
}

// Encode serializes a record into a checksummed envelope.
// Uncompressed output is indented JSON so save files stay readable.
func Encode(d *gamedata.GameData, compress bool) ([]byte, error) {
	env, err := newEnvelope(d)
	if err != nil {
		return nil, err
	}
	if !compress {
		return json.MarshalIndent(env, "", "  ")
	}
	raw, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal save envelope: %w", err)
	}
	return compressLZ4(raw)
}

// Decode parses plain or LZ4-compressed envelopes and verifies the checksum.
// Every failure wraps ErrCorruptSave.
func Decode(raw []byte) (*gamedata.GameData, error) {
	if bytes.HasPrefix(raw, lz4Magic) {
		plain, err := decompressLZ4(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorruptSave, err)
		}
		raw = plain
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSave, err)
	}
	if env.Format != SaveFormatVersion {
		return nil, fmt.Errorf("%w: unsupported format %d", ErrCorruptSave, env.Format)
	}
	if len(env.Data) == 0 {
		return nil, fmt.Errorf("%w: empty data", ErrCorruptSave)
	}

	// Indented files carry whitespace inside data; the checksum covers the compact form.
	var compact bytes.Buffer
	if err := json.Compact(&compact, env.Data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSave, err)
	}
	if checksum(compact.Bytes()) != env.Checksum {
		return nil, fmt.Errorf("%w: checksum mismatch", ErrCorruptSave)
	}

	var d gamedata.GameData
	if err := json.Unmarshal(compact.Bytes(), &d); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSave, err)
	}
	if d.GeneratorCounts == nil {
		d.GeneratorCounts = []int{}
	}
	return &d, nil
}

// ExportString renders a record as a single line of text that ImportString reads back.
func ExportString(d *gamedata.GameData) (string, error) {
	raw, err := Encode(d, true)
	if err != nil {
		return "", err
	}
	return exportPrefix + base64.StdEncoding.EncodeToString(raw), nil
}

// ImportString parses the output of ExportString.
func ImportString(s string) (*gamedata.GameData, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, exportPrefix) {
		return nil, fmt.Errorf("%w: missing %q prefix", ErrCorruptSave, exportPrefix)
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(s, exportPrefix))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSave, err)
	}
	return Decode(raw)
}

func compressLZ4(src []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := lz4.NewWriter(&buf)
	if _, err := zw.Write(src); err != nil {
		return nil, fmt.Errorf("lz4 write: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("lz4 close: %w", err)
	}
	return buf.Bytes(), nil
}

func decompressLZ4(src []byte) ([]byte, error) {
	zr := lz4.NewReader(bytes.NewReader(src))
	out, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("lz4 read: %w", err)
	}
	return out, nil
}
