package audioio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// ErrUnsupportedWAV is returned for WAV files that are not 16-bit PCM.
var ErrUnsupportedWAV = errors.New("audioio: only 16-bit PCM WAV is supported")

// EncodeWAV writes chunk as a canonical 44-byte-header PCM16 WAV file.
func EncodeWAV(w io.Writer, chunk AudioChunk) error {
	data := chunk.Bytes()
	blockAlign := chunk.Channels * 2

	header := struct {
		RIFF          [4]byte
		Size          uint32
		WAVE          [4]byte
		Fmt           [4]byte
		FmtSize       uint32
		Format        uint16
		Channels      uint16
		SampleRate    uint32
		ByteRate      uint32
		BlockAlign    uint16
		BitsPerSample uint16
		Data          [4]byte
		DataSize      uint32
	}{
		RIFF:          [4]byte{'R', 'I', 'F', 'F'},
		Size:          uint32(36 + len(data)),
		WAVE:          [4]byte{'W', 'A', 'V', 'E'},
		Fmt:           [4]byte{'f', 'm', 't', ' '},
		FmtSize:       16,
		Format:        1,
		Channels:      uint16(chunk.Channels),
		SampleRate:    uint32(chunk.SampleRate),
		ByteRate:      uint32(chunk.SampleRate * blockAlign),
		BlockAlign:    uint16(blockAlign),
		BitsPerSample: 16,
		Data:          [4]byte{'d', 'a', 't', 'a'},
		DataSize:      uint32(len(data)),
	}

	if err := binary.Write(w, binary.LittleEndian, header); err != nil {
		return fmt.Errorf("write wav header: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write wav data: %w", err)
	}
	return nil
}

// DecodeWAV reads a PCM16 WAV file, skipping chunks other than fmt and data.
func DecodeWAV(r io.Reader) (AudioChunk, error) {
	var riff [12]byte
	if _, err := io.ReadFull(r, riff[:]); err != nil {
		return AudioChunk{}, fmt.Errorf("read riff header: %w", err)
	}
	if string(riff[0:4]) != "RIFF" || string(riff[8:12]) != "WAVE" {
		return AudioChunk{}, errors.New("audioio: not a WAV file")
	}

	var out AudioChunk
	var haveFmt bool
	for {
		var hdr [8]byte
		if _, err := io.ReadFull(r, hdr[:]); err != nil {
			return AudioChunk{}, fmt.Errorf("read chunk header: %w", err)
		}
		id := string(hdr[0:4])
		size := binary.LittleEndian.Uint32(hdr[4:8])

		switch id {
		case "fmt ":
			buf := make([]byte, size)
			if _, err := io.ReadFull(r, buf); err != nil {
				return AudioChunk{}, fmt.Errorf("read fmt chunk: %w", err)
			}
			if size < 16 || binary.LittleEndian.Uint16(buf[0:2]) != 1 || binary.LittleEndian.Uint16(buf[14:16]) != 16 {
				return AudioChunk{}, ErrUnsupportedWAV
			}
			out.Channels = int(binary.LittleEndian.Uint16(buf[2:4]))
			out.SampleRate = int(binary.LittleEndian.Uint32(buf[4:8]))
			haveFmt = true
		case "data":
			if !haveFmt {
				return AudioChunk{}, errors.New("audioio: data chunk before fmt chunk")
			}
			buf := make([]byte, size)
			n, err := io.ReadFull(r, buf)
			if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
				return AudioChunk{}, fmt.Errorf("read data chunk: %w", err)
			}
			out.Samples = BytesToSamples(buf[:n])
			return out, nil
		default:
			skip := int64(size + size%2)
			if _, err := io.CopyN(io.Discard, r, skip); err != nil {
				return AudioChunk{}, fmt.Errorf("skip %q chunk: %w", id, err)
			}
		}
	}
}
