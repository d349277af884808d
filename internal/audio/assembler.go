package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
)

// Assembler concatenates per-utterance WAV chunks into a single continuous
// WAV track. Chunks must be appended in playback order. Each chunk file is
// removed from disk as soon as its samples have been folded into the output,
// so only one chunk is ever held besides the growing track.
//
//	asm, err := audio.NewAssembler(filepath.Join(dir, "episode.wav"))
//	if err != nil { ... }
//	defer asm.Close()
//	for _, chunk := range chunks {
//	    if err := asm.AppendFile(chunk); err != nil { ... }
//	}
//	if err := asm.Finish(); err != nil { ... }
type Assembler struct {
	out      *os.File
	path     string
	rate     int
	channels int
	dataLen  int
	finished bool
}

// NewAssembler creates the output track at path and reserves space for the
// WAV header, which is written with final sizes by Finish.
func NewAssembler(path string) (*Assembler, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("audio: create track: %w", err)
	}
	if _, err := f.Write(make([]byte, 44)); err != nil {
		f.Close()
		return nil, fmt.Errorf("audio: reserve track header: %w", err)
	}
	return &Assembler{out: f, path: path}, nil
}

// Path returns the location of the output track.
func (a *Assembler) Path() string {
	return a.path
}

// AppendFile folds the WAV chunk at path into the track and deletes the chunk
// file. The first chunk fixes the track's sample rate and channel count; later
// chunks at a different mono sample rate are resampled to match, anything else
// is rejected.
func (a *Assembler) AppendFile(path string) error {
	wav, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("audio: read chunk: %w", err)
	}
	if err := a.Append(wav); err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("audio: remove folded chunk: %w", err)
	}
	return nil
}

// Append folds a WAV chunk held in memory into the track.
func (a *Assembler) Append(wav []byte) error {
	if a.finished {
		return errors.New("audio: append to finished track")
	}
	info, err := ParseWAV(wav)
	if err != nil {
		return err
	}
	if info.BitsPerSample != 16 {
		return fmt.Errorf("audio: unsupported bit depth %d", info.BitsPerSample)
	}

	pcm := wav[info.DataOffset : info.DataOffset+info.DataLen]

	if a.rate == 0 {
		a.rate = info.SampleRate
		a.channels = info.Channels
	} else if info.SampleRate != a.rate || info.Channels != a.channels {
		if info.Channels != 1 || a.channels != 1 {
			return fmt.Errorf("audio: chunk format %dHz/%dch does not match track %dHz/%dch",
				info.SampleRate, info.Channels, a.rate, a.channels)
		}
		pcm = ResampleMono16(pcm, info.SampleRate, a.rate)
	}

	if _, err := a.out.Write(pcm); err != nil {
		return fmt.Errorf("audio: write track samples: %w", err)
	}
	a.dataLen += len(pcm)
	return nil
}

// Finish writes the WAV header with final sizes and closes the track file.
func (a *Assembler) Finish() error {
	if a.finished {
		return nil
	}
	a.finished = true
	if a.dataLen == 0 {
		a.out.Close()
		return errors.New("audio: no samples appended to track")
	}

	header := make([]byte, 44)
	blockAlign := a.channels * 2
	copy(header[0:4], "RIFF")
	binary.LittleEndian.PutUint32(header[4:8], uint32(36+a.dataLen))
	copy(header[8:12], "WAVE")
	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:20], 16)
	binary.LittleEndian.PutUint16(header[20:22], 1)
	binary.LittleEndian.PutUint16(header[22:24], uint16(a.channels))
	binary.LittleEndian.PutUint32(header[24:28], uint32(a.rate))
	binary.LittleEndian.PutUint32(header[28:32], uint32(a.rate*blockAlign))
	binary.LittleEndian.PutUint16(header[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(header[34:36], 16)
	copy(header[36:40], "data")
	binary.LittleEndian.PutUint32(header[40:44], uint32(a.dataLen))

	if _, err := a.out.WriteAt(header, 0); err != nil {
		a.out.Close()
		return fmt.Errorf("audio: write track header: %w", err)
	}
	if err := a.out.Close(); err != nil {
		return fmt.Errorf("audio: close track: %w", err)
	}
	return nil
}

// Close releases the track file without finalizing it. Safe to call after
// Finish.
func (a *Assembler) Close() error {
	if a.finished {
		return nil
	}
	a.finished = true
	return a.out.Close()
}
