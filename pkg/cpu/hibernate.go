package cpu

import (
	"archive/zip"
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
)

var errEntryNotFound = errors.New("not found")

// humanReadableState is the JSON-serializable snapshot of CPU control state.
type humanReadableState struct {
	A      uint16 `json:"a"`
	D      uint16 `json:"d"`
	PC     uint16 `json:"pc"`
	Halted bool   `json:"halted"`
	Steps  uint64 `json:"steps"`
}

// HibernateToBytes serialises the machine into an in-memory ZIP archive:
// cpu_state.json plus ram.bin and rom.bin as little-endian words.
func (c *CPU) HibernateToBytes() ([]byte, error) {
	buf := new(bytes.Buffer)
	zw := zip.NewWriter(buf)

	state := humanReadableState{
		A:      c.A,
		D:      c.D,
		PC:     c.PC,
		Halted: c.Halted,
		Steps:  c.Steps,
	}
	jsonData, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal cpu_state: %w", err)
	}
	if err := writeZipEntry(zw, "cpu_state.json", jsonData); err != nil {
		return nil, err
	}
	if err := writeZipEntry(zw, "ram.bin", uint16SliceToLE(c.RAM[:])); err != nil {
		return nil, err
	}
	if err := writeZipEntry(zw, "rom.bin", uint16SliceToLE(c.ROM[:])); err != nil {
		return nil, err
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close zip: %w", err)
	}
	return buf.Bytes(), nil
}

// RestoreFromBytes applies an archive produced by HibernateToBytes. Missing
// memory images leave the corresponding memory untouched.
func (c *CPU) RestoreFromBytes(data []byte) error {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return fmt.Errorf("open zip: %w", err)
	}

	fileMap := make(map[string]*zip.File, len(r.File))
	for _, f := range r.File {
		fileMap[f.Name] = f
	}

	jsonData, err := readZipEntry(fileMap, "cpu_state.json")
	if err != nil {
		return err
	}
	var state humanReadableState
	if err := json.Unmarshal(jsonData, &state); err != nil {
		return fmt.Errorf("unmarshal cpu_state: %w", err)
	}

	c.A = state.A
	c.D = state.D
	c.PC = state.PC
	c.Halted = state.Halted
	c.Steps = state.Steps

	images := []struct {
		name string
		dst  []uint16
	}{
		{"ram.bin", c.RAM[:]},
		{"rom.bin", c.ROM[:]},
	}
	for _, img := range images {
		raw, err := readZipEntry(fileMap, img.name)
		if errors.Is(err, errEntryNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		leToUint16Slice(raw, img.dst)
	}
	return nil
}

// HibernateToFile writes the hibernation archive to the given file path.
func (c *CPU) HibernateToFile(path string) error {
	data, err := c.HibernateToBytes()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// RestoreFromFile reads a hibernation archive from the given file path.
func (c *CPU) RestoreFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return c.RestoreFromBytes(data)
}

func writeZipEntry(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("create zip entry %q: %w", name, err)
	}
	_, err = w.Write(data)
	return err
}

func readZipEntry(fileMap map[string]*zip.File, name string) ([]byte, error) {
	f, ok := fileMap[name]
	if !ok {
		return nil, fmt.Errorf("zip entry %q: %w", name, errEntryNotFound)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open zip entry %q: %w", name, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read zip entry %q: %w", name, err)
	}
	return data, nil
}

func uint16SliceToLE(src []uint16) []byte {
	out := make([]byte, len(src)*2)
	for i, v := range src {
		binary.LittleEndian.PutUint16(out[i*2:], v)
	}
	return out
}

func leToUint16Slice(src []byte, dst []uint16) {
	for i := range dst {
		if i*2+1 < len(src) {
			dst[i] = binary.LittleEndian.Uint16(src[i*2:])
		}
	}
}
