package device_test

import (
	"bytes"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/dsiganos/blutil/device"
)

func writeArtifact(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write artifact: %v", err)
	}
	return path
}

// okResponses scripts n successful command exchanges.
func okResponses(n int) []string {
	resp := make([]string, n)
	for i := range resp {
		resp[i] = "00\r"
	}
	return resp
}

func TestUpload(t *testing.T) {
	t.Run("20-byte artifact uploads as two chunks in order", func(t *testing.T) {
		data := []byte("0123456789abcdefghij") // 16 + 4
		path := writeArtifact(t, "blinky.uwc", data)

		// delete + open + 2 chunks + close
		tr := device.NewTestTransport(okResponses(5)...)
		d := resetTestDevice(t, tr, nil)

		remote, err := d.Upload(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if remote != "blinky" {
			t.Errorf("remote name = %q, want %q", remote, "blinky")
		}

		expected := []string{
			"AT+DEL \"blinky\" +\r",
			"AT+FOW \"blinky\"\r",
			"AT+FWRH \"" + hex.EncodeToString(data[:16]) + "\"\r",
			"AT+FWRH \"" + hex.EncodeToString(data[16:]) + "\"\r",
			"AT+FCL\r",
		}
		writes := tr.Writes()
		if len(writes) != len(expected) {
			t.Fatalf("writes = %v, want %v", writes, expected)
		}
		for i := range expected {
			if writes[i] != expected[i] {
				t.Errorf("write %d = %q, want %q", i, writes[i], expected[i])
			}
		}
	})

	t.Run("Empty artifact still issues delete, open and close", func(t *testing.T) {
		path := writeArtifact(t, "empty.uwc", nil)

		tr := device.NewTestTransport(okResponses(3)...)
		d := resetTestDevice(t, tr, nil)

		if _, err := d.Upload(path); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		expected := []string{
			"AT+DEL \"empty\" +\r",
			"AT+FOW \"empty\"\r",
			"AT+FCL\r",
		}
		writes := tr.Writes()
		if len(writes) != len(expected) {
			t.Fatalf("writes = %v, want %v", writes, expected)
		}
		for i := range expected {
			if writes[i] != expected[i] {
				t.Errorf("write %d = %q, want %q", i, writes[i], expected[i])
			}
		}
	})

	t.Run("Chunk count and hex length for odd sizes", func(t *testing.T) {
		data := bytes.Repeat([]byte{0xA5}, 33) // 3 chunks: 16+16+1
		path := writeArtifact(t, "odd.uwc", data)

		tr := device.NewTestTransport(okResponses(6)...)
		d := resetTestDevice(t, tr, nil)

		if _, err := d.Upload(path); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		var chunks []string
		for _, w := range tr.Writes() {
			if len(w) > 9 && w[:9] == "AT+FWRH \"" {
				chunks = append(chunks, w[9:len(w)-2])
			}
		}
		if len(chunks) != 3 {
			t.Fatalf("chunk commands = %d, want 3", len(chunks))
		}
		wantLens := []int{32, 32, 2}
		for i, c := range chunks {
			if len(c) != wantLens[i] {
				t.Errorf("chunk %d hex length = %d, want %d", i, len(c), wantLens[i])
			}
		}
	})

	t.Run("Source path is coerced to the compiled extension", func(t *testing.T) {
		dir := t.TempDir()
		artifact := filepath.Join(dir, "blinky.uwc")
		if err := os.WriteFile(artifact, []byte{1, 2, 3}, 0o644); err != nil {
			t.Fatalf("write artifact: %v", err)
		}

		tr := device.NewTestTransport(okResponses(4)...)
		d := resetTestDevice(t, tr, nil)

		// Caller passes the .sb source; the .uwc next to it is uploaded.
		if _, err := d.Upload(filepath.Join(dir, "blinky.sb")); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("Rejected delete-if-exists is tolerated", func(t *testing.T) {
		path := writeArtifact(t, "new.uwc", []byte{1})

		tr := device.NewTestTransport(append([]string{"\n01\t1801\r"}, okResponses(3)...)...)
		d := resetTestDevice(t, tr, nil)

		if _, err := d.Upload(path); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("Chunk write failure aborts before close", func(t *testing.T) {
		data := bytes.Repeat([]byte{1}, 40)
		path := writeArtifact(t, "fail.uwc", data)

		tr := device.NewTestTransport(
			"00\r",       // delete
			"00\r",       // open
			"00\r",       // chunk 1
			"\n01\t18\r", // chunk 2 rejected
		)
		d := resetTestDevice(t, tr, nil)

		_, err := d.Upload(path)
		var devErr *device.DeviceError
		if !errors.As(err, &devErr) {
			t.Fatalf("expected DeviceError, got: %v", err)
		}
		for _, w := range tr.Writes() {
			if w == "AT+FCL\r" {
				t.Error("close must not be issued after an aborted upload")
			}
		}
	})

	t.Run("Missing artifact fails before touching the wire", func(t *testing.T) {
		tr := device.NewTestTransport()
		d := resetTestDevice(t, tr, nil)

		_, err := d.Upload(filepath.Join(t.TempDir(), "nope.uwc"))
		if err == nil {
			t.Fatal("expected error for missing artifact")
		}
		if writes := tr.Writes(); len(writes) != 0 {
			t.Errorf("writes = %v, want none", writes)
		}
	})
}
