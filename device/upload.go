package device

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// chunkSize is how many artifact bytes go into one write command. Each byte
// becomes two hex digits on the wire.
const chunkSize = 16

// Upload streams a compiled artifact onto the module's file system and
// returns the remote name it was stored under. The path is coerced to the
// compiled ".uwc" extension first. The command order is fixed: delete any
// previous copy, open for write, one hex-encoded write per chunk, close
// last — even for an empty file. Any chunk failure aborts the upload and
// surfaces the module's error.
func (d *Device) Upload(path string) (string, error) {
	if err := d.require(StateReset, "upload"); err != nil {
		return "", err
	}

	if ext := filepath.Ext(path); ext != ".uwc" {
		path = strings.TrimSuffix(path, ext) + ".uwc"
	}
	remote := RemoteName(path)
	d.logger.Info("uploading", "path", path, "as", remote)

	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open artifact: %w", err)
	}
	defer f.Close()

	// Delete any previous copy. The only thing the module can reject here
	// is a missing file, so a device-reported error is not a failure;
	// anything else still is.
	if _, err := d.exec(fmt.Sprintf("+DEL \"%s\" +", remote), d.config.CommandTimeout); err != nil {
		var devErr *DeviceError
		if !errors.As(err, &devErr) {
			return "", err
		}
	}

	if _, err := d.exec(fmt.Sprintf("+FOW \"%s\"", remote), d.config.CommandTimeout); err != nil {
		return "", fmt.Errorf("open remote file: %w", err)
	}

	chunk := make([]byte, chunkSize)
	for {
		n, err := io.ReadFull(f, chunk)
		if n > 0 {
			row := hex.EncodeToString(chunk[:n])
			if _, werr := d.exec(fmt.Sprintf("+FWRH \"%s\"", row), d.config.CommandTimeout); werr != nil {
				return "", fmt.Errorf("write chunk: %w", werr)
			}
		}
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("read artifact: %w", err)
		}
	}

	if _, err := d.exec("+FCL", d.config.CommandTimeout); err != nil {
		return "", fmt.Errorf("close remote file: %w", err)
	}
	return remote, nil
}
