// Package compile produces compiled .uwc artifacts from smartBASIC source.
// It prefers a local XComp cross compiler matching the module's model and
// falls back to the online compile service when none is installed.
package compile

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// ErrCompileFailed wraps every compiler rejection, local or online, so
// callers can treat them uniformly.
var ErrCompileFailed = errors.New("compilation failed")

// ParamReader reads numbered configuration parameters from a module. The
// online fallback needs parameters 0 (model) and 3 (firmware code) to pick
// the right compiler variant.
type ParamReader interface {
	ReadParam(param int) (string, error)
}

// Dispatcher selects between a local XComp executable and the online
// service. Callers do not learn which one ran; either way they get the path
// of the compiled artifact.
type Dispatcher struct {
	// Model selects the local compiler, e.g. "BL600r2_1.5.70.0_rel2"
	// locates "XComp_BL600r2_1.5.70.0_rel2.exe" in Dir.
	Model string
	// Dir is where XComp executables live.
	Dir string
	// Online is the fallback used when no local compiler matches. Nil
	// means no fallback is available.
	Online *Online
	Logger *slog.Logger
}

// Artifact returns the compiled artifact path for a source path.
func Artifact(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + ".uwc"
}

// Compile produces the artifact for the given source file and returns its
// path.
func (d *Dispatcher) Compile(path string) (string, error) {
	path, err := resolveSource(path)
	if err != nil {
		return "", err
	}

	compiler := filepath.Join(d.Dir, "XComp_"+d.Model+".exe")
	if _, err := os.Stat(compiler); err != nil {
		if d.Online == nil {
			return "", fmt.Errorf("no local compiler %s and no online fallback", compiler)
		}
		return d.Online.Compile(path)
	}

	d.logger().Info("compiling", "source", path, "compiler", filepath.Base(compiler))
	args := []string{compiler, path}
	if runtime.GOOS != "windows" {
		// XComp is a Windows executable; elsewhere it runs under wine.
		args = append([]string{"wine"}, args...)
	}
	cmd := exec.Command(args[0], args[1:]...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrCompileFailed, err)
	}
	d.logger().Info("compilation success")
	return Artifact(path), nil
}

func (d *Dispatcher) logger() *slog.Logger {
	if d.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return d.Logger
}

// resolveSource expands a leading "~", makes the path absolute and verifies
// the file exists.
func resolveSource(path string) (string, error) {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		path = filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	path, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("file %q not found", path)
	}
	return path, nil
}
