package device

import (
	"path/filepath"
	"strings"
)

// maxRemoteNameLen is the module file system's name length limit.
const maxRemoteNameLen = 24

// RemoteName derives an acceptable module file system name from a local
// file path: the base name up to its first dot, with characters the file
// system rejects removed, capped at the length limit. Normalizing an
// already-normalized name yields the same name.
func RemoteName(path string) string {
	name := filepath.Base(path)
	if i := strings.IndexByte(name, '.'); i >= 0 {
		name = name[:i]
	}
	name = strings.Map(func(r rune) rune {
		switch r {
		case ':', '*', '?', '"', '<', '>', '|':
			return -1
		}
		return r
	}, name)
	if len(name) > maxRemoteNameLen {
		name = name[:maxRemoteNameLen]
	}
	return name
}
