package dirarchive

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
)

const (
	// entryPrefix marks directories holding a stored entry.
	entryPrefix = "K_"
	// tempPrefix marks directories still being written.
	tempPrefix = "I_"

	outputBase = "output"
	inputBase  = "input"

	// maxNameLen keeps entry names well under common filesystem limits.
	maxNameLen = 200
)

// isToken reports whether key cannot be used verbatim as a directory name.
// Such keys are typically serialized argument tokens produced by a key codec.
func isToken(key string) bool {
	if key == "" || key == "." || key == ".." || len(key) > maxNameLen {
		return true
	}
	for i := 0; i < len(key); i++ {
		if !safeByte(key[i]) {
			return true
		}
	}
	return false
}

func safeByte(b byte) bool {
	switch {
	case b >= 'a' && b <= 'z', b >= 'A' && b <= 'Z', b >= '0' && b <= '9':
		return true
	}
	return strings.IndexByte("._-=+,@", b) >= 0
}

// entryName maps key to the filesystem-safe part of its directory name.
// Tokens are content-addressed by their MD5 digest.
func entryName(key string) string {
	if !isToken(key) {
		return key
	}
	sum := md5.Sum([]byte(key))
	return hex.EncodeToString(sum[:])
}

// needsInput reports whether the original key must be stored alongside the
// value so that Keys can recover it.
func needsInput(key string) bool {
	return entryName(key) != key
}
