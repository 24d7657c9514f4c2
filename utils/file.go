// utils/file.go
package utils

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"os"
	"path/filepath"
)

// MaxAvatarSize is the upload cap for avatar JPEGs.
const MaxAvatarSize = 4 << 20

var jpegMagic = []byte{0xFF, 0xD8, 0xFF}

// IsJPEG reports whether the payload starts with the JPEG magic bytes.
func IsJPEG(data []byte) bool {
	return bytes.HasPrefix(data, jpegMagic)
}

// RandomFileToken returns a fresh 64-character hex name for a CDN object.
func RandomFileToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// AvatarPath resolves an avatar token to its on-disk location.
func AvatarPath(siteRoot, token string) string {
	return filepath.Join(siteRoot, "cdn", "users", token+".jpg")
}

// SaveAvatar writes avatar bytes under <siteRoot>/cdn/users/<token>.jpg,
// creating the directory if needed.
func SaveAvatar(siteRoot, token string, data []byte) error {
	path := AvatarPath(siteRoot, token)
	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// RemoveAvatar deletes an avatar file; a missing file is not an error.
func RemoveAvatar(siteRoot, token string) error {
	err := os.Remove(AvatarPath(siteRoot, token))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
