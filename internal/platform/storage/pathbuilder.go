package storage

import (
	"fmt"
	"strings"
)

// BuildMediaPath composes the object key for a customer media upload. Folder
// and file type come from the client and are validated so they cannot escape
// the uploads prefix; the upload id is server generated.
func BuildMediaPath(folder, fileType, uploadID, fileName string) (string, error) {
	parts := []string{"uploads"}
	for _, seg := range []struct{ name, value string }{
		{"folder", folder},
		{"fileType", fileType},
		{"uploadID", uploadID},
		{"fileName", fileName},
	} {
		cleaned, err := cleanSegment(seg.name, seg.value)
		if err != nil {
			return "", err
		}
		parts = append(parts, cleaned)
	}
	return strings.Join(parts, "/"), nil
}

func cleanSegment(name, value string) (string, error) {
	value = strings.TrimSpace(value)
	switch {
	case value == "":
		return "", fmt.Errorf("storage: %s is required", name)
	case strings.ContainsAny(value, "/\\"):
		return "", fmt.Errorf("storage: %s contains invalid path characters", name)
	case strings.Contains(value, ".."):
		return "", fmt.Errorf("storage: %s contains invalid traversal sequence", name)
	}
	return value, nil
}
