package httpclient

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// maxBodyFile bounds payloads loaded from disk.
const maxBodyFile = 32 << 20

// LoadBody returns the request payload given either inline content or a file
// path. Supplying both is an error; supplying neither yields nil.
func LoadBody(body, bodyFile string) ([]byte, error) {
	bodyFile = strings.TrimSpace(bodyFile)
	if body != "" && bodyFile != "" {
		return nil, errors.New("body and body file cannot both be provided")
	}

	if body != "" {
		return []byte(body), nil
	}
	if bodyFile == "" {
		return nil, nil
	}

	info, err := os.Stat(bodyFile)
	if err != nil {
		return nil, fmt.Errorf("body file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("body file %q is a directory", bodyFile)
	}
	if info.Size() > maxBodyFile {
		return nil, fmt.Errorf("body file %q exceeds %d bytes", bodyFile, maxBodyFile)
	}

	data, err := os.ReadFile(bodyFile)
	if err != nil {
		return nil, fmt.Errorf("body file: %w", err)
	}
	return data, nil
}
