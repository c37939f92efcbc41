package lifecycle

import (
	"bytes"
	"os"
	"strconv"
)

// WritePIDFile writes the current process id to path.
func WritePIDFile(path string) error {
	data := strconv.AppendInt(nil, int64(os.Getpid()), 10)
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return newError(ErrCodePIDFile, "write "+path, err)
	}
	return nil
}

// RemovePIDFile removes path if it still holds this process id.
func RemovePIDFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return newError(ErrCodePIDFile, "read "+path, err)
	}
	if string(bytes.TrimSpace(data)) != strconv.Itoa(os.Getpid()) {
		return nil
	}
	if err := os.Remove(path); err != nil {
		return newError(ErrCodePIDFile, "remove "+path, err)
	}
	return nil
}
