//go:build !linux && !darwin

package tempfile

func freeSpace(string) (int64, error) { return -1, nil }
