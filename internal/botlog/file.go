package botlog

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// NextLogFile returns the first free name of the form dd-mm-yyyy.log,
// dd-mm-yyyy-1.log, dd-mm-yyyy-2.log, ... in dir.
func NextLogFile(dir string, now time.Time) (string, error) {
	day := now.Format("02-01-2006")
	path := filepath.Join(dir, day+".log")
	for n := 1; ; n++ {
		_, err := os.Stat(path)
		if errors.Is(err, fs.ErrNotExist) {
			return path, nil
		}
		if err != nil {
			return "", err
		}
		path = filepath.Join(dir, fmt.Sprintf("%s-%d.log", day, n))
	}
}

func openLogFile(dir string, now time.Time) (*os.File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	path, err := NextLogFile(dir, now)
	if err != nil {
		return nil, fmt.Errorf("pick log file: %w", err)
	}
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
}
