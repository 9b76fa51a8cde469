package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// CappedFile is a log file that never holds many more than maxLines lines.
// Once twice the limit has been written since the last trim, the file is
// rewritten with only the newest maxLines lines.
type CappedFile struct {
	mu       sync.Mutex
	path     string
	file     *os.File
	buffer   *ringBuffer
	maxLines int
	pending  int // Lines written since the last trim
}

// OpenCappedFile opens or creates the file at path for appending.
// A maxLines of zero or less disables trimming.
func OpenCappedFile(path string, maxLines int) (*CappedFile, error) {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("cannot open log file %s: %w", path, err)
	}

	c := &CappedFile{
		path:     path,
		file:     file,
		maxLines: maxLines,
	}
	if maxLines > 0 {
		c.buffer = newRingBuffer(maxLines)
	}

	return c, nil
}

// Write appends p to the file and trims it when it has grown too long.
func (c *CappedFile) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n, err := c.file.Write(p)
	if err != nil || c.buffer == nil {
		return n, err
	}

	for line := range strings.SplitSeq(strings.TrimRight(string(p), "\n"), "\n") {
		if line == "" {
			continue
		}

		c.buffer.push(line)
		c.pending++
	}

	if c.pending >= c.maxLines*2 {
		if err := c.trim(); err != nil {
			return n, fmt.Errorf("failed to trim log file: %w", err)
		}
	}

	return n, nil
}

// Sync flushes the file to disk.
func (c *CappedFile) Sync() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.file.Sync()
}

// Close closes the underlying file.
func (c *CappedFile) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.file.Close()
}

// trim replaces the file with the buffered lines.
func (c *CappedFile) trim() error {
	temp, err := os.CreateTemp(filepath.Dir(c.path), "trim-log-")
	if err != nil {
		return err
	}

	content := strings.Join(c.buffer.snapshot(), "\n") + "\n"
	if _, err := temp.WriteString(content); err != nil {
		temp.Close()
		os.Remove(temp.Name())

		return err
	}

	if err := temp.Close(); err != nil {
		os.Remove(temp.Name())
		return err
	}

	c.file.Close()

	// Windows refuses to rename over an existing file
	os.Remove(c.path)

	if err := os.Rename(temp.Name(), c.path); err != nil {
		return err
	}

	file, err := os.OpenFile(c.path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}

	c.file = file
	c.pending = c.buffer.count

	return nil
}
