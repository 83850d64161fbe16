package pack

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
)

// containerState is the transport's mode. Transitions are explicit: a writer
// must Commit or Abort before the transport can do anything else.
type containerState int

const (
	stateIdle containerState = iota
	stateReading
	stateWriting
)

// Container presents the on-disk ZIP archive as either a readable snapshot
// or a pending write. While writing, the previous read handle (if any) stays
// open so unchanged entries can be streamed into the new archive. The atomic
// rename in Commit is the sole point at which a save becomes visible.
type Container struct {
	path  string
	state containerState

	reader *zip.ReadCloser

	tmpPath string
	tmpFile *os.File
	zw      *zip.Writer
}

// NewContainer creates an idle transport over the container at path. Nothing
// is opened until OpenReader or BeginWrite.
func NewContainer(path string) *Container {
	return &Container{path: path}
}

// Path returns the container path.
func (c *Container) Path() string {
	return c.path
}

// OpenReader opens the existing archive for random-access reads. It is an
// error to call it while a write is pending.
func (c *Container) OpenReader() error {
	switch c.state {
	case stateWriting:
		return ErrWritePending
	case stateReading:
		return nil
	}

	r, err := zip.OpenReader(c.path)
	if err != nil {
		return fmt.Errorf("failed to open container %s: %w", c.path, err)
	}
	c.reader = r
	c.state = stateReading
	return nil
}

// HasEntry reports whether the open archive contains the named entry.
func (c *Container) HasEntry(name string) bool {
	if c.reader == nil {
		return false
	}
	for _, f := range c.reader.File {
		if f.Name == name {
			return true
		}
	}
	return false
}

// EntryNames returns the names of all entries in the open archive.
func (c *Container) EntryNames() []string {
	if c.reader == nil {
		return nil
	}
	names := make([]string, 0, len(c.reader.File))
	for _, f := range c.reader.File {
		names = append(names, f.Name)
	}
	return names
}

// ReadEntry reads one entry from the open archive in full.
func (c *Container) ReadEntry(name string) ([]byte, error) {
	if c.reader == nil {
		return nil, fmt.Errorf("container %s is not open for reading", c.path)
	}
	for _, f := range c.reader.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open entry %s: %w", name, err)
		}
		defer rc.Close()
		data, err := io.ReadAll(rc)
		if err != nil {
			return nil, fmt.Errorf("failed to read entry %s: %w", name, err)
		}
		return data, nil
	}
	return nil, fmt.Errorf("%w: entry %s not found in %s", ErrCorruptPackage, name, c.path)
}

// BeginWrite opens a brand-new temporary archive next to the container. The
// read handle, if open, is kept so CopyEntry can repack unchanged entries.
// Callers must Verify their lock before entering a write.
func (c *Container) BeginWrite() error {
	if c.state == stateWriting {
		return ErrWritePending
	}

	tmpPath := fmt.Sprintf("%s.tmp.%d", c.path, os.Getpid())
	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to create temp container: %w", err)
	}

	c.tmpPath = tmpPath
	c.tmpFile = f
	c.zw = zip.NewWriter(f)
	c.state = stateWriting
	return nil
}

// WriteEntry writes one entry into the pending archive.
func (c *Container) WriteEntry(name string, data []byte) error {
	if c.state != stateWriting {
		return fmt.Errorf("container %s is not open for writing", c.path)
	}
	w, err := c.zw.Create(name)
	if err != nil {
		return fmt.Errorf("failed to create entry %s: %w", name, err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write entry %s: %w", name, err)
	}
	return nil
}

// CopyEntry streams one unchanged entry from the previous archive into the
// pending one.
func (c *Container) CopyEntry(name string) error {
	if c.state != stateWriting {
		return fmt.Errorf("container %s is not open for writing", c.path)
	}
	if c.reader == nil {
		return fmt.Errorf("no source archive to copy entry %s from", name)
	}
	for _, f := range c.reader.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return fmt.Errorf("failed to open entry %s: %w", name, err)
		}
		defer rc.Close()
		w, err := c.zw.Create(name)
		if err != nil {
			return fmt.Errorf("failed to create entry %s: %w", name, err)
		}
		if _, err := io.Copy(w, rc); err != nil {
			return fmt.Errorf("failed to copy entry %s: %w", name, err)
		}
		return nil
	}
	return fmt.Errorf("%w: entry %s not found in %s", ErrCorruptPackage, name, c.path)
}

// Commit finalizes the pending archive, releases the read handle, and
// atomically renames the temp file over the container path. Any failure
// before the rename leaves the original container untouched; after it, the
// save has fully succeeded. The transport is idle afterwards.
func (c *Container) Commit() error {
	if c.state != stateWriting {
		return fmt.Errorf("container %s has no pending write to commit", c.path)
	}

	if err := c.zw.Close(); err != nil {
		c.abandonWrite()
		return fmt.Errorf("failed to finalize temp container: %w", err)
	}
	if err := c.tmpFile.Close(); err != nil {
		c.tmpFile = nil
		c.abandonWrite()
		return fmt.Errorf("failed to close temp container: %w", err)
	}
	c.tmpFile = nil

	if c.reader != nil {
		c.reader.Close()
		c.reader = nil
	}

	if err := os.Rename(c.tmpPath, c.path); err != nil {
		os.Remove(c.tmpPath)
		c.zw = nil
		c.tmpPath = ""
		c.state = stateIdle
		return fmt.Errorf("failed to commit container: %w", err)
	}

	c.zw = nil
	c.tmpPath = ""
	c.state = stateIdle
	return nil
}

// Abort discards the pending write and deletes the temp file. The transport
// returns to Reading if a read handle is still open, otherwise to Idle.
func (c *Container) Abort() error {
	if c.state != stateWriting {
		return fmt.Errorf("container %s has no pending write to abort", c.path)
	}
	c.abandonWrite()
	return nil
}

// Close releases the read handle. It is an error to close the transport with
// a write still pending; callers must Commit or Abort first.
func (c *Container) Close() error {
	if c.state == stateWriting {
		return ErrWritePending
	}
	if c.reader != nil {
		if err := c.reader.Close(); err != nil {
			return fmt.Errorf("failed to close container %s: %w", c.path, err)
		}
		c.reader = nil
	}
	c.state = stateIdle
	return nil
}

// abandonWrite tears down the pending write and restores the prior state.
func (c *Container) abandonWrite() {
	if c.zw != nil {
		c.zw.Close()
		c.zw = nil
	}
	if c.tmpFile != nil {
		c.tmpFile.Close()
		c.tmpFile = nil
	}
	if c.tmpPath != "" {
		os.Remove(c.tmpPath)
		c.tmpPath = ""
	}
	if c.reader != nil {
		c.state = stateReading
	} else {
		c.state = stateIdle
	}
}
