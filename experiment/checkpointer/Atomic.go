package checkpointer

import (
	"bufio"
	"encoding/gob"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// WriteAtomic writes a file by calling write on a temporary file in the
// same directory and renaming it to path once write succeeds. If any
// step fails the temporary file is removed and path is left untouched.
func WriteAtomic(path string, write func(io.Writer) error) (err error) {
	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}

	tmp, err := os.CreateTemp(dir, "."+base+".tmp*")
	if err != nil {
		return fmt.Errorf("writeAtomic: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	buf := bufio.NewWriter(tmp)
	if err = write(buf); err != nil {
		return fmt.Errorf("writeAtomic: %w", err)
	}
	if err = buf.Flush(); err != nil {
		return fmt.Errorf("writeAtomic: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("writeAtomic: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("writeAtomic: %w", err)
	}

	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("writeAtomic: %w", err)
	}
	return nil
}

// SaveGob gob encodes value and writes it atomically to path
func SaveGob(path string, value interface{}) error {
	return WriteAtomic(path, func(w io.Writer) error {
		return gob.NewEncoder(w).Encode(value)
	})
}

// LoadGob decodes the gob encoded file at path into value, which must
// be a pointer
func LoadGob(path string, value interface{}) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("loadGob: %w", err)
	}
	defer file.Close()

	if err := gob.NewDecoder(bufio.NewReader(file)).Decode(value); err != nil {
		return fmt.Errorf("loadGob: could not decode %v: %w", path, err)
	}
	return nil
}
