package emit

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ravi-parthasarathy/fbpgen/pkg/compiler"
)

// WriteFile replaces path with src atomically. The data is written to a
// temporary file in the same directory, synced and renamed over path. On
// failure the temporary file is removed and path is left untouched.
func WriteFile(path string, src []byte) (err error) {
	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmp := f.Name()
	defer func() {
		if err != nil {
			_ = f.Close()
			_ = os.Remove(tmp)
		}
	}()

	if _, err = f.Write(src); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err = f.Sync(); err != nil {
		return fmt.Errorf("sync %s: %w", tmp, err)
	}
	if err = f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp, err)
	}
	if err = os.Chmod(tmp, 0o644); err != nil {
		return fmt.Errorf("chmod %s: %w", tmp, err)
	}
	if err = os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename %s: %w", tmp, err)
	}
	return nil
}

// Write generates the source for ctx and writes it to path.
func Write(ctx *compiler.Context, path string, opts Options) error {
	src, err := Generate(ctx, opts)
	if err != nil {
		return err
	}
	return WriteFile(path, src)
}
