package installer

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ulikunitz/xz"
)

// ArchiveFile writes an xz-compressed copy of src to dst, creating dst's
// parent directories.
func ArchiveFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	defer out.Close()

	xzWriter, err := xz.NewWriter(out)
	if err != nil {
		return fmt.Errorf("create xz writer: %w", err)
	}
	if _, err := io.Copy(xzWriter, in); err != nil {
		xzWriter.Close()
		return fmt.Errorf("compress %s: %w", src, err)
	}
	if err := xzWriter.Close(); err != nil {
		return fmt.Errorf("close xz writer: %w", err)
	}
	return out.Close()
}
