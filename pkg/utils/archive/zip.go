package archive

import (
	"archive/zip"
	"bytes"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/drover/pkg/utils/safe"
)

// Pack archives the given paths (relative to baseDir) into a zip. Paths
// that do not exist are skipped so that partially populated cache layouts
// still produce an archive.
func Pack(baseDir string, paths []string) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	for _, p := range paths {
		root := filepath.Join(baseDir, p)
		if _, err := os.Stat(root); os.IsNotExist(err) {
			continue
		}

		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}

			rel, err := filepath.Rel(baseDir, path)
			if err != nil {
				return err
			}

			return addFile(zw, path, filepath.ToSlash(rel), d)
		})
		if err != nil {
			return nil, goerr.Wrap(err, "failed to walk cache path", goerr.V("path", p))
		}
	}

	if err := zw.Close(); err != nil {
		return nil, goerr.Wrap(err, "failed to finalize zip archive")
	}

	return buf.Bytes(), nil
}

func addFile(zw *zip.Writer, path, name string, d fs.DirEntry) error {
	info, err := d.Info()
	if err != nil {
		return goerr.Wrap(err, "failed to stat file", goerr.V("path", path))
	}

	hdr, err := zip.FileInfoHeader(info)
	if err != nil {
		return goerr.Wrap(err, "failed to create zip header", goerr.V("path", path))
	}
	hdr.Name = name
	hdr.Method = zip.Deflate

	w, err := zw.CreateHeader(hdr)
	if err != nil {
		return goerr.Wrap(err, "failed to create zip entry", goerr.V("name", name))
	}

	fd, err := os.Open(filepath.Clean(path))
	if err != nil {
		return goerr.Wrap(err, "failed to open file", goerr.V("path", path))
	}
	defer safe.Close(fd)

	if _, err := io.Copy(w, fd); err != nil {
		return goerr.Wrap(err, "failed to copy file content", goerr.V("path", path))
	}

	return nil
}

// Unpack extracts zip data into destDir. It returns the list of extracted
// entry names and the total uncompressed size.
func Unpack(data []byte, destDir string) ([]string, int64, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, 0, goerr.Wrap(err, "failed to create zip reader")
	}

	var files []string
	var totalSize int64

	for _, file := range zr.File {
		if err := extractFile(file, destDir); err != nil {
			return nil, 0, err
		}

		files = append(files, file.Name)
		totalSize += int64(file.UncompressedSize64)
	}

	return files, totalSize, nil
}

// extractFile extracts a single file from the zip to the destination directory
func extractFile(file *zip.File, destDir string) error {
	// Prevent path traversal
	destPath := filepath.Join(destDir, file.Name)
	if !strings.HasPrefix(destPath, filepath.Clean(destDir)+string(os.PathSeparator)) {
		return goerr.New("invalid file path in archive",
			goerr.V("file", file.Name),
			goerr.V("dest", destPath),
		)
	}

	if file.FileInfo().IsDir() {
		return os.MkdirAll(destPath, file.FileInfo().Mode())
	}

	rc, err := file.Open()
	if err != nil {
		return goerr.Wrap(err, "failed to open file in zip", goerr.V("file", file.Name))
	}
	defer safe.Close(rc)

	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return goerr.Wrap(err, "failed to create parent directories", goerr.V("path", filepath.Dir(destPath)))
	}

	destFile, err := os.OpenFile(destPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, file.FileInfo().Mode())
	if err != nil {
		return goerr.Wrap(err, "failed to create destination file", goerr.V("path", destPath))
	}
	defer safe.Close(destFile)

	if _, err := io.Copy(destFile, rc); err != nil {
		return goerr.Wrap(err, "failed to copy file content", goerr.V("path", destPath))
	}

	return nil
}
