package export

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/xiaot623/pairtalk/internal/domain"
)

// BundlePrefix starts the name of every zip bundle.
const BundlePrefix = "alle_konversationen_"

const bundleLayout = "20060102_150405"

// List returns the names of exported PDFs, sorted.
func (e *Exporter) List() ([]string, error) {
	return listExt(e.dir, ".pdf")
}

// Bundles returns the names of zip bundles in the export directory.
func (e *Exporter) Bundles() ([]string, error) {
	return listExt(e.dir, ".zip")
}

func listExt(dir, ext string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, domain.NewStorageError("list exports", err)
	}
	names := []string{}
	for _, entry := range entries {
		if !entry.IsDir() && strings.EqualFold(filepath.Ext(entry.Name()), ext) {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// Open resolves name to a file in the export directory. Names that are not a
// plain PDF or zip file name are rejected.
func (e *Exporter) Open(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("%w: %q", domain.ErrExportNotFound, name)
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf", ".zip":
	default:
		return "", fmt.Errorf("%w: %q", domain.ErrExportNotFound, name)
	}
	path := filepath.Join(e.dir, name)
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) || (err == nil && !info.Mode().IsRegular()) {
		return "", fmt.Errorf("%w: %q", domain.ErrExportNotFound, name)
	}
	if err != nil {
		return "", domain.NewStorageError("stat export", err)
	}
	return path, nil
}

// Bundle zips every exported PDF into alle_konversationen_YYYYMMDD_HHMMSS.zip.
// Files that cannot be read are reported in Failed and skipped.
func (e *Exporter) Bundle() (*domain.BatchResult, error) {
	pdfs, err := e.List()
	if err != nil {
		return nil, err
	}
	name := BundlePrefix + e.now().Format(bundleLayout) + ".zip"
	path := filepath.Join(e.dir, name)

	f, err := os.Create(path)
	if err != nil {
		return nil, domain.NewStorageError("create bundle", err)
	}
	zw := zip.NewWriter(f)

	result := &domain.BatchResult{Output: name, Processed: []string{}}
	for _, pdf := range pdfs {
		data, err := os.ReadFile(filepath.Join(e.dir, pdf))
		if err != nil {
			result.Failed = append(result.Failed, domain.BatchFailure{Name: pdf, Error: err.Error()})
			continue
		}
		w, err := zw.Create(pdf)
		if err == nil {
			_, err = w.Write(data)
		}
		if err != nil {
			result.Failed = append(result.Failed, domain.BatchFailure{Name: pdf, Error: err.Error()})
			continue
		}
		result.Processed = append(result.Processed, pdf)
	}

	if err := zw.Close(); err != nil {
		f.Close()
		return nil, domain.NewStorageError("finish bundle", err)
	}
	if err := f.Close(); err != nil {
		return nil, domain.NewStorageError("close bundle", err)
	}
	return result, nil
}

// Archive moves every exported PDF into the archive directory, continuing
// past files that cannot be moved.
func (e *Exporter) Archive() (*domain.BatchResult, error) {
	pdfs, err := e.List()
	if err != nil {
		return nil, err
	}
	result := &domain.BatchResult{Output: e.archiveDir, Processed: []string{}}
	for _, pdf := range pdfs {
		if err := move(filepath.Join(e.dir, pdf), filepath.Join(e.archiveDir, pdf)); err != nil {
			result.Failed = append(result.Failed, domain.BatchFailure{Name: pdf, Error: err.Error()})
			continue
		}
		result.Processed = append(result.Processed, pdf)
	}
	return result, nil
}

// move renames src to dst, copying when the two are on different devices.
func move(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(dst)
		return err
	}
	return os.Remove(src)
}
