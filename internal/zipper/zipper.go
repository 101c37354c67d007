// Package zipper assembles package archives directly between buckets
// without touching local disk.
package zipper

import (
	"archive/zip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"

	"shipstream/internal/model"
	"shipstream/internal/storage"
)

// ManifestName is the metadata entry written into every archive.
const ManifestName = "package_metadata.json"

// Entry is one object to include in the archive.
type Entry struct {
	Bucket string
	Key    string
	// Name overrides the in-archive path. Defaults to the object base name.
	Name string
}

// Result reports what went into an archive. Skipped lists entry keys
// that no longer existed in the source bucket when the archive was built.
type Result struct {
	Info    storage.ObjectInfo
	Added   int
	Skipped []string
}

// Zipper streams objects from storage into a ZIP archive in another bucket.
type Zipper struct {
	store storage.ObjectStorage
}

func New(store storage.ObjectStorage) *Zipper {
	return &Zipper{store: store}
}

// Build writes an archive containing the package manifest and the given
// entries to dstBucket/dstKey. The archive is streamed through a pipe,
// so memory use stays flat regardless of entry sizes. Entries whose
// source object is gone are skipped and reported, not fatal.
func (z *Zipper) Build(ctx context.Context, pkg *model.Package, entries []Entry, dstBucket, dstKey string) (*Result, error) {
	pr, pw := io.Pipe()
	result := &Result{}

	go func() {
		pw.CloseWithError(z.writeArchive(ctx, pw, pkg, entries, result))
	}()

	info, err := z.store.Put(ctx, dstBucket, dstKey, pr, -1, storage.PutOptions{
		ContentType: "application/zip",
		Metadata: map[string]string{
			"processing-uuid": pkg.Metadata.ProcessingUUID,
			"package-uuid":    pkg.Metadata.PackageUUID,
		},
	})
	if err != nil {
		pr.CloseWithError(err)
		return nil, fmt.Errorf("failed to upload archive %s/%s: %w", dstBucket, dstKey, err)
	}

	result.Info = info
	return result, nil
}

func (z *Zipper) writeArchive(ctx context.Context, w io.Writer, pkg *model.Package, entries []Entry, result *Result) error {
	zw := zip.NewWriter(w)

	manifest, err := zw.Create(ManifestName)
	if err != nil {
		return fmt.Errorf("failed to create manifest entry: %w", err)
	}
	enc := json.NewEncoder(manifest)
	enc.SetIndent("", "  ")
	if err := enc.Encode(pkg); err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}

	for _, e := range entries {
		name := e.Name
		if name == "" {
			name = path.Base(e.Key)
		}

		obj, _, err := z.store.Get(ctx, e.Bucket, e.Key)
		if errors.Is(err, storage.ErrObjectNotFound) {
			result.Skipped = append(result.Skipped, e.Key)
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to read entry %s/%s: %w", e.Bucket, e.Key, err)
		}

		fw, err := zw.Create(name)
		if err != nil {
			obj.Close()
			return fmt.Errorf("failed to create archive entry %s: %w", name, err)
		}
		if _, err := io.Copy(fw, obj); err != nil {
			obj.Close()
			return fmt.Errorf("failed to write archive entry %s: %w", name, err)
		}
		obj.Close()
		result.Added++
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to finalize archive: %w", err)
	}
	return nil
}

// ArchiveObjectName builds the object key for a package archive.
func ArchiveObjectName(processingUUID, packageObject string) string {
	base := path.Base(packageObject)
	name := base[:len(base)-len(path.Ext(base))]
	return fmt.Sprintf("%s/%s.zip", processingUUID, name)
}
