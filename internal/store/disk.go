package store

import (
	"io/fs"
	"os"
	"path/filepath"
)

// DiskUsageBytes returns the total size in bytes of the given paths, used to report how much
// space a file-backed store occupies. Directories are summed recursively; missing paths count 0.
func DiskUsageBytes(paths ...string) (int64, error) {
	var total int64
	for _, p := range paths {
		if p == "" {
			continue
		}
		info, err := os.Stat(p)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return 0, err
		}
		if !info.IsDir() {
			total += info.Size()
			continue
		}
		err = filepath.WalkDir(p, func(_ string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			fi, err := d.Info()
			if err != nil {
				return err
			}
			total += fi.Size()
			return nil
		})
		if err != nil {
			return 0, err
		}
	}
	return total, nil
}

// Footprint lists the files a store of the given type keeps on disk.
func Footprint(opts Options) []string {
	switch Type(opts.Type) {
	case TypeMemory:
		return []string{opts.Path}
	case TypeSQLite:
		return []string{opts.Path, opts.Path + "-wal", opts.Path + "-shm"}
	case TypeFAISS:
		return []string{opts.Path + ".faiss", opts.Path + ".idmap"}
	default:
		return nil
	}
}
