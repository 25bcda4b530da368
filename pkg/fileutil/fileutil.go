package fileutil

import (
	"os"
	"path/filepath"
	"sort"
)

const (
	// PrivateFileMode grants owner to read/write a file.
	PrivateFileMode = 0600

	// PrivateDirMode grants owner to make/remove files inside the directory.
	PrivateDirMode = 0700
)

// DirWritable returns nil if dir is writable.
func DirWritable(dir string) error {
	f := filepath.Join(dir, ".touch")
	if err := os.WriteFile(f, []byte(""), PrivateFileMode); err != nil {
		return err
	}
	return os.Remove(f)
}

// ReadDir returns the filenames in the given directory in sorted order.
func ReadDir(dir string) ([]string, error) {
	d, err := os.Open(dir)
	if err != nil {
		return nil, err
	}
	defer d.Close()

	ns, err := d.Readdirnames(-1)
	if err != nil {
		return nil, err
	}
	sort.Strings(ns)

	return ns, nil
}

// MkdirAll runs os.MkdirAll with writable check.
//
// (etcd pkg.fileutil.TouchDirAll)
func MkdirAll(dir string) error {
	// If path is already a directory, MkdirAll does nothing
	// and returns nil.
	if err := os.MkdirAll(dir, PrivateDirMode); err != nil {
		// if mkdirAll("a/text") and "text" is not
		// a directory, this will return syscall.ENOTDIR
		return err
	}
	return DirWritable(dir)
}

// ExistFileOrDir returns true if the file or directory exists.
//
// (etcd pkg.fileutil.Exist)
func ExistFileOrDir(name string) bool {
	_, err := os.Stat(name)
	return err == nil
}

// DirHasFiles returns true only when the directory exists
// and it is non-empty.
func DirHasFiles(dir string) bool {
	ns, err := ReadDir(dir)
	if err != nil {
		return false
	}
	return len(ns) != 0
}
