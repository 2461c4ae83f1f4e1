package tests

import (
	"archive/zip"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
)

var testRoms = flag.Bool("testroms", false, "run tests requiring the nes-test-roms collection (downloaded on first use)")

func decompress(zipFile, dest string) (int, error) {
	r, err := zip.OpenReader(zipFile)
	if err != nil {
		return 0, err
	}
	defer r.Close()

	for _, f := range r.File {
		fname := strings.Replace(f.Name, "nes-test-roms-master", "nes-test-roms", 1)
		fpath := filepath.Join(dest, fname)
		if !strings.HasPrefix(fpath, filepath.Clean(dest)+string(os.PathSeparator)) {
			return 0, fmt.Errorf("%s: illegal file path", fpath)
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(fpath, os.ModePerm); err != nil {
				return 0, err
			}
			continue
		}

		if err = os.MkdirAll(filepath.Dir(fpath), os.ModePerm); err != nil {
			return 0, err
		}
		if err := extract(f, fpath); err != nil {
			return 0, err
		}
	}

	return len(r.File), nil
}

func extract(f *zip.File, dst string) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, f.Mode())
	if err != nil {
		return err
	}
	if _, err = io.Copy(out, rc); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func downloadTestRoms(tb testing.TB, dest string) {
	const url = `https://github.com/christopherpow/nes-test-roms/archive/refs/heads/master.zip`
	resp, err := http.Get(url)
	if err != nil {
		tb.Fatal(err)
	}
	defer resp.Body.Close()

	tmpf, err := os.CreateTemp("", "nes-test-roms-*-.zip")
	if err != nil {
		tb.Fatal(err)
	}
	defer os.Remove(tmpf.Name())
	defer tmpf.Close()

	if _, err := io.Copy(tmpf, resp.Body); err != nil {
		tb.Fatal(err)
	}

	n, err := decompress(tmpf.Name(), dest)
	if err != nil {
		tb.Fatalf("failed to decompress test roms: %s", err)
	}
	tb.Log("decompressed", n, "files")
}

var romsDirOnce sync.Once

// RomsPath returns the path of the nes-test-roms collection, downloading it if
// necessary. The test is skipped unless -testroms is set.
func RomsPath(tb testing.TB) string {
	tb.Helper()
	if !*testRoms {
		tb.Skip("skipping test, -testroms not set")
	}

	_, b, _, _ := runtime.Caller(0)
	testsDir := filepath.Dir(b)
	romsDir := filepath.Join(testsDir, "nes-test-roms")

	romsDirOnce.Do(func() {
		if _, err := os.Stat(romsDir); errors.Is(err, fs.ErrNotExist) {
			tb.Log("nes-test-roms directory not found, downloading it...")
			downloadTestRoms(tb, testsDir)
			tb.Log("Test roms downloaded in", romsDir)
		}
	})

	return romsDir
}

// ListRoms returns the paths of all .nes files under dir.
func ListRoms(tb testing.TB, dir string) []string {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".nes") {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		tb.Fatal(err)
	}
	return paths
}
