package discovery

import (
	"go/build"
	"io"
	"os"

	"github.com/spf13/afero"
)

// newBuildContext returns the default build context with file access routed
// through fs. MatchFile then honors //go:build lines and GOOS/GOARCH file
// name suffixes the way the go command does.
func newBuildContext(fs afero.Fs) build.Context {
	ctxt := build.Default
	ctxt.BuildTags = append([]string(nil), build.Default.BuildTags...)
	ctxt.OpenFile = func(p string) (io.ReadCloser, error) {
		return fs.Open(p)
	}
	ctxt.IsDir = func(p string) bool {
		info, err := fs.Stat(p)
		return err == nil && info.IsDir()
	}
	ctxt.ReadDir = func(dir string) ([]os.FileInfo, error) {
		return afero.ReadDir(fs, dir)
	}
	return ctxt
}
