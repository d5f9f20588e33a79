package main

import (
	"embed"
	"io/fs"
	"os"

	assetfs "github.com/elazarl/go-bindata-assetfs"
)

//go:embed assets
var assets embed.FS

// assetFS serves the embedded control page under /ui.
func assetFS() *assetfs.AssetFS {
	return &assetfs.AssetFS{
		Asset: assets.ReadFile,
		AssetDir: func(name string) ([]string, error) {
			entries, err := fs.ReadDir(assets, name)
			if err != nil {
				return nil, err
			}
			names := make([]string, len(entries))
			for i, e := range entries {
				names[i] = e.Name()
			}
			return names, nil
		},
		AssetInfo: func(name string) (os.FileInfo, error) {
			return fs.Stat(assets, name)
		},
		Prefix: "assets",
	}
}
