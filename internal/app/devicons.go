package app

import (
	"os"
	"path"
	"time"

	devicons "github.com/epilande/go-devicons"
)

// iconFileInfo is the minimal os.FileInfo go-devicons needs to pick an icon.
type iconFileInfo struct {
	name string
}

func (i iconFileInfo) Name() string       { return i.name }
func (i iconFileInfo) Size() int64        { return 0 }
func (i iconFileInfo) Mode() os.FileMode  { return 0 }
func (i iconFileInfo) ModTime() time.Time { return time.Time{} }
func (i iconFileInfo) IsDir() bool        { return false }
func (i iconFileInfo) Sys() any           { return nil }

const iconDirty = "●"

// fileIcon returns the Nerd Font icon for a repository relative path.
func fileIcon(p string) string {
	if p == "" {
		return ""
	}
	return devicons.IconForInfo(iconFileInfo{name: path.Base(p)}).Icon
}

func iconWithSpace(icon string) string {
	if icon == "" {
		return ""
	}
	return icon + " "
}
