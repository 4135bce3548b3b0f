package app

import "github.com/chmouel/lazyconflict/internal/models"

type filesLoadedMsg struct {
	files []models.ConflictFile
	err   error
}

type fileWrittenMsg struct {
	path   string
	staged bool
	err    error
}

type previewLoadedMsg struct {
	preview models.MergePreview
	err     error
}

type editorFinishedMsg struct {
	path string
	err  error
}

type gitDirChangedMsg struct{}

type errMsg struct {
	err error
}
