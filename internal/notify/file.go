package notify

import (
	"context"
	"os"
	"path/filepath"

	"siteprobe/internal/logger"
	"siteprobe/internal/report"
)

// File - сохраняет JSON-отчет в каталог
type File struct {
	dir string
	log logger.Logger
}

// NewFile - создает файловый канал
func NewFile(dir string, log logger.Logger) *File {
	return &File{dir: dir, log: log}
}

// Path - путь, по которому будет сохранен отчет
func (f *File) Path(rep *report.Report) string {
	return filepath.Join(f.dir, FileName(rep))
}

// Notify - реализация Notifier
func (f *File) Notify(_ context.Context, rep *report.Report) error {
	data, err := rep.JSON()
	if err != nil {
		return &DeliveryError{Channel: "file", Err: err}
	}
	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return &DeliveryError{Channel: "file", Err: err}
	}
	path := f.Path(rep)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return &DeliveryError{Channel: "file", Err: err}
	}
	f.log.Info("отчет сохранен", logger.String("path", path))
	return nil
}
