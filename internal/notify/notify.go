// Package notify - доставка готового отчета: файл, почта.
package notify

import (
	"context"
	"errors"
	"fmt"

	"siteprobe/internal/logger"
	"siteprobe/internal/report"
)

// Notifier - канал доставки отчета
type Notifier interface {
	Notify(ctx context.Context, rep *report.Report) error
}

// DeliveryError - отчет собран, но не доставлен
type DeliveryError struct {
	Channel string
	Err     error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("доставка отчета (%s): %v", e.Channel, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// FileName - имя файла отчета по времени начала прогона
func FileName(rep *report.Report) string {
	return "report-" + rep.StartedAt.UTC().Format("20060102-150405") + ".json"
}

// Multi - доставляет отчет во все каналы; ошибки объединяются
type Multi struct {
	notifiers []Notifier
	log       logger.Logger
}

// NewMulti - создает составной канал
func NewMulti(log logger.Logger, notifiers ...Notifier) *Multi {
	return &Multi{notifiers: notifiers, log: log}
}

// Notify - реализация Notifier; неудача одного канала не отменяет остальные
func (m *Multi) Notify(ctx context.Context, rep *report.Report) error {
	var errs []error
	for _, n := range m.notifiers {
		if err := n.Notify(ctx, rep); err != nil {
			var de *DeliveryError
			if !errors.As(err, &de) {
				err = &DeliveryError{Channel: fmt.Sprintf("%T", n), Err: err}
			}
			m.log.Error("не удалось доставить отчет", logger.Error(err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
