package suite

import "time"

// Payload - успешный результат набора. Score возвращает оценку в [0,100],
// если набор ее выставляет.
type Payload interface {
	Score() (float64, bool)
}

// Result - результат одного набора для одной страницы: либо Payload, либо Error
type Result struct {
	URL       string    `json:"url"`
	Timestamp time.Time `json:"timestamp"`
	Payload   Payload   `json:"payload,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// Success - успешная ячейка
func Success(pageURL string, at time.Time, p Payload) Result {
	return Result{URL: pageURL, Timestamp: at, Payload: p}
}

// Failure - ячейка с ошибкой
func Failure(pageURL string, at time.Time, err error) Result {
	msg := "неизвестная ошибка"
	if err != nil {
		msg = err.Error()
	}
	return Result{URL: pageURL, Timestamp: at, Error: msg}
}

// Failed - завершилась ли ячейка ошибкой
func (r Result) Failed() bool {
	return r.Error != ""
}

// Score - оценка ячейки; для ошибочных ячеек оценки нет
func (r Result) Score() (float64, bool) {
	if r.Failed() || r.Payload == nil {
		return 0, false
	}
	return r.Payload.Score()
}
