package telegram

import (
	"sync"
	"time"

	"deadlift-coach/api/internal/analysis"
)

// resultTTL bounds how long a chat's last result stays available for the details button.
const resultTTL = 6 * time.Hour

type storedResult struct {
	res analysis.Result
	at  time.Time
}

// chatState tracks per-chat work between updates.
type chatState struct {
	busy sync.Map // chatID -> struct{}
	last sync.Map // chatID -> storedResult

	now func() time.Time
}

func (s *chatState) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now()
}

// begin marks chatID as analyzing; false means an analysis is already running.
func (s *chatState) begin(chatID int64) bool {
	_, loaded := s.busy.LoadOrStore(chatID, struct{}{})
	return !loaded
}

func (s *chatState) end(chatID int64) { s.busy.Delete(chatID) }

// remember stores res for chatID and drops every expired entry.
func (s *chatState) remember(chatID int64, res analysis.Result) {
	now := s.clock()
	s.last.Range(func(k, v any) bool {
		if e, ok := v.(storedResult); !ok || now.Sub(e.at) > resultTTL {
			s.last.Delete(k)
		}
		return true
	})
	s.last.Store(chatID, storedResult{res: res, at: now})
}

func (s *chatState) lastResult(chatID int64) (analysis.Result, bool) {
	v, ok := s.last.Load(chatID)
	if !ok {
		return analysis.Result{}, false
	}
	e, ok := v.(storedResult)
	if !ok || s.clock().Sub(e.at) > resultTTL {
		s.last.Delete(chatID)
		return analysis.Result{}, false
	}
	return e.res, true
}

func (s *chatState) forget(chatID int64) { s.last.Delete(chatID) }
