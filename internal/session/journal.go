package session

import (
	"sync"

	"MarketTimeMachine/internal/model"
)

// Journal keeps the most recent log lines, newest first.
type Journal struct {
	mu    sync.Mutex
	size  int
	lines []model.LogLine
}

func NewJournal(size int) *Journal {
	if size <= 0 {
		size = 100
	}
	return &Journal{size: size}
}

func (j *Journal) Add(l model.LogLine) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.lines = append([]model.LogLine{l}, j.lines...)
	if len(j.lines) > j.size {
		j.lines = j.lines[:j.size]
	}
}

// Lines returns a copy, newest first.
func (j *Journal) Lines() []model.LogLine {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]model.LogLine, len(j.lines))
	copy(out, j.lines)
	return out
}

func (j *Journal) OnSample(model.Sample) {}
func (j *Journal) OnState(model.State) {}
func (j *Journal) OnEvent(model.MarketEvent) {}
func (j *Journal) OnLog(l model.LogLine) { j.Add(l) }
