package vm

import (
	"fmt"
	"io"
	"sort"
	"sync"
)

// LineHit is the number of times one line started executing.
type LineHit struct {
	Module string
	Line   int
	Count  int
}

type lineKey struct {
	module string
	line   int
}

// CodeStat counts line hits. Machines sharing one CodeStat may run
// concurrently.
type CodeStat struct {
	mu   sync.Mutex
	hits map[lineKey]int
}

func NewCodeStat() *CodeStat {
	return &CodeStat{hits: make(map[lineKey]int)}
}

func (s *CodeStat) Hit(module *LoadedModule, line int) {
	name := module.Name
	if module.Source != nil && module.Source.Location != "" {
		name = module.Source.Location
	}
	s.mu.Lock()
	s.hits[lineKey{name, line}]++
	s.mu.Unlock()
}

// Lines returns the counters ordered by module and line.
func (s *CodeStat) Lines() []LineHit {
	s.mu.Lock()
	out := make([]LineHit, 0, len(s.hits))
	for k, n := range s.hits {
		out = append(out, LineHit{Module: k.module, Line: k.line, Count: n})
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Module != out[j].Module {
			return out[i].Module < out[j].Module
		}
		return out[i].Line < out[j].Line
	})
	return out
}

func (s *CodeStat) Reset() {
	s.mu.Lock()
	s.hits = make(map[lineKey]int)
	s.mu.Unlock()
}

// WriteTo prints one "module:line count" row per counter.
func (s *CodeStat) WriteTo(w io.Writer) (int64, error) {
	var total int64
	for _, h := range s.Lines() {
		n, err := fmt.Fprintf(w, "%s:%d\t%d\n", h.Module, h.Line, h.Count)
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
