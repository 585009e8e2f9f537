package perf

import (
	"fmt"
	"io"
	"os"
	"sort"
	"sync"
	"time"
)

var (
	// Set MAPPANE_PERF=1 to enable performance logging
	enabled  = os.Getenv("MAPPANE_PERF") == "1"
	out      io.Writer
	logMutex sync.Mutex
	initOnce sync.Once

	// Per-name aggregates, guarded by logMutex.
	stats = make(map[string]*Stat)
)

// Stat aggregates every stopped timer with the same name.
type Stat struct {
	Name  string
	Count int
	Total time.Duration
	Max   time.Duration
}

func init() {
	if enabled {
		initOnce.Do(func() {
			f, err := os.OpenFile("/tmp/mappane-perf.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
			if err != nil {
				enabled = false
				return
			}
			out = f
		})
	}
}

// Timer tracks elapsed time for a named operation
type Timer struct {
	name  string
	start time.Time
}

// Start begins timing an operation
func Start(name string) *Timer {
	return &Timer{
		name:  name,
		start: time.Now(),
	}
}

// Stop ends timing and logs the result
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	if enabled && out != nil {
		logMutex.Lock()
		fmt.Fprintf(out, "%s: %s: %v\n", time.Now().Format("15:04:05.000"), t.name, elapsed)
		st, ok := stats[t.name]
		if !ok {
			st = &Stat{Name: t.name}
			stats[t.name] = st
		}
		st.Count++
		st.Total += elapsed
		if elapsed > st.Max {
			st.Max = elapsed
		}
		logMutex.Unlock()
	}
	return elapsed
}

// Summary returns the aggregates recorded so far, sorted by name.
func Summary() []Stat {
	logMutex.Lock()
	defer logMutex.Unlock()
	all := make([]Stat, 0, len(stats))
	for _, st := range stats {
		all = append(all, *st)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
	return all
}

// Track is a convenience function that times a function call
func Track(name string, fn func()) time.Duration {
	t := Start(name)
	fn()
	return t.Stop()
}

// Log writes a custom message to the perf log
func Log(format string, args ...interface{}) {
	if enabled && out != nil {
		logMutex.Lock()
		fmt.Fprintf(out, "%s: ", time.Now().Format("15:04:05.000"))
		fmt.Fprintf(out, format+"\n", args...)
		logMutex.Unlock()
	}
}

// IsEnabled returns whether performance logging is enabled
func IsEnabled() bool {
	return enabled
}

// SetOutputForTest redirects perf output to w and enables logging.
// Passing nil disables it again.
func SetOutputForTest(w io.Writer) {
	logMutex.Lock()
	defer logMutex.Unlock()
	out = w
	enabled = w != nil
	stats = make(map[string]*Stat)
}
