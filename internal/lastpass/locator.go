package lastpass

import (
	"errors"
	"os"
	"os/exec"
	"sync"
)

// DefaultCandidates are probed, in order, when no explicit path is set.
var DefaultCandidates = []string{
	"/opt/local/bin/lpass",
	"/opt/homebrew/bin/lpass",
}

var errNotFound = errors.New("lpass executable not found")

type usability int

const (
	usabilityUnknown usability = iota
	usabilityUsable
	usabilityUnusable
)

// LocatorConfig configures a Locator.
type LocatorConfig struct {
	// Path, when set, is the only executable considered.
	Path string
	// Candidates are probed in order when Path is empty. Nil means
	// DefaultCandidates.
	Candidates []string
	// SearchPATH falls back to looking up "lpass" in $PATH.
	SearchPATH bool
	// Find asks the user where lpass lives when nothing else was found.
	Find func() (string, bool)
}

// Locator resolves the lpass executable and tracks whether it is usable.
// It is shared by all operations and safe for concurrent use.
type Locator struct {
	mu       sync.Mutex
	cfg      LocatorConfig
	path     string
	state    usability
	exists   func(string) bool
	lookPath func(string) (string, error)
}

func NewLocator(cfg LocatorConfig) *Locator {
	if cfg.Candidates == nil {
		cfg.Candidates = DefaultCandidates
	}
	return &Locator{
		cfg:      cfg,
		exists:   isExecutable,
		lookPath: exec.LookPath,
	}
}

// Path returns the executable to run. A locator known to be unusable fails
// with KindUnusableCLI without probing again.
func (l *Locator) Path() (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state == usabilityUnusable {
		return "", newError(KindUnusableCLI, "", nil)
	}
	if l.path != "" {
		return l.path, nil
	}
	if p, ok := l.probe(); ok {
		l.path = p
		l.state = usabilityUsable
		return p, nil
	}
	l.state = usabilityUnusable
	return "", newError(KindUnusableCLI, "", errNotFound)
}

func (l *Locator) probe() (string, bool) {
	if l.cfg.Path != "" {
		return l.cfg.Path, l.exists(l.cfg.Path)
	}
	for _, c := range l.cfg.Candidates {
		if l.exists(c) {
			return c, true
		}
	}
	if l.cfg.SearchPATH {
		if p, err := l.lookPath("lpass"); err == nil {
			return p, true
		}
	}
	if l.cfg.Find != nil {
		if p, ok := l.cfg.Find(); ok && l.exists(p) {
			return p, true
		}
	}
	return "", false
}

// MarkUnusable records that the resolved executable cannot be launched.
func (l *Locator) MarkUnusable() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.state = usabilityUnusable
}

// ResetUsability forgets an unusable verdict so the next Path probes again.
// It does nothing unless the locator was marked unusable.
func (l *Locator) ResetUsability() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != usabilityUnusable {
		return
	}
	l.state = usabilityUnknown
	l.path = ""
}

// Usable reports the usability verdict; known is false until Path has been
// resolved or MarkUnusable called.
func (l *Locator) Usable() (usable, known bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state == usabilityUsable, l.state != usabilityUnknown
}

func isExecutable(path string) bool {
	fi, err := os.Stat(path)
	if err != nil {
		return false
	}
	return fi.Mode().IsRegular() && fi.Mode().Perm()&0o111 != 0
}
