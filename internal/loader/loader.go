// Package loader implements the loader producer factory and its
// normaliser filter chain: dictionary-driven resource resolution plus
// a fixed, configurable normalising filter pipeline (spec §4.13).
package loader

import (
	"context"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/mltgo/mlt/internal/errs"
	"github.com/mltgo/mlt/internal/factory"
	"github.com/mltgo/mlt/internal/filter"
	"github.com/mltgo/mlt/internal/producer"
	"github.com/mltgo/mlt/internal/profile"
	"github.com/mltgo/mlt/internal/svc"
)

// dictEntry is one loader.dict line: a name glob paired with its
// comma-separated candidate service ids, tried in order.
type dictEntry struct {
	pattern    string
	candidates []string
}

// normaliserGroup is one loader.ini line: candidate normaliser ids,
// the first of which to construct successfully is inserted.
type normaliserGroup struct {
	candidates []string
}

// Loader resolves a resource string into a producer plus its attached
// normalising filter chain (spec §4.13).
type Loader struct {
	mu          sync.RWMutex
	repo        *factory.Repository
	profile     profile.Profile
	dict        []dictEntry
	normalisers []normaliserGroup
	channels    int
}

// New returns a Loader backed by repo under profile p. channels is the
// consumer's target channel count used by the channel-layout normaliser.
func New(repo *factory.Repository, p profile.Profile, channels int) *Loader {
	return &Loader{repo: repo, profile: p, channels: channels}
}

// LoadDict parses a loader.dict file: each non-empty, non-comment line
// is "glob candidate1,candidate2,...".
func (l *Loader) LoadDict(contents string) {
	var entries []dictEntry
	for _, line := range strings.Split(contents, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.SplitN(line, " ", 2)
		if len(fields) != 2 {
			continue
		}
		entries = append(entries, dictEntry{
			pattern:    strings.ToLower(strings.TrimSpace(fields[0])),
			candidates: splitCSV(fields[1]),
		})
	}
	l.mu.Lock()
	l.dict = entries
	l.mu.Unlock()
}

// LoadNormalisers parses a loader.ini file: each non-empty,
// non-comment line is a comma-separated group of normaliser candidates,
// in the canonical order colour/deinterlace/rescale/resample/channels
// (spec §4.13).
func (l *Loader) LoadNormalisers(contents string) {
	var groups []normaliserGroup
	for _, line := range strings.Split(contents, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		groups = append(groups, normaliserGroup{candidates: splitCSV(line)})
	}
	l.mu.Lock()
	l.normalisers = groups
	l.mu.Unlock()
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Watch hot-reloads dict/ini files as they change on disk, in the
// teacher's fsnotify idiom (one watcher, select over events/errors/ctx).
func (l *Loader) Watch(ctx context.Context, dictPath, iniPath string, readFile func(string) (string, error)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if dictPath != "" {
		if err := watcher.Add(dictPath); err != nil {
			watcher.Close()
			return err
		}
	}
	if iniPath != "" {
		if err := watcher.Add(iniPath); err != nil {
			watcher.Close()
			return err
		}
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if ev.Name == dictPath {
					if contents, err := readFile(dictPath); err == nil {
						l.LoadDict(contents)
					}
				} else if ev.Name == iniPath {
					if contents, err := readFile(iniPath); err == nil {
						l.LoadNormalisers(contents)
					}
				}
			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
			}
		}
	}()
	return nil
}

// stripQuery lower-cases r and strips any "?query" suffix, the form
// the dictionary matches against (spec §4.13 step 2).
func stripQuery(r string) string {
	r = strings.ToLower(r)
	if i := strings.Index(r, "?"); i >= 0 {
		r = r[:i]
	}
	return r
}

// Resolve obtains a producer for resource r (spec §4.13 steps 1-3):
//  1. If r is "service:arg", try that service first.
//  2. Else test the dictionary's patterns against a lower-cased,
//     query-stripped copy of r; the first matching candidate whose
//     constructor succeeds wins.
//  3. Finally ask the factory for a service whose id equals r.
func (l *Loader) Resolve(r string) (producer.Producer, error) {
	if i := strings.Index(r, ":"); i > 0 {
		svcID, arg := r[:i], r[i+1:]
		if l.repo.HasProducer(svcID) {
			if p, err := l.repo.FactoryProducer(l.profile, svcID, arg); err == nil {
				return p, nil
			}
		}
	}

	stripped := stripQuery(r)
	l.mu.RLock()
	dict := append([]dictEntry(nil), l.dict...)
	l.mu.RUnlock()

	for _, entry := range dict {
		if !globMatch(entry.pattern, stripped) {
			continue
		}
		for _, candidate := range entry.candidates {
			p, err := l.repo.FactoryProducer(l.profile, candidate, r)
			if err == nil {
				return p, nil
			}
		}
	}

	if p, err := l.repo.FactoryProducer(l.profile, r, r); err == nil {
		return p, nil
	}
	return nil, errs.ErrNotFound
}

// globMatch implements the dictionary's simple "*"-wildcard glob.
func globMatch(pattern, name string) bool {
	if pattern == "*" {
		return true
	}
	if !strings.Contains(pattern, "*") {
		return pattern == name
	}
	parts := strings.Split(pattern, "*")
	if !strings.HasPrefix(name, parts[0]) {
		return false
	}
	name = name[len(parts[0]):]
	for _, part := range parts[1:] {
		if part == "" {
			continue
		}
		i := strings.Index(name, part)
		if i < 0 {
			return false
		}
		name = name[i+len(part):]
	}
	return true
}

// alreadyNormalised reports whether p should be skipped by Normalise
// (spec §4.13's re-entrancy rule): a tractor/chain, or any producer
// already carrying the loader_normalized marker.
func alreadyNormalised(p producer.Producer, isComposite func(producer.Producer) bool) bool {
	if isComposite != nil && isComposite(p) {
		return true
	}
	return p.Svc().Properties().Get("loader_normalized") == "1"
}

// Normalise attaches the canonical normalising filter groups to p, in
// order, tagging each `_loader = 1` and inserting it before any
// subsequently user-attached filter via MoveFilter (spec §4.13).
// isComposite lets the caller mark tractors/chains as already composed
// of normalised producers; it may be nil.
func (l *Loader) Normalise(p producer.Producer, isComposite func(producer.Producer) bool) error {
	if alreadyNormalised(p, isComposite) {
		return nil
	}

	l.mu.RLock()
	groups := append([]normaliserGroup(nil), l.normalisers...)
	l.mu.RUnlock()

	for _, group := range groups {
		for _, candidate := range group.candidates {
			f, err := l.repo.FactoryFilter(l.profile, candidate, "")
			if err != nil {
				continue
			}
			l.attachBeforeUserFilters(p, f)
			break
		}
	}

	p.Svc().Properties().Set("loader_normalized", "1")
	return nil
}

// attachBeforeUserFilters attaches f to p, tags it as loader-owned, and
// moves it ahead of every filter attached before this call that isn't
// itself loader-tagged, so normalisers always run before user filters
// regardless of attach order (spec §4.13's move_filter responsibility).
func (l *Loader) attachBeforeUserFilters(p producer.Producer, f svc.AttachedFilter) {
	s := p.Svc()
	s.Attach(f)
	svc.TagAsLoader(f)

	newIndex := s.FilterCount() - 1
	insertAt := 0
	for i := 0; i < newIndex; i++ {
		if !svc.IsLoaderTagged(s.Filter(i)) {
			insertAt = i
			break
		}
		insertAt = i + 1
	}
	if insertAt < newIndex {
		s.MoveFilter(newIndex, insertAt)
	}
}

// RegisterBuiltins registers the normaliser ids this module ships
// (channel-layout; colour/deinterlace/rescale/resample are Non-goals
// for the library itself, spec §1, so only the channel-layout group
// has a concrete id here) plus the "loudness" gate filter onto repo.
func RegisterBuiltins(repo *factory.Repository, channels int) {
	repo.RegisterFilter("channelconform", func(p profile.Profile, id, arg string) (svc.AttachedFilter, error) {
		return filter.NewChannelConform(channels), nil
	})
	repo.RegisterFilter("loudness", func(p profile.Profile, id, arg string) (svc.AttachedFilter, error) {
		return filter.NewLoudness(-23.0, -24.0, 24.0), nil
	})
}
