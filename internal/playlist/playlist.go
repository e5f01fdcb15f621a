// Package playlist implements the Playlist producer variant: a
// sequence of clip/blank entries addressed as one continuous producer
// (spec §3.6, §4.10).
package playlist

import (
	"sort"
	"sync"

	"github.com/mltgo/mlt/internal/errs"
	"github.com/mltgo/mlt/internal/frame"
	"github.com/mltgo/mlt/internal/producer"
	"github.com/mltgo/mlt/internal/profile"
	"github.com/mltgo/mlt/internal/svc"
)

// entry is one clip slot: a cut over some producer plus the absolute
// frame at which it starts within the playlist.
type entry struct {
	cut   *producer.Cut
	start int64
	blank bool
}

// Playlist sequences producers end to end and presents them as one
// indexable producer (spec §4.10).
type Playlist struct {
	*svc.Service

	mu      sync.Mutex
	entries []entry
	profile profile.Profile
}

// New returns an empty playlist under profile p (used by blank()'s
// generator).
func New(p profile.Profile) *Playlist {
	return &Playlist{
		Service: svc.New(svc.KindProducer),
		profile: p,
	}
}

// Count returns the number of entries.
func (pl *Playlist) Count() int {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	return len(pl.entries)
}

// Length returns the playlist's total frame count.
func (pl *Playlist) Length() int64 {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	return pl.totalLengthLocked()
}

func (pl *Playlist) totalLengthLocked() int64 {
	if len(pl.entries) == 0 {
		return 0
	}
	last := pl.entries[len(pl.entries)-1]
	return last.start + last.cut.Length()
}

// Append adds parent[in, out] to the end, O(1). out defaults to
// parent.Length()-1 when out < 0.
func (pl *Playlist) Append(parent producer.Producer, in, out int64) {
	if out < 0 {
		out = parent.Length() - 1
	}
	pl.mu.Lock()
	defer pl.mu.Unlock()
	pl.appendLocked(producer.NewCut(parent, in, out), false)
}

func (pl *Playlist) appendLocked(cut *producer.Cut, blank bool) {
	pl.entries = append(pl.entries, entry{cut: cut, start: pl.totalLengthLocked(), blank: blank})
}

// Blank appends a gap producer of length emitting black + silence
// (spec §4.10).
func (pl *Playlist) Blank(length int64) {
	gen := producer.NewColour(pl.profile, "0x000000ff", length)
	gen.Svc().Properties().Set("test_image", "1")
	gen.Svc().Properties().Set("test_audio", "1")
	cut := producer.NewCut(gen, 0, length-1)
	pl.mu.Lock()
	defer pl.mu.Unlock()
	pl.appendLocked(cut, true)
}

// Insert places parent[in, out] at index i, shifting subsequent entries.
func (pl *Playlist) Insert(i int, parent producer.Producer, in, out int64) error {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	if i < 0 || i > len(pl.entries) {
		return errs.ErrInvalidArgument
	}
	if out < 0 {
		out = parent.Length() - 1
	}
	cut := producer.NewCut(parent, in, out)
	tail := append([]entry{{cut: cut}}, pl.entries[i:]...)
	pl.entries = append(pl.entries[:i], tail...)
	pl.recalcStartsLocked()
	return nil
}

// Remove deletes the entry at index i.
func (pl *Playlist) Remove(i int) error {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	if i < 0 || i >= len(pl.entries) {
		return errs.ErrInvalidArgument
	}
	pl.entries = append(pl.entries[:i], pl.entries[i+1:]...)
	pl.recalcStartsLocked()
	return nil
}

// Move relocates the entry at from to index to.
func (pl *Playlist) Move(from, to int) error {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	n := len(pl.entries)
	if from < 0 || from >= n || to < 0 || to >= n {
		return errs.ErrInvalidArgument
	}
	e := pl.entries[from]
	pl.entries = append(pl.entries[:from], pl.entries[from+1:]...)
	tail := append([]entry{e}, pl.entries[to:]...)
	pl.entries = append(pl.entries[:to], tail...)
	pl.recalcStartsLocked()
	return nil
}

// Reorder permutes entries according to permutation, a 0-based index
// into the current order for each resulting slot. Every index in
// [0, count) must appear exactly once; any duplicate or out-of-range
// index fails and leaves the playlist untouched (spec §4.10).
func (pl *Playlist) Reorder(permutation []int) error {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	n := len(pl.entries)
	if len(permutation) != n {
		return errs.ErrInvalidArgument
	}
	seen := make([]bool, n)
	for _, idx := range permutation {
		if idx < 0 || idx >= n || seen[idx] {
			return errs.ErrInvalidArgument
		}
		seen[idx] = true
	}
	next := make([]entry, n)
	for dst, src := range permutation {
		next[dst] = pl.entries[src]
	}
	pl.entries = next
	pl.recalcStartsLocked()
	return nil
}

// ResizeClip clamps entry i's cut into [in, out]; fails without
// mutating state if in >= out or out >= the parent's length.
func (pl *Playlist) ResizeClip(i int, in, out int64) error {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	if i < 0 || i >= len(pl.entries) || in == out {
		return errs.ErrInvalidArgument
	}
	resized, err := pl.entries[i].cut.Resize(in, out)
	if err != nil {
		return err
	}
	pl.entries[i].cut = resized
	pl.recalcStartsLocked()
	return nil
}

func (pl *Playlist) recalcStartsLocked() {
	var pos int64
	for i := range pl.entries {
		pl.entries[i].start = pos
		pos += pl.entries[i].cut.Length()
	}
}

// GetClipAt returns the entry index covering position and the position
// translated into that clip's local frame, via binary search over each
// entry's start (spec §4.10).
func (pl *Playlist) GetClipAt(position int64) (index int, withinClip int64) {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	return pl.getClipAtLocked(position)
}

func (pl *Playlist) getClipAtLocked(position int64) (int, int64) {
	n := len(pl.entries)
	if n == 0 {
		return -1, 0
	}
	i := sort.Search(n, func(i int) bool {
		return pl.entries[i].start+pl.entries[i].cut.Length() > position
	})
	if i >= n {
		i = n - 1
	}
	return i, position - pl.entries[i].start
}

// GetClip returns the Cut at index i.
func (pl *Playlist) GetClip(i int) *producer.Cut {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	if i < 0 || i >= len(pl.entries) {
		return nil
	}
	return pl.entries[i].cut
}

// Svc returns the playlist's own Service.
func (pl *Playlist) Svc() *svc.Service { return pl.Service }

// In always reads from frame 0.
func (pl *Playlist) In() int64 { return 0 }

// Out is the playlist's last valid frame.
func (pl *Playlist) Out() int64 {
	l := pl.Length()
	if l == 0 {
		return 0
	}
	return l - 1
}

// Position, Speed, SetSpeed, Seek and Close exist to satisfy
// producer.Producer; a playlist has no independent play cursor of its
// own beyond what GetFrame derives from index, so these are minimal.
func (pl *Playlist) Position() int64    { return 0 }
func (pl *Playlist) Speed() float64     { return 1 }
func (pl *Playlist) SetSpeed(s float64) {}
func (pl *Playlist) Seek(pos int64)     {}
func (pl *Playlist) Close()             { pl.Service.Properties().Close() }

// GetFrame dispatches to the clip containing position, requesting
// (position - clip_start) from it. It stamps meta.playlist.clip_position
// and meta.playlist.clip_length on the returned frame, and when two
// consecutive clips abut with no gap, marks the seam clip_position as
// 0 or clip_length-1 so boundary filters (e.g. Autofade) can detect it
// (spec §4.10).
func (pl *Playlist) GetFrame(index int64) (*frame.Frame, error) {
	pl.mu.Lock()
	i, within := pl.getClipAtLocked(index)
	if i < 0 {
		pl.mu.Unlock()
		return nil, errs.ErrNotFound
	}
	cut := pl.entries[i].cut
	pl.mu.Unlock()

	f, err := cut.GetFrame(within)
	if err != nil {
		return nil, err
	}
	f.Props.SetInt("meta.playlist.clip_position", within)
	f.Props.SetInt("meta.playlist.clip_length", cut.Length())
	return f, nil
}
