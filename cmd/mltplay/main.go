// Command mltplay builds a small producer/tractor graph from a reduced
// argument mini-language and runs it through a consumer to a sink. The
// mini-language echoes original_source's inigo.c ("producer a.mov -track
// b.mov -transition luma"), much reduced: positional arguments are
// resources to resolve, -transition names the transition planted between
// each consecutive pair of tracks.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/mltgo/mlt/internal/consumer"
	"github.com/mltgo/mlt/internal/factory"
	"github.com/mltgo/mlt/internal/frame"
	"github.com/mltgo/mlt/internal/loader"
	"github.com/mltgo/mlt/internal/multitrack"
	"github.com/mltgo/mlt/internal/producer"
	"github.com/mltgo/mlt/internal/profile"
	"github.com/mltgo/mlt/internal/transition"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "mltplay:", err)
		os.Exit(1)
	}
}

type source interface {
	GetFrame(index int64) (*frame.Frame, error)
}

func run(args []string) error {
	fs := flag.NewFlagSet("mltplay", flag.ContinueOnError)
	frames := fs.Int("frames", 25, "number of frames each resolved colour/test resource generates")
	dumpDir := fs.String("dump", "", "directory to dump raw image frames into; counts to stdout if empty")
	transitionID := fs.String("transition", "crossfade", "transition planted between each consecutive pair of tracks")
	if err := fs.Parse(args); err != nil {
		return err
	}

	resources := fs.Args()
	if len(resources) == 0 {
		return fmt.Errorf("at least one resource argument required")
	}

	p := profile.Default()
	repo := newRepository(p, int64(*frames))
	l := newLoaderFor(repo, p)

	tracks, err := resolveTracks(l, resources)
	if err != nil {
		return err
	}

	src, err := buildSource(tracks, *transitionID, int64(*frames))
	if err != nil {
		return err
	}

	render := stdoutCountingSink()
	if *dumpDir != "" {
		render, err = fileDumpSink(*dumpDir, p)
		if err != nil {
			return err
		}
	}

	c := consumer.New(render, p.FPS(), 0, 1, nil)
	if err := c.Connect(src); err != nil {
		return err
	}
	return c.Start(context.Background())
}

// newRepository registers the producer/filter constructors this CLI
// itself ships: the colour/test generator and the loader's normaliser
// filters.
func newRepository(p profile.Profile, length int64) *factory.Repository {
	repo := factory.New("")
	repo.RegisterProducer("colour", func(p profile.Profile, id, arg string) (producer.Producer, error) {
		return producer.NewColour(p, arg, length), nil
	})
	loader.RegisterBuiltins(repo, p.Channels)
	return repo
}

// newLoaderFor returns a Loader over repo with the channel-layout
// normaliser enabled, the only normaliser this CLI registers.
func newLoaderFor(repo *factory.Repository, p profile.Profile) *loader.Loader {
	l := loader.New(repo, p, p.Channels)
	l.LoadNormalisers("channelconform\n")
	return l
}

func resolveTracks(l *loader.Loader, resources []string) ([]producer.Producer, error) {
	tracks := make([]producer.Producer, 0, len(resources))
	for _, r := range resources {
		pr, err := l.Resolve(r)
		if err != nil {
			return nil, fmt.Errorf("resolve %q: %w", r, err)
		}
		if err := l.Normalise(pr, nil); err != nil {
			return nil, fmt.Errorf("normalise %q: %w", r, err)
		}
		tracks = append(tracks, pr)
	}
	return tracks, nil
}

// buildSource returns tracks[0] directly for a single track, or a
// Tractor with transitionID planted between every consecutive pair of
// tracks otherwise.
func buildSource(tracks []producer.Producer, transitionID string, frames int64) (source, error) {
	if len(tracks) == 1 {
		return tracks[0], nil
	}

	mt := multitrack.New()
	for _, t := range tracks {
		mt.AddTrack(t)
	}

	field := multitrack.NewField()
	for i := 0; i < len(tracks)-1; i++ {
		switch transitionID {
		case "crossfade", "":
			field.Plant(transition.NewCrossfade(i, i+1, 0, frames-1))
		default:
			return nil, fmt.Errorf("unknown transition %q", transitionID)
		}
	}
	return multitrack.NewTractor(mt, field), nil
}

func stdoutCountingSink() consumer.RenderFunc {
	return func(f *frame.Frame) error {
		fmt.Printf("frame %d rendered\n", f.Position())
		return nil
	}
}

func fileDumpSink(dir string, p profile.Profile) (consumer.RenderFunc, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create dump dir: %w", err)
	}
	return func(f *frame.Frame) error {
		img, err := f.GetImage(frame.ImageRequest{Width: p.Width, Height: p.Height})
		if err != nil {
			return fmt.Errorf("get image for frame %d: %w", f.Position(), err)
		}
		path := fmt.Sprintf("%s/frame-%06d.raw", dir, f.Position())
		return os.WriteFile(path, img.Data, 0o644)
	}, nil
}
