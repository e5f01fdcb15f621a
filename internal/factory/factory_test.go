package factory

import (
	"testing"

	"github.com/mltgo/mlt/internal/errs"
	"github.com/mltgo/mlt/internal/producer"
	"github.com/mltgo/mlt/internal/profile"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndFactoryProducer(t *testing.T) {
	r := New("")
	r.RegisterProducer("colour", func(p profile.Profile, id, arg string) (producer.Producer, error) {
		return producer.NewColour(p, arg, 10), nil
	})

	require.True(t, r.HasProducer("colour"))
	p, err := r.FactoryProducer(profile.Default(), "colour", "red")
	require.NoError(t, err)
	require.NotNil(t, p)
}

func TestFactoryProducerNotFound(t *testing.T) {
	r := New("")
	_, err := r.FactoryProducer(profile.Default(), "nope", "")
	require.True(t, errs.Is(err, errs.ErrNotFound))
}

func TestRegisterProducerPanicsOnDuplicateID(t *testing.T) {
	r := New("")
	ctor := func(p profile.Profile, id, arg string) (producer.Producer, error) {
		return producer.NewColour(p, "red", 1), nil
	}
	r.RegisterProducer("x", ctor)

	require.Panics(t, func() { r.RegisterProducer("x", ctor) })
}

func TestRegisterFilterPanicsOnDuplicateID(t *testing.T) {
	r := New("")
	r.RegisterChannelConform("channelconform", 2)

	require.Panics(t, func() { r.RegisterChannelConform("channelconform", 2) })
}

func TestMetadataForReadsYAMLOnce(t *testing.T) {
	reads := 0
	readFile := func(path string) ([]byte, error) {
		reads++
		return []byte(`
services:
  - id: colour
    kind: producer
    description: solid colour generator
    parameters:
      resource: color spec
`), nil
	}

	r := New("services.yaml")
	m, err := r.MetadataFor("colour", readFile)
	require.NoError(t, err)
	require.Equal(t, "producer", m.Kind)
	require.Equal(t, "color spec", m.Parameters["resource"])

	_, err = r.MetadataFor("colour", readFile)
	require.NoError(t, err)
	require.Equal(t, 1, reads)
}

func TestMetadataForMissingIDNotFound(t *testing.T) {
	readFile := func(path string) ([]byte, error) {
		return []byte("services: []\n"), nil
	}
	r := New("services.yaml")
	_, err := r.MetadataFor("missing", readFile)
	require.True(t, errs.Is(err, errs.ErrNotFound))
}
