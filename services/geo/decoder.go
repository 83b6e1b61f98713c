package geo

import (
	"github.com/paulmach/orb/geojson"
	"github.com/pkg/errors"

	"github.com/customeros/mailcodec/interfaces"
)

type decoder struct{}

// NewDecoder returns the GeoJSON collaborator backed by orb. Injecting it
// into the codec service enables application/geo+json part decoding; leaving
// the collaborator nil disables that branch.
func NewDecoder() interfaces.GeoJSONDecoder {
	return &decoder{}
}

func (d *decoder) Decode(payload []byte) (interface{}, error) {
	if collection, err := geojson.UnmarshalFeatureCollection(payload); err == nil {
		return collection, nil
	}
	if feature, err := geojson.UnmarshalFeature(payload); err == nil {
		return feature, nil
	}
	geometry, err := geojson.UnmarshalGeometry(payload)
	if err != nil {
		return nil, errors.Wrap(err, "decode geojson")
	}
	return geometry, nil
}
