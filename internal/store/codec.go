package store

import (
	"encoding/json"

	"github.com/cockroachdb/errors"

	"github.com/JonMunkholm/inventory/internal/core"
)

// itemColumns is the select list shared by both SQL backends.
const itemColumns = `id, title, description, price, quantity, upc, category,
	condition, brand, platforms, attributes, status, last_updated`

func encodeAttributes(attrs map[string]core.Attributes) ([]byte, error) {
	if len(attrs) == 0 {
		return []byte("{}"), nil
	}
	b, err := json.Marshal(attrs)
	if err != nil {
		return nil, errors.Wrap(err, "encode attributes")
	}
	return b, nil
}

func decodeAttributes(b []byte) (map[string]core.Attributes, error) {
	if len(b) == 0 {
		return nil, nil
	}
	var attrs map[string]core.Attributes
	if err := json.Unmarshal(b, &attrs); err != nil {
		return nil, errors.Wrap(err, "decode attributes")
	}
	if len(attrs) == 0 {
		return nil, nil
	}
	return attrs, nil
}

func encodePlatforms(platforms []string) ([]byte, error) {
	if len(platforms) == 0 {
		return []byte("[]"), nil
	}
	b, err := json.Marshal(platforms)
	if err != nil {
		return nil, errors.Wrap(err, "encode platforms")
	}
	return b, nil
}

func decodePlatforms(b []byte) ([]string, error) {
	var platforms []string
	if len(b) == 0 {
		return nil, nil
	}
	if err := json.Unmarshal(b, &platforms); err != nil {
		return nil, errors.Wrap(err, "decode platforms")
	}
	if len(platforms) == 0 {
		return nil, nil
	}
	return platforms, nil
}

// notFound wraps core.ErrRecordNotFound with the id that missed.
func notFound(id int64) error {
	return errors.Wrapf(core.ErrRecordNotFound, "item %d", id)
}
