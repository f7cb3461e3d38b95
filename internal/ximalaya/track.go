package ximalaya

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/handiism/album-dl/internal/model"
	"github.com/handiism/album-dl/internal/ximalaya/dto"
)

var errNoMediaURL = errors.New("document has no play path")

// ParseTrackFile reads a cached track metadata document and returns the item
// it describes. Failures are returned as *model.ParseError.
func ParseTrackFile(path string, ref model.ItemReference) (*model.Item, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &model.ParseError{Path: path, Err: err}
	}

	item, err := ParseTrack(data, ref)
	if err != nil {
		return nil, &model.ParseError{Path: path, Err: err}
	}
	return item, nil
}

// ParseTrack decodes a track metadata document.
func ParseTrack(data []byte, ref model.ItemReference) (*model.Item, error) {
	var jt dto.JSONTrack
	if err := json.Unmarshal(data, &jt); err != nil {
		return nil, fmt.Errorf("failed to parse track JSON: %w", err)
	}

	if jt.MediaURL() == "" {
		return nil, errNoMediaURL
	}

	return jt.ToItem(ref), nil
}
