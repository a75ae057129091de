package source

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	perrors "github.com/matzehuels/pipescope/pkg/errors"
	"github.com/matzehuels/pipescope/pkg/lineage"
)

// ReadPayloadFile loads a payload written by [WritePayloadFile] or any
// other producer of the payload format.
func ReadPayloadFile(path string) (*lineage.Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, perrors.Wrap(perrors.ErrCodeFileNotFound, err, "payload %s not found", path)
		}
		return nil, err
	}
	store, err := lineage.ParsePayload(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return store, nil
}

// WritePayloadFile writes the store as indented JSON.
func WritePayloadFile(path string, store *lineage.Store) error {
	data, err := json.MarshalIndent(store, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}
