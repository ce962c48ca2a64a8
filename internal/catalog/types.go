package catalog

import (
	"errors"
	"time"

	"github.com/sreemahi-code/abbhack/internal/dataset"
)

// ErrNotFound is returned when a version id is unknown or no version is active.
var ErrNotFound = errors.New("dataset version not found")

// #region version
// Version describes one committed upload. The rows themselves are loaded
// separately with Store.LoadTable.
type Version struct {
	VersionID string    `json:"versionId"`
	ParentID  string    `json:"parentId,omitempty"`
	Name      string    `json:"name"`
	RowCount  int       `json:"rowCount"`
	Columns   []string  `json:"columns"`
	CreatedAt time.Time `json:"createdAt"`
	Active    bool      `json:"active"`
}

// Meta converts the version to the row store's dataset metadata.
func (v Version) Meta() dataset.Meta {
	return dataset.Meta{ID: v.VersionID, Name: v.Name, LoadedAt: v.CreatedAt}
}
// #endregion version
