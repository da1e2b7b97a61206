package index

import (
	"fmt"
	"io/fs"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/castorvcs/castor/pkg/errors"
	"github.com/castorvcs/castor/pkg/types"
)

type wireEntry struct {
	Path    string    `yaml:"path"`
	ID      string    `yaml:"id"`
	Kind    string    `yaml:"kind"`
	Mode    uint32    `yaml:"mode"`
	Size    int64     `yaml:"size"`
	ModTime time.Time `yaml:"mtime"`
	Stage   int       `yaml:"stage,omitempty"`
}

type wireIndex struct {
	Version int         `yaml:"version"`
	Entries []wireEntry `yaml:"entries"`
}

const wireVersion = 1

func (w *wireIndex) decode() ([]Entry, error) {
	if w.Version != 0 && w.Version != wireVersion {
		return nil, fmt.Errorf("unsupported index version %d", w.Version)
	}
	entries := make([]Entry, 0, len(w.Entries))
	for _, we := range w.Entries {
		kind, err := decodeKind(we.Kind)
		if err != nil {
			return nil, err
		}
		entries = append(entries, Entry{
			Path:    we.Path,
			ID:      types.ObjectID(we.ID),
			Kind:    kind,
			Mode:    fs.FileMode(we.Mode),
			Size:    we.Size,
			ModTime: we.ModTime,
			Stage:   we.Stage,
		})
	}
	return entries, nil
}

func decodeKind(s string) (types.EntryKind, error) {
	switch s {
	case "file":
		return types.KindFile, nil
	case "executable":
		return types.KindExecutable, nil
	case "symlink":
		return types.KindSymlink, nil
	case "submodule":
		return types.KindSubmodule, nil
	default:
		return types.KindAbsent, fmt.Errorf("unknown index entry kind %q", s)
	}
}

// Write persists the index atomically: encode to a sibling temp file, then
// rename over the old one.
func (ix *Index) Write() error {
	wire := wireIndex{Version: wireVersion}
	for _, e := range ix.entries {
		wire.Entries = append(wire.Entries, wireEntry{
			Path:    e.Path,
			ID:      string(e.ID),
			Kind:    e.Kind.String(),
			Mode:    uint32(e.Mode.Perm()),
			Size:    e.Size,
			ModTime: e.ModTime,
			Stage:   e.Stage,
		})
	}
	data, err := yaml.Marshal(&wire)
	if err != nil {
		return errors.Wrap(err, errors.ErrIndexWrite, "encoding index")
	}
	tmp := ix.path + ".tmp"
	if err := ix.fs.WriteFile(tmp, data, 0644); err != nil {
		return errors.Wrapf(err, errors.ErrIndexWrite, "writing %s", tmp)
	}
	if err := ix.fs.Rename(tmp, ix.path); err != nil {
		return errors.Wrapf(err, errors.ErrIndexWrite, "replacing %s", ix.path)
	}
	return nil
}
