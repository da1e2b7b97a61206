package index

import (
	"path"

	"github.com/castorvcs/castor/pkg/logging"
	"github.com/castorvcs/castor/pkg/pathcmp"
	"github.com/castorvcs/castor/pkg/types"
)

// Hasher computes the content id blob data would have in the active object
// store.
type Hasher func(data []byte) types.ObjectID

// Refresh re-validates cached stat data against the live workdir. For each
// merged entry whose size or mtime no longer matches, the file is re-hashed;
// when the content is actually unchanged the stat cache is repaired so the
// differencer trusts it again. Genuinely changed content keeps its stale
// stat data and is detected as modified downstream.
//
// Under the NoRefresh strategy the engine skips this pass and trusts the
// persisted index verbatim.
func (ix *Index) Refresh(fsys types.FS, root string, hash Hasher, perf *types.PerfData) {
	log := logging.GetLogger("index.refresh")
	repaired := 0
	for i := range ix.entries {
		e := &ix.entries[i]
		if e.Stage != StageMerged {
			continue
		}
		full := path.Join(root, e.Path)
		info, err := fsys.Lstat(full)
		if perf != nil {
			perf.Stats++
		}
		if err != nil {
			continue
		}
		if pathcmp.ClassifyMode(info.Mode()) != e.Kind {
			continue
		}
		if e.StatMatches(info) {
			continue
		}
		var id types.ObjectID
		switch {
		case e.Kind == types.KindSymlink:
			target, err := fsys.Readlink(full)
			if err != nil {
				continue
			}
			id = hash([]byte(target))
		case e.Kind.IsRegular():
			data, err := fsys.ReadFile(full)
			if err != nil {
				continue
			}
			id = hash(data)
		default:
			continue
		}
		if id == e.ID {
			e.Size = info.Size()
			e.ModTime = info.ModTime()
			repaired++
		}
	}
	if repaired > 0 {
		log.Debug().Int("entries", repaired).Msg("repaired stale stat cache entries")
	}
}
