package object

import (
	"encoding/hex"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/klauspost/compress/zstd"
	"gopkg.in/yaml.v3"
	"lukechampine.com/blake3"

	"github.com/castorvcs/castor/pkg/errors"
	"github.com/castorvcs/castor/pkg/types"
)

// Object kinds as encoded in the on-disk header.
const (
	kindBlob   = "blob"
	kindTree   = "tree"
	kindCommit = "commit"
)

// Commit is the native commit object. The engine only ever follows Tree.
type Commit struct {
	Tree    types.ObjectID   `yaml:"tree"`
	Parents []types.ObjectID `yaml:"parents,omitempty"`
	Message string           `yaml:"message,omitempty"`
}

type treeEntry struct {
	Path string `yaml:"path"`
	ID   string `yaml:"id"`
	Kind string `yaml:"kind"`
	Mode uint32 `yaml:"mode"`
}

type treePayload struct {
	Entries []treeEntry `yaml:"entries"`
}

// FileStore is the native castor object store: objects addressed by the
// blake3-256 digest of "castor <kind> <size>\n" + payload, stored
// zstd-compressed under <root>/objects/<id[:2]>/<id[2:]>, with HEAD in
// <root>/HEAD.
type FileStore struct {
	fs   types.FS
	root string
	enc  *zstd.Encoder
	dec  *zstd.Decoder
}

// NewFileStore opens (or lays out) a store rooted at dir.
func NewFileStore(fsys types.FS, dir string) (*FileStore, error) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("zstd decoder: %w", err)
	}
	s := &FileStore{fs: fsys, root: dir, enc: enc, dec: dec}
	if err := fsys.MkdirAll(path.Join(dir, "objects"), 0755); err != nil {
		return nil, errors.Wrap(err, errors.ErrObjectWrite, "creating object directory")
	}
	return s, nil
}

func (s *FileStore) hash(kind string, payload []byte) types.ObjectID {
	framed := frame(kind, payload)
	sum := blake3.Sum256(framed)
	return types.ObjectID(hex.EncodeToString(sum[:]))
}

func frame(kind string, payload []byte) []byte {
	header := fmt.Sprintf("castor %s %d\n", kind, len(payload))
	return append([]byte(header), payload...)
}

func (s *FileStore) objectPath(id types.ObjectID) string {
	return path.Join(s.root, "objects", string(id[:2]), string(id[2:]))
}

func (s *FileStore) write(kind string, payload []byte) (types.ObjectID, error) {
	id := s.hash(kind, payload)
	p := s.objectPath(id)
	if _, err := s.fs.Lstat(p); err == nil {
		return id, nil
	}
	if err := s.fs.MkdirAll(path.Dir(p), 0755); err != nil {
		return "", errors.Wrapf(err, errors.ErrObjectWrite, "creating fan-out dir for %s", id.Short())
	}
	compressed := s.enc.EncodeAll(frame(kind, payload), nil)
	if err := s.fs.WriteFile(p, compressed, 0444); err != nil {
		return "", errors.Wrapf(err, errors.ErrObjectWrite, "writing object %s", id.Short())
	}
	return id, nil
}

func (s *FileStore) read(id types.ObjectID) (string, []byte, error) {
	if len(id) < 3 {
		return "", nil, errors.Newf(errors.ErrInvalidInput, "malformed object id %q", id)
	}
	compressed, err := s.fs.ReadFile(s.objectPath(id))
	if err != nil {
		return "", nil, errors.Wrapf(err, errors.ErrObjectRead, "object %s not readable", id.Short())
	}
	framed, err := s.dec.DecodeAll(compressed, nil)
	if err != nil {
		return "", nil, errors.Wrapf(err, errors.ErrObjectRead, "object %s corrupt", id.Short())
	}
	nl := strings.IndexByte(string(framed), '\n')
	if nl < 0 || !strings.HasPrefix(string(framed[:nl]), "castor ") {
		return "", nil, errors.Newf(errors.ErrObjectRead, "object %s has a bad header", id.Short())
	}
	fields := strings.Fields(string(framed[:nl]))
	if len(fields) != 3 {
		return "", nil, errors.Newf(errors.ErrObjectRead, "object %s has a bad header", id.Short())
	}
	return fields[1], framed[nl+1:], nil
}

// HashBlob implements Store.
func (s *FileStore) HashBlob(data []byte) types.ObjectID {
	return s.hash(kindBlob, data)
}

// ReadBlob implements Store.
func (s *FileStore) ReadBlob(id types.ObjectID) ([]byte, error) {
	kind, payload, err := s.read(id)
	if err != nil {
		return nil, err
	}
	if kind != kindBlob {
		return nil, errors.Newf(errors.ErrObjectRead, "object %s is a %s, not a blob", id.Short(), kind)
	}
	return payload, nil
}

// WriteBlob stores blob content and returns its id.
func (s *FileStore) WriteBlob(data []byte) (types.ObjectID, error) {
	return s.write(kindBlob, data)
}

// WriteTree stores a tree object built from the given entries.
func (s *FileStore) WriteTree(tree *types.Tree) (types.ObjectID, error) {
	payload := treePayload{}
	for _, e := range tree.Entries() {
		payload.Entries = append(payload.Entries, treeEntry{
			Path: e.Path,
			ID:   string(e.ID),
			Kind: e.Kind.String(),
			Mode: uint32(e.Mode.Perm()),
		})
	}
	data, err := yaml.Marshal(&payload)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrObjectWrite, "encoding tree")
	}
	return s.write(kindTree, data)
}

// WriteCommit stores a commit object.
func (s *FileStore) WriteCommit(c Commit) (types.ObjectID, error) {
	data, err := yaml.Marshal(&c)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrObjectWrite, "encoding commit")
	}
	return s.write(kindCommit, data)
}

// PeelToTree implements Store.
func (s *FileStore) PeelToTree(id types.ObjectID) (*types.Tree, error) {
	kind, payload, err := s.read(id)
	if err != nil {
		return nil, err
	}
	switch kind {
	case kindCommit:
		var c Commit
		if err := yaml.Unmarshal(payload, &c); err != nil {
			return nil, errors.Wrapf(err, errors.ErrObjectRead, "decoding commit %s", id.Short())
		}
		return s.PeelToTree(c.Tree)
	case kindTree:
		return decodeTree(payload, id)
	default:
		return nil, errors.Newf(errors.ErrNotATree, "object %s is a %s and cannot be peeled to a tree", id.Short(), kind)
	}
}

func decodeTree(payload []byte, id types.ObjectID) (*types.Tree, error) {
	var tp treePayload
	if err := yaml.Unmarshal(payload, &tp); err != nil {
		return nil, errors.Wrapf(err, errors.ErrObjectRead, "decoding tree %s", id.Short())
	}
	tree := types.NewTree()
	for _, te := range tp.Entries {
		kind, err := kindFromString(te.Kind)
		if err != nil {
			return nil, errors.Wrapf(err, errors.ErrObjectRead, "tree %s", id.Short())
		}
		entry := types.Entry{
			Path: te.Path,
			ID:   types.ObjectID(te.ID),
			Kind: kind,
			Mode: fs.FileMode(te.Mode),
		}
		if err := tree.Insert(entry); err != nil {
			return nil, errors.Wrapf(err, errors.ErrObjectRead, "tree %s", id.Short())
		}
	}
	return tree, nil
}

func kindFromString(s string) (types.EntryKind, error) {
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
		return types.KindAbsent, fmt.Errorf("unknown entry kind %q", s)
	}
}

// Head implements RefStore, reading <root>/HEAD.
func (s *FileStore) Head() (types.ObjectID, error) {
	data, err := s.fs.ReadFile(path.Join(s.root, "HEAD"))
	if err != nil {
		return "", errors.Wrap(err, errors.ErrObjectRead, "reading HEAD")
	}
	return types.ObjectID(strings.TrimSpace(string(data))), nil
}

// SetHead points HEAD at the given object.
func (s *FileStore) SetHead(id types.ObjectID) error {
	if err := s.fs.WriteFile(path.Join(s.root, "HEAD"), []byte(string(id)+"\n"), 0644); err != nil {
		return errors.Wrap(err, errors.ErrObjectWrite, "writing HEAD")
	}
	return nil
}
