// Package fingerprint computes stable content digests over a target's
// declared inputs. A target whose fingerprint matches its cached record is
// up to date and can reuse the cached result.
package fingerprint

import (
	"encoding/binary"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/opencontainers/go-digest"
	"github.com/pkg/errors"

	"github.com/gantry-dev/gantry/pkg/model"
)

// A Fingerprint covers everything that feeds a target: its recipe, its
// declared dependency shape, and the bytes of its declared input files.
// Equal fingerprints mean the target would produce an identical result.
type Fingerprint string

// version is hashed into every fingerprint. Bump it when the field layout
// changes so stale cache records can't be mistaken for fresh ones.
const version = "gantry.fp.v1"

func (f Fingerprint) Empty() bool { return f == "" }

func (f Fingerprint) String() string { return string(f) }

// ShortString trims the digest to 12 hex chars for log lines.
func (f Fingerprint) ShortString() string {
	s := string(f)
	if i := strings.IndexByte(s, ':'); i >= 0 && len(s) > i+13 {
		return s[i+1 : i+13]
	}
	return s
}

func ForTarget(t model.TargetSpec) (Fingerprint, error) {
	switch target := t.(type) {
	case model.ImageTarget:
		return ForImage(target)
	case model.ManifestTarget:
		return ForManifest(target)
	case model.GroupTarget:
		return forGroup(target)
	default:
		return "", errors.Errorf("cannot fingerprint target type %T", t)
	}
}

func ForImage(t model.ImageTarget) (Fingerprint, error) {
	w := newFieldWriter()
	w.writeString(version)
	w.writeString(t.ID().String())
	w.writeString(t.Ref.String())
	w.writeBool(t.Push)
	w.writeStrings(model.TargetIDStrings(t.DependencyIDs()))

	switch details := t.BuildDetails.(type) {
	case model.CommandBuild:
		w.writeString("command")
		w.writeString(details.Command)
		w.writeString(details.Dir)
	case model.DockerfileBuild:
		w.writeString("dockerfile")
		w.writeString(details.Context)
		w.writeStrings(details.Args)
		path := details.Dockerfile
		if path == "" {
			path = filepath.Join(details.Context, "Dockerfile")
		}
		if err := w.writeTree(path); err != nil {
			return "", errors.Wrapf(err, "fingerprinting %s", t.ID())
		}
	}

	for _, src := range t.Srcs() {
		if err := w.writeTree(src); err != nil {
			return "", errors.Wrapf(err, "fingerprinting %s", t.ID())
		}
	}
	return w.fingerprint(), nil
}

func ForManifest(t model.ManifestTarget) (Fingerprint, error) {
	w := newFieldWriter()
	w.writeString(version)
	w.writeString(t.ID().String())
	w.writeString(t.Cluster)

	entries := make([]string, 0, len(t.Images))
	for _, e := range t.Images {
		entries = append(entries, e.Selector.String()+"="+e.ImageID.String())
	}
	sort.Strings(entries)
	w.writeStrings(entries)
	w.writeStrings(model.TargetIDStrings(t.DependencyIDs()))

	for _, p := range t.YAMLPaths {
		if err := w.writeTree(p); err != nil {
			return "", errors.Wrapf(err, "fingerprinting %s", t.ID())
		}
	}
	return w.fingerprint(), nil
}

// Groups have no inputs of their own; their fingerprint is just the member
// list, which is enough for plan output.
func forGroup(t model.GroupTarget) (Fingerprint, error) {
	w := newFieldWriter()
	w.writeString(version)
	w.writeString(t.ID().String())
	w.writeStrings(model.TargetIDStrings(t.DependencyIDs()))
	return w.fingerprint(), nil
}

// fieldWriter hashes length-prefixed fields so adjacent fields can't run
// together and collide ("ab"+"c" vs "a"+"bc").
type fieldWriter struct {
	digester digest.Digester
	hash     io.Writer
}

func newFieldWriter() *fieldWriter {
	d := digest.SHA256.Digester()
	return &fieldWriter{digester: d, hash: d.Hash()}
}

func (w *fieldWriter) fingerprint() Fingerprint {
	return Fingerprint(w.digester.Digest().String())
}

func (w *fieldWriter) writeUint64(n uint64) {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], n)
	_, _ = w.hash.Write(buf[:])
}

func (w *fieldWriter) writeString(s string) {
	w.writeUint64(uint64(len(s)))
	_, _ = io.WriteString(w.hash, s)
}

func (w *fieldWriter) writeStrings(ss []string) {
	w.writeUint64(uint64(len(ss)))
	for _, s := range ss {
		w.writeString(s)
	}
}

func (w *fieldWriter) writeBool(b bool) {
	if b {
		w.writeString("1")
	} else {
		w.writeString("0")
	}
}

// writeTree hashes a file, or every file under a directory in lexical walk
// order. Paths are hashed relative to the tree root so moving a checkout
// doesn't invalidate every fingerprint.
func (w *fieldWriter) writeTree(root string) error {
	info, err := os.Lstat(root)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return w.writeFileEntry(root, filepath.Base(root), info)
	}
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		return w.writeFileEntry(path, filepath.ToSlash(rel), info)
	})
}

func (w *fieldWriter) writeFileEntry(path, rel string, info fs.FileInfo) error {
	mode := info.Mode()
	switch {
	case mode&fs.ModeSymlink != 0:
		target, err := os.Readlink(path)
		if err != nil {
			return err
		}
		w.writeString(rel)
		w.writeString("symlink")
		w.writeString(target)
	case mode.IsRegular():
		w.writeString(rel)
		if mode&0111 != 0 {
			w.writeString("exec")
		} else {
			w.writeString("file")
		}
		w.writeUint64(uint64(info.Size()))
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		_, err = io.Copy(w.hash, f)
		closeErr := f.Close()
		if err != nil {
			return err
		}
		return closeErr
	default:
		// Sockets and devices don't feed builds.
	}
	return nil
}
