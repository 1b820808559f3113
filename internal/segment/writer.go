package segment

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"os"
	"path/filepath"
	"time"

	"github.com/textpipe/indexer/internal/index"
	pkgerrors "github.com/textpipe/indexer/pkg/errors"
)

// Writer streams term entries into a new segment file. Entries must
// arrive in strictly ascending term order so the dictionary stays
// binary-searchable. The writer targets a .tmp path and renames to the
// final path on Finalize, so readers never observe a half-written
// segment.
type Writer struct {
	file      *os.File
	finalPath string
	tmpPath   string
	dict      []DictEntry
	docIDs    map[int]struct{}
	postStart int64
	offset    int64
	lastTerm  string
	finalized bool
}

// Create opens a new segment writer targeting path.
func Create(path string) (*Writer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating segment directory: %w", err)
	}
	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("creating temp segment file: %w", err)
	}
	// Placeholder header, patched with real values in Finalize.
	if _, err := f.Write(make([]byte, HeaderSize)); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return nil, fmt.Errorf("writing header: %w", err)
	}
	return &Writer{
		file:      f,
		finalPath: path,
		tmpPath:   tmpPath,
		dict:      make([]DictEntry, 0, 64),
		docIDs:    make(map[int]struct{}),
		postStart: int64(HeaderSize),
		offset:    int64(HeaderSize),
	}, nil
}

// Append writes one term's postings block. Terms must be appended in
// strictly ascending order.
func (w *Writer) Append(entry index.TermEntry) error {
	if w.finalized {
		return fmt.Errorf("appending to finalized segment %s", w.finalPath)
	}
	if len(entry.Postings) == 0 {
		return nil
	}
	if w.lastTerm != "" && entry.Term <= w.lastTerm {
		return fmt.Errorf("term %q appended after %q: segment terms must be sorted", entry.Term, w.lastTerm)
	}
	data, err := json.Marshal(entry.Postings)
	if err != nil {
		return fmt.Errorf("marshaling postings for term %q: %w", entry.Term, err)
	}
	if _, err := w.file.Write(data); err != nil {
		return fmt.Errorf("writing postings for term %q: %w", entry.Term, err)
	}
	w.dict = append(w.dict, DictEntry{
		Term:       entry.Term,
		PostOffset: w.offset - w.postStart,
		PostLen:    len(data),
		DocFreq:    len(entry.Postings),
	})
	for _, p := range entry.Postings {
		w.docIDs[p.DocID] = struct{}{}
	}
	w.offset += int64(len(data))
	w.lastTerm = entry.Term
	return nil
}

// TermCount returns the number of terms appended so far.
func (w *Writer) TermCount() int {
	return len(w.dict)
}

// DocCount returns the number of distinct documents seen so far.
func (w *Writer) DocCount() int {
	return len(w.docIDs)
}

// Finalize writes the dictionary, footer, and completed header, then
// atomically renames the segment into place.
func (w *Writer) Finalize() error {
	if w.finalized {
		return fmt.Errorf("segment %s already finalized", w.finalPath)
	}

	postSize := w.offset - w.postStart
	dictStart := w.offset
	dictData, err := json.Marshal(w.dict)
	if err != nil {
		w.Abort()
		return fmt.Errorf("marshaling dictionary: %w", err)
	}
	if _, err := w.file.Write(dictData); err != nil {
		w.Abort()
		return fmt.Errorf("writing dictionary: %w", err)
	}
	dictSize := int64(len(dictData))

	footer := make([]byte, FooterSize)
	binary.LittleEndian.PutUint32(footer[0:4], crc32.ChecksumIEEE(dictData))
	binary.LittleEndian.PutUint32(footer[4:8], uint32(len(w.docIDs)))
	binary.LittleEndian.PutUint64(footer[8:16], uint64(dictStart))
	binary.LittleEndian.PutUint64(footer[16:24], uint64(dictSize))
	binary.LittleEndian.PutUint64(footer[24:32], uint64(postSize))
	if _, err := w.file.Write(footer); err != nil {
		w.Abort()
		return fmt.Errorf("writing footer: %w", err)
	}

	header := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint32(header[0:4], MagicBytes)
	binary.LittleEndian.PutUint32(header[4:8], FormatVersion)
	binary.LittleEndian.PutUint32(header[8:12], uint32(len(w.dict)))
	binary.LittleEndian.PutUint32(header[12:16], uint32(len(w.docIDs)))
	binary.LittleEndian.PutUint64(header[16:24], uint64(dictStart))
	binary.LittleEndian.PutUint64(header[24:32], uint64(dictSize))
	binary.LittleEndian.PutUint64(header[32:40], uint64(w.postStart))
	binary.LittleEndian.PutUint64(header[40:48], uint64(postSize))
	binary.LittleEndian.PutUint64(header[48:56], uint64(time.Now().Unix()))
	if _, err := w.file.WriteAt(header, 0); err != nil {
		w.Abort()
		return fmt.Errorf("updating header: %w", err)
	}
	if err := w.file.Sync(); err != nil {
		w.Abort()
		return fmt.Errorf("syncing segment file: %w", err)
	}
	if err := w.file.Close(); err != nil {
		os.Remove(w.tmpPath)
		return fmt.Errorf("closing segment file: %w", err)
	}
	if err := os.Rename(w.tmpPath, w.finalPath); err != nil {
		os.Remove(w.tmpPath)
		return fmt.Errorf("renaming segment file: %w", err)
	}
	w.finalized = true
	return nil
}

// Abort discards the partially written segment.
func (w *Writer) Abort() {
	if w.finalized {
		return
	}
	w.file.Close()
	os.Remove(w.tmpPath)
	w.finalized = true
}

// WriteTemp spills a fragment into a fresh file allocated from tmp and
// returns the new segment's path. Empty fragments are refused: a segment
// with no terms has nothing to merge.
func WriteTemp(idx index.InMemoryIndex, tmp *TmpDir) (string, error) {
	if idx.IsEmpty() {
		return "", pkgerrors.ErrEmptyIndex
	}
	path, err := tmp.NextPath()
	if err != nil {
		return "", err
	}
	w, err := Create(path)
	if err != nil {
		return "", err
	}
	for _, entry := range idx.Snapshot() {
		if err := w.Append(entry); err != nil {
			w.Abort()
			return "", err
		}
	}
	if err := w.Finalize(); err != nil {
		return "", err
	}
	return path, nil
}
