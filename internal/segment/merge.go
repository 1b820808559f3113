package segment

import (
	"container/heap"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/textpipe/indexer/internal/index"
	pkgerrors "github.com/textpipe/indexer/pkg/errors"
	"github.com/textpipe/indexer/pkg/logger"
)

// FileMerge folds temporary segment files into the final merged index.
// Files are queued with AddFile and combined by Finish into
// <outputDir>/index.tidx via a K-way merge over the sorted dictionaries.
// Merged temporaries are deleted afterwards.
type FileMerge struct {
	outputDir string
	files     []string
	finished  bool
	logger    *slog.Logger
}

func NewFileMerge(outputDir string) *FileMerge {
	return &FileMerge{
		outputDir: outputDir,
		logger:    logger.WithComponent("merge"),
	}
}

// AddFile queues one segment for merging. The file must already exist.
func (m *FileMerge) AddFile(path string) error {
	if m.finished {
		return pkgerrors.ErrMergeDone
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("adding segment: %w", err)
	}
	m.files = append(m.files, path)
	m.logger.Debug("segment queued", "path", path, "queued", len(m.files))
	return nil
}

// Finish merges all queued segments into the final index. With no
// queued segments it writes an empty index; with one it renames the
// segment into place.
func (m *FileMerge) Finish() error {
	if m.finished {
		return pkgerrors.ErrMergeDone
	}
	m.finished = true
	finalPath := IndexPath(m.outputDir)

	switch len(m.files) {
	case 0:
		w, err := Create(finalPath)
		if err != nil {
			return err
		}
		if err := w.Finalize(); err != nil {
			return err
		}
		m.logger.Info("index written", "path", finalPath, "segments", 0, "terms", 0)
		return nil
	case 1:
		if err := os.Rename(m.files[0], finalPath); err != nil {
			return fmt.Errorf("moving single segment into place: %w", err)
		}
		m.removeTmpDir()
		m.logger.Info("index written", "path", finalPath, "segments", 1)
		return nil
	}

	readers := make([]*Reader, len(m.files))
	var g errgroup.Group
	for i, path := range m.files {
		g.Go(func() error {
			r, err := OpenReader(path)
			if err != nil {
				return err
			}
			readers[i] = r
			return nil
		})
	}
	err := g.Wait()
	defer func() {
		for _, r := range readers {
			if r != nil {
				r.Close()
			}
		}
	}()
	if err != nil {
		return err
	}

	w, err := Create(finalPath)
	if err != nil {
		return err
	}
	if err := m.mergeInto(w, readers); err != nil {
		w.Abort()
		return err
	}
	terms, docs := w.TermCount(), w.DocCount()
	if err := w.Finalize(); err != nil {
		return err
	}

	for _, path := range m.files {
		if err := os.Remove(path); err != nil {
			m.logger.Warn("leaving merged segment behind", "path", path, "error", err)
		}
	}
	m.removeTmpDir()
	m.logger.Info("index written",
		"path", finalPath,
		"segments", len(m.files),
		"terms", terms,
		"docs", docs,
	)
	return nil
}

// mergeInto drains all readers through a heap of dictionary cursors,
// concatenating postings per term across segments.
func (m *FileMerge) mergeInto(w *Writer, readers []*Reader) error {
	h := &cursorHeap{}
	heap.Init(h)
	for i, r := range readers {
		if r.EntryCount() > 0 {
			heap.Push(h, cursor{reader: i, entry: 0, term: r.TermAt(0)})
		}
	}

	for h.Len() > 0 {
		term := (*h)[0].term
		var postings index.PostingList
		for h.Len() > 0 && (*h)[0].term == term {
			cur := heap.Pop(h).(cursor)
			r := readers[cur.reader]
			pl, err := r.PostingsAt(cur.entry)
			if err != nil {
				return err
			}
			postings = append(postings, pl...)
			if next := cur.entry + 1; next < r.EntryCount() {
				heap.Push(h, cursor{reader: cur.reader, entry: next, term: r.TermAt(next)})
			}
		}
		// Each document lives in exactly one segment, so sorting by doc
		// id fully orders the combined list.
		sort.Slice(postings, func(i, j int) bool {
			return postings[i].DocID < postings[j].DocID
		})
		if err := w.Append(index.TermEntry{Term: term, Postings: postings}); err != nil {
			return err
		}
	}
	return nil
}

func (m *FileMerge) removeTmpDir() {
	// Fails quietly when the directory still holds files.
	os.Remove(filepath.Join(m.outputDir, "tmp"))
}

type cursor struct {
	reader int
	entry  int
	term   string
}

type cursorHeap []cursor

func (h cursorHeap) Len() int { return len(h) }

func (h cursorHeap) Less(i, j int) bool {
	if h[i].term != h[j].term {
		return h[i].term < h[j].term
	}
	return h[i].reader < h[j].reader
}

func (h cursorHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *cursorHeap) Push(x interface{}) {
	*h = append(*h, x.(cursor))
}

func (h *cursorHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
