package segment

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/textpipe/indexer/internal/index"
	pkgerrors "github.com/textpipe/indexer/pkg/errors"
)

// Reader gives random access to one segment file. The dictionary is held
// in memory; postings blocks are read on demand.
type Reader struct {
	file     *os.File
	filePath string
	header   SegmentHeader
	dict     []DictEntry
	postBase int64
}

func OpenReader(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening segment file: %w", err)
	}
	headerBytes := make([]byte, HeaderSize)
	if _, err := f.ReadAt(headerBytes, 0); err != nil {
		f.Close()
		return nil, fmt.Errorf("reading segment header %s: %w", path, err)
	}
	magic := binary.LittleEndian.Uint32(headerBytes[0:4])
	if magic != MagicBytes {
		f.Close()
		return nil, fmt.Errorf("%w: %s has bad magic bytes %x", pkgerrors.ErrBadSegment, path, magic)
	}
	version := binary.LittleEndian.Uint32(headerBytes[4:8])
	if version != FormatVersion {
		f.Close()
		return nil, fmt.Errorf("%w: %s has unsupported version %d", pkgerrors.ErrBadSegment, path, version)
	}
	header := SegmentHeader{
		Magic:      magic,
		Version:    version,
		TermCount:  binary.LittleEndian.Uint32(headerBytes[8:12]),
		DocCount:   binary.LittleEndian.Uint32(headerBytes[12:16]),
		DictOffset: int64(binary.LittleEndian.Uint64(headerBytes[16:24])),
		DictSize:   int64(binary.LittleEndian.Uint64(headerBytes[24:32])),
		PostOffset: int64(binary.LittleEndian.Uint64(headerBytes[32:40])),
		PostSize:   int64(binary.LittleEndian.Uint64(headerBytes[40:48])),
		CreatedAt:  int64(binary.LittleEndian.Uint64(headerBytes[48:56])),
	}
	dictBytes := make([]byte, header.DictSize)
	if _, err := f.ReadAt(dictBytes, header.DictOffset); err != nil {
		f.Close()
		return nil, fmt.Errorf("reading dictionary: %w", err)
	}
	var dict []DictEntry
	if err := json.Unmarshal(dictBytes, &dict); err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %s has unparseable dictionary: %v", pkgerrors.ErrBadSegment, path, err)
	}
	return &Reader{
		file:     f,
		filePath: path,
		header:   header,
		dict:     dict,
		postBase: header.PostOffset,
	}, nil
}

// Postings looks a term up by binary search and returns its posting
// list, or nil if the term is absent.
func (r *Reader) Postings(term string) (index.PostingList, error) {
	i := sort.Search(len(r.dict), func(i int) bool {
		return r.dict[i].Term >= term
	})
	if i >= len(r.dict) || r.dict[i].Term != term {
		return nil, nil
	}
	return r.PostingsAt(i)
}

// PostingsAt reads the postings block for dictionary entry i.
func (r *Reader) PostingsAt(i int) (index.PostingList, error) {
	entry := r.dict[i]
	postingsBytes := make([]byte, entry.PostLen)
	if _, err := r.file.ReadAt(postingsBytes, r.postBase+entry.PostOffset); err != nil {
		return nil, fmt.Errorf("reading postings for term %q: %w", entry.Term, err)
	}
	var postings index.PostingList
	if err := json.Unmarshal(postingsBytes, &postings); err != nil {
		return nil, fmt.Errorf("%w: postings for term %q: %v", pkgerrors.ErrBadSegment, entry.Term, err)
	}
	return postings, nil
}

// TermAt returns the term of dictionary entry i. Entries are sorted.
func (r *Reader) TermAt(i int) string {
	return r.dict[i].Term
}

// EntryCount returns the number of terms in the segment.
func (r *Reader) EntryCount() int {
	return len(r.dict)
}

// DocCount returns the number of distinct documents in the segment.
func (r *Reader) DocCount() int {
	return int(r.header.DocCount)
}

// Path returns the file the reader was opened from.
func (r *Reader) Path() string {
	return r.filePath
}

func (r *Reader) Close() error {
	return r.file.Close()
}
