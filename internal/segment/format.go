// Package segment serialises inverted index fragments into .tidx files
// and merges them into a single index. A segment holds JSON postings
// blocks followed by a JSON term dictionary; a fixed binary header and a
// checksummed footer frame the two regions.
package segment

import "path/filepath"

// MagicBytes identifies a valid .tidx segment file ("TIDX").
const (
	MagicBytes    uint32 = 0x54494458
	FormatVersion uint32 = 1
	HeaderSize    int    = 64
	FooterSize    int    = 32

	// Ext is the file extension shared by temporary segments and the
	// final merged index.
	Ext = ".tidx"

	// IndexFileName is the merged index written into the output directory.
	IndexFileName = "index" + Ext
)

// SegmentHeader is the 64-byte header written at the start of every segment.
type SegmentHeader struct {
	Magic      uint32
	Version    uint32
	TermCount  uint32
	DocCount   uint32
	DictOffset int64
	DictSize   int64
	PostOffset int64
	PostSize   int64
	CreatedAt  int64
}

// DictEntry maps a term to its postings offset, length, and document
// frequency in the segment file.
type DictEntry struct {
	Term       string `json:"t"`
	PostOffset int64  `json:"o"`
	PostLen    int    `json:"l"`
	DocFreq    int    `json:"d"`
}

// IndexPath returns the final index location inside outputDir.
func IndexPath(outputDir string) string {
	return filepath.Join(outputDir, IndexFileName)
}
