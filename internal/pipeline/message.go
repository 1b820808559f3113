package pipeline

// MessageKind tags the payload carried by a Message.
type MessageKind uint8

const (
	// KindText carries the full contents of one document.
	KindText MessageKind = iota + 1
	// KindFilePath carries the path of a spilled segment file.
	KindFilePath
)

func (k MessageKind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindFilePath:
		return "file-path"
	default:
		return "unknown"
	}
}

// Message is the tagged value that flows between pipeline stages. The
// read stage produces text messages; the write stage produces file-path
// messages. Each stage checks the tag it expects, so a message of the
// wrong kind is caught where it arrives instead of corrupting the index.
type Message struct {
	Kind MessageKind
	Text string
	Path string
}

// TextMessage wraps document contents for the indexing stage.
func TextMessage(text string) Message {
	return Message{Kind: KindText, Text: text}
}

// FileMessage wraps a segment file path for the merge stage.
func FileMessage(path string) Message {
	return Message{Kind: KindFilePath, Path: path}
}
