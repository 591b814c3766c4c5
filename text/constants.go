package text

const (
	// OpeningCodeTag and ClosingCodeTag wrap the code region in the prompt.
	// The model is asked to close its output with ClosingCodeTag; a response
	// that itself contains the opening tag is malformed and discarded.
	OpeningCodeTag = "<CODE5711>"
	ClosingCodeTag = "</CODE5711>"

	// SuffixMatchWindow is the number of characters (after leading
	// whitespace) compared between an insertion line and the first non-blank
	// suffix line when trimming regenerated suffix content.
	SuffixMatchWindow = 15

	// TailLineCount is the number of trailing non-blank prefix lines kept in
	// the tail component by GetHeadAndTail.
	TailLineCount = 2
)
