package assembler

import "strconv"

// DefaultOrigin is where assembled code is placed when no .org is given: the
// reset vector of the boot ROM.
const DefaultOrigin = 0xBFC00000

type AssembledResult struct {
	Labels            map[string]uint32 // label name to absolute address
	LabelToLineNumber map[string]int    // label name to line number
	AddressToLine     map[uint32]int    // absolute address to line number
	Origin            uint32            // address of ProgramText[0]
	ProgramText       []uint32
	Diagnostics       []Diagnostic
	fileContents      []string // each line of the file
	FileName          string   // for reflection
	labelLinkRequests []labelLinkRequest
	currentAddress    uint32
	lineLengthDeltas  map[int]int // the number of characters that were removed from the front of each line
}

type linkKind int

const (
	linkBranch linkKind = iota // 16-bit word offset from the delay slot
	linkJump                   // 26-bit region index
	linkHigh                   // upper half of an absolute address
	linkLow                    // lower half of an absolute address
	linkWord                   // full 32-bit data word
)

type labelLinkRequest struct {
	labelName string
	address   uint32 // absolute address of the word to patch
	kind      linkKind
}

type EvaluationType int

const (
	EvaluationTypeIntegerLiteral EvaluationType = iota
	EvaluationTypeUnsignedIntegerLiteral
	EvaluationTypeRegister
	EvaluationTypeLabel
)

type EvaluationResult struct {
	Value        int64
	Type         EvaluationType
	MatchedValue string // the string that was matched to get this result
}

type TextPosition struct {
	Line int `json:"line"`
	Char int `json:"character"`
}

type TextRange struct {
	Start TextPosition `json:"start"`
	End   TextPosition `json:"end"`
}

type DiagnosticSeverity int

const (
	Error       DiagnosticSeverity = 1
	Warning     DiagnosticSeverity = 2
	Information DiagnosticSeverity = 3
	Hint        DiagnosticSeverity = 4
)

type Diagnostic struct {
	Range    TextRange          `json:"range"`
	Message  string             `json:"message"`
	Source   string             `json:"source,omitempty"`
	Severity DiagnosticSeverity `json:"severity,omitempty"`
}

// RegisterNames holds the conventional o32 names, indexed by register number.
var RegisterNames = [32]string{
	"zero", "at", "v0", "v1", "a0", "a1", "a2", "a3",
	"t0", "t1", "t2", "t3", "t4", "t5", "t6", "t7",
	"s0", "s1", "s2", "s3", "s4", "s5", "s6", "s7",
	"t8", "t9", "k0", "k1", "gp", "sp", "fp", "ra",
}

var RegisterNameMap = map[string]int{}

func init() {
	for i, name := range RegisterNames {
		RegisterNameMap["$"+name] = i
		RegisterNameMap["$"+strconv.Itoa(i)] = i
	}
	RegisterNameMap["$s8"] = 30
}
