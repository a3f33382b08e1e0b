package assembler

import (
	"encoding/binary"
	"strconv"
	"strings"
)

func trimAndGetFrontDiffCount(str, cutset string) (string, int) {
	strOut := strings.Trim(str, cutset)
	return strOut, len(str) - len(strings.TrimLeft(str, cutset))
}

func checkValidSymbolName(str string) (bool, string) {
	str = strings.TrimSpace(str)
	if len(str) == 0 {
		return false, "symbol names must not be empty"
	}

	if str[0] >= '0' && str[0] <= '9' {
		return false, "symbol names must not start with a digit"
	}

	// must only contain alphanumeric characters, underscores and dots
	for _, char := range str {
		if !((char >= 'a' && char <= 'z') || (char >= 'A' && char <= 'Z') || (char >= '0' && char <= '9') || char == '_' || char == '.') {
			return false, "symbol names must only contain alphanumeric characters, underscores and dots"
		}
	}

	return true, ""
}

func (a *AssembledResult) Evaluate(str string) (EvaluationResult, error) {
	str = strings.TrimSpace(str)
	if len(str) == 0 {
		return EvaluationResult{}, EvaluationErrors.InvalidExpression(str)
	}

	// check if it is a label
	if _, ok := a.LabelToLineNumber[str]; ok {
		return EvaluationResult{Value: int64(a.Labels[str]), Type: EvaluationTypeLabel, MatchedValue: str}, nil
	}

	// check if it is a register
	if str[0] == '$' {
		reg, ok := RegisterNameMap[strings.ToLower(str)]
		if !ok {
			return EvaluationResult{}, EvaluationErrors.InvalidExpression(str)
		}
		return EvaluationResult{Value: int64(reg), Type: EvaluationTypeRegister, MatchedValue: str}, nil
	}

	if !(str[0] >= '0' && str[0] <= '9' || str[0] == '-' || str[0] == '+') {
		return EvaluationResult{}, EvaluationErrors.UnresolvedSymbol(str)
	}

	// base prefixes (0x, 0b, 0o) are handled by ParseInt
	value, err := strconv.ParseInt(str, 0, 64)
	if err != nil {
		return EvaluationResult{}, EvaluationErrors.InvalidNumberLiteral(str)
	}

	if value >= 0 {
		return EvaluationResult{Value: value, Type: EvaluationTypeUnsignedIntegerLiteral, MatchedValue: str}, nil
	}

	return EvaluationResult{Value: value, Type: EvaluationTypeIntegerLiteral, MatchedValue: str}, nil
}

func (a *AssembledResult) EvaluateAndReportErrors(str string, line, charPos int) (EvaluationResult, bool) {
	result, err := a.Evaluate(str)
	r := TextRange{
		Start: TextPosition{Line: line, Char: charPos}, End: TextPosition{Line: line, Char: charPos + len(str)},
	}
	if err != nil && EvaluationErrors.IsUnresolvedSymbolError(err) {
		a.Diagnostics = append(a.Diagnostics, Errors.UnresolvedSymbolName(str, r))
		return EvaluationResult{}, false
	} else if err != nil && EvaluationErrors.IsInvalidNumberLiteralError(err) {
		a.Diagnostics = append(a.Diagnostics, Errors.InvalidIntegerLiteral(str, r))
		return EvaluationResult{}, false
	} else if err != nil && EvaluationErrors.IsInvalidExpressionError(err) {
		a.Diagnostics = append(a.Diagnostics, Errors.InvalidExpression(str, r))
		return EvaluationResult{}, false
	} else if err != nil {
		a.Diagnostics = append(a.Diagnostics, Errors.AnonymousError(err.Error(), r))
		return EvaluationResult{}, false
	}
	return result, true
}

func (a *AssembledResult) extractLabels() {
	for i, line := range a.fileContents {
		// removing whitespaces
		line, diff := trimAndGetFrontDiffCount(line, " \t\r")
		if strings.Contains(line, "#") {
			// remove comments
			line = line[:strings.Index(line, "#")]
		}
		if strings.Contains(line, ":") {
			colonIndex := strings.Index(line, ":")
			labelName := line[:colonIndex]
			r := TextRange{
				Start: TextPosition{Line: i, Char: diff}, End: TextPosition{Line: i, Char: diff + colonIndex + 1},
			}
			if valid, reason := checkValidSymbolName(labelName); !valid {
				a.Diagnostics = append(a.Diagnostics, Errors.InvalidSymbolName(labelName, reason, r))
				continue
			}
			if _, ok := a.LabelToLineNumber[labelName]; ok {
				a.Diagnostics = append(a.Diagnostics, Errors.DuplicateLabel(labelName, r))
				continue
			}
			a.LabelToLineNumber[labelName] = i
			a.fileContents[i] = line[colonIndex+1:] // remove the label from the line
			a.lineLengthDeltas[i] = diff + colonIndex + 1
		}
	}
}

type operand struct {
	text string
	char int // column of the first non-blank character
}

func splitOperands(str string, start int) []operand {
	if strings.TrimSpace(str) == "" {
		return nil
	}
	var out []operand
	for _, part := range strings.Split(str, ",") {
		text, diff := trimAndGetFrontDiffCount(part, " \t")
		out = append(out, operand{text: text, char: start + diff})
		start += len(part) + 1
	}
	return out
}

func (a *AssembledResult) operandRange(lineNum int, op operand) TextRange {
	return TextRange{
		Start: TextPosition{Line: lineNum, Char: op.char}, End: TextPosition{Line: lineNum, Char: op.char + len(op.text)},
	}
}

func (a *AssembledResult) parseRegister(op operand, lineNum int) (uint32, bool) {
	res, ok := a.EvaluateAndReportErrors(op.text, lineNum, op.char)
	if !ok {
		return 0, false
	}
	if res.Type != EvaluationTypeRegister {
		a.Diagnostics = append(a.Diagnostics, Errors.InvalidRegister(op.text, a.operandRange(lineNum, op)))
		return 0, false
	}
	return uint32(res.Value), true
}

// parseImmediate accepts literals that fit in bits as either a signed or an
// unsigned quantity, and returns them truncated to the field.
func (a *AssembledResult) parseImmediate(op operand, lineNum, bits int) (uint32, bool) {
	res, ok := a.EvaluateAndReportErrors(op.text, lineNum, op.char)
	if !ok {
		return 0, false
	}
	if res.Type != EvaluationTypeIntegerLiteral && res.Type != EvaluationTypeUnsignedIntegerLiteral {
		a.Diagnostics = append(a.Diagnostics, Errors.InvalidIntegerLiteral(op.text, a.operandRange(lineNum, op)))
		return 0, false
	}
	if res.Value < -(int64(1)<<(bits-1)) || res.Value >= int64(1)<<bits {
		a.Diagnostics = append(a.Diagnostics, Errors.ImmediateOverflow(op.text, bits, a.operandRange(lineNum, op)))
		return 0, false
	}
	return uint32(res.Value) & uint32((int64(1)<<bits)-1), true
}

// parseTarget resolves a branch or jump destination. Labels are patched
// after every line has been placed, so the returned value is only
// meaningful for literal addresses.
func (a *AssembledResult) parseTarget(op operand, lineNum int, kind linkKind, address uint32) (value uint32, linked, ok bool) {
	res, ok := a.EvaluateAndReportErrors(op.text, lineNum, op.char)
	if !ok {
		return 0, false, false
	}
	switch res.Type {
	case EvaluationTypeLabel:
		a.labelLinkRequests = append(a.labelLinkRequests, labelLinkRequest{labelName: res.MatchedValue, address: address, kind: kind})
		return 0, true, true
	case EvaluationTypeRegister:
		a.Diagnostics = append(a.Diagnostics, Errors.InvalidExpression(op.text, a.operandRange(lineNum, op)))
		return 0, false, false
	}
	return uint32(res.Value), false, true
}

func (a *AssembledResult) parseMemOperand(op operand, lineNum int) (offset, base uint32, ok bool) {
	open := strings.Index(op.text, "(")
	if open < 0 || !strings.HasSuffix(op.text, ")") {
		a.Diagnostics = append(a.Diagnostics, Errors.InvalidExpression(op.text, a.operandRange(lineNum, op)))
		return 0, 0, false
	}
	if off := strings.TrimSpace(op.text[:open]); off != "" {
		offset, ok = a.parseImmediate(operand{text: off, char: op.char}, lineNum, 16)
		if !ok {
			return 0, 0, false
		}
	}
	inner, diff := trimAndGetFrontDiffCount(op.text[open+1:len(op.text)-1], " \t")
	base, ok = a.parseRegister(operand{text: inner, char: op.char + open + 1 + diff}, lineNum)
	return offset, base, ok
}

var formatSyntax = map[Format]string{
	FormatNone:     "<opcode>",
	FormatJump:     "<opcode> <target>",
	FormatBranch2:  "<opcode> <reg>, <reg>, <target>",
	FormatBranch1:  "<opcode> <reg>, <target>",
	FormatShift:    "<opcode> <reg>, <reg>, <shamt>",
	FormatShiftV:   "<opcode> <reg>, <reg>, <reg>",
	FormatImm:      "<opcode> <reg>, <reg>, <imm>",
	FormatLui:      "<opcode> <reg>, <imm>",
	FormatReg3:     "<opcode> <reg>, <reg>, <reg>",
	FormatReg2:     "<opcode> <reg>, <reg>",
	FormatRd:       "<opcode> <reg>",
	FormatRs:       "<opcode> <reg>",
	FormatJalr:     "<opcode> [<reg>,] <reg>",
	FormatMem:      "<opcode> <reg>, <imm>(<reg>)",
	FormatCop:      "<opcode> <reg>, <cop reg>[, <sel>]",
	FormatCount:    "<opcode> <reg>, <reg>",
	FormatBitfield: "<opcode> <reg>, <reg>, <pos>, <size>",
}

func operandCountValid(format Format, n int) bool {
	switch format {
	case FormatNone:
		return n == 0
	case FormatJump, FormatRd, FormatRs:
		return n == 1
	case FormatBranch1, FormatLui, FormatReg2, FormatMem, FormatCount:
		return n == 2
	case FormatBranch2, FormatShift, FormatShiftV, FormatImm, FormatReg3:
		return n == 3
	case FormatJalr:
		return n == 1 || n == 2
	case FormatCop:
		return n == 2 || n == 3
	case FormatBitfield:
		return n == 4
	}
	return false
}

// assembleInstruction encodes one machine instruction placed at address.
func (a *AssembledResult) assembleInstruction(in Instruction, ops []operand, lineNum int, r TextRange, address uint32) (uint32, bool) {
	if !operandCountValid(in.Format, len(ops)) {
		a.Diagnostics = append(a.Diagnostics, Errors.InvalidInstructionFormat(formatSyntax[in.Format], in.Mnemonic, r))
		return 0, false
	}

	var f Fields
	ok := true
	reg := func(i int, dst *uint32) {
		if ok {
			*dst, ok = a.parseRegister(ops[i], lineNum)
		}
	}
	imm := func(i int, bits int, dst *uint32) {
		if ok {
			*dst, ok = a.parseImmediate(ops[i], lineNum, bits)
		}
	}

	switch in.Format {
	case FormatJump:
		var target uint32
		target, _, ok = a.parseTarget(ops[0], lineNum, linkJump, address)
		f.Target = target >> 2
	case FormatBranch2, FormatBranch1:
		reg(0, &f.Rs)
		last := 1
		if in.Format == FormatBranch2 {
			reg(1, &f.Rt)
			last = 2
		}
		if ok && in.Op == OpTRAP {
			imm(last, 16, &f.Imm)
		} else if ok {
			var target uint32
			var linked bool
			target, linked, ok = a.parseTarget(ops[last], lineNum, linkBranch, address)
			if ok && !linked {
				f.Imm = uint32((int32(target-(address+4)) >> 2)) & 0xFFFF
			}
		}
	case FormatShift:
		reg(0, &f.Rd)
		reg(1, &f.Rt)
		imm(2, 5, &f.Sa)
	case FormatShiftV:
		reg(0, &f.Rd)
		reg(1, &f.Rt)
		reg(2, &f.Rs)
	case FormatImm:
		reg(0, &f.Rt)
		reg(1, &f.Rs)
		imm(2, 16, &f.Imm)
	case FormatLui:
		reg(0, &f.Rt)
		imm(1, 16, &f.Imm)
	case FormatReg3:
		reg(0, &f.Rd)
		reg(1, &f.Rs)
		reg(2, &f.Rt)
	case FormatReg2:
		reg(0, &f.Rs)
		reg(1, &f.Rt)
	case FormatRd:
		reg(0, &f.Rd)
	case FormatRs:
		reg(0, &f.Rs)
	case FormatJalr:
		f.Rd = 31
		if len(ops) == 2 {
			reg(0, &f.Rd)
			reg(1, &f.Rs)
		} else {
			reg(0, &f.Rs)
		}
	case FormatMem:
		if in.Op == OpCACHE {
			imm(0, 5, &f.Rt)
		} else {
			reg(0, &f.Rt)
		}
		if ok {
			f.Imm, f.Rs, ok = a.parseMemOperand(ops[1], lineNum)
		}
	case FormatCop:
		reg(0, &f.Rt)
		reg(1, &f.Rd)
		if len(ops) == 3 {
			imm(2, 3, &f.Funct)
		}
	case FormatCount:
		reg(0, &f.Rd)
		reg(1, &f.Rs)
		f.Rt = f.Rd
	case FormatBitfield:
		var pos, size uint32
		reg(0, &f.Rt)
		reg(1, &f.Rs)
		imm(2, 5, &pos)
		imm(3, 6, &size)
		if ok && (size == 0 || size > 32) {
			a.Diagnostics = append(a.Diagnostics, Errors.ImmediateOverflow(ops[3].text, 5, a.operandRange(lineNum, ops[3])))
			ok = false
		}
		f.Sa = pos
		f.Rd = size - 1
	}

	if !ok {
		return 0, false
	}
	return Encode(in, f), true
}

func (a *AssembledResult) emit(word uint32, lineNum int) {
	a.AddressToLine[a.currentAddress] = lineNum
	a.ProgramText = append(a.ProgramText, word)
	a.currentAddress += 4
}

func isControlTransfer(word uint32) bool {
	in := Decode(word)
	if in.Op == OpTRAP {
		return false
	}
	switch in.Format {
	case FormatJump, FormatBranch1, FormatBranch2, FormatJalr:
		return true
	}
	return in.Op == OpJR || in.Op == OpERET
}

// parseDirective handles .org, .word and .align. Bookkeeping directives
// emitted by compilers are accepted and ignored.
func (a *AssembledResult) parseDirective(directive string, ops []operand, lineNum int, r TextRange) {
	switch directive {
	case ".text", ".data", ".set", ".globl", ".global", ".ent", ".end", ".frame", ".mask", ".fmask":
		// accepted for compatibility with compiler output
	case ".org":
		if len(ops) != 1 {
			a.Diagnostics = append(a.Diagnostics, Errors.InvalidInstructionFormat(".org <address>", directive, r))
			return
		}
		res, ok := a.EvaluateAndReportErrors(ops[0].text, lineNum, ops[0].char)
		if !ok {
			return
		}
		addr := uint32(res.Value) &^ 3
		if len(a.ProgramText) == 0 {
			a.Origin = addr
			a.currentAddress = addr
			return
		}
		if addr < a.currentAddress {
			a.Diagnostics = append(a.Diagnostics, Errors.OriginMovesBackwards(ops[0].text, a.operandRange(lineNum, ops[0])))
			return
		}
		for a.currentAddress < addr {
			a.emit(0, lineNum)
		}
	case ".align":
		if len(ops) != 1 {
			a.Diagnostics = append(a.Diagnostics, Errors.InvalidInstructionFormat(".align <power>", directive, r))
			return
		}
		power, ok := a.parseImmediate(ops[0], lineNum, 4)
		if !ok {
			return
		}
		for a.currentAddress&((1<<power)-1) != 0 {
			a.emit(0, lineNum)
		}
	case ".word":
		for _, op := range ops {
			res, ok := a.EvaluateAndReportErrors(op.text, lineNum, op.char)
			if !ok {
				continue
			}
			if res.Type == EvaluationTypeRegister {
				a.Diagnostics = append(a.Diagnostics, Errors.InvalidIntegerLiteral(op.text, a.operandRange(lineNum, op)))
				continue
			}
			if res.Type == EvaluationTypeLabel {
				a.labelLinkRequests = append(a.labelLinkRequests, labelLinkRequest{labelName: res.MatchedValue, address: a.currentAddress, kind: linkWord})
			}
			a.emit(uint32(res.Value), lineNum)
		}
	default:
		a.Diagnostics = append(a.Diagnostics, Errors.InvalidDirective(directive, r))
	}
}

// parsePseudoInstruction expands the handful of assembler idioms that have
// no encoding of their own. It reports whether mnemonic was one of them.
func (a *AssembledResult) parsePseudoInstruction(mnemonic string, ops []operand, lineNum int, r TextRange) bool {
	switch mnemonic {
	case "nop":
		if len(ops) != 0 {
			a.Diagnostics = append(a.Diagnostics, Errors.InvalidInstructionFormat("<opcode>", mnemonic, r))
			return true
		}
		a.emit(0, lineNum)
	case "move":
		if len(ops) != 2 {
			a.Diagnostics = append(a.Diagnostics, Errors.InvalidInstructionFormat("<opcode> <reg>, <reg>", mnemonic, r))
			return true
		}
		rd, ok1 := a.parseRegister(ops[0], lineNum)
		rs, ok2 := a.parseRegister(ops[1], lineNum)
		if ok1 && ok2 {
			a.emit(makeRTypeInstruction(OPCODE_SPECIAL, rs, 0, rd, 0, 0x21), lineNum)
		}
	case "b":
		if len(ops) != 1 {
			a.Diagnostics = append(a.Diagnostics, Errors.InvalidInstructionFormat("<opcode> <target>", mnemonic, r))
			return true
		}
		beq, _ := Lookup("beq")
		code, ok := a.assembleInstruction(beq, []operand{{"$zero", ops[0].char}, {"$zero", ops[0].char}, ops[0]}, lineNum, r, a.currentAddress)
		if ok {
			a.emit(code, lineNum)
		}
	case "li":
		if len(ops) != 2 {
			a.Diagnostics = append(a.Diagnostics, Errors.InvalidInstructionFormat("<opcode> <reg>, <imm>", mnemonic, r))
			return true
		}
		rt, ok := a.parseRegister(ops[0], lineNum)
		if !ok {
			return true
		}
		value, ok := a.parseImmediate(ops[1], lineNum, 32)
		if !ok {
			return true
		}
		if int32(value) >= -0x8000 && int32(value) < 0x8000 {
			a.emit(makeITypeInstruction(0x09, 0, rt, value), lineNum) // addiu
		} else if value <= 0xFFFF {
			a.emit(makeITypeInstruction(0x0D, 0, rt, value), lineNum) // ori
		} else {
			a.emit(makeITypeInstruction(0x0F, 0, rt, value>>16), lineNum) // lui
			if value&0xFFFF != 0 {
				a.emit(makeITypeInstruction(0x0D, rt, rt, value), lineNum)
			}
		}
	case "la":
		if len(ops) != 2 {
			a.Diagnostics = append(a.Diagnostics, Errors.InvalidInstructionFormat("<opcode> <reg>, <label>", mnemonic, r))
			return true
		}
		rt, ok := a.parseRegister(ops[0], lineNum)
		if !ok {
			return true
		}
		// always two words so label addresses do not depend on the value
		value, linked, ok := a.parseTarget(ops[1], lineNum, linkHigh, a.currentAddress)
		if !ok {
			return true
		}
		a.emit(makeITypeInstruction(0x0F, 0, rt, value>>16), lineNum)
		if linked {
			a.labelLinkRequests = append(a.labelLinkRequests, labelLinkRequest{
				labelName: strings.TrimSpace(ops[1].text), address: a.currentAddress, kind: linkLow,
			})
		}
		a.emit(makeITypeInstruction(0x0D, rt, rt, value), lineNum)
	default:
		return false
	}
	return true
}

func (a *AssembledResult) resolveLabelLinkRequests() {
	for _, request := range a.labelLinkRequests {
		labelAddr := a.Labels[request.labelName]
		index := (request.address - a.Origin) / 4
		instruction := a.ProgramText[index]

		lineNum := a.AddressToLine[request.address]
		charPos := strings.Index(a.fileContents[lineNum], request.labelName)
		r := TextRange{
			Start: TextPosition{Line: lineNum, Char: a.lineLengthDeltas[lineNum] + charPos}, End: TextPosition{Line: lineNum, Char: charPos + a.lineLengthDeltas[lineNum] + len(request.labelName)},
		}

		switch request.kind {
		case linkBranch:
			// the offset counts words from the delay slot
			offset := (int64(labelAddr) - int64(request.address+4)) >> 2
			if offset > 0x7FFF || offset < -0x8000 {
				a.Diagnostics = append(a.Diagnostics, Errors.LabelTooFar(request.labelName, r))
				continue
			}
			a.ProgramText[index] = (instruction &^ 0xFFFF) | (uint32(offset) & 0xFFFF)
		case linkJump:
			if labelAddr&0xF0000000 != (request.address+4)&0xF0000000 {
				a.Diagnostics = append(a.Diagnostics, Errors.LabelTooFar(request.labelName, r))
				continue
			}
			a.ProgramText[index] = makeJTypeInstruction(GetOpCode(instruction), labelAddr)
		case linkHigh:
			a.ProgramText[index] = (instruction &^ 0xFFFF) | (labelAddr >> 16)
		case linkLow:
			a.ProgramText[index] = (instruction &^ 0xFFFF) | (labelAddr & 0xFFFF)
		case linkWord:
			a.ProgramText[index] = labelAddr
		}
	}
}

func (a *AssembledResult) parseLines() {
	previousWasBranch := false
	for i, line := range a.fileContents {
		line = strings.ReplaceAll(line, "\t", " ") // replacing tabs with single space because it was originally just one character

		// removing comment
		line = strings.Split(line, "#")[0]

		line, diff := trimAndGetFrontDiffCount(line, " \r")
		diff += a.lineLengthDeltas[i]

		// checking if a label was on this line, if so setting its address
		for label, lineNum := range a.LabelToLineNumber {
			if lineNum == i {
				a.Labels[label] = a.currentAddress
			}
		}

		if len(line) == 0 {
			continue
		}

		mnemonic, rest, _ := strings.Cut(line, " ")
		mnemonic = strings.ToLower(mnemonic)
		ops := splitOperands(rest, diff+len(mnemonic)+1)
		r := TextRange{
			Start: TextPosition{Line: i, Char: diff}, End: TextPosition{Line: i, Char: diff + len(line)},
		}

		if strings.HasPrefix(mnemonic, ".") {
			a.parseDirective(mnemonic, ops, i, r)
			previousWasBranch = false
			continue
		}

		start := len(a.ProgramText)
		if !a.parsePseudoInstruction(mnemonic, ops, i, r) {
			in, ok := Lookup(mnemonic)
			if !ok || in.Format == FormatRaw {
				a.Diagnostics = append(a.Diagnostics, Errors.InvalidInstruction(mnemonic, TextRange{
					Start: TextPosition{Line: i, Char: diff},
					End:   TextPosition{Line: i, Char: diff + len(mnemonic)},
				}))
				continue
			}
			code, ok := a.assembleInstruction(in, ops, i, r, a.currentAddress)
			if !ok {
				continue
			}
			a.emit(code, i)
		}

		if len(a.ProgramText) > start {
			branch := isControlTransfer(a.ProgramText[start])
			if branch && previousWasBranch {
				a.Diagnostics = append(a.Diagnostics, Warnings.BranchInDelaySlot(r))
			}
			previousWasBranch = isControlTransfer(a.ProgramText[len(a.ProgramText)-1])
		}
	}
}

// Bytes returns the program text as a big-endian image starting at Origin.
func (a *AssembledResult) Bytes() []byte {
	out := make([]byte, 0, len(a.ProgramText)*4)
	for _, word := range a.ProgramText {
		out = binary.BigEndian.AppendUint32(out, word)
	}
	return out
}

// HasErrors reports whether any diagnostic is an error rather than a warning.
func (a *AssembledResult) HasErrors() bool {
	for _, d := range a.Diagnostics {
		if d.Severity == Error {
			return true
		}
	}
	return false
}

func Assemble(input string) *AssembledResult {
	return AssembleAt(input, DefaultOrigin)
}

// AssembleAt assembles input with origin as the address of the first word
// unless the source sets one with .org.
func AssembleAt(input string, origin uint32) (res *AssembledResult) {
	res = new(AssembledResult)
	res.Labels = make(map[string]uint32)
	res.lineLengthDeltas = make(map[int]int)
	res.AddressToLine = make(map[uint32]int)
	res.LabelToLineNumber = make(map[string]int)
	res.fileContents = strings.Split(input, "\n")
	res.Origin = origin
	res.currentAddress = origin

	// extract labels so the line parser can determine which symbols are labels
	res.extractLabels()

	res.parseLines()

	res.resolveLabelLinkRequests()
	return
}
