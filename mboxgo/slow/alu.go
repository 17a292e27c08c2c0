package slow

// Execute computes the RV64M result of funct3 on rs1 and rs2 as a hart would write it to rd.
// Word mode follows the *W instructions: 32-bit operands, result sign-extended to 64 bits.
// There are no word-mode MULH instructions; with wordop set they execute as their 64-bit form.
func Execute(funct3 uint8, wordop bool, rs1, rs2 uint64) uint64 {
	rs1Value, rs2Value := FromU64(rs1), FromU64(rs2)
	var rdValue U64
	if wordop {
		rdValue = executeWord(funct3, rs1Value, rs2Value)
	} else {
		rdValue = executeDouble(funct3, rs1Value, rs2Value)
	}
	return rdValue.val()
}

func executeDouble(funct3 uint8, rs1Value, rs2Value U64) (rdValue U64) {
	switch funct3 {
	case 0: // 000 = MUL: signed x signed
		rdValue = mul64(rs1Value, rs2Value)
	case 1: // 001 = MULH: upper bits of signed x signed
		rdValue = u256ToU64(shr(toU256(64), mul(signExtend64To256(rs1Value), signExtend64To256(rs2Value))))
	case 2: // 010 = MULHSU: upper bits of signed x unsigned
		rdValue = u256ToU64(shr(toU256(64), mul(signExtend64To256(rs1Value), u64ToU256(rs2Value))))
	case 3: // 011 = MULHU: upper bits of unsigned x unsigned
		rdValue = u256ToU64(shr(toU256(64), mul(u64ToU256(rs1Value), u64ToU256(rs2Value))))
	case 4: // 100 = DIV
		switch iszero64(rs2Value) {
		case true:
			rdValue = u64Mask()
		default:
			rdValue = sdiv64(rs1Value, rs2Value)
		}
	case 5: // 101 = DIVU
		switch iszero64(rs2Value) {
		case true:
			rdValue = u64Mask()
		default:
			rdValue = div64(rs1Value, rs2Value)
		}
	case 6: // 110 = REM
		switch iszero64(rs2Value) {
		case true:
			rdValue = rs1Value
		default:
			rdValue = smod64(rs1Value, rs2Value)
		}
	case 7: // 111 = REMU
		switch iszero64(rs2Value) {
		case true:
			rdValue = rs1Value
		default:
			rdValue = mod64(rs1Value, rs2Value)
		}
	}
	return
}

func executeWord(funct3 uint8, rs1Value, rs2Value U64) (rdValue U64) {
	// divide-by-zero is decided on the low word only
	rs2Zero := iszero64(and64(rs2Value, u32Mask()))
	switch funct3 {
	case 0: // 000 = MULW
		rdValue = mask32Signed64(mul64(and64(rs1Value, u32Mask()), and64(rs2Value, u32Mask())))
	case 1, 2, 3:
		rdValue = executeDouble(funct3, rs1Value, rs2Value)
	case 4: // 100 = DIVW
		switch rs2Zero {
		case true:
			rdValue = u64Mask()
		default:
			rdValue = mask32Signed64(sdiv64(mask32Signed64(rs1Value), mask32Signed64(rs2Value)))
		}
	case 5: // 101 = DIVUW
		switch rs2Zero {
		case true:
			rdValue = u64Mask()
		default:
			rdValue = mask32Signed64(div64(and64(rs1Value, u32Mask()), and64(rs2Value, u32Mask())))
		}
	case 6: // 110 = REMW
		switch rs2Zero {
		case true:
			rdValue = mask32Signed64(rs1Value)
		default:
			rdValue = mask32Signed64(smod64(mask32Signed64(rs1Value), mask32Signed64(rs2Value)))
		}
	case 7: // 111 = REMUW
		switch rs2Zero {
		case true:
			rdValue = mask32Signed64(rs1Value)
		default:
			rdValue = mask32Signed64(mod64(and64(rs1Value, u32Mask()), and64(rs2Value, u32Mask())))
		}
	}
	return
}
