package backend

import (
	"bytes"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/vm"
)

// OpcodeHit 字节码扫描命中的风险特征
type OpcodeHit struct {
	Check       string
	Impact      string
	Description string
}

var (
	eip1167Prefix = []byte{0x36, 0x3d, 0x3d, 0x37, 0x3d, 0x3d, 0x3d, 0x36, 0x3d}
	eip1167Suffix = []byte{0x5a, 0xf4, 0x3d, 0x82, 0x80, 0x3e, 0x90, 0x3d, 0x91, 0x60, 0x2b, 0x57, 0xfd, 0x5b, 0xf3}

	// bytes32(uint256(keccak256("eip1967.proxy.implementation")) - 1)
	eip1967ImplementationSlot = common.HexToHash("0x360894a13ba1a3210667c828492db98dca3e2076cc3735a920a3ca505d382bbc")
)

type opcodeRule struct {
	check       string
	impact      string
	description string
}

var opcodeRules = map[vm.OpCode]opcodeRule{
	vm.SELFDESTRUCT: {"selfdestruct", "High", "Bytecode contains SELFDESTRUCT; the contract can be destroyed and its balance sent to an arbitrary address"},
	vm.DELEGATECALL: {"delegatecall", "Medium", "Bytecode contains DELEGATECALL; external code can run against this contract's storage"},
	vm.CALLCODE:     {"callcode", "Medium", "Bytecode contains deprecated CALLCODE"},
	vm.ORIGIN:       {"tx-origin", "Medium", "Bytecode reads tx.origin (ORIGIN), often used for unsafe authorization"},
	vm.CREATE2:      {"create2", "Low", "Bytecode contains CREATE2; code at derived addresses can be redeployed"},
}

// ScanBytecode 线性扫描字节码，跳过 PUSH 数据
func ScanBytecode(code []byte) []OpcodeHit {
	if len(code) == 0 {
		return []OpcodeHit{{
			Check:       "no-code",
			Impact:      "Informational",
			Description: "No code deployed at this address (externally owned account or destroyed contract)",
		}}
	}

	var hits []OpcodeHit
	if impl, ok := minimalProxyTarget(code); ok {
		hits = append(hits, OpcodeHit{
			Check:       "eip1167-proxy",
			Impact:      "Informational",
			Description: fmt.Sprintf("EIP-1167 minimal proxy forwarding all calls to %s", impl.Hex()),
		})
	}

	seen := make(map[vm.OpCode]bool)
	hasEIP1967Slot := false
	for pc := 0; pc < len(code); pc++ {
		op := vm.OpCode(code[pc])
		if op.IsPush() {
			n := int(op - vm.PUSH0)
			end := pc + 1 + n
			if end > len(code) {
				end = len(code)
			}
			if n == 32 && bytes.Equal(code[pc+1:end], eip1967ImplementationSlot.Bytes()) {
				hasEIP1967Slot = true
			}
			pc = end - 1
			continue
		}
		if _, ok := opcodeRules[op]; ok {
			seen[op] = true
		}
	}

	if hasEIP1967Slot {
		hits = append(hits, OpcodeHit{
			Check:       "eip1967-proxy",
			Impact:      "Informational",
			Description: "Bytecode references the EIP-1967 implementation slot; the contract is likely an upgradeable proxy",
		})
	}
	for _, op := range []vm.OpCode{vm.SELFDESTRUCT, vm.DELEGATECALL, vm.CALLCODE, vm.ORIGIN, vm.CREATE2} {
		if seen[op] {
			r := opcodeRules[op]
			hits = append(hits, OpcodeHit{Check: r.check, Impact: r.impact, Description: r.description})
		}
	}
	return hits
}

func minimalProxyTarget(code []byte) (common.Address, bool) {
	if len(code) < len(eip1167Prefix)+1 || !bytes.HasPrefix(code, eip1167Prefix) {
		return common.Address{}, false
	}
	pushOp := vm.OpCode(code[len(eip1167Prefix)])
	if pushOp < vm.PUSH1 || pushOp > vm.PUSH20 {
		return common.Address{}, false
	}
	addrLen := int(pushOp - vm.PUSH0)
	start := len(eip1167Prefix) + 1
	if len(code) < start+addrLen+len(eip1167Suffix) {
		return common.Address{}, false
	}
	if !bytes.Equal(code[start+addrLen:start+addrLen+len(eip1167Suffix)], eip1167Suffix) {
		return common.Address{}, false
	}
	return common.BytesToAddress(code[start : start+addrLen]), true
}
