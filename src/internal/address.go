package internal

import "regexp"

var addressPattern = regexp.MustCompile(`^0x[a-fA-F0-9]{40}$`)

// ValidateAddress 校验合约地址格式，任何网络请求之前调用
func ValidateAddress(address string) error {
	if !addressPattern.MatchString(address) {
		return &InvalidAddressError{Address: address}
	}
	return nil
}
